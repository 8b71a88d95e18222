package gen

import (
	"errors"
	"go/token"
	"log/slog"
	"strings"

	"github.com/syssam/stateshift"
)

// Option configures code generation.
type Option func(*Config) error

// WithTag sets the build tag guarding annotated sources.
func WithTag(tag string) Option {
	return func(c *Config) error {
		if !token.IsIdentifier(tag) {
			return stateshift.NewConfigError("Tag", tag, "build tag must be an identifier")
		}
		c.Tag = tag
		return nil
	}
}

// WithSuffix sets the suffix of generated file names.
// The suffix must end in ".go" and add something before it.
func WithSuffix(suffix string) Option {
	return func(c *Config) error {
		if !strings.HasSuffix(suffix, ".go") || suffix == ".go" {
			return stateshift.NewConfigError("Suffix", suffix, `suffix must end in ".go" and differ from it`)
		}
		if strings.HasSuffix(suffix, "_test.go") {
			return stateshift.NewConfigError("Suffix", suffix, "suffix must not produce test files")
		}
		c.Suffix = suffix
		return nil
	}
}

// WithHeader sets the file header comment.
// The header is added at the top of each generated file.
func WithHeader(header string) Option {
	return func(c *Config) error {
		for _, line := range strings.Split(header, "\n") {
			if !strings.HasPrefix(line, "//") {
				return stateshift.NewConfigError("Header", header, "every header line must be a // comment")
			}
		}
		c.Header = header
		return nil
	}
}

// WithStateField sets the name of the hidden state field.
func WithStateField(name string) Option {
	return func(c *Config) error {
		if !token.IsIdentifier(name) || token.IsExported(name) {
			return stateshift.NewConfigError("StateField", name, "state field must be an unexported identifier")
		}
		c.StateField = name
		return nil
	}
}

// WithWorkers sets the number of files expanded in parallel.
// Zero selects GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(c *Config) error {
		if n < 0 {
			return stateshift.NewConfigError("Workers", n, "workers cannot be negative")
		}
		c.Workers = n
		return nil
	}
}

// WithKeepGoing writes outputs even when some declarations fail.
func WithKeepGoing(keep bool) Option {
	return func(c *Config) error {
		c.KeepGoing = keep
		return nil
	}
}

// WithCache sets the incremental cache file. An empty path disables caching.
func WithCache(path string) Option {
	return func(c *Config) error {
		c.CachePath = path
		return nil
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) error {
		if l == nil {
			return stateshift.NewConfigError("Logger", nil, "logger cannot be nil")
		}
		c.Logger = l
		return nil
	}
}

// Apply applies options to the config.
// It returns the first error encountered.
func (c *Config) Apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return err
		}
	}
	return nil
}

// ApplyAll applies options and collects all errors.
// Returns a joined error if any options failed.
func (c *Config) ApplyAll(opts ...Option) error {
	var errs []error
	for _, opt := range opts {
		if err := opt(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
