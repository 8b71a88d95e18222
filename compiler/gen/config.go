package gen

import (
	"io"
	"log/slog"
	"runtime"
	"strings"
)

// Defaults of the generator configuration.
const (
	DefaultTag        = "stateshift"
	DefaultSuffix     = "_stateshift.go"
	DefaultHeader     = "// Code generated by stateshift. DO NOT EDIT."
	DefaultStateField = "_state"
)

// Config holds the global configuration of the state-overlay generator.
type Config struct {
	// Tag is the build tag guarding annotated sources. Generated files carry
	// the negated tag so exactly one of the two is compiled.
	Tag string

	// Suffix replaces ".go" in the source name to form the output name.
	Suffix string

	// Header is the comment placed at the top of every generated file.
	Header string

	// StateField names the hidden zero-size field carrying the state vector.
	StateField string

	// Workers bounds the number of files expanded in parallel.
	Workers int

	// KeepGoing writes outputs of files that have diagnostics, leaving the
	// failing declarations out.
	KeepGoing bool

	// CachePath is the incremental cache file. Empty disables the cache.
	CachePath string

	// Logger receives progress records. Nil discards them.
	Logger *slog.Logger
}

// NewConfig returns the default configuration with opts applied.
func NewConfig(opts ...Option) (*Config, error) {
	c := &Config{
		Tag:        DefaultTag,
		Suffix:     DefaultSuffix,
		Header:     DefaultHeader,
		StateField: DefaultStateField,
		Workers:    runtime.GOMAXPROCS(0),
	}
	if err := c.Apply(opts...); err != nil {
		return nil, err
	}
	return c, nil
}

// OutputName returns the generated file name for the source file src.
func (c *Config) OutputName(src string) string {
	return strings.TrimSuffix(src, ".go") + c.suffix()
}

// IsOutput reports whether name is a generated file name.
func (c *Config) IsOutput(name string) bool {
	return strings.HasSuffix(name, c.suffix())
}

// Fingerprint returns the settings that change generated output, for cache keys.
func (c *Config) Fingerprint() []byte {
	return []byte(strings.Join([]string{c.tag(), c.suffix(), c.Header, c.stateField()}, "\x00"))
}

func (c *Config) tag() string {
	if c.Tag == "" {
		return DefaultTag
	}
	return c.Tag
}

func (c *Config) suffix() string {
	if c.Suffix == "" {
		return DefaultSuffix
	}
	return c.Suffix
}

func (c *Config) stateField() string {
	if c.StateField == "" {
		return DefaultStateField
	}
	return c.StateField
}

func (c *Config) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c.Logger
}

func (c *Config) workers() int {
	if c.Workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return c.Workers
}
