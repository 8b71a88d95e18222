package gen

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/syssam/stateshift"
)

// Mode selects what the generator does with an expanded file.
type Mode uint8

const (
	// ModeWrite writes outputs that changed.
	ModeWrite Mode = iota
	// ModeCheck writes nothing and reports outputs that are out of date.
	ModeCheck
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	if m == ModeCheck {
		return "check"
	}
	return "write"
}

// Generator expands annotated source files in parallel and writes their
// generated companions.
//
// Example:
//
//	cfg, _ := gen.NewConfig(gen.WithCache(".stateshift.cache"))
//	report, err := gen.NewGenerator(cfg).Generate(ctx, files)
type Generator struct {
	cfg   *Config
	mode  Mode
	cache stateshift.Cache
	log   *slog.Logger
}

// NewGenerator creates a generator writing outputs.
func NewGenerator(cfg *Config) *Generator {
	if cfg == nil {
		cfg = &Config{}
	}
	return &Generator{cfg: cfg, log: cfg.logger()}
}

// WithMode sets what the generator does with expanded files.
func (g *Generator) WithMode(m Mode) *Generator {
	g.mode = m
	return g
}

// WithCache sets the incremental cache, overriding Config.CachePath.
func (g *Generator) WithCache(c stateshift.Cache) *Generator {
	g.cache = c
	return g
}

// FileReport is the outcome of one source file.
type FileReport struct {
	Source     string
	Output     string
	Types      []string
	Operations int
	Cached     bool // skipped, output known to be current
	Written    bool
	Bytes      int // size of the written output
	Stale      bool // check mode: output differs from the expansion
	Err        error
}

// Report is the outcome of a generator run.
type Report struct {
	Files    []FileReport
	Duration time.Duration
	Metrics  Metrics
}

// Metrics counts what a run did.
type Metrics struct {
	Expanded int
	Cached   int
	Written  int
	Stale    int
	Bytes    int64
}

// Err joins the errors of every file.
func (r *Report) Err() error {
	var errs []error
	for _, f := range r.Files {
		if f.Err != nil {
			errs = append(errs, f.Err)
		}
	}
	return errors.Join(errs...)
}

// StaleFiles returns the outputs found out of date in check mode.
func (r *Report) StaleFiles() []string {
	var out []string
	for _, f := range r.Files {
		if f.Stale {
			out = append(out, f.Output)
		}
	}
	return out
}

// Generate expands every source. Diagnostics of one file do not stop the
// others; the returned error joins them all. Cancelling ctx stops the run
// between files.
func (g *Generator) Generate(ctx context.Context, sources []string) (*Report, error) {
	start := time.Now()
	cache, flush, err := g.openCache()
	if err != nil {
		return nil, err
	}
	var (
		mu     sync.Mutex
		report = &Report{Files: make([]FileReport, len(sources))}
	)
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.cfg.workers())
	for i, src := range sources {
		eg.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			fr := g.file(ctx, cache, src)
			report.Files[i] = fr
			mu.Lock()
			report.Metrics.add(fr)
			mu.Unlock()
			return nil
		})
	}
	waitErr := eg.Wait()
	if flush != nil {
		if err := flush(); err != nil {
			g.log.Warn("cache not saved", "path", g.cfg.CachePath, "error", err)
		}
	}
	report.Duration = time.Since(start)
	g.log.Info("generation finished",
		"mode", g.mode.String(),
		"files", len(sources),
		"written", report.Metrics.Written,
		"cached", report.Metrics.Cached,
		"stale", report.Metrics.Stale,
		"duration", report.Duration,
	)
	if waitErr != nil {
		return report, waitErr
	}
	return report, report.Err()
}

func (m *Metrics) add(fr FileReport) {
	switch {
	case fr.Cached:
		m.Cached++
		return
	case fr.Stale:
		m.Stale++
	}
	m.Expanded++
	if fr.Written {
		m.Written++
		m.Bytes += int64(fr.Bytes)
	}
}

// openCache returns the cache to use and, for a cache opened from
// Config.CachePath, the function persisting it.
func (g *Generator) openCache() (stateshift.Cache, func() error, error) {
	if g.cache != nil || g.cfg.CachePath == "" || g.mode == ModeCheck {
		return g.cache, nil, nil
	}
	fc, err := stateshift.OpenFileCache(g.cfg.CachePath)
	if err != nil {
		return nil, nil, stateshift.NewConfigError("CachePath", g.cfg.CachePath, err.Error())
	}
	return fc, fc.Flush, nil
}

// file expands one source file.
func (g *Generator) file(ctx context.Context, cache stateshift.Cache, path string) FileReport {
	start := time.Now()
	out := g.cfg.OutputName(path)
	fr := FileReport{Source: path, Output: out}
	log := g.log.With("file", path, "output", out)

	src, err := os.ReadFile(path)
	if err != nil {
		fr.Err = stateshift.NewGenerationError("load", path, "", err)
		return fr
	}
	existing, err := os.ReadFile(out)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		fr.Err = stateshift.NewGenerationError("load", out, "", err)
		return fr
	}
	useCache := cache != nil && g.mode == ModeWrite
	if useCache {
		key := g.key(path, src, existing)
		if ok, err := key.Fresh(ctx, cache); err != nil {
			log.Warn("cache lookup failed", "error", err)
		} else if ok {
			fr.Cached = true
			log.Debug("up to date", "cached", true)
			return fr
		}
	}

	res, err := Expand(path, src, g.cfg)
	if res != nil {
		fr.Types, fr.Operations = res.Types, res.Operations
		if res.Raw != nil {
			p := writeDebug(out, res.Raw)
			log.Error("output does not format", "debug", p)
		} else if res.Code != nil {
			removeDebug(out)
		}
	}
	fr.Err = err
	if res == nil || res.Code == nil {
		log.Error("expansion failed", "error", err)
		return fr
	}

	switch {
	case bytes.Equal(existing, res.Code):
	case g.mode == ModeCheck:
		fr.Stale = true
		fr.Err = errors.Join(fr.Err, stateshift.NewGenerationError("check", out, "generated file is out of date", nil))
	default:
		if werr := stateshift.WriteFile(out, res.Code, 0o644); werr != nil {
			fr.Err = errors.Join(fr.Err, stateshift.NewGenerationError("write", out, "", werr))
			return fr
		}
		fr.Written, fr.Bytes = true, len(res.Code)
	}
	if useCache && fr.Err == nil {
		if err := g.key(path, src, res.Code).Store(ctx, cache); err != nil {
			log.Warn("cache update failed", "error", err)
		}
	}
	log.Debug("expanded",
		"types", len(fr.Types),
		"operations", fr.Operations,
		"written", fr.Written,
		"cached", false,
		"duration", time.Since(start),
	)
	return fr
}

// key returns the cache key of path: the output depends on the source, the
// configuration, the generator version and the output file it produced.
func (g *Generator) key(path string, src, output []byte) stateshift.CacheKey {
	return stateshift.NewCacheKey(path, src, g.cfg.Fingerprint(), []byte(stateshift.Version), output)
}
