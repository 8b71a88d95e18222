// Package watch reruns generation when annotated sources change.
package watch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for a burst of events to end.
const DefaultDebounce = 100 * time.Millisecond

// Config controls a Watcher.
type Config struct {
	// Debounce groups events arriving within this interval into one run.
	Debounce time.Duration
	// Ignore reports file names whose changes are not reported, such as
	// generated outputs, which would otherwise retrigger every run.
	Ignore func(name string) bool
	Logger *slog.Logger
}

// Handler is called with the sorted, de-duplicated .go files changed since
// the previous call. An error is logged; watching continues.
type Handler func(ctx context.Context, changed []string) error

// Watcher observes directories for changes to Go files.
type Watcher struct {
	fs   *fsnotify.Watcher
	cfg  Config
	log  *slog.Logger
	dirs []string
}

// New starts watching dirs. Events are only delivered once Run is called.
func New(dirs []string, cfg Config) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	w := &Watcher{fs: fw, cfg: cfg, log: cfg.Logger}
	if w.log == nil {
		w.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if w.cfg.Debounce <= 0 {
		w.cfg.Debounce = DefaultDebounce
	}
	for _, d := range dirs {
		if slices.Contains(w.dirs, d) {
			continue
		}
		if err := fw.Add(d); err != nil {
			fw.Close()
			return nil, fmt.Errorf("watch %s: %w", d, err)
		}
		w.dirs = append(w.dirs, d)
	}
	return w, nil
}

// Dirs returns the watched directories.
func (w *Watcher) Dirs() []string {
	return w.dirs
}

// Run delivers changes to fn until ctx is done, then releases the watcher.
func (w *Watcher) Run(ctx context.Context, fn Handler) error {
	defer w.fs.Close()
	var (
		pending = make(map[string]bool)
		timer   *time.Timer
		fire    <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			pending[ev.Name] = true
			if timer == nil {
				timer = time.NewTimer(w.cfg.Debounce)
			} else {
				timer.Reset(w.cfg.Debounce)
			}
			fire = timer.C
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", "error", err)
		case <-fire:
			fire = nil
			changed := make([]string, 0, len(pending))
			for n := range pending {
				changed = append(changed, n)
			}
			clear(pending)
			slices.Sort(changed)
			start := time.Now()
			w.log.Debug("change detected", "files", len(changed))
			if err := fn(ctx, changed); err != nil {
				w.log.Error("regeneration failed", "error", err, "duration", time.Since(start))
			}
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
		return false
	}
	base := filepath.Base(ev.Name)
	if !strings.HasSuffix(base, ".go") || strings.HasPrefix(base, ".") {
		return false
	}
	return w.cfg.Ignore == nil || !w.cfg.Ignore(base)
}
