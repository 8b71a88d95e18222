package main

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/syssam/stateshift/compiler/gen"
	"github.com/syssam/stateshift/compiler/load"
	"github.com/syssam/stateshift/compiler/watch"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Debounce time.Duration
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch [packages]",
		Short: "Regenerate whenever an annotated source changes",
		Long: `Watch runs gen once, then watches the directories of the loaded packages
and regenerates the annotated files that change until interrupted.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, opts, args)
		},
	}
	cmd.Flags().DurationVar(&opts.Debounce, "debounce", watch.DefaultDebounce, "quiet period before regenerating")
	return cmd
}

func runWatch(cmd *cobra.Command, opts *WatchOptions, patterns []string) error {
	ctx := cmd.Context()
	s, err := opts.resolve(cmd)
	if err != nil {
		return err
	}
	pkgs, err := load.Load(ctx, s.load, patterns...)
	if err != nil {
		return err
	}
	g := gen.NewGenerator(s.gen)
	report, err := g.Generate(ctx, load.Sources(pkgs))
	if report != nil {
		printSummary(cmd.OutOrStdout(), report)
	}
	if err != nil {
		s.log.Error("initial generation failed", "error", err)
	}

	var dirs []string
	for _, p := range pkgs {
		if !slices.Contains(dirs, p.Dir) {
			dirs = append(dirs, p.Dir)
		}
	}
	if len(dirs) == 0 {
		return fmt.Errorf("no annotated sources in %v", patterns)
	}
	w, err := watch.New(dirs, watch.Config{
		Debounce: opts.Debounce,
		Ignore:   s.gen.IsOutput,
		Logger:   s.log,
	})
	if err != nil {
		return err
	}
	s.log.Info("watching", "dirs", len(dirs))
	return w.Run(ctx, func(ctx context.Context, changed []string) error {
		sources, err := annotated(s.load, changed)
		if err != nil || len(sources) == 0 {
			return err
		}
		report, err := g.Generate(ctx, sources)
		if report != nil {
			printSummary(cmd.OutOrStdout(), report)
		}
		return err
	})
}

// annotated keeps the changed files that still exist and are annotated sources.
func annotated(cfg load.Config, changed []string) ([]string, error) {
	var out []string
	for _, f := range changed {
		if strings.HasSuffix(f, "_test.go") {
			continue
		}
		src, err := os.ReadFile(f)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		ok, err := load.Guarded(f, src, cfg.Tag)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, f)
		}
	}
	return out, nil
}
