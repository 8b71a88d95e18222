package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/syssam/stateshift/compiler/gen"
	"github.com/syssam/stateshift/compiler/load"
)

// NewGenCommand creates the gen command.
func NewGenCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "gen [packages|files]",
		Short: "Generate the state-overlay files of annotated packages",
		Long: `Generate expands every file guarded by the stateshift build tag in the
given packages (default ".") and writes <name>_stateshift.go next to it.
Unchanged sources are skipped using the incremental cache.`,
		Example:       "  stateshift gen ./...\n  stateshift gen player.go",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.resolve(cmd)
			if err != nil {
				return err
			}
			report, err := run(cmd.Context(), s, gen.ModeWrite, args)
			if report != nil {
				printSummary(cmd.OutOrStdout(), report)
			}
			return err
		},
	}
}

// run loads the packages matching patterns and expands their sources.
func run(ctx context.Context, s *settings, mode gen.Mode, patterns []string) (*gen.Report, error) {
	pkgs, err := load.Load(ctx, s.load, patterns...)
	if err != nil {
		return nil, err
	}
	sources := load.Sources(pkgs)
	s.log.Debug("sources loaded", "packages", len(pkgs), "files", len(sources))
	return gen.NewGenerator(s.gen).WithMode(mode).Generate(ctx, sources)
}

func printSummary(w io.Writer, r *gen.Report) {
	var written, unchanged, cached, failed int
	for _, f := range r.Files {
		switch {
		case f.Err != nil:
			failed++
		case f.Cached:
			cached++
		case f.Written:
			written++
		default:
			unchanged++
		}
	}
	fmt.Fprintf(w, "%d file(s): %d written, %d unchanged, %d cached, %d failed in %s\n",
		len(r.Files), written, unchanged, cached, failed, r.Duration.Round(time.Millisecond))
}
