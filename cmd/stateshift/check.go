package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/syssam/stateshift/compiler/gen"
)

// NewCheckCommand creates the check command.
func NewCheckCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check [packages|files]",
		Short: "Fail when a generated file is out of date",
		Long: `Check expands the annotated sources without writing anything and exits
with an error when a generated file differs from what gen would write.
Use it in CI next to go vet.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.resolve(cmd)
			if err != nil {
				return err
			}
			report, err := run(cmd.Context(), s, gen.ModeCheck, args)
			if report == nil {
				return err
			}
			stale := report.StaleFiles()
			for _, f := range stale {
				fmt.Fprintf(cmd.OutOrStdout(), "stale: %s\n", f)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d file(s) up to date\n", len(report.Files))
			return nil
		},
	}
}
