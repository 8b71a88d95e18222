package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/syssam/stateshift"
)

// NewVersionCommand creates the version command.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the generator version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "stateshift %s\n", stateshift.Version)
		},
	}
}
