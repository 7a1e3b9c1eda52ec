package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/precip-grid-etl/internal/observability"
)

func newRootCommand(out io.Writer, metrics *observability.Metrics) *cobra.Command {
	a := &app{out: out, metrics: metrics}

	rootCmd := &cobra.Command{
		Use:           "etl",
		Short:         "Decode, georeference and clip PERSIANN daily precipitation grids",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return a.init()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	rootCmd.AddCommand(newProcessCommand(a))
	rootCmd.AddCommand(newFetchCommand(a))
	rootCmd.AddCommand(newDaemonCommand(a))

	return rootCmd
}
