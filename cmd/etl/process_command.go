package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newProcessCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "process",
		Short: "Clip every downloaded daily file that has no output yet",
		Long: "Decompress, decode, georeference and clip each input in the input directory.\n" +
			"Inputs that already have an output are skipped. A failing input is logged and\n" +
			"does not change the exit status.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ws, err := a.workspace()
			if err != nil {
				return err
			}
			p, closeFn, err := a.newPipeline(ws)
			if err != nil {
				return err
			}
			defer closeFn()

			sum, err := runLocked(ctx, ws, p)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d discovered, %d persisted, %d skipped, %d failed\n",
				sum.RunID, sum.Discovered, sum.Persisted, sum.Skipped, sum.Failed)
			return nil
		},
	}
}
