package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/precip-grid-etl/internal/domain"
)

func newFetchCommand(a *app) *cobra.Command {
	var fromFlag, toFlag string

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download missing daily files from the PERSIANN archive",
		RunE: func(cmd *cobra.Command, _ []string) error {
			from, err := parseDateFlag("from", fromFlag)
			if err != nil {
				return err
			}
			to, err := parseDateFlag("to", toFlag)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ws, err := a.workspace()
			if err != nil {
				return err
			}
			rep, err := a.fetcher(ws).FetchRange(ctx, from, to)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d downloaded, %d already present, %d unavailable, %d failed\n",
				rep.Downloaded, rep.Existing, rep.Unavailable, rep.Failed)
			return nil
		},
	}

	cmd.Flags().StringVar(&fromFlag, "from", "", "First day to fetch, YYYY-MM-DD (default FETCH_START_DATE)")
	cmd.Flags().StringVar(&toFlag, "to", "", "Last day to fetch, YYYY-MM-DD (default today)")
	return cmd
}

func parseDateFlag(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation("2006-01-02", value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid --%s %q, want YYYY-MM-DD", domain.ErrConfiguration, name, value)
	}
	return t, nil
}
