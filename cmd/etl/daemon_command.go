package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/precip-grid-etl/internal/adapter/fsstore"
	httpadapter "github.com/couchcryptid/precip-grid-etl/internal/adapter/http"
	"github.com/couchcryptid/precip-grid-etl/internal/domain"
	"github.com/couchcryptid/precip-grid-etl/internal/pipeline"
	"github.com/couchcryptid/precip-grid-etl/internal/scheduler"
)

func newDaemonCommand(a *app) *cobra.Command {
	var skipInitial bool

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Fetch and process daily, serving health and metrics over HTTP",
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

			logger := a.logger
			srv := httpadapter.NewServer(a.cfg.HTTPAddr, p, p, logger)
			sched := scheduler.New(a.cfg.ScheduleAt, dailyJob(a, ws, p), logger)

			// Start HTTP server.
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("http server error", "error", err)
				}
			}()

			if err := sched.Start(); err != nil {
				return err
			}
			if !skipInitial {
				sched.RunNow()
			}

			<-ctx.Done()
			logger.Info("shutting down")

			sched.Stop()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("http server shutdown error", "error", err)
			}

			logger.Info("shutdown complete")
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipInitial, "skip-initial", false, "Wait for the first scheduled time instead of running at startup")
	return cmd
}

// dailyJob fetches the last FETCH_LOOKBACK_DAYS days, then processes
// everything in the input directory.
func dailyJob(a *app, ws *fsstore.Workspace, p *pipeline.Pipeline) scheduler.Job {
	fetcher := a.fetcher(ws)
	return func(ctx context.Context) {
		to := domain.Today()
		from := to.AddDate(0, 0, -a.cfg.FetchLookbackDays)
		if from.Before(a.cfg.FetchStartDate) {
			from = a.cfg.FetchStartDate
		}
		if _, err := fetcher.FetchRange(ctx, from, to); err != nil {
			a.logger.Error("scheduled fetch failed", "error", err)
		}

		if _, err := runLocked(ctx, ws, p); err != nil {
			if isLocked(err) {
				a.logger.Warn("another run holds the workspace, skipping")
				return
			}
			a.logger.Error("scheduled run failed", "error", err)
		}
	}
}
