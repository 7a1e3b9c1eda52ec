// Package scheduler runs the fetch-and-process job once a day.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/couchcryptid/precip-grid-etl/internal/domain"
)

// Job is one scheduled unit of work. ctx is cancelled when the scheduler stops.
type Job func(ctx context.Context)

// Scheduler triggers a Job daily at a fixed UTC time. Runs never overlap: a
// trigger that fires while the previous run is still going waits for it.
type Scheduler struct {
	scheduler *gocron.Scheduler
	job       Job
	at        string
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	entry  *gocron.Job
}

// New creates a Scheduler that will run job every day at "HH:MM" UTC.
func New(at string, job Job, logger *slog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		job:       job,
		at:        at,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start schedules the job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	entry, err := s.scheduler.Every(1).Day().At(s.at).SingletonMode().Do(s.run)
	if err != nil {
		return fmt.Errorf("%w: schedule daily job at %q: %w", domain.ErrConfiguration, s.at, err)
	}
	s.entry = entry

	s.scheduler.StartAsync()
	s.logger.Info("scheduler started", "at", s.at, "next_run", entry.NextRun())
	return nil
}

// RunNow triggers the job immediately, still honoring the no-overlap rule.
func (s *Scheduler) RunNow() {
	s.scheduler.RunAll()
}

// NextRun reports when the job will next fire.
func (s *Scheduler) NextRun() time.Time {
	if s.entry == nil {
		return time.Time{}
	}
	return s.entry.NextRun()
}

// Stop cancels any in-flight job and stops future triggers.
func (s *Scheduler) Stop() {
	s.cancel()
	s.scheduler.Stop()
}

func (s *Scheduler) run() {
	start := time.Now()
	s.logger.Info("scheduled job started")
	s.job(s.ctx)
	s.logger.Info("scheduled job finished", "duration", time.Since(start))
}
