package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/precip-grid-etl/internal/domain"
	"github.com/couchcryptid/precip-grid-etl/internal/pipeline"
)

// RunReporter exposes the most recent pipeline run.
type RunReporter interface {
	LastRun() (pipeline.Summary, bool)
}

// Server exposes health, readiness, run status, and metrics HTTP endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /status, and /metrics routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, runs RunReporter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.HandleFunc("GET /status", handleStatus(runs))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type failureView struct {
	Date  string       `json:"date"`
	State domain.State `json:"state"`
	Kind  string       `json:"kind"`
	Error string       `json:"error"`
}

type runView struct {
	RunID      string        `json:"run_id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Discovered int           `json:"discovered"`
	Persisted  int           `json:"persisted"`
	Skipped    int           `json:"skipped"`
	Failed     int           `json:"failed"`
	Failures   []failureView `json:"failures"`
}

func handleStatus(runs RunReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		sum, ok := runs.LastRun()
		if !ok {
			sharedobs.WriteJSON(w, http.StatusNotFound, map[string]string{"status": "no completed run"})
			return
		}

		view := runView{
			RunID:      sum.RunID,
			StartedAt:  sum.StartedAt,
			FinishedAt: sum.FinishedAt,
			Discovered: sum.Discovered,
			Persisted:  sum.Persisted,
			Skipped:    sum.Skipped,
			Failed:     sum.Failed,
			Failures:   []failureView{},
		}
		for _, o := range sum.Outcomes {
			if o.Err == nil {
				continue
			}
			view.Failures = append(view.Failures, failureView{
				Date:  o.Input.Key(),
				State: o.State,
				Kind:  domain.KindOf(o.Err),
				Error: o.Err.Error(),
			})
		}
		sharedobs.WriteJSON(w, http.StatusOK, view)
	}
}
