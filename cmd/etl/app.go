package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/precip-grid-etl/internal/adapter/fsstore"
	kafkaadapter "github.com/couchcryptid/precip-grid-etl/internal/adapter/kafka"
	"github.com/couchcryptid/precip-grid-etl/internal/adapter/persiann"
	"github.com/couchcryptid/precip-grid-etl/internal/boundary"
	"github.com/couchcryptid/precip-grid-etl/internal/clip"
	"github.com/couchcryptid/precip-grid-etl/internal/config"
	"github.com/couchcryptid/precip-grid-etl/internal/observability"
	"github.com/couchcryptid/precip-grid-etl/internal/pipeline"
)

// app carries what every command shares once configuration is loaded.
type app struct {
	out     io.Writer
	metrics *observability.Metrics
	cfg     *config.Config
	logger  *slog.Logger
}

func (a *app) init() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg
	a.logger = observability.NewLogger(a.out, cfg.LogLevel, cfg.LogFormat)
	return nil
}

func (a *app) workspace() (*fsstore.Workspace, error) {
	return fsstore.New(a.cfg.InputDir, a.cfg.OutputDir, a.logger)
}

// newPipeline loads and checks the boundary, then wires the pipeline with
// its optional notifier. The returned close func releases the notifier.
func (a *app) newPipeline(ws *fsstore.Workspace) (*pipeline.Pipeline, func(), error) {
	b, err := boundary.Load(a.cfg.BoundaryPath)
	if err != nil {
		return nil, nil, err
	}
	if err := clip.CheckOverlap(b, a.cfg.Grid); err != nil {
		return nil, nil, err
	}
	ext := b.Bounds()
	a.logger.Info("boundary loaded", "path", b.Path, "polygons", len(b.Shapes),
		"min_x", ext.MinX, "min_y", ext.MinY, "max_x", ext.MaxX, "max_y", ext.MaxY)

	var opts []pipeline.Option
	closeFn := func() {}
	if a.cfg.KafkaEnabled() {
		writer := kafkaadapter.NewWriter(a.cfg.KafkaBrokers, a.cfg.KafkaTopic, a.logger, a.metrics)
		opts = append(opts, pipeline.WithNotifier(writer))
		closeFn = func() {
			if err := writer.Close(); err != nil {
				a.logger.Error("kafka writer close error", "error", err)
			}
		}
		a.logger.Info("product events enabled", "topic", a.cfg.KafkaTopic)
	}

	p := pipeline.New(ws, clip.New(b), a.cfg.Grid, a.logger, a.metrics, opts...)
	return p, closeFn, nil
}

func (a *app) fetcher(ws *fsstore.Workspace) *persiann.Client {
	return persiann.NewClient(persiann.Config{
		URLTemplate: a.cfg.FetchURLTemplate,
		StartDate:   a.cfg.FetchStartDate,
		Backoff: persiann.BackoffConfig{
			MaxRetries:      a.cfg.FetchMaxRetries,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		},
	}, &http.Client{Timeout: a.cfg.FetchTimeout}, ws, a.logger, a.metrics)
}

// runLocked runs the pipeline while holding the workspace lock.
func runLocked(ctx context.Context, ws *fsstore.Workspace, p *pipeline.Pipeline) (pipeline.Summary, error) {
	unlock, err := ws.Lock()
	if err != nil {
		return pipeline.Summary{}, err
	}
	defer func() { _ = unlock() }()
	return p.Run(ctx)
}

func isLocked(err error) bool {
	return errors.Is(err, fsstore.ErrLocked)
}
