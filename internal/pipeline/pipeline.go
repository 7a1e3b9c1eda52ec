package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/precip-grid-etl/internal/domain"
	"github.com/couchcryptid/precip-grid-etl/internal/observability"
)

// Workspace stores inputs, intermediates and outputs for each daily file.
type Workspace interface {
	Discover(ctx context.Context) ([]domain.Input, error)
	Persisted(in domain.Input) (bool, error)
	Decompress(ctx context.Context, in domain.Input, maxBytes int64) (string, error)
	ReadRaw(path string) ([]byte, error)
	WriteIntermediate(in domain.Input, r domain.Raster) (string, error)
	ReadRaster(path string) (domain.Raster, error)
	Persist(in domain.Input, r domain.Raster) (string, error)
	Cleanup(in domain.Input) error
}

// Clipper restricts a georeferenced raster to the area of interest.
type Clipper interface {
	Clip(ctx context.Context, r domain.Raster) (domain.Raster, error)
}

// Notifier announces persisted products. It is optional.
type Notifier interface {
	NotifyPersisted(ctx context.Context, event domain.ProductEvent) error
}

// Outcome records where one input ended up.
type Outcome struct {
	Input domain.Input
	State domain.State
	Path  string
	Err   error
}

// Summary reports a single run over the input directory.
type Summary struct {
	RunID      string
	Discovered int
	Persisted  int
	Skipped    int
	Failed     int
	Outcomes   []Outcome
	StartedAt  time.Time
	FinishedAt time.Time
}

// Pipeline drives every discovered input through
// decompress, decode, normalize, georeference, clip and persist.
type Pipeline struct {
	workspace Workspace
	clipper   Clipper
	notifier  Notifier
	spec      domain.GridSpec
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool

	mu      sync.Mutex
	lastRun Summary
}

// Option configures optional Pipeline collaborators.
type Option func(*Pipeline)

// WithNotifier publishes a ProductEvent after every persisted input.
func WithNotifier(n Notifier) Option {
	return func(p *Pipeline) { p.notifier = n }
}

// New creates a Pipeline with the given stages and observability.
func New(ws Workspace, c Clipper, spec domain.GridSpec, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Pipeline {
	p := &Pipeline{
		workspace: ws,
		clipper:   c,
		spec:      spec,
		logger:    logger,
		metrics:   metrics,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CheckReadiness returns nil once a run has completed,
// or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed a run yet")
	}
	return nil
}

// LastRun returns the summary of the most recent completed run.
func (p *Pipeline) LastRun() (Summary, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastRun, p.ready.Load()
}

// Run processes every input currently in the workspace, in date order.
// A failing input is logged and counted and never stops the run; the
// returned error is non-nil only when discovery fails or ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	sum := Summary{RunID: uuid.NewString(), StartedAt: domain.Now()}
	logger := p.logger.With("run_id", sum.RunID)

	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	inputs, err := p.workspace.Discover(ctx)
	if err != nil {
		return sum, fmt.Errorf("discover inputs: %w", err)
	}
	sum.Discovered = len(inputs)
	p.metrics.InputsDiscovered.Add(float64(len(inputs)))
	logger.Info("pipeline started", "inputs", len(inputs))

	for _, in := range inputs {
		if err := ctx.Err(); err != nil {
			logger.Info("pipeline stopping", "reason", err)
			return sum, err
		}

		out := p.processInput(ctx, logger, sum.RunID, in)
		sum.Outcomes = append(sum.Outcomes, out)
		switch {
		case out.State == domain.StateFailed:
			sum.Failed++
		case out.Path == "":
			sum.Skipped++
		default:
			sum.Persisted++
		}
	}

	sum.FinishedAt = domain.Now()
	p.mu.Lock()
	p.lastRun = sum
	p.mu.Unlock()
	p.ready.Store(true)
	p.metrics.LastRunSuccess.SetToCurrentTime()
	logger.Info("pipeline finished",
		"discovered", sum.Discovered,
		"persisted", sum.Persisted,
		"skipped", sum.Skipped,
		"failed", sum.Failed,
	)
	return sum, nil
}

// processInput runs one input to a terminal state. Intermediates are removed
// whatever the outcome; an already persisted input is skipped untouched.
func (p *Pipeline) processInput(ctx context.Context, logger *slog.Logger, runID string, in domain.Input) Outcome {
	logger = logger.With("date", in.Key(), "date_code", in.DateCode().String())
	out := Outcome{Input: in, State: domain.StatePending}

	done, err := p.workspace.Persisted(in)
	if err != nil {
		return p.fail(logger, out, err)
	}
	if done {
		logger.Info("output exists, skipping")
		p.metrics.InputsSkipped.Inc()
		out.State = domain.StatePersisted
		return out
	}

	defer func() {
		if err := p.workspace.Cleanup(in); err != nil {
			logger.Warn("cleanup failed", "error", err)
		}
	}()

	clipped, err := p.transform(ctx, in, &out)
	if err != nil {
		return p.fail(logger, out, err)
	}

	start := time.Now()
	path, err := p.workspace.Persist(in, clipped)
	p.observe("persist", start)
	if err != nil {
		return p.fail(logger, out, err)
	}
	out.State = domain.StatePersisted
	out.Path = path
	p.metrics.InputsPersisted.Inc()
	logger.Info("input persisted", "path", path, "width", clipped.Width(), "height", clipped.Height())

	if p.notifier != nil {
		event := domain.NewProductEvent(in, clipped, path, runID)
		if err := p.notifier.NotifyPersisted(ctx, event); err != nil {
			logger.Warn("notify failed", "error", err)
		}
	}
	return out
}

// transform advances out.State through each stage up to Clipped.
func (p *Pipeline) transform(ctx context.Context, in domain.Input, out *Outcome) (domain.Raster, error) {
	start := time.Now()
	rawPath, err := p.workspace.Decompress(ctx, in, int64(p.spec.ByteLen()))
	p.observe("decompress", start)
	if err != nil {
		return domain.Raster{}, err
	}
	out.State = domain.StateDecompressed

	start = time.Now()
	buf, err := p.workspace.ReadRaw(rawPath)
	if err != nil {
		return domain.Raster{}, err
	}
	grid, err := domain.DecodeGrid(buf, p.spec)
	p.observe("decode", start)
	if err != nil {
		return domain.Raster{}, err
	}
	out.State = domain.StateDecoded

	grid = domain.Normalize(grid, p.spec.NoData)
	out.State = domain.StateNormalized

	start = time.Now()
	raster, err := domain.Georeference(grid, p.spec)
	if err != nil {
		return domain.Raster{}, err
	}
	rasterPath, err := p.workspace.WriteIntermediate(in, raster)
	if err != nil {
		return domain.Raster{}, err
	}
	raster, err = p.workspace.ReadRaster(rasterPath)
	p.observe("georeference", start)
	if err != nil {
		return domain.Raster{}, err
	}
	out.State = domain.StateGeoreferenced

	start = time.Now()
	clipped, err := p.clipper.Clip(ctx, raster)
	p.observe("clip", start)
	if err != nil {
		return domain.Raster{}, err
	}
	out.State = domain.StateClipped
	return clipped, nil
}

func (p *Pipeline) fail(logger *slog.Logger, out Outcome, err error) Outcome {
	kind := domain.KindOf(err)
	logger.Error("input failed", "stage", out.State, "kind", kind, "error", err)
	p.metrics.InputsFailed.WithLabelValues(kind).Inc()
	out.State = domain.StateFailed
	out.Err = err
	return out
}

func (p *Pipeline) observe(stage string, start time.Time) {
	p.metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
