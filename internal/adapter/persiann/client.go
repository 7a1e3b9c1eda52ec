// Package persiann downloads daily PERSIANN files from the CHRS archive.
package persiann

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/couchcryptid/precip-grid-etl/internal/domain"
	"github.com/couchcryptid/precip-grid-etl/internal/observability"
)

// Store persists downloaded files. fsstore.Workspace implements it.
type Store interface {
	HasInput(date time.Time) (bool, error)
	SaveInput(date time.Time, r io.Reader) (string, error)
}

// Outcome is the result of fetching a single day.
type Outcome string

const (
	OutcomeDownloaded  Outcome = "downloaded"
	OutcomeExists      Outcome = "exists"
	OutcomeUnavailable Outcome = "unavailable"
	OutcomeError       Outcome = "error"
)

// Report tallies a FetchRange call.
type Report struct {
	Downloaded  int
	Existing    int
	Unavailable int
	Failed      int
}

// Config configures a Client.
type Config struct {
	// URLTemplate must contain "{code}", replaced by the day's Date Code.
	URLTemplate string
	StartDate   time.Time
	Backoff     BackoffConfig
}

// Client fetches daily files into a Store.
type Client struct {
	cfg     Config
	http    *http.Client
	circuit *gobreaker.CircuitBreaker
	store   Store
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewClient creates a Client. The http.Client carries the per-request timeout.
func NewClient(cfg Config, hc *http.Client, store Store, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		cfg:     cfg,
		http:    hc,
		circuit: newBreaker(),
		store:   store,
		logger:  logger,
		metrics: metrics,
	}
}

// URL returns the archive location of date's file.
func (c *Client) URL(date time.Time) string {
	return strings.ReplaceAll(c.cfg.URLTemplate, "{code}", domain.NewDateCode(date).String())
}

// FetchRange downloads every missing day from from to to, inclusive. A zero
// from means the configured start date and a zero to means today. Per-day
// failures are logged and counted; the range is abandoned only when ctx is
// cancelled or the circuit breaker opens.
func (c *Client) FetchRange(ctx context.Context, from, to time.Time) (Report, error) {
	if from.IsZero() {
		from = c.cfg.StartDate
	}
	if to.IsZero() {
		to = domain.Today()
	}
	from, to = domain.CalendarDate(from), domain.CalendarDate(to)

	var rep Report
	if to.Before(from) {
		return rep, fmt.Errorf("%w: fetch range ends %s before it starts %s",
			domain.ErrConfiguration, domain.DateKey(to), domain.DateKey(from))
	}

	c.logger.Info("fetch started", "from", domain.DateKey(from), "to", domain.DateKey(to))
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		out, err := c.FetchDay(ctx, day)
		switch out {
		case OutcomeDownloaded:
			rep.Downloaded++
		case OutcomeExists:
			rep.Existing++
		case OutcomeUnavailable:
			rep.Unavailable++
		default:
			rep.Failed++
		}
		if err != nil && (ctx.Err() != nil || errors.Is(err, errCircuitOpen)) {
			return rep, err
		}
	}

	c.logger.Info("fetch finished",
		"downloaded", rep.Downloaded,
		"existing", rep.Existing,
		"unavailable", rep.Unavailable,
		"failed", rep.Failed,
	)
	return rep, nil
}

// FetchDay downloads date's file unless it is already present. A missing
// upstream file is reported as OutcomeUnavailable with a nil error.
func (c *Client) FetchDay(ctx context.Context, date time.Time) (out Outcome, err error) {
	logger := c.logger.With("date", domain.DateKey(date), "date_code", domain.NewDateCode(date).String())
	defer func() { c.metrics.FetchDownloads.WithLabelValues(string(out)).Inc() }()

	exists, err := c.store.HasInput(date)
	if err != nil {
		logger.Error("fetch failed", "error", err)
		return OutcomeError, err
	}
	if exists {
		logger.Debug("input exists, skipping download")
		return OutcomeExists, nil
	}

	resp, err := doWithRetry(ctx, c.http, c.circuit, c.cfg.Backoff, c.URL(date))
	if err != nil {
		logger.Error("fetch failed", "error", err)
		return OutcomeError, fmt.Errorf("%w: fetch %s: %w", domain.ErrIO, domain.DateKey(date), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Warn("input not available", "status", resp.StatusCode)
		return OutcomeUnavailable, nil
	}

	path, err := c.store.SaveInput(date, resp.Body)
	if err != nil {
		logger.Error("fetch failed", "error", err)
		return OutcomeError, err
	}
	logger.Info("input downloaded", "path", path)
	return OutcomeDownloaded, nil
}
