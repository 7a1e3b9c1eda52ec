package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "precip_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for the ETL pipeline.
type Metrics struct {
	InputsDiscovered prometheus.Counter
	InputsPersisted  prometheus.Counter
	InputsSkipped    prometheus.Counter
	InputsFailed     *prometheus.CounterVec   // labels: kind={format,io,boundary,unknown}
	StageDuration    *prometheus.HistogramVec // labels: stage
	PipelineRunning  prometheus.Gauge
	LastRunSuccess   prometheus.Gauge

	// Remote fetch metrics.
	FetchDownloads *prometheus.CounterVec // labels: outcome={downloaded,exists,unavailable,error}

	// Event publishing.
	EventsPublished prometheus.Counter
	EventErrors     prometheus.Counter
}

func newMetrics() *Metrics {
	return &Metrics{
		InputsDiscovered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inputs_discovered_total",
			Help:      "Total daily input files found in the input directory.",
		}),
		InputsPersisted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inputs_persisted_total",
			Help:      "Total daily inputs clipped and written to the output directory.",
		}),
		InputsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inputs_skipped_total",
			Help:      "Total daily inputs skipped because their output already existed.",
		}),
		InputsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inputs_failed_total",
			Help:      "Total daily inputs that failed, by error kind.",
		}, []string{"kind"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each per-input pipeline stage.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"stage"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a pipeline run is in progress, 0 otherwise.",
		}),
		LastRunSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success_timestamp_seconds",
			Help:      "Unix time of the last completed pipeline run.",
		}),
		FetchDownloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_downloads_total",
			Help:      "Remote daily file fetch attempts by outcome.",
		}, []string{"outcome"}),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Product events published to Kafka.",
		}),
		EventErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_errors_total",
			Help:      "Product events that failed to publish.",
		}),
	}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.InputsDiscovered,
		m.InputsPersisted,
		m.InputsSkipped,
		m.InputsFailed,
		m.StageDuration,
		m.PipelineRunning,
		m.LastRunSuccess,
		m.FetchDownloads,
		m.EventsPublished,
		m.EventErrors,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
