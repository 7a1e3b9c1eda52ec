package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/precip-grid-etl/internal/domain"
)

const (
	defaultFetchURL = "http://persiann.eng.uci.edu/CHRSdata/PERSIANN/daily/ms6s4_d{code}.bin.gz"
	dateLayout      = "2006-01-02"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	InputDir     string
	OutputDir    string
	BoundaryPath string
	Grid         domain.GridSpec

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Remote archive download.
	FetchURLTemplate  string
	FetchStartDate    time.Time
	FetchTimeout      time.Duration
	FetchMaxRetries   int
	FetchLookbackDays int // scheduled fetches cover only the most recent days

	// Daily schedule, "HH:MM" in UTC.
	ScheduleAt string

	// Product events. Publishing is disabled when KafkaBrokers is empty.
	KafkaBrokers []string
	KafkaTopic   string
}

// KafkaEnabled reports whether product events should be published.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Load reads configuration from environment variables, applying defaults where unset.
// Every error wraps domain.ErrConfiguration.
func Load() (*Config, error) {
	grid, err := loadGrid()
	if err != nil {
		return nil, err
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
	}
	fetchTimeout, err := parsePositiveDuration("FETCH_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	startDate, err := time.ParseInLocation(dateLayout, sharedcfg.EnvOrDefault("FETCH_START_DATE", "2013-12-06"), time.UTC)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid FETCH_START_DATE, want YYYY-MM-DD: %w", domain.ErrConfiguration, err)
	}

	retries, err := strconv.Atoi(sharedcfg.EnvOrDefault("FETCH_MAX_RETRIES", "3"))
	if err != nil || retries < 0 {
		return nil, fmt.Errorf("%w: invalid FETCH_MAX_RETRIES", domain.ErrConfiguration)
	}

	lookback, err := strconv.Atoi(sharedcfg.EnvOrDefault("FETCH_LOOKBACK_DAYS", "7"))
	if err != nil || lookback < 0 {
		return nil, fmt.Errorf("%w: invalid FETCH_LOOKBACK_DAYS", domain.ErrConfiguration)
	}

	scheduleAt := sharedcfg.EnvOrDefault("SCHEDULE_AT", "06:00")
	if _, err := time.Parse("15:04", scheduleAt); err != nil {
		return nil, fmt.Errorf("%w: invalid SCHEDULE_AT, want HH:MM", domain.ErrConfiguration)
	}

	cfg := &Config{
		InputDir:          sharedcfg.EnvOrDefault("INPUT_DIR", "descargas_persiann"),
		OutputDir:         sharedcfg.EnvOrDefault("OUTPUT_DIR", "persiann_cdp"),
		BoundaryPath:      sharedcfg.EnvOrDefault("BOUNDARY_PATH", "cca_CDP.geojson"),
		Grid:              grid,
		HTTPAddr:          sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:          sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:         sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:   shutdownTimeout,
		FetchURLTemplate:  sharedcfg.EnvOrDefault("FETCH_URL_TEMPLATE", defaultFetchURL),
		FetchStartDate:    startDate,
		FetchTimeout:      fetchTimeout,
		FetchMaxRetries:   retries,
		FetchLookbackDays: lookback,
		ScheduleAt:        scheduleAt,
		KafkaBrokers:      sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:        sharedcfg.EnvOrDefault("KAFKA_TOPIC", "precipitation-products"),
	}

	if cfg.InputDir == cfg.OutputDir {
		return nil, fmt.Errorf("%w: INPUT_DIR and OUTPUT_DIR must differ", domain.ErrConfiguration)
	}
	if !strings.Contains(cfg.FetchURLTemplate, "{code}") {
		return nil, fmt.Errorf("%w: FETCH_URL_TEMPLATE must contain {code}", domain.ErrConfiguration)
	}
	if cfg.KafkaEnabled() && cfg.KafkaTopic == "" {
		return nil, fmt.Errorf("%w: KAFKA_TOPIC is required when KAFKA_BROKERS is set", domain.ErrConfiguration)
	}

	return cfg, nil
}

func loadGrid() (domain.GridSpec, error) {
	spec := domain.DefaultGridSpec()

	var err error
	if spec.Rows, err = parseInt("GRID_ROWS", spec.Rows); err != nil {
		return spec, err
	}
	if spec.Cols, err = parseInt("GRID_COLS", spec.Cols); err != nil {
		return spec, err
	}
	if spec.PixelSize, err = parseFloat("PIXEL_SIZE", spec.PixelSize); err != nil {
		return spec, err
	}
	if spec.OriginX, err = parseFloat("ORIGIN_X", spec.OriginX); err != nil {
		return spec, err
	}
	if spec.OriginY, err = parseFloat("ORIGIN_Y", spec.OriginY); err != nil {
		return spec, err
	}
	nodata, err := parseFloat("NODATA", float64(spec.NoData))
	if err != nil {
		return spec, err
	}
	spec.NoData = float32(nodata)

	return spec, spec.Validate()
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: invalid %s", domain.ErrConfiguration, key)
	}
	return d, nil
}

func parseInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s: %q", domain.ErrConfiguration, key, s)
	}
	return n, nil
}

func parseFloat(key string, fallback float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s: %q", domain.ErrConfiguration, key, s)
	}
	return f, nil
}
