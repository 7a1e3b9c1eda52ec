package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/precip-grid-etl/internal/domain"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "descargas_persiann", cfg.InputDir)
	assert.Equal(t, "persiann_cdp", cfg.OutputDir)
	assert.Equal(t, "cca_CDP.geojson", cfg.BoundaryPath)
	assert.Equal(t, domain.DefaultGridSpec(), cfg.Grid)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, defaultFetchURL, cfg.FetchURLTemplate)
	assert.Equal(t, time.Date(2013, 12, 6, 0, 0, 0, 0, time.UTC), cfg.FetchStartDate)
	assert.Equal(t, 10*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 3, cfg.FetchMaxRetries)
	assert.Equal(t, 7, cfg.FetchLookbackDays)
	assert.Equal(t, "06:00", cfg.ScheduleAt)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.False(t, cfg.KafkaEnabled())
	assert.Equal(t, "precipitation-products", cfg.KafkaTopic)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("INPUT_DIR", "/data/in")
	t.Setenv("OUTPUT_DIR", "/data/out")
	t.Setenv("BOUNDARY_PATH", "/data/aoi.shp")
	t.Setenv("GRID_ROWS", "360")
	t.Setenv("GRID_COLS", "720")
	t.Setenv("PIXEL_SIZE", "0.5")
	t.Setenv("ORIGIN_Y", "90")
	t.Setenv("NODATA", "-1")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("FETCH_URL_TEMPLATE", "http://mirror.local/d{code}.bin.gz")
	t.Setenv("FETCH_START_DATE", "2020-01-01")
	t.Setenv("FETCH_TIMEOUT", "1m")
	t.Setenv("FETCH_MAX_RETRIES", "0")
	t.Setenv("FETCH_LOOKBACK_DAYS", "30")
	t.Setenv("SCHEDULE_AT", "23:30")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	t.Setenv("KAFKA_TOPIC", "custom-products")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/data/in", cfg.InputDir)
	assert.Equal(t, "/data/out", cfg.OutputDir)
	assert.Equal(t, "/data/aoi.shp", cfg.BoundaryPath)
	assert.Equal(t, domain.GridSpec{Rows: 360, Cols: 720, PixelSize: 0.5, OriginX: -180, OriginY: 90, NoData: -1}, cfg.Grid)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "http://mirror.local/d{code}.bin.gz", cfg.FetchURLTemplate)
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), cfg.FetchStartDate)
	assert.Equal(t, time.Minute, cfg.FetchTimeout)
	assert.Equal(t, 0, cfg.FetchMaxRetries)
	assert.Equal(t, 30, cfg.FetchLookbackDays)
	assert.Equal(t, "23:30", cfg.ScheduleAt)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.KafkaEnabled())
	assert.Equal(t, "custom-products", cfg.KafkaTopic)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key, value, want string
	}{
		{"SHUTDOWN_TIMEOUT", "not-a-duration", "SHUTDOWN_TIMEOUT"},
		{"SHUTDOWN_TIMEOUT", "-1s", "SHUTDOWN_TIMEOUT"},
		{"FETCH_TIMEOUT", "0s", "FETCH_TIMEOUT"},
		{"FETCH_START_DATE", "06/12/2013", "FETCH_START_DATE"},
		{"FETCH_MAX_RETRIES", "-1", "FETCH_MAX_RETRIES"},
		{"FETCH_URL_TEMPLATE", "http://example.com/daily.bin.gz", "{code}"},
		{"FETCH_LOOKBACK_DAYS", "week", "FETCH_LOOKBACK_DAYS"},
		{"SCHEDULE_AT", "6am", "SCHEDULE_AT"},
		{"GRID_ROWS", "many", "GRID_ROWS"},
		{"PIXEL_SIZE", "fine", "PIXEL_SIZE"},
		{"GRID_COLS", "1439", "even"},
		{"PIXEL_SIZE", "0.3", "want 180"},
		{"ORIGIN_X", "0", "origin x"},
		{"ORIGIN_Y", "NaN", "origin y"},
		{"PIXEL_SIZE", "+Inf", "pixel size"},
		{"NODATA", "0", "nodata"},
		{"OUTPUT_DIR", "descargas_persiann", "must differ"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			require.ErrorIs(t, err, domain.ErrConfiguration)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_BlankBrokersDisableKafka(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", " , ")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.KafkaEnabled())
}
