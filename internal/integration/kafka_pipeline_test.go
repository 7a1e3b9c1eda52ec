//go:build integration

package integration_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/precip-grid-etl/internal/adapter/fsstore"
	"github.com/couchcryptid/precip-grid-etl/internal/adapter/kafka"
	"github.com/couchcryptid/precip-grid-etl/internal/boundary"
	"github.com/couchcryptid/precip-grid-etl/internal/clip"
	"github.com/couchcryptid/precip-grid-etl/internal/domain"
	"github.com/couchcryptid/precip-grid-etl/internal/observability"
	"github.com/couchcryptid/precip-grid-etl/internal/pipeline"
)

const testTopic = "test-products"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	c, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("precip-etl-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	brokers, err := c.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	cc, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cc.Close()

	require.NoError(t, cc.CreateTopics(kafkago.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1}))
}

func writeInput(t *testing.T, dir string, date time.Time, samples []float32) {
	t.Helper()
	raw := make([]byte, len(samples)*4)
	for i, v := range samples {
		binary.BigEndian.PutUint32(raw[i*4:], math.Float32bits(v))
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(raw)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(filepath.Join(dir, domain.InputName(date)), buf.Bytes(), 0o644))
}

// TestPipelinePublishesProducts runs the full pipeline against a real broker
// and checks that one event per persisted day arrives, and none for skipped days.
func TestPipelinePublishesProducts(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	root := t.TempDir()
	ws, err := fsstore.New(filepath.Join(root, "in"), filepath.Join(root, "out"), discardLogger())
	require.NoError(t, err)

	bPath := filepath.Join(root, "aoi.geojson")
	require.NoError(t, os.WriteFile(bPath, []byte(
		`{"type":"Polygon","coordinates":[[[-77,-2],[-67,-2],[-67,7],[-77,7],[-77,-2]]]}`), 0o644))
	b, err := boundary.Load(bPath)
	require.NoError(t, err)

	spec := domain.DefaultGridSpec()
	days := []time.Time{
		time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	for _, d := range days {
		writeInput(t, ws.InputDir(), d, make([]float32, spec.Rows*spec.Cols))
	}

	metrics := observability.NewMetricsForTesting()
	writer := kafka.NewWriter([]string{broker}, testTopic, discardLogger(), metrics)
	t.Cleanup(func() { _ = writer.Close() })

	p := pipeline.New(ws, clip.New(b), spec, discardLogger(), metrics, pipeline.WithNotifier(writer))
	sum, err := p.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, sum.Persisted)

	// A second run skips both days and publishes nothing new.
	sum, err = p.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, sum.Skipped)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	for _, d := range days {
		readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := consumer.ReadMessage(readCtx)
		readCancel()
		require.NoError(t, err, "read product event")

		var event domain.ProductEvent
		require.NoError(t, json.Unmarshal(msg.Value, &event))
		assert.Equal(t, domain.DateKey(d), string(msg.Key))
		assert.Equal(t, domain.DateKey(d), event.Date)
		assert.Equal(t, domain.NewDateCode(d).String(), event.DateCode)
		assert.Equal(t, 40, event.Width)
		assert.Equal(t, 36, event.Height)
		assert.Equal(t, domain.EPSGWGS84, event.EPSG)

		headers := make(map[string]string, len(msg.Headers))
		for _, h := range msg.Headers {
			headers[h.Key] = string(h.Value)
		}
		assert.Equal(t, event.DateCode, headers["date_code"])
		_, err = time.Parse(time.RFC3339, headers["processed_at"])
		assert.NoError(t, err, "processed_at should be valid RFC3339")
	}

	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err = consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "expected no event for skipped days")
}
