package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/precip-grid-etl/internal/domain"
	"github.com/couchcryptid/precip-grid-etl/internal/observability"
)

// Writer publishes product events to a Kafka topic.
// It implements pipeline.Notifier.
type Writer struct {
	writer  *kafkago.Writer
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewWriter creates a Kafka producer for the product topic.
func NewWriter(brokers []string, topic string, logger *slog.Logger, metrics *observability.Metrics) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger, metrics: metrics}
}

// NotifyPersisted publishes one event keyed by the product date, so every
// version of a day lands on the same partition.
func (w *Writer) NotifyPersisted(ctx context.Context, event domain.ProductEvent) error {
	msg, err := serializeToMessage(event)
	if err != nil {
		w.metrics.EventErrors.Inc()
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		w.metrics.EventErrors.Inc()
		return fmt.Errorf("publish product %s: %w", event.Date, err)
	}
	w.metrics.EventsPublished.Inc()
	w.logger.Debug("product event published", "date", event.Date, "topic", w.writer.Topic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a ProductEvent into a Kafka message.
func serializeToMessage(event domain.ProductEvent) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize product event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(event.Date),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "date_code", Value: []byte(event.DateCode)},
			{Key: "processed_at", Value: []byte(event.ProcessedAt.Format(time.RFC3339))},
		},
	}, nil
}
