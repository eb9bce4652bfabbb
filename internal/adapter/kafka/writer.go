package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/forecast-parser/internal/config"
	"github.com/couchcryptid/forecast-parser/internal/domain"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces forecast records to a Kafka topic.
// It implements pipeline.Publisher.
type Writer struct {
	writer *kafkago.Writer
	clock  clockwork.Clock
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured forecast topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, clock: clockwork.NewRealClock(), logger: logger}
}

// Publish serializes and writes all records of one forecast file in a single
// WriteMessages call. Every message carries the same batch_id header so
// consumers can tell which records arrived together.
func (w *Writer) Publish(ctx context.Context, records []domain.ForecastRecord) error {
	if len(records) == 0 {
		return nil
	}
	batchID := uuid.NewString()
	publishedAt := w.clock.Now().UTC()

	msgs := make([]kafkago.Message, len(records))
	for i := range records {
		msg, err := serializeToMessage(records[i], batchID, publishedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d forecast records: %w", len(msgs), err)
	}
	w.logger.Debug("forecast batch published",
		"batch_id", batchID,
		"records", len(msgs),
		"source", records[0].EstimationSource,
	)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// MessageKey is the partitioning key of a record: its forecast type and
// station key, so every update for one station lands on one partition.
func MessageKey(rec domain.ForecastRecord) string {
	return rec.ForecastType + ":" + rec.LonLatKey
}

// serializeToMessage marshals a ForecastRecord into a Kafka message.
func serializeToMessage(rec domain.ForecastRecord, batchID string, publishedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize forecast record %s: %w: %w", MessageKey(rec), domain.ErrInvalidRecord, err)
	}
	return kafkago.Message{
		Key:   []byte(MessageKey(rec)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "forecast_type", Value: []byte(rec.ForecastType)},
			{Key: "estimation_time", Value: []byte(rec.EstimationTime)},
			{Key: "batch_id", Value: []byte(batchID)},
			{Key: "published_at", Value: []byte(publishedAt.Format(time.RFC3339))},
		},
	}, nil
}
