// Package kafka publishes tiered waterpoint records to the optional sink
// topic, for consumers like the anticipatory-action dashboard that want
// tier assignments as they are produced.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/floodwatch/waterpoint-prioritiser/internal/config"
	"github.com/floodwatch/waterpoint-prioritiser/internal/domain"
)

// Writer produces tiered records to a Kafka topic. It implements
// pipeline.TieredSink.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg config.KafkaConfig, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// WriteTiered serializes and publishes a batch of tiered records in a
// single WriteMessages call.
func (w *Writer) WriteTiered(ctx context.Context, records []domain.TieredRecord) error {
	if len(records) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(records))
	for i := range records {
		msg, err := serializeToMessage(records[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a tiered record into a Kafka message keyed
// by waterpoint id, so all runs for one waterpoint land on the same
// partition.
func serializeToMessage(rec domain.TieredRecord) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize tiered record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(rec.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "priority_tier", Value: []byte(rec.Tier)},
			{Key: "run_id", Value: []byte(rec.RunID)},
			{Key: "processed_at", Value: []byte(rec.ProcessedAt.Format(time.RFC3339))},
		},
	}, nil
}
