package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/joefazee/optionsdesk/internal/logger"
	"github.com/joefazee/optionsdesk/internal/metrics"
	"github.com/joefazee/optionsdesk/models"
	"github.com/segmentio/kafka-go"
)

// KafkaBus writes events to one topic keyed by option id so every
// transition of an option lands on the same partition in order.
type KafkaBus struct {
	writer  *kafka.Writer
	cfg     *Config
	logger  logger.Logger
	metrics *metrics.Registry
}

var _ Bus = (*KafkaBus)(nil)

func NewKafkaBus(cfg *Config, log logger.Logger, m *metrics.Registry) *KafkaBus {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            cfg.KafkaMaxAttempts,
		WriteTimeout:           cfg.KafkaWriteTimeout,
	}
	return &KafkaBus{writer: writer, cfg: cfg, logger: log, metrics: m}
}

func (b *KafkaBus) Name() string { return BusKafka }

// MessageKey is the partition key of an event.
func MessageKey(e *models.Event) []byte {
	if e.OptionID != nil {
		return []byte("option-" + strconv.FormatUint(*e.OptionID, 10))
	}
	return []byte("desk")
}

func (b *KafkaBus) Publish(ctx context.Context, events ...*models.Event) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		value, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to encode event %s: %w", e.ID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   MessageKey(e),
			Value: value,
			Time:  e.CreatedAt,
			Headers: []kafka.Header{
				{Key: "event-type", Value: []byte(e.Type)},
			},
		})
	}

	if err := b.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("kafka: write %d events: %w", len(msgs), err)
	}
	for _, e := range events {
		b.metrics.ObserveEvent(BusKafka, string(e.Type))
	}
	return nil
}

// Subscribe consumes the topic as part of the configured consumer group
// until ctx is cancelled. Offsets are committed after the consumer runs.
func (b *KafkaBus) Subscribe(ctx context.Context, consume Consumer) error {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        b.cfg.KafkaBrokers,
		Topic:          b.cfg.KafkaTopic,
		GroupID:        b.cfg.KafkaGroupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        time.Second,
		StartOffset:    kafka.LastOffset,
		CommitInterval: 0,
	})
	defer reader.Close()

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("kafka: fetch: %w", err)
		}

		var event models.Event
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			b.logger.Error(err, map[string]interface{}{"topic": msg.Topic, "offset": msg.Offset, "action": "decode_event"})
		} else if err := consume(ctx, &event); err != nil {
			b.logger.Error(err, map[string]interface{}{"event_id": event.ID.String(), "type": string(event.Type)})
		}

		if err := reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			return fmt.Errorf("kafka: commit: %w", err)
		}
	}
}

func (b *KafkaBus) Close() error {
	return b.writer.Close()
}
