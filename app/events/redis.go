package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/joefazee/optionsdesk/internal/logger"
	"github.com/joefazee/optionsdesk/internal/metrics"
	"github.com/joefazee/optionsdesk/models"
	"github.com/redis/go-redis/v9"
)

// RedisBus fans events out over Redis pub/sub, one channel per event type.
type RedisBus struct {
	rdb     *redis.Client
	prefix  string
	logger  logger.Logger
	metrics *metrics.Registry
}

var _ Bus = (*RedisBus)(nil)

func NewRedisBus(rdb *redis.Client, prefix string, log logger.Logger, m *metrics.Registry) *RedisBus {
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}
	return &RedisBus{rdb: rdb, prefix: prefix, logger: log, metrics: m}
}

func (b *RedisBus) Name() string { return BusRedis }

// Channel returns the pub/sub channel carrying events of type t.
func (b *RedisBus) Channel(t models.EventType) string {
	return b.prefix + ":" + string(t)
}

func (b *RedisBus) Publish(ctx context.Context, events ...*models.Event) error {
	for _, e := range events {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to encode event %s: %w", e.ID, err)
		}
		channel := b.Channel(e.Type)
		if err := b.rdb.Publish(ctx, channel, payload).Err(); err != nil {
			return fmt.Errorf("redis: publish %s: %w", channel, err)
		}
		b.metrics.ObserveEvent(BusRedis, string(e.Type))
	}
	return nil
}

// Subscribe pattern-subscribes to every event channel and blocks until ctx
// is cancelled. Consumer errors are logged, not returned.
func (b *RedisBus) Subscribe(ctx context.Context, consume Consumer) error {
	pattern := b.prefix + ":*"
	pubsub := b.rdb.PSubscribe(ctx, pattern)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("redis: subscribe %s: %w", pattern, err)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var event models.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.logger.Error(err, map[string]interface{}{"channel": msg.Channel, "action": "decode_event"})
				continue
			}
			if err := consume(ctx, &event); err != nil {
				b.logger.Error(err, map[string]interface{}{"event_id": event.ID.String(), "type": string(event.Type)})
			}
		}
	}
}

// Close leaves the shared client open; its owner closes it.
func (b *RedisBus) Close() error {
	return nil
}
