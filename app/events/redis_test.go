package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/joefazee/optionsdesk/internal/logger"
	"github.com/joefazee/optionsdesk/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisBus(t *testing.T) (*RedisBus, *redis.Client) {
	t.Helper()
	s := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisBus(rdb, "", logger.NewNullLogger(), nil), rdb
}

func TestRedisBus_Channel(t *testing.T) {
	bus, _ := newRedisBus(t)
	assert.Equal(t, "optionsdesk:events:option.called", bus.Channel(models.EventOptionCalled))
	assert.Equal(t, BusRedis, bus.Name())
}

func TestRedisBus_PublishSubscribe(t *testing.T) {
	bus, _ := newRedisBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan *models.Event, 16)
	go func() {
		_ = bus.Subscribe(ctx, func(_ context.Context, e *models.Event) error {
			received <- e
			return nil
		})
	}()

	event := models.NewOptionEvent(models.EventOptionPurchased, 4, actor, models.EventPayload{"premium": "205479452054794520"})

	// the subscription is asynchronous; publish until it is delivered
	var got *models.Event
	require.Eventually(t, func() bool {
		if err := bus.Publish(ctx, event); err != nil {
			return false
		}
		select {
		case got = <-received:
			return true
		case <-time.After(20 * time.Millisecond):
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, event.ID, got.ID)
	assert.Equal(t, models.EventOptionPurchased, got.Type)
	require.NotNil(t, got.OptionID)
	assert.Equal(t, uint64(4), *got.OptionID)
	assert.Equal(t, actor, got.Actor)
	assert.Equal(t, "205479452054794520", got.Payload["premium"])
}

func TestRedisBus_SkipsUndecodableMessages(t *testing.T) {
	bus, rdb := newRedisBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan *models.Event, 16)
	go func() {
		_ = bus.Subscribe(ctx, func(_ context.Context, e *models.Event) error {
			received <- e
			return nil
		})
	}()

	good, err := json.Marshal(models.NewDeskEvent(models.EventPriceUpdated, actor, nil))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		rdb.Publish(ctx, "optionsdesk:events:garbage", "{not json")
		rdb.Publish(ctx, "optionsdesk:events:price.updated", good)
		select {
		case e := <-received:
			return e.Type == models.EventPriceUpdated
		case <-time.After(20 * time.Millisecond):
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}
