package events

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/joefazee/optionsdesk/internal/logger"
	"github.com/joefazee/optionsdesk/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"default memory", func(*Config) {}, false},
		{"redis", func(c *Config) { c.Bus = BusRedis }, false},
		{"kafka without brokers", func(c *Config) { c.Bus = BusKafka }, true},
		{"kafka", func(c *Config) {
			c.Bus = BusKafka
			c.KafkaBrokers = []string{"localhost:9092"}
		}, false},
		{"unknown", func(c *Config) { c.Bus = "nats" }, true},
		{"zero publish timeout", func(c *Config) { c.PublishTimeout = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewBus(t *testing.T) {
	log := logger.NewNullLogger()

	bus, err := NewBus(GetDefaultConfig(), nil, log, nil)
	require.NoError(t, err)
	assert.Equal(t, BusMemory, bus.Name())

	cfg := GetDefaultConfig()
	cfg.Bus = BusRedis
	_, err = NewBus(cfg, nil, log, nil)
	assert.ErrorIs(t, err, ErrUnknownBus)

	s := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer rdb.Close()
	bus, err = NewBus(cfg, rdb, log, nil)
	require.NoError(t, err)
	assert.Equal(t, BusRedis, bus.Name())

	cfg = GetDefaultConfig()
	cfg.Bus = BusKafka
	cfg.KafkaBrokers = []string{"localhost:9092"}
	bus, err = NewBus(cfg, nil, log, nil)
	require.NoError(t, err)
	assert.Equal(t, BusKafka, bus.Name())
	assert.NoError(t, bus.Close())
}

func TestMessageKey(t *testing.T) {
	assert.Equal(t, []byte("option-12"), MessageKey(models.NewOptionEvent(models.EventOptionCalled, 12, actor, nil)))
	assert.Equal(t, []byte("desk"), MessageKey(models.NewDeskEvent(models.EventPriceUpdated, actor, nil)))
}
