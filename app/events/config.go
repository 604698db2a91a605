package events

import (
	"errors"
	"fmt"
	"time"

	"github.com/joefazee/optionsdesk/internal/logger"
	"github.com/joefazee/optionsdesk/internal/metrics"
	"github.com/redis/go-redis/v9"
)

const (
	BusMemory = "memory"
	BusRedis  = "redis"
	BusKafka  = "kafka"

	DefaultChannelPrefix = "optionsdesk:events"
)

var ErrUnknownBus = errors.New("events: unknown bus")

type Config struct {
	Bus               string        `env:"EVENTS_BUS" env-default:"memory"`
	ChannelPrefix     string        `env:"EVENTS_REDIS_PREFIX" env-default:"optionsdesk:events"`
	KafkaBrokers      []string      `env:"EVENTS_KAFKA_BROKERS" env-separator:","`
	KafkaTopic        string        `env:"EVENTS_KAFKA_TOPIC" env-default:"optionsdesk.events"`
	KafkaGroupID      string        `env:"EVENTS_KAFKA_GROUP" env-default:"optionsdesk-ws"`
	KafkaMaxAttempts  int           `env:"EVENTS_KAFKA_MAX_ATTEMPTS" env-default:"5"`
	KafkaWriteTimeout time.Duration `env:"EVENTS_KAFKA_WRITE_TIMEOUT" env-default:"5s"`
	PublishTimeout    time.Duration `env:"EVENTS_PUBLISH_TIMEOUT" env-default:"3s"`
}

func GetDefaultConfig() *Config {
	return &Config{
		Bus:               BusMemory,
		ChannelPrefix:     DefaultChannelPrefix,
		KafkaTopic:        "optionsdesk.events",
		KafkaGroupID:      "optionsdesk-ws",
		KafkaMaxAttempts:  5,
		KafkaWriteTimeout: 5 * time.Second,
		PublishTimeout:    3 * time.Second,
	}
}

func (c *Config) Validate() error {
	switch c.Bus {
	case BusMemory, BusRedis:
	case BusKafka:
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("%w: kafka bus needs EVENTS_KAFKA_BROKERS", ErrUnknownBus)
		}
		if c.KafkaTopic == "" {
			return fmt.Errorf("%w: kafka bus needs EVENTS_KAFKA_TOPIC", ErrUnknownBus)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBus, c.Bus)
	}
	if c.PublishTimeout <= 0 {
		return fmt.Errorf("events: publish timeout must be positive")
	}
	return nil
}

// NewBus builds the configured bus. rdb is required for the redis bus.
func NewBus(cfg *Config, rdb *redis.Client, log logger.Logger, m *metrics.Registry) (Bus, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Bus {
	case BusRedis:
		if rdb == nil {
			return nil, fmt.Errorf("%w: redis bus needs a redis client", ErrUnknownBus)
		}
		return NewRedisBus(rdb, cfg.ChannelPrefix, log, m), nil
	case BusKafka:
		return NewKafkaBus(cfg, log, m), nil
	default:
		return NewMemoryBus(m), nil
	}
}
