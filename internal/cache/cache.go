package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	RedisBackend  = "redis"
	MemoryBackend = "memory"
)

var (
	ErrCacheMiss      = errors.New("cache: key not found")
	ErrUnknownBackend = errors.New("cache: unknown backend")
)

// Cache is a typed key/value store with per-entry TTL.
type Cache[V any] interface {
	// Get returns the value or ErrCacheMiss.
	Get(ctx context.Context, key string) (V, error)
	// Set stores value under key, with TTL. Zero ttl = no expiration.
	Set(ctx context.Context, key string, value V, ttl time.Duration) error
	// Delete removes the key.
	Delete(ctx context.Context, key string) error
	// Take returns the value and removes it in one step, or ErrCacheMiss.
	Take(ctx context.Context, key string) (V, error)
	// MGet returns multiple values; missing ones are zero-value + ErrCacheMiss.
	MGet(ctx context.Context, keys ...string) ([]V, []error)
	// MSet sets multiple key/value pairs with same TTL.
	MSet(ctx context.Context, kv map[string]V, ttl time.Duration) error
}

// Config selects and tunes the cache backend.
type Config struct {
	Backend         string        `env:"CACHE_BACKEND" env-default:"memory"`
	RedisAddr       string        `env:"REDIS_ADDR" env-default:"localhost:6379"`
	RedisPassword   string        `env:"REDIS_PASSWORD" secret:"true"`
	RedisDB         int           `env:"REDIS_DB" env-default:"0"`
	PoolSize        int           `env:"REDIS_POOL_SIZE" env-default:"50"`
	MaxRetries      int           `env:"REDIS_MAX_RETRIES" env-default:"3"`
	MinRetryBackoff time.Duration `env:"REDIS_MIN_RETRY_BACKOFF" env-default:"8ms"`
	MaxRetryBackoff time.Duration `env:"REDIS_MAX_RETRY_BACKOFF" env-default:"512ms"`
	OpTimeout       time.Duration `env:"CACHE_OP_TIMEOUT" env-default:"50ms"`
}

func (c *Config) Validate() error {
	switch c.Backend {
	case MemoryBackend:
		return nil
	case RedisBackend:
		if c.RedisAddr == "" {
			return fmt.Errorf("%w: redis backend needs REDIS_ADDR", ErrUnknownBackend)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Backend)
	}
}

func GetDefaultConfig() *Config {
	return &Config{
		Backend:         MemoryBackend,
		RedisAddr:       "localhost:6379",
		PoolSize:        50,
		MaxRetries:      3,
		MinRetryBackoff: 8 * time.Millisecond,
		MaxRetryBackoff: 512 * time.Millisecond,
		OpTimeout:       50 * time.Millisecond,
	}
}

// NewRedisClient builds a client from cfg. The same client is shared by the
// caches and the event bus.
func NewRedisClient(cfg *Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:            cfg.RedisAddr,
		Password:        cfg.RedisPassword,
		DB:              cfg.RedisDB,
		PoolSize:        cfg.PoolSize,
		MaxRetries:      cfg.MaxRetries,
		MinRetryBackoff: cfg.MinRetryBackoff,
		MaxRetryBackoff: cfg.MaxRetryBackoff,
	})
}

// New returns a cache for the configured backend. Keys are namespaced so
// several caches can share one redis database. client may be nil for the
// memory backend.
func New[V any](cfg *Config, client *redis.Client, namespace string) (Cache[V], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case RedisBackend:
		if client == nil {
			client = NewRedisClient(cfg)
		}
		return NewRedisCache[V](client, namespace, cfg.OpTimeout), nil
	default:
		return NewMemoryCache[V](), nil
	}
}
