package cache

import (
	"context"
	"hash/fnv"
	"sync"
	"time"
)

type item[V any] struct {
	value      V
	expiration int64 // Unix nanoseconds; zero = no expire
}

func (i item[V]) expired(now int64) bool {
	return i.expiration > 0 && now > i.expiration
}

type shard[V any] struct {
	sync.Mutex
	items map[string]item[V]
}

type MemoryCache[V any] struct {
	shards   []*shard[V]
	quit     chan struct{}
	stopOnce sync.Once
}

// NewMemoryCache creates a 64-shard cache with a 1s janitor by default.
func NewMemoryCache[V any]() *MemoryCache[V] {
	return NewMemoryCacheWithOptions[V](64, time.Second)
}

// NewMemoryCacheWithOptions allows customizing shard count & janitor interval.
func NewMemoryCacheWithOptions[V any](shardCount int, janitorInterval time.Duration) *MemoryCache[V] {
	if shardCount < 1 {
		shardCount = 1
	}
	mc := &MemoryCache[V]{
		shards: make([]*shard[V], shardCount),
		quit:   make(chan struct{}),
	}
	for i := range mc.shards {
		mc.shards[i] = &shard[V]{items: make(map[string]item[V])}
	}
	go mc.startJanitor(janitorInterval)
	return mc
}

// Stop terminates the janitor goroutine. Safe to call more than once.
func (mc *MemoryCache[V]) Stop() {
	mc.stopOnce.Do(func() { close(mc.quit) })
}

func (mc *MemoryCache[V]) getShard(key string) *shard[V] {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return mc.shards[h.Sum32()%uint32(len(mc.shards))]
}

// lookup must be called with the shard locked.
func (s *shard[V]) lookup(key string, now int64) (item[V], bool) {
	itm, ok := s.items[key]
	if ok && itm.expired(now) {
		delete(s.items, key)
		return itm, false
	}
	return itm, ok
}

func (mc *MemoryCache[V]) Get(_ context.Context, key string) (V, error) {
	s := mc.getShard(key)
	s.Lock()
	defer s.Unlock()

	if itm, ok := s.lookup(key, time.Now().UnixNano()); ok {
		return itm.value, nil
	}
	var zero V
	return zero, ErrCacheMiss
}

func (mc *MemoryCache[V]) Set(_ context.Context, key string, value V, ttl time.Duration) error {
	var exp int64
	if ttl > 0 {
		exp = time.Now().Add(ttl).UnixNano()
	}
	s := mc.getShard(key)
	s.Lock()
	s.items[key] = item[V]{value: value, expiration: exp}
	s.Unlock()
	return nil
}

func (mc *MemoryCache[V]) Delete(_ context.Context, key string) error {
	s := mc.getShard(key)
	s.Lock()
	delete(s.items, key)
	s.Unlock()
	return nil
}

func (mc *MemoryCache[V]) Take(_ context.Context, key string) (V, error) {
	s := mc.getShard(key)
	s.Lock()
	defer s.Unlock()

	itm, ok := s.lookup(key, time.Now().UnixNano())
	if !ok {
		var zero V
		return zero, ErrCacheMiss
	}
	delete(s.items, key)
	return itm.value, nil
}

func (mc *MemoryCache[V]) MGet(ctx context.Context, keys ...string) ([]V, []error) {
	results := make([]V, len(keys))
	errs := make([]error, len(keys))
	for i, k := range keys {
		results[i], errs[i] = mc.Get(ctx, k)
	}
	return results, errs
}

func (mc *MemoryCache[V]) MSet(ctx context.Context, kv map[string]V, ttl time.Duration) error {
	for k, v := range kv {
		if err := mc.Set(ctx, k, v, ttl); err != nil {
			return err
		}
	}
	return nil
}

func (mc *MemoryCache[V]) startJanitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			now := time.Now().UnixNano()
			for _, s := range mc.shards {
				s.Lock()
				for k, itm := range s.items {
					if itm.expired(now) {
						delete(s.items, k)
					}
				}
				s.Unlock()
			}
		case <-mc.quit:
			return
		}
	}
}
