package events

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/joefazee/optionsdesk/internal/metrics"
	"github.com/joefazee/optionsdesk/models"
	"gorm.io/gorm"
)

// MemoryStore keeps events in process. Used by tests and by the deploy command.
type MemoryStore struct {
	mu     sync.RWMutex
	events []models.Event
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) WithTx(_ *gorm.DB) Store {
	return m
}

func (m *MemoryStore) Create(_ context.Context, events ...*models.Event) error {
	for _, e := range events {
		if err := e.Validate(); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range events {
		m.events = append(m.events, *e)
	}
	return nil
}

func (m *MemoryStore) List(_ context.Context, filter Filter) ([]models.Event, int64, error) {
	filter.normalize()

	m.mu.RLock()
	var matched []models.Event
	for _, e := range m.events {
		if filter.Type != "" && e.Type != filter.Type {
			continue
		}
		if filter.OptionID != nil && (e.OptionID == nil || *e.OptionID != *filter.OptionID) {
			continue
		}
		if filter.Since != nil && e.CreatedAt.Before(*filter.Since) {
			continue
		}
		matched = append(matched, e)
	}
	m.mu.RUnlock()

	// newest first, insertion order breaks ties
	for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
		matched[i], matched[j] = matched[j], matched[i]
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start := filter.offset()
	if start >= len(matched) {
		return []models.Event{}, total, nil
	}
	end := start + filter.PerPage
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

// Events returns every stored event in insertion order.
func (m *MemoryStore) Events() []models.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Event, len(m.events))
	copy(out, m.events)
	return out
}

// MemoryBus delivers events synchronously to in-process subscribers.
type MemoryBus struct {
	mu        sync.RWMutex
	consumers map[int]Consumer
	nextID    int
	closed    bool
	metrics   *metrics.Registry
}

var _ Bus = (*MemoryBus)(nil)

var ErrBusClosed = errors.New("events: bus closed")

func NewMemoryBus(m *metrics.Registry) *MemoryBus {
	return &MemoryBus{consumers: make(map[int]Consumer), metrics: m}
}

func (b *MemoryBus) Name() string { return BusMemory }

func (b *MemoryBus) Publish(ctx context.Context, events ...*models.Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}

	var errs []error
	for _, e := range events {
		for _, consume := range b.consumers {
			if err := consume(ctx, e); err != nil {
				errs = append(errs, err)
			}
		}
		b.metrics.ObserveEvent(BusMemory, string(e.Type))
	}
	return errors.Join(errs...)
}

func (b *MemoryBus) Subscribe(ctx context.Context, consume Consumer) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrBusClosed
	}
	id := b.nextID
	b.nextID++
	b.consumers[id] = consume
	b.mu.Unlock()

	<-ctx.Done()

	b.mu.Lock()
	delete(b.consumers, id)
	b.mu.Unlock()
	return nil
}

// Subscribers returns the number of registered consumers.
func (b *MemoryBus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.consumers)
}

func (b *MemoryBus) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	return nil
}
