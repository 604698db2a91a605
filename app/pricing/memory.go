package pricing

import (
	"context"
	"sort"
	"sync"

	"github.com/joefazee/optionsdesk/app/events"
	"github.com/joefazee/optionsdesk/models"
	"gorm.io/gorm"
)

// MemoryRepository is an in-process Repository for tests and dry runs.
// Transaction does not roll back.
type MemoryRepository struct {
	mu     sync.RWMutex
	Desk   *models.Desk
	prices map[string]models.TokenPrice
	points []models.PricePoint
	Events *events.MemoryStore
}

var _ Repository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		prices: make(map[string]models.TokenPrice),
		Events: events.NewMemoryStore(),
	}
}

func (m *MemoryRepository) WithTx(_ *gorm.DB) Repository { return m }

func (m *MemoryRepository) Transaction(_ context.Context, fn func(repo Repository) error) error {
	return fn(m)
}

func (m *MemoryRepository) GetDesk(_ context.Context) (*models.Desk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Desk == nil {
		return nil, models.ErrDeskNotDeployed
	}
	d := *m.Desk
	return &d, nil
}

func (m *MemoryRepository) ListPrices(_ context.Context) ([]models.TokenPrice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.TokenPrice, 0, len(m.prices))
	for _, p := range m.prices {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (m *MemoryRepository) GetPrice(_ context.Context, symbol string) (*models.TokenPrice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.prices[symbol]
	if !ok {
		return nil, models.ErrRecordNotFound
	}
	return &p, nil
}

func (m *MemoryRepository) SavePrice(_ context.Context, price *models.TokenPrice) error {
	if err := price.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[price.Symbol] = *price
	return nil
}

func (m *MemoryRepository) CreatePricePoint(_ context.Context, point *models.PricePoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.points = append(m.points, *point)
	return nil
}

func (m *MemoryRepository) ListPricePoints(_ context.Context, symbol string, limit int) ([]models.PricePoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.PricePoint
	for _, p := range m.points {
		if p.Symbol == symbol {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ObservedAt.Before(out[j].ObservedAt) })
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (m *MemoryRepository) CreateEvents(ctx context.Context, evs ...*models.Event) error {
	return m.Events.Create(ctx, evs...)
}
