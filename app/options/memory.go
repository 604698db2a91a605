package options

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/joefazee/optionsdesk/app/events"
	"github.com/joefazee/optionsdesk/app/ledger"
	"github.com/joefazee/optionsdesk/app/pricing"
	"github.com/joefazee/optionsdesk/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MemoryRepository keeps options in process on top of the in-process price
// book and ledger. Transaction restores options, orders, balances and the
// option counter when fn fails.
type MemoryRepository struct {
	mu      sync.Mutex
	Book    *pricing.MemoryRepository
	Balance *ledger.MemoryRepository
	options map[uint64]models.Option
	orders  map[uint64]models.RebalanceOrder
	now     func() time.Time
}

var _ Repository = (*MemoryRepository)(nil)

func NewMemoryRepository(book *pricing.MemoryRepository, balance *ledger.MemoryRepository) *MemoryRepository {
	return &MemoryRepository{
		Book:    book,
		Balance: balance,
		options: make(map[uint64]models.Option),
		orders:  make(map[uint64]models.RebalanceOrder),
		now:     time.Now,
	}
}

func (m *MemoryRepository) WithTx(_ *gorm.DB) Repository { return m }

func (m *MemoryRepository) Transaction(_ context.Context, fn func(repo Repository) error) error {
	m.mu.Lock()
	options := make(map[uint64]models.Option, len(m.options))
	for k, v := range m.options {
		options[k] = v
	}
	orders := make(map[uint64]models.RebalanceOrder, len(m.orders))
	for k, v := range m.orders {
		orders[k] = v
	}
	var count uint64
	if m.Book.Desk != nil {
		count = m.Book.Desk.OptionCount
	}
	m.mu.Unlock()
	balances := m.Balance.Snapshot()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.options, m.orders = options, orders
		if m.Book.Desk != nil {
			m.Book.Desk.OptionCount = count
		}
		m.mu.Unlock()
		m.Balance.Restore(balances)
		return err
	}
	return nil
}

func (m *MemoryRepository) GetDesk(ctx context.Context) (*models.Desk, error) {
	return m.Book.GetDesk(ctx)
}

func (m *MemoryRepository) NextOptionID(_ context.Context) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Book.Desk == nil {
		return 0, models.ErrDeskNotDeployed
	}
	id := m.Book.Desk.OptionCount
	m.Book.Desk.OptionCount++
	return id, nil
}

func (m *MemoryRepository) CreateOption(_ context.Context, option *models.Option) error {
	if err := option.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	option.CreatedAt, option.UpdatedAt = now, now
	m.options[option.ID] = *option
	return nil
}

func (m *MemoryRepository) GetOption(_ context.Context, id uint64) (*models.Option, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.options[id]
	if !ok {
		return nil, models.ErrRecordNotFound
	}
	return &o, nil
}

func (m *MemoryRepository) LockOption(ctx context.Context, id uint64) (*models.Option, error) {
	return m.GetOption(ctx, id)
}

func (m *MemoryRepository) SaveOption(_ context.Context, option *models.Option) error {
	if err := option.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	option.UpdatedAt = m.now()
	m.options[option.ID] = *option
	return nil
}

func (m *MemoryRepository) sorted(keep func(o *models.Option) bool) []models.Option {
	out := make([]models.Option, 0)
	for _, o := range m.options {
		if keep(&o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *MemoryRepository) ListOptions(_ context.Context, filter Filter) ([]models.Option, int64, error) {
	filter.normalize()
	symbol := models.NormalizeSymbol(filter.Symbol)

	m.mu.Lock()
	matched := m.sorted(func(o *models.Option) bool {
		switch {
		case filter.Symbol != "" && o.Symbol != symbol:
			return false
		case filter.Owner != nil && o.Owner != *filter.Owner:
			return false
		case filter.RiskTaker != nil && o.RiskTaker != *filter.RiskTaker:
			return false
		case filter.Status != "" && o.Status != filter.Status:
			return false
		case filter.ForSale != nil && o.ForSale != *filter.ForSale:
			return false
		}
		return true
	})
	m.mu.Unlock()

	total := int64(len(matched))
	start := filter.offset()
	if start >= len(matched) {
		return []models.Option{}, total, nil
	}
	end := start + filter.PerPage
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (m *MemoryRepository) ListExpired(_ context.Context, now time.Time, limit int) ([]models.Option, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.sorted(func(o *models.Option) bool {
		return o.Status == models.OptionStatusActive && o.IsExpired(now)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryRepository) ListUnarchived(_ context.Context, limit int) ([]models.Option, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.sorted(func(o *models.Option) bool {
		return o.SettledAt != nil && o.ArchivedAt == nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].SettledAt.Before(*out[j].SettledAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryRepository) MarkArchived(_ context.Context, ids []uint64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		o, ok := m.options[id]
		if !ok {
			continue
		}
		archivedAt := at
		o.ArchivedAt = &archivedAt
		m.options[id] = o
	}
	return nil
}

func (m *MemoryRepository) GetRebalanceOrder(_ context.Context, optionID uint64) (*models.RebalanceOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[optionID]
	if !ok {
		return nil, models.ErrRecordNotFound
	}
	return &order, nil
}

func (m *MemoryRepository) SaveRebalanceOrder(_ context.Context, order *models.RebalanceOrder) error {
	if err := order.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	order.CreatedAt = m.now()
	m.orders[order.OptionID] = *order
	return nil
}

func (m *MemoryRepository) DeleteRebalanceOrder(_ context.Context, optionID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.orders, optionID)
	return nil
}

func (m *MemoryRepository) LiveEscrow(_ context.Context) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sum := decimal.Zero
	for _, o := range m.options {
		if !o.IsSettled() {
			sum = sum.Add(o.HolderEscrow).Add(o.Collateral)
		}
	}
	return sum, nil
}

func (m *MemoryRepository) PendingDeposits(_ context.Context) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sum := decimal.Zero
	for _, o := range m.orders {
		sum = sum.Add(o.Deposit)
	}
	return sum, nil
}

func (m *MemoryRepository) Prices() pricing.Repository { return m.Book }

func (m *MemoryRepository) Ledger() ledger.Repository { return m.Balance }

func (m *MemoryRepository) Events() events.Store { return m.Book.Events }
