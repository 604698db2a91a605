package desk

import (
	"context"

	"github.com/joefazee/optionsdesk/app/events"
	"github.com/joefazee/optionsdesk/app/ledger"
	"github.com/joefazee/optionsdesk/app/pricing"
	"github.com/joefazee/optionsdesk/models"
	"gorm.io/gorm"
)

// MemoryRepository backs the desk with the in-process price book and
// ledger. Transaction restores balances when fn fails.
type MemoryRepository struct {
	Book    *pricing.MemoryRepository
	Balance *ledger.MemoryRepository
}

var _ Repository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		Book:    pricing.NewMemoryRepository(),
		Balance: ledger.NewMemoryRepository(),
	}
}

func (m *MemoryRepository) WithTx(_ *gorm.DB) Repository { return m }

func (m *MemoryRepository) Transaction(_ context.Context, fn func(repo Repository) error) error {
	snapshot := m.Balance.Snapshot()
	if err := fn(m); err != nil {
		m.Balance.Restore(snapshot)
		return err
	}
	return nil
}

func (m *MemoryRepository) GetDesk(ctx context.Context) (*models.Desk, error) {
	return m.Book.GetDesk(ctx)
}

func (m *MemoryRepository) CreateDesk(_ context.Context, desk *models.Desk) error {
	desk.ID = models.DeskID
	if err := desk.Validate(); err != nil {
		return err
	}
	if m.Book.Desk != nil {
		return models.Revert(models.ReasonDeskAlreadyDeployed)
	}
	d := *desk
	m.Book.Desk = &d
	return nil
}

func (m *MemoryRepository) Prices() pricing.Repository { return m.Book }

func (m *MemoryRepository) Ledger() ledger.Repository { return m.Balance }

func (m *MemoryRepository) Events() events.Store { return m.Book.Events }
