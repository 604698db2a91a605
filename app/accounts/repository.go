package accounts

import (
	"context"

	"github.com/joefazee/optionsdesk/app/ledger"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Ledger() ledger.Repository {
	return ledger.NewRepository(r.db)
}

func (r *repository) Transaction(ctx context.Context, fn func(repo ledger.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ledger.NewRepository(tx))
	})
}

// MemoryRepository keeps balances in process and restores them when fn fails.
type MemoryRepository struct {
	Balance *ledger.MemoryRepository
}

func NewMemoryRepository(balance *ledger.MemoryRepository) *MemoryRepository {
	if balance == nil {
		balance = ledger.NewMemoryRepository()
	}
	return &MemoryRepository{Balance: balance}
}

func (m *MemoryRepository) Ledger() ledger.Repository {
	return m.Balance
}

func (m *MemoryRepository) Transaction(_ context.Context, fn func(repo ledger.Repository) error) error {
	snapshot := m.Balance.Snapshot()
	if err := fn(m.Balance); err != nil {
		m.Balance.Restore(snapshot)
		return err
	}
	return nil
}
