package ledger

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joefazee/optionsdesk/models"
	"gorm.io/gorm"
)

// Repository persists account balances and their immutable entries.
// Balance reads used for a transfer must go through LockAccount so two
// transfers touching the same account serialize.
type Repository interface {
	GetAccount(ctx context.Context, address common.Address) (*models.Account, error)
	// LockAccount returns the account row locked for update, creating a zero
	// balance row first when the address has never been seen.
	LockAccount(ctx context.Context, address common.Address) (*models.Account, error)
	SaveAccount(ctx context.Context, account *models.Account) error
	CreateEntries(ctx context.Context, entries []*models.LedgerEntry) error
	ListEntries(ctx context.Context, filter EntryFilter) ([]models.LedgerEntry, int64, error)

	WithTx(tx *gorm.DB) Repository
}

// EntryFilter narrows an account's ledger history.
type EntryFilter struct {
	Account  common.Address
	OptionID *uint64
	Kind     models.EntryKind
	Page     int
	PerPage  int
}

func (f *EntryFilter) normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 || f.PerPage > 100 {
		f.PerPage = 20
	}
}

func (f *EntryFilter) offset() int {
	return (f.Page - 1) * f.PerPage
}
