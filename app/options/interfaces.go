package options

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joefazee/optionsdesk/app/events"
	"github.com/joefazee/optionsdesk/app/ledger"
	"github.com/joefazee/optionsdesk/app/pricing"
	"github.com/joefazee/optionsdesk/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Repository defines the interface for option data access. The sub
// repositories share the receiver's transaction.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Transaction(ctx context.Context, fn func(repo Repository) error) error

	GetDesk(ctx context.Context) (*models.Desk, error)
	// NextOptionID reserves the next global option id.
	NextOptionID(ctx context.Context) (uint64, error)

	CreateOption(ctx context.Context, option *models.Option) error
	GetOption(ctx context.Context, id uint64) (*models.Option, error)
	// LockOption returns the option row locked for update.
	LockOption(ctx context.Context, id uint64) (*models.Option, error)
	SaveOption(ctx context.Context, option *models.Option) error
	ListOptions(ctx context.Context, filter Filter) ([]models.Option, int64, error)
	// ListExpired returns active options whose expiry is at or before now.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]models.Option, error)
	// ListUnarchived returns settled options not yet exported, oldest first.
	ListUnarchived(ctx context.Context, limit int) ([]models.Option, error)
	MarkArchived(ctx context.Context, ids []uint64, at time.Time) error

	GetRebalanceOrder(ctx context.Context, optionID uint64) (*models.RebalanceOrder, error)
	SaveRebalanceOrder(ctx context.Context, order *models.RebalanceOrder) error
	DeleteRebalanceOrder(ctx context.Context, optionID uint64) error

	// LiveEscrow sums holder escrow and collateral of unsettled options.
	LiveEscrow(ctx context.Context) (decimal.Decimal, error)
	PendingDeposits(ctx context.Context) (decimal.Decimal, error)

	Prices() pricing.Repository
	Ledger() ledger.Repository
	Events() events.Store
}

// Filter narrows ListOptions.
type Filter struct {
	Symbol    string
	Owner     *common.Address
	RiskTaker *common.Address
	Status    models.OptionStatus
	ForSale   *bool
	Page      int
	PerPage   int
}

func (f *Filter) normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 || f.PerPage > 100 {
		f.PerPage = 20
	}
}

func (f *Filter) offset() int {
	return (f.Page - 1) * f.PerPage
}

// Service defines the interface for the option lifecycle. Every payable
// operation takes the caller and the value they send, in wei.
type Service interface {
	CreateOption(ctx context.Context, from common.Address, value decimal.Decimal, req *CreateOptionRequest) (*models.Option, error)
	BuyOption(ctx context.Context, id uint64, from common.Address, value decimal.Decimal) (*models.Option, error)

	SellPurchasedOption(ctx context.Context, id uint64, from common.Address, price decimal.Decimal, note string) (*models.Option, error)
	DelistOption(ctx context.Context, id uint64, from common.Address) (*models.Option, error)
	BuyPurchasedOption(ctx context.Context, id uint64, from common.Address, value decimal.Decimal) (*models.Option, error)

	CallOption(ctx context.Context, id uint64, from common.Address, value decimal.Decimal) (*Settlement, error)
	CashOut(ctx context.Context, id uint64, from common.Address) (*Settlement, error)
	CancelOption(ctx context.Context, id uint64, from common.Address) (*models.Option, error)

	RebalanceOption(ctx context.Context, id uint64, from common.Address, newStrike, value decimal.Decimal) (*RebalanceResult, error)
	RebalanceIncrease(ctx context.Context, id uint64, from common.Address, value decimal.Decimal) (*models.Option, error)

	ViewOption(ctx context.Context, id uint64) (*models.Option, error)
	// ViewOptionForSale returns the listing price, zero when not listed.
	ViewOptionForSale(ctx context.Context, id uint64) (decimal.Decimal, error)
	// ViewRebalanceOrder returns the pending order, or nil.
	ViewRebalanceOrder(ctx context.Context, id uint64) (*models.RebalanceOrder, error)
	ListOptions(ctx context.Context, filter Filter) ([]models.Option, int64, error)
	QuoteOption(ctx context.Context, id uint64) (*pricing.Valuation, error)

	Audit(ctx context.Context) (*AuditReport, error)
	// SweepExpired marks expired active options lapsed and returns how many.
	SweepExpired(ctx context.Context) (int, error)
}
