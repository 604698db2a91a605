package pricing

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joefazee/optionsdesk/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Repository defines the interface for token price data access
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Transaction(ctx context.Context, fn func(repo Repository) error) error

	// GetDesk is read here, not through the desk package, for the admin check.
	GetDesk(ctx context.Context) (*models.Desk, error)

	ListPrices(ctx context.Context) ([]models.TokenPrice, error)
	GetPrice(ctx context.Context, symbol string) (*models.TokenPrice, error)
	SavePrice(ctx context.Context, price *models.TokenPrice) error
	CreatePricePoint(ctx context.Context, point *models.PricePoint) error
	// ListPricePoints returns the latest limit points in time order.
	ListPricePoints(ctx context.Context, symbol string, limit int) ([]models.PricePoint, error)
	CreateEvents(ctx context.Context, events ...*models.Event) error
}

// Service defines the interface for price book operations
type Service interface {
	Calculator() *Calculator

	Prices(ctx context.Context) ([]models.TokenPrice, error)
	Price(ctx context.Context, symbol string) (*models.TokenPrice, error)
	History(ctx context.Context, symbol string, limit int) ([]models.PricePoint, error)

	// UpdatePrice is updateTokenPrice: admin only, units are constructor units.
	UpdatePrice(ctx context.Context, from common.Address, symbol string, units decimal.Decimal) (*models.TokenPrice, error)
	// OracleUpdate applies a price pushed by a feed holding the oracle key.
	OracleUpdate(ctx context.Context, key, symbol string, units decimal.Decimal) (*models.TokenPrice, error)

	Value(ctx context.Context, req ValuationRequest) (*Valuation, error)
	Quote(ctx context.Context, req *QuoteRequest) (*QuoteResponse, error)
}
