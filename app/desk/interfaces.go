package desk

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joefazee/optionsdesk/app/events"
	"github.com/joefazee/optionsdesk/app/ledger"
	"github.com/joefazee/optionsdesk/app/pricing"
	"github.com/joefazee/optionsdesk/models"
	"gorm.io/gorm"
)

// Repository defines the interface for desk data access. The sub
// repositories share the receiver's transaction.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Transaction(ctx context.Context, fn func(repo Repository) error) error

	GetDesk(ctx context.Context) (*models.Desk, error)
	CreateDesk(ctx context.Context, desk *models.Desk) error

	Prices() pricing.Repository
	Ledger() ledger.Repository
	Events() events.Store
}

// Service defines the interface for desk operations
type Service interface {
	// Deploy is the desk constructor.
	Deploy(ctx context.Context, req *DeployRequest) (*DeployResult, error)
	Info(ctx context.Context) (*InfoResponse, error)
	// Admin returns the deployer, for admin-only routes.
	Admin(ctx context.Context) (common.Address, error)
}
