package desk

import (
	"context"
	"errors"
	"fmt"

	"github.com/joefazee/optionsdesk/app/events"
	"github.com/joefazee/optionsdesk/app/ledger"
	"github.com/joefazee/optionsdesk/app/pricing"
	"github.com/joefazee/optionsdesk/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) Transaction(ctx context.Context, fn func(repo Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}

func (r *repository) GetDesk(ctx context.Context) (*models.Desk, error) {
	var desk models.Desk
	err := r.db.WithContext(ctx).Where("id = ?", models.DeskID).First(&desk).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrDeskNotDeployed
		}
		return nil, err
	}
	return &desk, nil
}

// CreateDesk inserts the singleton row. A concurrent deploy that lost the
// race sees no inserted row and gets the already-deployed revert.
func (r *repository) CreateDesk(ctx context.Context, desk *models.Desk) error {
	desk.ID = models.DeskID
	if err := desk.Validate(); err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(desk)
	if res.Error != nil {
		return fmt.Errorf("failed to create desk: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.Revert(models.ReasonDeskAlreadyDeployed)
	}
	return nil
}

func (r *repository) Prices() pricing.Repository {
	return pricing.NewRepository(r.db)
}

func (r *repository) Ledger() ledger.Repository {
	return ledger.NewRepository(r.db)
}

func (r *repository) Events() events.Store {
	return events.NewStore(r.db)
}
