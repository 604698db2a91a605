package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/joefazee/optionsdesk/app/events"
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

func (r *repository) ListPrices(ctx context.Context) ([]models.TokenPrice, error) {
	var prices []models.TokenPrice
	err := r.db.WithContext(ctx).Order("position ASC").Find(&prices).Error
	return prices, err
}

func (r *repository) GetPrice(ctx context.Context, symbol string) (*models.TokenPrice, error) {
	var price models.TokenPrice
	err := r.db.WithContext(ctx).Where("symbol = ?", symbol).First(&price).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrRecordNotFound
		}
		return nil, err
	}
	return &price, nil
}

func (r *repository) SavePrice(ctx context.Context, price *models.TokenPrice) error {
	if err := price.Validate(); err != nil {
		return err
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}},
		DoUpdates: clause.AssignmentColumns([]string{"units", "price", "updated_at"}),
	}).Create(price).Error
	if err != nil {
		return fmt.Errorf("failed to save price for %s: %w", price.Symbol, err)
	}
	return nil
}

func (r *repository) CreatePricePoint(ctx context.Context, point *models.PricePoint) error {
	return r.db.WithContext(ctx).Create(point).Error
}

func (r *repository) ListPricePoints(ctx context.Context, symbol string, limit int) ([]models.PricePoint, error) {
	var points []models.PricePoint
	err := r.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("observed_at DESC").
		Limit(limit).
		Find(&points).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
	return points, nil
}

func (r *repository) CreateEvents(ctx context.Context, evs ...*models.Event) error {
	return events.NewStore(r.db).Create(ctx, evs...)
}
