package options

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joefazee/optionsdesk/app/events"
	"github.com/joefazee/optionsdesk/app/ledger"
	"github.com/joefazee/optionsdesk/app/pricing"
	"github.com/joefazee/optionsdesk/models"
	"github.com/shopspring/decimal"
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

// NextOptionID bumps the desk counter and returns its previous value, so ids
// start at zero and are shared by every token.
func (r *repository) NextOptionID(ctx context.Context) (uint64, error) {
	var id uint64
	res := r.db.WithContext(ctx).
		Raw(`UPDATE desks SET option_count = option_count + 1 WHERE id = ? RETURNING option_count - 1`, models.DeskID).
		Scan(&id)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to reserve option id: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, models.ErrDeskNotDeployed
	}
	return id, nil
}

func (r *repository) CreateOption(ctx context.Context, option *models.Option) error {
	if err := option.Validate(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(option).Error
}

func (r *repository) GetOption(ctx context.Context, id uint64) (*models.Option, error) {
	return r.findOption(r.db.WithContext(ctx), id)
}

func (r *repository) LockOption(ctx context.Context, id uint64) (*models.Option, error) {
	return r.findOption(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *repository) findOption(db *gorm.DB, id uint64) (*models.Option, error) {
	var option models.Option
	if err := db.Where("id = ?", id).First(&option).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrRecordNotFound
		}
		return nil, err
	}
	return &option, nil
}

func (r *repository) SaveOption(ctx context.Context, option *models.Option) error {
	if err := option.Validate(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Save(option).Error
}

func (r *repository) ListOptions(ctx context.Context, filter Filter) ([]models.Option, int64, error) {
	filter.normalize()

	query := r.db.WithContext(ctx).Model(&models.Option{})
	if filter.Symbol != "" {
		query = query.Where("symbol = ?", models.NormalizeSymbol(filter.Symbol))
	}
	if filter.Owner != nil {
		query = query.Where("owner = ?", *filter.Owner)
	}
	if filter.RiskTaker != nil {
		query = query.Where("risk_taker = ?", *filter.RiskTaker)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.ForSale != nil {
		query = query.Where("for_sale = ?", *filter.ForSale)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var options []models.Option
	err := query.Order("id ASC").Limit(filter.PerPage).Offset(filter.offset()).Find(&options).Error
	return options, total, err
}

func (r *repository) ListExpired(ctx context.Context, now time.Time, limit int) ([]models.Option, error) {
	var options []models.Option
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at <= ?", models.OptionStatusActive, now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&options).Error
	return options, err
}

func (r *repository) ListUnarchived(ctx context.Context, limit int) ([]models.Option, error) {
	var options []models.Option
	err := r.db.WithContext(ctx).
		Where("archived_at IS NULL AND settled_at IS NOT NULL").
		Order("settled_at ASC").
		Limit(limit).
		Find(&options).Error
	return options, err
}

func (r *repository) MarkArchived(ctx context.Context, ids []uint64, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Option{}).
		Where("id IN ?", ids).
		Update("archived_at", at).Error
}

func (r *repository) GetRebalanceOrder(ctx context.Context, optionID uint64) (*models.RebalanceOrder, error) {
	var order models.RebalanceOrder
	err := r.db.WithContext(ctx).Where("option_id = ?", optionID).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrRecordNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *repository) SaveRebalanceOrder(ctx context.Context, order *models.RebalanceOrder) error {
	if err := order.Validate(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "option_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"rebalancer", "new_strike_price", "deposit", "created_at"}),
	}).Create(order).Error
}

func (r *repository) DeleteRebalanceOrder(ctx context.Context, optionID uint64) error {
	return r.db.WithContext(ctx).Where("option_id = ?", optionID).Delete(&models.RebalanceOrder{}).Error
}

func (r *repository) LiveEscrow(ctx context.Context) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.db.WithContext(ctx).
		Model(&models.Option{}).
		Select("COALESCE(SUM(holder_escrow + collateral), 0)").
		Where("status NOT IN ?", []models.OptionStatus{
			models.OptionStatusCalled, models.OptionStatusCashedOut, models.OptionStatusCancelled,
		}).
		Scan(&sum).Error
	return sum, err
}

func (r *repository) PendingDeposits(ctx context.Context) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.db.WithContext(ctx).
		Model(&models.RebalanceOrder{}).
		Select("COALESCE(SUM(deposit), 0)").
		Scan(&sum).Error
	return sum, err
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
