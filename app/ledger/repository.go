package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
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

func (r *repository) GetAccount(ctx context.Context, address common.Address) (*models.Account, error) {
	var account models.Account
	err := r.db.WithContext(ctx).Where("address = ?", address).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrRecordNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r *repository) LockAccount(ctx context.Context, address common.Address) (*models.Account, error) {
	seed := models.Account{Address: address, Balance: decimal.Zero}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&seed).Error; err != nil {
		return nil, fmt.Errorf("failed to open account: %w", err)
	}

	var account models.Account
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("address = ?", address).
		First(&account).Error
	if err != nil {
		return nil, fmt.Errorf("failed to lock account: %w", err)
	}
	return &account, nil
}

func (r *repository) SaveAccount(ctx context.Context, account *models.Account) error {
	if err := account.Validate(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("address = ?", account.Address).
		Update("balance", account.Balance).Error
}

func (r *repository) CreateEntries(ctx context.Context, entries []*models.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return err
		}
	}
	return r.db.WithContext(ctx).Create(&entries).Error
}

func (r *repository) ListEntries(ctx context.Context, filter EntryFilter) ([]models.LedgerEntry, int64, error) {
	filter.normalize()

	query := r.db.WithContext(ctx).Model(&models.LedgerEntry{}).Where("account = ?", filter.Account)
	if filter.OptionID != nil {
		query = query.Where("option_id = ?", *filter.OptionID)
	}
	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []models.LedgerEntry
	err := query.
		Order("created_at DESC").
		Limit(filter.PerPage).
		Offset(filter.offset()).
		Find(&entries).Error
	return entries, total, err
}
