package events

import (
	"context"
	"fmt"

	"github.com/joefazee/optionsdesk/models"
	"gorm.io/gorm"
)

type store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) Store {
	return &store{db: db}
}

func (s *store) WithTx(tx *gorm.DB) Store {
	return &store{db: tx}
}

func (s *store) Create(ctx context.Context, events ...*models.Event) error {
	if len(events) == 0 {
		return nil
	}
	for _, e := range events {
		if err := e.Validate(); err != nil {
			return err
		}
	}
	if err := s.db.WithContext(ctx).Create(events).Error; err != nil {
		return fmt.Errorf("failed to store events: %w", err)
	}
	return nil
}

func (s *store) List(ctx context.Context, filter Filter) ([]models.Event, int64, error) {
	filter.normalize()

	query := s.db.WithContext(ctx).Model(&models.Event{})
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.OptionID != nil {
		query = query.Where("option_id = ?", *filter.OptionID)
	}
	if filter.Since != nil {
		query = query.Where("created_at >= ?", *filter.Since)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var events []models.Event
	err := query.Order("created_at DESC").
		Limit(filter.PerPage).
		Offset(filter.offset()).
		Find(&events).Error
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}
