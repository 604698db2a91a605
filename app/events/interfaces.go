package events

import (
	"context"
	"time"

	"github.com/joefazee/optionsdesk/models"
	"gorm.io/gorm"
)

// Consumer receives one published event.
type Consumer func(ctx context.Context, event *models.Event) error

// Publisher hands committed events to the bus.
type Publisher interface {
	Publish(ctx context.Context, events ...*models.Event) error
	Close() error
}

// Subscriber delivers every published event to consume until ctx is done.
type Subscriber interface {
	Subscribe(ctx context.Context, consume Consumer) error
}

// Bus is a publisher that can also be consumed.
type Bus interface {
	Publisher
	Subscriber
	Name() string
}

// Store persists events next to the state change that produced them.
type Store interface {
	Create(ctx context.Context, events ...*models.Event) error
	List(ctx context.Context, filter Filter) ([]models.Event, int64, error)
	WithTx(tx *gorm.DB) Store
}

// Filter narrows the stored event log.
type Filter struct {
	Type     models.EventType
	OptionID *uint64
	Since    *time.Time
	Page     int
	PerPage  int
}

func (f *Filter) normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 || f.PerPage > 100 {
		f.PerPage = 50
	}
}

func (f *Filter) offset() int {
	return (f.Page - 1) * f.PerPage
}
