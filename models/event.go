package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EventType names a desk state transition
type EventType string

const (
	EventDeskDeployed        EventType = "desk.deployed"
	EventPriceUpdated        EventType = "price.updated"
	EventAccountFunded       EventType = "account.funded"
	EventOptionCreated       EventType = "option.created"
	EventOptionPurchased     EventType = "option.purchased"
	EventOptionListed        EventType = "option.listed"
	EventOptionDelisted      EventType = "option.delisted"
	EventOptionResold        EventType = "option.resold"
	EventOptionCalled        EventType = "option.called"
	EventOptionCashedOut     EventType = "option.cashed_out"
	EventOptionCancelled     EventType = "option.cancelled"
	EventOptionLapsed        EventType = "option.lapsed"
	EventRebalanceProposed   EventType = "option.rebalance_proposed"
	EventRebalanced          EventType = "option.rebalanced"
	EventCollateralIncreased EventType = "option.collateral_increased"
)

// EventPayload carries event specific values
type EventPayload map[string]interface{}

// Value implements driver.Valuer interface for EventPayload
func (p EventPayload) Value() (driver.Value, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p)
}

// Scan implements sql.Scanner interface for EventPayload
func (p *EventPayload) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	}
	return nil
}

// Event is an append-only record of a desk state transition
type Event struct {
	ID        uuid.UUID      `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	Type      EventType      `gorm:"type:varchar(40);not null;index:idx_events_type" json:"type"`
	OptionID  *uint64        `gorm:"index:idx_events_option" json:"option_id,omitempty"`
	Actor     common.Address `gorm:"type:bytea" json:"actor"`
	Payload   EventPayload   `gorm:"type:jsonb;default:'{}'" json:"payload"`
	CreatedAt time.Time      `gorm:"autoCreateTime;index:idx_events_created_at" json:"created_at"`
}

// TableName specifies the table name for Event model
func (*Event) TableName() string {
	return "events"
}

// BeforeCreate sets up the model before creation
func (e *Event) BeforeCreate(_ *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// IsOptionEvent checks if this event concerns a single option
func (e *Event) IsOptionEvent() bool {
	return e.OptionID != nil
}

// Validate performs validation on the event model
func (e *Event) Validate() error {
	if e.Type == "" {
		return ErrInvalidEventType
	}
	return nil
}

// NewOptionEvent creates an event for an option transition
func NewOptionEvent(eventType EventType, optionID uint64, actor common.Address, payload EventPayload) *Event {
	id := optionID
	return &Event{
		ID:       uuid.New(),
		Type:     eventType,
		OptionID: &id,
		Actor:    actor,
		Payload:  payload,
	}
}

// NewDeskEvent creates an event that is not tied to an option
func NewDeskEvent(eventType EventType, actor common.Address, payload EventPayload) *Event {
	return &Event{
		ID:      uuid.New(),
		Type:    eventType,
		Actor:   actor,
		Payload: payload,
	}
}
