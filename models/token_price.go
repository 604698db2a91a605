package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TokenPrice is the current reference price of a supported token.
// Price = Units * desk price unit, in wei.
type TokenPrice struct {
	Symbol    string          `gorm:"type:varchar(10);primaryKey" json:"symbol"`
	Position  int             `gorm:"not null" json:"position"`
	Units     decimal.Decimal `gorm:"type:numeric(78,0);not null" json:"units"`
	Price     decimal.Decimal `gorm:"type:numeric(78,0);not null" json:"price"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for TokenPrice model
func (*TokenPrice) TableName() string {
	return "token_prices"
}

// NormalizeSymbol upper-cases and trims a token symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Validate performs validation on the token price model
func (t *TokenPrice) Validate() error {
	if t.Symbol == "" || t.Symbol != NormalizeSymbol(t.Symbol) {
		return ErrInvalidTokenSymbol
	}
	if t.Units.IsNegative() || t.Price.IsNegative() {
		return ErrInvalidMarketPrice
	}
	return nil
}

// PricePoint is one historic price observation for a token.
type PricePoint struct {
	ID         uuid.UUID       `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	Symbol     string          `gorm:"type:varchar(10);not null;index:idx_price_points_symbol_time" json:"symbol"`
	Price      decimal.Decimal `gorm:"type:numeric(78,0);not null" json:"price"`
	Source     string          `gorm:"type:varchar(20);not null" json:"source"`
	ObservedAt time.Time       `gorm:"not null;index:idx_price_points_symbol_time" json:"observed_at"`
}

// TableName specifies the table name for PricePoint model
func (*PricePoint) TableName() string {
	return "price_points"
}

// BeforeCreate sets up the model before creation
func (p *PricePoint) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
