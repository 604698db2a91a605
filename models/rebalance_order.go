package models

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// RebalanceOrder is a pending strike change proposed by one party of an
// option. At most one order exists per option.
type RebalanceOrder struct {
	OptionID       uint64          `gorm:"primaryKey;autoIncrement:false" json:"option_id"`
	Rebalancer     common.Address  `gorm:"type:bytea;not null" json:"rebalancer"`
	NewStrikePrice decimal.Decimal `gorm:"type:numeric(78,0);not null" json:"new_strike_price"`
	Deposit        decimal.Decimal `gorm:"type:numeric(78,0);not null;default:0" json:"deposit"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for RebalanceOrder model
func (*RebalanceOrder) TableName() string {
	return "rebalance_orders"
}

// Matches reports whether a proposal from addr at strike accepts this order.
func (r *RebalanceOrder) Matches(addr common.Address, strike decimal.Decimal) bool {
	return r.Rebalancer != addr && r.NewStrikePrice.Equal(strike)
}

// Validate performs validation on the rebalance order model
func (r *RebalanceOrder) Validate() error {
	if r.Rebalancer == (common.Address{}) {
		return ErrInvalidAddress
	}
	if !r.NewStrikePrice.IsPositive() {
		return ErrInvalidStrikePrice
	}
	if r.Deposit.IsNegative() {
		return ErrNegativeBalance
	}
	return nil
}
