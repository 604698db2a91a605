package models

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// DeskID is the primary key of the only desk row.
const DeskID = 1

// Desk holds the deployment parameters of the options desk.
type Desk struct {
	ID           int             `gorm:"primaryKey;autoIncrement:false" json:"-"`
	Admin        common.Address  `gorm:"type:bytea;not null" json:"admin"`
	Escrow       common.Address  `gorm:"type:bytea;not null" json:"escrow"`
	PriceUnit    decimal.Decimal `gorm:"type:numeric(78,0);not null" json:"price_unit"`
	ContractSize int64           `gorm:"not null" json:"contract_size"`
	Float        decimal.Decimal `gorm:"type:numeric(78,0);not null;default:0" json:"float"`
	OptionCount  uint64          `gorm:"not null;default:0" json:"option_count"`
	DeployedAt   time.Time       `gorm:"not null" json:"deployed_at"`
}

// TableName specifies the table name for Desk model
func (*Desk) TableName() string {
	return "desks"
}

// IsAdmin reports whether addr deployed the desk.
func (d *Desk) IsAdmin(addr common.Address) bool {
	return d.Admin == addr
}

// ContractValue scales a per-token price to one contract.
func (d *Desk) ContractValue(price decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(d.ContractSize))
}

// Validate performs validation on the desk model
func (d *Desk) Validate() error {
	if d.Admin == (common.Address{}) || d.Escrow == (common.Address{}) {
		return ErrInvalidAddress
	}
	if !d.PriceUnit.IsPositive() {
		return ErrInvalidPriceUnit
	}
	if d.ContractSize <= 0 {
		return ErrInvalidContractSize
	}
	if d.Float.IsNegative() {
		return ErrNegativeBalance
	}
	return nil
}
