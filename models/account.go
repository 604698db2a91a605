package models

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Account is the native-currency balance of an address held by the desk.
type Account struct {
	Address   common.Address  `gorm:"type:bytea;primaryKey" json:"address"`
	Balance   decimal.Decimal `gorm:"type:numeric(78,0);not null;default:0;check:balance >= 0" json:"balance"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for Account model
func (*Account) TableName() string {
	return "accounts"
}

// CanDebit checks if the account holds at least amount
func (a *Account) CanDebit(amount decimal.Decimal) bool {
	return a.Balance.GreaterThanOrEqual(amount)
}

// Credit adds funds to the account
func (a *Account) Credit(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidEntryAmount
	}
	a.Balance = a.Balance.Add(amount)
	return nil
}

// Debit removes funds from the account
func (a *Account) Debit(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidEntryAmount
	}
	if !a.CanDebit(amount) {
		return ErrInsufficientBalance
	}
	a.Balance = a.Balance.Sub(amount)
	return nil
}

// Validate performs validation on the account model
func (a *Account) Validate() error {
	if a.Address == (common.Address{}) {
		return ErrInvalidAddress
	}
	if a.Balance.IsNegative() {
		return ErrNegativeBalance
	}
	return nil
}
