package models

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// EntryKind classifies a ledger movement
type EntryKind string

const (
	EntryKindFaucet     EntryKind = "faucet"
	EntryKindDeploy     EntryKind = "deploy"
	EntryKindDeposit    EntryKind = "deposit"
	EntryKindRefund     EntryKind = "refund"
	EntryKindPremium    EntryKind = "premium"
	EntryKindResale     EntryKind = "resale"
	EntryKindSettlement EntryKind = "settlement"
	EntryKindRebalance  EntryKind = "rebalance"
)

// IsValidEntryKind reports whether k is a known entry kind.
func IsValidEntryKind(k EntryKind) bool {
	switch k {
	case EntryKindFaucet, EntryKindDeploy, EntryKindDeposit, EntryKindRefund,
		EntryKindPremium, EntryKindResale, EntryKindSettlement, EntryKindRebalance:
		return true
	}
	return false
}

// LedgerEntry is one side of a balance movement (immutable ledger)
type LedgerEntry struct {
	ID            uuid.UUID       `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	TransferID    uuid.UUID       `gorm:"type:uuid;not null;index:idx_ledger_entries_transfer" json:"transfer_id"`
	Account       common.Address  `gorm:"type:bytea;not null;index:idx_ledger_entries_account" json:"account"`
	Counterparty  common.Address  `gorm:"type:bytea" json:"counterparty"`
	Kind          EntryKind       `gorm:"type:varchar(20);not null" json:"kind"`
	Amount        decimal.Decimal `gorm:"type:numeric(78,0);not null" json:"amount"`
	BalanceBefore decimal.Decimal `gorm:"type:numeric(78,0);not null" json:"balance_before"`
	BalanceAfter  decimal.Decimal `gorm:"type:numeric(78,0);not null" json:"balance_after"`
	OptionID      *uint64         `gorm:"index:idx_ledger_entries_option" json:"option_id,omitempty"`
	Memo          string          `gorm:"type:text" json:"memo"`
	CreatedAt     time.Time       `gorm:"autoCreateTime;index:idx_ledger_entries_created_at" json:"created_at"`
}

// TableName specifies the table name for LedgerEntry model
func (*LedgerEntry) TableName() string {
	return "ledger_entries"
}

// BeforeCreate sets up the model before creation
func (e *LedgerEntry) BeforeCreate(_ *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// IsCredit checks if this entry increased the balance
func (e *LedgerEntry) IsCredit() bool {
	return e.Amount.GreaterThan(decimal.Zero)
}

// IsDebit checks if this entry decreased the balance
func (e *LedgerEntry) IsDebit() bool {
	return e.Amount.LessThan(decimal.Zero)
}

// IsBalanceConsistent checks if the balance calculation is consistent
func (e *LedgerEntry) IsBalanceConsistent() bool {
	return e.BalanceBefore.Add(e.Amount).Equal(e.BalanceAfter)
}

// Validate performs validation on the ledger entry model
func (e *LedgerEntry) Validate() error {
	if e.Account == (common.Address{}) {
		return ErrInvalidAddress
	}
	if !IsValidEntryKind(e.Kind) {
		return ErrInvalidEntryKind
	}
	if e.Amount.IsZero() || !e.IsBalanceConsistent() {
		return ErrInvalidEntryAmount
	}
	if e.BalanceAfter.LessThan(decimal.Zero) {
		return ErrNegativeBalance
	}
	return nil
}

// NewDebitEntry records amount leaving account towards counterparty.
func NewDebitEntry(transferID uuid.UUID,
	account, counterparty common.Address,
	kind EntryKind,
	amount, balanceBefore decimal.Decimal,
	optionID *uint64, memo string) *LedgerEntry {
	return &LedgerEntry{
		TransferID:    transferID,
		Account:       account,
		Counterparty:  counterparty,
		Kind:          kind,
		Amount:        amount.Neg(),
		BalanceBefore: balanceBefore,
		BalanceAfter:  balanceBefore.Sub(amount),
		OptionID:      optionID,
		Memo:          memo,
	}
}

// NewCreditEntry records amount arriving in account from counterparty.
func NewCreditEntry(transferID uuid.UUID,
	account, counterparty common.Address,
	kind EntryKind,
	amount, balanceBefore decimal.Decimal,
	optionID *uint64, memo string) *LedgerEntry {
	return &LedgerEntry{
		TransferID:    transferID,
		Account:       account,
		Counterparty:  counterparty,
		Kind:          kind,
		Amount:        amount,
		BalanceBefore: balanceBefore,
		BalanceAfter:  balanceBefore.Add(amount),
		OptionID:      optionID,
		Memo:          memo,
	}
}
