package models

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestLedgerEntry(t *testing.T) {
	alice := common.HexToAddress("0xa11ce")
	escrow := common.HexToAddress("0xe5c")

	t.Run("TableName", func(t *testing.T) {
		e := LedgerEntry{}
		assert.Equal(t, "ledger_entries", e.TableName())
	})

	t.Run("BeforeCreate", func(t *testing.T) {
		e := LedgerEntry{}
		assert.NoError(t, e.BeforeCreate(nil))
		assert.NotEqual(t, uuid.Nil, e.ID)

		existingID := uuid.New()
		e2 := LedgerEntry{ID: existingID}
		assert.NoError(t, e2.BeforeCreate(nil))
		assert.Equal(t, existingID, e2.ID)
	})

	t.Run("DebitAndCreditEntries", func(t *testing.T) {
		transferID := uuid.New()
		optionID := uint64(7)

		debit := NewDebitEntry(transferID, alice, escrow, EntryKindDeposit,
			decimal.NewFromInt(40), decimal.NewFromInt(100), &optionID, "strike escrow")
		assert.True(t, debit.IsDebit())
		assert.True(t, debit.BalanceAfter.Equal(decimal.NewFromInt(60)))
		assert.True(t, debit.IsBalanceConsistent())
		assert.NoError(t, debit.Validate())

		credit := NewCreditEntry(transferID, escrow, alice, EntryKindDeposit,
			decimal.NewFromInt(40), decimal.Zero, &optionID, "strike escrow")
		assert.True(t, credit.IsCredit())
		assert.True(t, credit.BalanceAfter.Equal(decimal.NewFromInt(40)))
		assert.NoError(t, credit.Validate())
		assert.Equal(t, debit.TransferID, credit.TransferID)
	})

	t.Run("Validate", func(t *testing.T) {
		base := func() LedgerEntry {
			return *NewCreditEntry(uuid.New(), alice, escrow, EntryKindRefund,
				decimal.NewFromInt(5), decimal.NewFromInt(1), nil, "")
		}

		tests := []struct {
			name   string
			modify func(*LedgerEntry)
			err    error
		}{
			{"No account", func(e *LedgerEntry) { e.Account = common.Address{} }, ErrInvalidAddress},
			{"Unknown kind", func(e *LedgerEntry) { e.Kind = "gift" }, ErrInvalidEntryKind},
			{"Zero amount", func(e *LedgerEntry) { e.Amount = decimal.Zero }, ErrInvalidEntryAmount},
			{"Inconsistent", func(e *LedgerEntry) { e.BalanceAfter = decimal.NewFromInt(99) }, ErrInvalidEntryAmount},
			{"Overdrawn", func(e *LedgerEntry) {
				e.Amount = decimal.NewFromInt(-5)
				e.BalanceAfter = decimal.NewFromInt(-4)
			}, ErrNegativeBalance},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				e := base()
				tt.modify(&e)
				assert.Equal(t, tt.err, e.Validate())
			})
		}
	})
}

func TestAccount(t *testing.T) {
	a := Account{Address: common.HexToAddress("0x01"), Balance: decimal.NewFromInt(10)}

	assert.Equal(t, "accounts", a.TableName())
	assert.NoError(t, a.Validate())
	assert.True(t, a.CanDebit(decimal.NewFromInt(10)))
	assert.False(t, a.CanDebit(decimal.NewFromInt(11)))

	assert.Equal(t, ErrInsufficientBalance, a.Debit(decimal.NewFromInt(11)))
	assert.Equal(t, ErrInvalidEntryAmount, a.Debit(decimal.Zero))
	assert.NoError(t, a.Debit(decimal.NewFromInt(4)))
	assert.True(t, a.Balance.Equal(decimal.NewFromInt(6)))

	assert.Equal(t, ErrInvalidEntryAmount, a.Credit(decimal.NewFromInt(-1)))
	assert.NoError(t, a.Credit(decimal.NewFromInt(4)))
	assert.True(t, a.Balance.Equal(decimal.NewFromInt(10)))
}
