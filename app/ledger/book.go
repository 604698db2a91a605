package ledger

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/joefazee/optionsdesk/models"
	"github.com/shopspring/decimal"
)

// Transfer moves Amount wei from From to To.
type Transfer struct {
	From     common.Address
	To       common.Address
	Amount   decimal.Decimal
	Kind     models.EntryKind
	OptionID *uint64
	Memo     string
}

// Book applies transfers to a Repository. It does not open transactions:
// callers hand it a repository already bound to their transaction.
type Book struct {
	repo Repository
}

func NewBook(repo Repository) *Book {
	return &Book{repo: repo}
}

// Balance returns the current balance, zero for unknown addresses.
func (b *Book) Balance(ctx context.Context, address common.Address) (decimal.Decimal, error) {
	account, err := b.repo.GetAccount(ctx, address)
	if err != nil {
		if errors.Is(err, models.ErrRecordNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return account.Balance, nil
}

// Transfer debits From and credits To, writing one entry per side under a
// shared transfer id. Zero amounts and self transfers are no-ops.
// Accounts are locked in address order.
func (b *Book) Transfer(ctx context.Context, t Transfer) (uuid.UUID, error) {
	if t.Amount.IsNegative() {
		return uuid.Nil, models.ErrInvalidEntryAmount
	}
	if t.Amount.IsZero() || t.From == t.To {
		return uuid.Nil, nil
	}
	if t.From == (common.Address{}) || t.To == (common.Address{}) {
		return uuid.Nil, models.ErrInvalidAddress
	}

	first, second := t.From, t.To
	if bytes.Compare(first.Bytes(), second.Bytes()) > 0 {
		first, second = second, first
	}
	locked := make(map[common.Address]*models.Account, 2)
	for _, addr := range []common.Address{first, second} {
		account, err := b.repo.LockAccount(ctx, addr)
		if err != nil {
			return uuid.Nil, err
		}
		locked[addr] = account
	}

	from, to := locked[t.From], locked[t.To]
	fromBefore, toBefore := from.Balance, to.Balance

	if err := from.Debit(t.Amount); err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", t.Kind, err)
	}
	if err := to.Credit(t.Amount); err != nil {
		return uuid.Nil, err
	}

	if err := b.repo.SaveAccount(ctx, from); err != nil {
		return uuid.Nil, fmt.Errorf("failed to debit account: %w", err)
	}
	if err := b.repo.SaveAccount(ctx, to); err != nil {
		return uuid.Nil, fmt.Errorf("failed to credit account: %w", err)
	}

	transferID := uuid.New()
	entries := []*models.LedgerEntry{
		models.NewDebitEntry(transferID, t.From, t.To, t.Kind, t.Amount, fromBefore, t.OptionID, t.Memo),
		models.NewCreditEntry(transferID, t.To, t.From, t.Kind, t.Amount, toBefore, t.OptionID, t.Memo),
	}
	if err := b.repo.CreateEntries(ctx, entries); err != nil {
		return uuid.Nil, fmt.Errorf("failed to record ledger entries: %w", err)
	}
	return transferID, nil
}

// Mint credits address from outside the desk, used by the faucet.
// The single entry has a zero counterparty.
func (b *Book) Mint(ctx context.Context, to common.Address, amount decimal.Decimal, memo string) (uuid.UUID, error) {
	if !amount.IsPositive() {
		return uuid.Nil, models.ErrInvalidEntryAmount
	}
	account, err := b.repo.LockAccount(ctx, to)
	if err != nil {
		return uuid.Nil, err
	}
	before := account.Balance
	if err := account.Credit(amount); err != nil {
		return uuid.Nil, err
	}
	if err := b.repo.SaveAccount(ctx, account); err != nil {
		return uuid.Nil, fmt.Errorf("failed to credit account: %w", err)
	}

	transferID := uuid.New()
	entry := models.NewCreditEntry(transferID, to, common.Address{}, models.EntryKindFaucet, amount, before, nil, memo)
	if err := b.repo.CreateEntries(ctx, []*models.LedgerEntry{entry}); err != nil {
		return uuid.Nil, fmt.Errorf("failed to record ledger entries: %w", err)
	}
	return transferID, nil
}
