package options

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joefazee/optionsdesk/app/ledger"
	"github.com/joefazee/optionsdesk/app/pricing"
	"github.com/joefazee/optionsdesk/models"
	"github.com/shopspring/decimal"
)

// txn is one lifecycle call: the caller, the value they sent and the
// ledger moves and events it produces. Only what a call spends out of value
// is debited, so the rest stays with the caller.
type txn struct {
	ctx    context.Context
	repo   Repository
	book   *ledger.Book
	calc   *pricing.Calculator
	desk   *models.Desk
	from   common.Address
	value  decimal.Decimal
	spent  decimal.Decimal
	now    time.Time
	events []*models.Event
}

// option loads and locks id, turning a miss into the lifecycle revert.
func (t *txn) option(id uint64) (*models.Option, error) {
	option, err := t.repo.LockOption(t.ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrRecordNotFound) {
			return nil, models.Revert(models.ReasonOptionNotFound)
		}
		return nil, err
	}
	return option, nil
}

// marketPrice is the current per token price of symbol.
func (t *txn) marketPrice(symbol string) (decimal.Decimal, error) {
	price, err := t.repo.Prices().GetPrice(t.ctx, symbol)
	if err != nil {
		if errors.Is(err, models.ErrRecordNotFound) {
			return decimal.Zero, models.Revert(models.ReasonTokenNotSupported)
		}
		return decimal.Zero, err
	}
	if !price.Price.IsPositive() {
		return decimal.Zero, models.Revert(models.ReasonTokenPriceNotSet)
	}
	return price.Price, nil
}

func (t *txn) spend(amount decimal.Decimal) error {
	if t.spent.Add(amount).GreaterThan(t.value) {
		return fmt.Errorf("%w: spending %s of %s sent", models.ErrInsufficientBalance, t.spent.Add(amount), t.value)
	}
	t.spent = t.spent.Add(amount)
	return nil
}

// collect moves amount of the sent value into escrow.
func (t *txn) collect(amount decimal.Decimal, kind models.EntryKind, optionID uint64, memo string) error {
	return t.forward(t.desk.Escrow, amount, kind, optionID, memo)
}

// forward moves amount of the sent value straight to another account.
func (t *txn) forward(to common.Address, amount decimal.Decimal, kind models.EntryKind, optionID uint64, memo string) error {
	if err := t.spend(amount); err != nil {
		return err
	}
	id := optionID
	_, err := t.book.Transfer(t.ctx, ledger.Transfer{
		From: t.from, To: to, Amount: amount, Kind: kind, OptionID: &id, Memo: memo,
	})
	return err
}

// pay releases amount from escrow.
func (t *txn) pay(to common.Address, amount decimal.Decimal, kind models.EntryKind, optionID uint64, memo string) error {
	id := optionID
	_, err := t.book.Transfer(t.ctx, ledger.Transfer{
		From: t.desk.Escrow, To: to, Amount: amount, Kind: kind, OptionID: &id, Memo: memo,
	})
	return err
}

func (t *txn) emit(eventType models.EventType, option *models.Option, payload models.EventPayload) {
	if payload == nil {
		payload = models.EventPayload{}
	}
	payload["symbol"] = option.Symbol
	payload["status"] = string(option.Status)
	t.events = append(t.events, models.NewOptionEvent(eventType, option.ID, t.from, payload))
}

// run executes fn in one store transaction. Events are stored with the
// state they describe and published once the transaction commits.
func (s *service) run(ctx context.Context, operation string, from common.Address, value decimal.Decimal, fn func(t *txn) error) error {
	if from == (common.Address{}) {
		return models.ErrInvalidAddress
	}
	if value.IsNegative() {
		return models.ErrInvalidEntryAmount
	}

	var committed []*models.Event
	err := s.repo.Transaction(ctx, func(repo Repository) error {
		desk, err := repo.GetDesk(ctx)
		if err != nil {
			return err
		}
		book := ledger.NewBook(repo.Ledger())
		if value.IsPositive() {
			balance, err := book.Balance(ctx, from)
			if err != nil {
				return err
			}
			if balance.LessThan(value) {
				return fmt.Errorf("%w: %s holds %s, sent %s", models.ErrInsufficientBalance, from.Hex(), balance, value)
			}
		}

		t := &txn{
			ctx:   ctx,
			repo:  repo,
			book:  book,
			calc:  s.calc,
			desk:  desk,
			from:  from,
			value: value,
			spent: decimal.Zero,
			now:   s.now().UTC(),
		}
		if err := fn(t); err != nil {
			return err
		}
		if len(t.events) > 0 {
			if err := repo.Events().Create(ctx, t.events...); err != nil {
				return fmt.Errorf("failed to store events: %w", err)
			}
		}
		committed = t.events
		return nil
	})
	s.observe(operation, err)
	if err != nil {
		return err
	}

	s.notifier.Notify(ctx, committed...)
	for _, e := range committed {
		fields := map[string]interface{}{"event": string(e.Type), "actor": from.Hex()}
		if e.OptionID != nil {
			fields["option_id"] = *e.OptionID
		}
		s.logger.Info("option transition", fields)
	}
	return nil
}
