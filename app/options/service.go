package options

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joefazee/optionsdesk/app/events"
	"github.com/joefazee/optionsdesk/app/ledger"
	"github.com/joefazee/optionsdesk/app/pricing"
	"github.com/joefazee/optionsdesk/internal/logger"
	"github.com/joefazee/optionsdesk/internal/metrics"
	"github.com/joefazee/optionsdesk/internal/sanitizer"
	"github.com/joefazee/optionsdesk/models"
	"github.com/shopspring/decimal"
)

type service struct {
	repo     Repository
	prices   pricing.Service
	calc     *pricing.Calculator
	cfg      *Config
	stripper sanitizer.HTMLStripperer
	notifier *events.Notifier
	logger   logger.Logger
	metrics  *metrics.Registry
	now      func() time.Time
}

// NewService creates a new option lifecycle service
func NewService(repo Repository,
	prices pricing.Service,
	cfg *Config,
	stripper sanitizer.HTMLStripperer,
	notifier *events.Notifier,
	log logger.Logger,
	m *metrics.Registry,
) Service {
	if stripper == nil {
		stripper = sanitizer.NewHTMLStripper()
	}
	return &service{
		repo:     repo,
		prices:   prices,
		calc:     prices.Calculator(),
		cfg:      cfg,
		stripper: stripper,
		notifier: notifier,
		logger:   log,
		metrics:  m,
		now:      time.Now,
	}
}

func (s *service) observe(operation string, err error) {
	if err == nil {
		s.metrics.ObserveOperation(operation, metrics.ResultOK)
		return
	}
	if reason, ok := models.RevertReason(err); ok {
		s.metrics.ObserveRevert(operation, reason)
		return
	}
	s.metrics.ObserveOperation(operation, metrics.ResultError)
}

func (s *service) CreateOption(ctx context.Context, from common.Address, value decimal.Decimal, req *CreateOptionRequest) (*models.Option, error) {
	var created *models.Option
	err := s.run(ctx, "create_option", from, value, func(t *txn) error {
		symbol := models.NormalizeSymbol(req.Symbol)
		market, err := t.marketPrice(symbol)
		if err != nil {
			return err
		}
		if !s.calc.IsAcceptedDuration(req.Duration) {
			return models.Revert(models.ReasonDurationNotAccepted)
		}
		if !models.IsValidSide(req.Side) {
			return models.Revert(models.ReasonInvalidSide)
		}
		if !models.IsValidStyle(req.Style) {
			return models.Revert(models.ReasonInvalidStyle)
		}
		if !s.calc.ValidTier(req.StrikeTier) {
			return models.Revert(models.ReasonInvalidStrikeTier)
		}

		strike := s.calc.StrikePrice(market, req.StrikeTier)
		option := &models.Option{
			Symbol:       symbol,
			Creator:      from,
			Side:         models.OptionSide(req.Side),
			Style:        models.OptionStyle(req.Style),
			Status:       models.OptionStatusOpen,
			StrikeTier:   req.StrikeTier,
			StrikePrice:  strike,
			MarketPrice:  market,
			Duration:     req.Duration,
			Premium:      decimal.Zero,
			HolderEscrow: decimal.Zero,
			Collateral:   decimal.Zero,
			ForSalePrice: decimal.Zero,
		}

		var escrow decimal.Decimal
		switch option.Side {
		case models.OptionSideBuy:
			escrow = s.calc.ContractValue(strike)
			if value.LessThan(escrow) {
				return models.Revert(models.ReasonCoverStrike)
			}
			option.Owner = from
			option.HolderEscrow = escrow
		case models.OptionSideSell:
			escrow = s.calc.ContractValue(market)
			if value.LessThan(escrow) {
				return models.Revert(models.ReasonCoverMarket)
			}
			option.RiskTaker = from
			option.Collateral = escrow
			option.Premium = s.calc.Premium(escrow, option.Duration)
		}

		id, err := t.repo.NextOptionID(ctx)
		if err != nil {
			return err
		}
		option.ID = id
		if err := t.repo.CreateOption(ctx, option); err != nil {
			return err
		}
		if err := t.collect(escrow, models.EntryKindDeposit, id, "option escrow"); err != nil {
			return err
		}

		t.emit(models.EventOptionCreated, option, models.EventPayload{
			"side":         string(option.Side),
			"style":        string(option.Style),
			"strike_price": strike.String(),
			"market_price": market.String(),
			"escrow":       escrow.String(),
		})
		created = option
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) BuyOption(ctx context.Context, id uint64, from common.Address, value decimal.Decimal) (*models.Option, error) {
	var bought *models.Option
	err := s.run(ctx, "buy_option", from, value, func(t *txn) error {
		option, err := t.option(id)
		if err != nil {
			return err
		}
		if option.Purchased {
			return models.Revert(models.ReasonOptionPurchased)
		}
		if option.Creator == from {
			return models.Revert(models.ReasonBuyOwnOption)
		}
		if option.IsCancelled() {
			return models.Revert(models.ReasonOptionCancelled)
		}

		paid := decimal.Zero
		switch option.Side {
		case models.OptionSideBuy:
			market, err := t.marketPrice(option.Symbol)
			if err != nil {
				return err
			}
			collateral := s.calc.ContractValue(market)
			if value.LessThan(collateral) {
				return models.Revert(models.ReasonPurchaseMarketPrice)
			}
			if err := t.collect(collateral, models.EntryKindDeposit, id, "option collateral"); err != nil {
				return err
			}
			option.RiskTaker = from
			option.MarketPrice = market
			option.Collateral = collateral
			option.Premium = s.calc.Premium(collateral, option.Duration)
			paid = collateral
		case models.OptionSideSell:
			if value.LessThan(option.Premium) {
				return models.Revert(models.ReasonPurchasePremium)
			}
			if err := t.forward(option.RiskTaker, value, models.EntryKindPremium, id, "option premium"); err != nil {
				return err
			}
			option.Owner = from
			paid = value
		}

		option.MarkPurchased(t.now)
		if err := t.repo.SaveOption(ctx, option); err != nil {
			return err
		}
		t.emit(models.EventOptionPurchased, option, models.EventPayload{
			"paid":       paid.String(),
			"premium":    option.Premium.String(),
			"expires_at": option.ExpiresAt.Format(time.RFC3339),
		})
		bought = option
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bought, nil
}

func (s *service) SellPurchasedOption(ctx context.Context, id uint64, from common.Address, price decimal.Decimal, note string) (*models.Option, error) {
	var listed *models.Option
	err := s.run(ctx, "sell_purchased_option", from, decimal.Zero, func(t *txn) error {
		option, err := t.option(id)
		if err != nil {
			return err
		}
		if !option.Purchased {
			return models.Revert(models.ReasonStillUpForSale)
		}
		if !option.IsOwner(from) {
			return models.Revert(models.ReasonNotOwner)
		}
		if option.ForSale {
			return models.Revert(models.ReasonAlreadyForSale)
		}
		if option.IsSettled() {
			return models.Revert(models.ReasonOptionSettled)
		}
		if option.IsExpired(t.now) {
			return models.Revert(models.ReasonOptionExpired)
		}
		if !price.IsPositive() {
			return models.Revert(models.ReasonPriceMustBePositive)
		}

		option.ForSale = true
		option.ForSalePrice = price
		option.ListingNote = s.cleanNote(note)
		if err := t.repo.SaveOption(ctx, option); err != nil {
			return err
		}
		t.emit(models.EventOptionListed, option, models.EventPayload{"price": price.String()})
		listed = option
		return nil
	})
	if err != nil {
		return nil, err
	}
	return listed, nil
}

func (s *service) cleanNote(note string) string {
	note = s.stripper.StripHTML(note)
	if runes := []rune(note); len(runes) > s.cfg.MaxNoteLength {
		note = string(runes[:s.cfg.MaxNoteLength])
	}
	return note
}

func (s *service) DelistOption(ctx context.Context, id uint64, from common.Address) (*models.Option, error) {
	var delisted *models.Option
	err := s.run(ctx, "delist_option", from, decimal.Zero, func(t *txn) error {
		option, err := t.option(id)
		if err != nil {
			return err
		}
		if !option.IsOwner(from) {
			return models.Revert(models.ReasonNotOwner)
		}
		if !option.ForSale {
			return models.Revert(models.ReasonNotForSale)
		}

		price := option.ForSalePrice
		option.ClearListing()
		if err := t.repo.SaveOption(ctx, option); err != nil {
			return err
		}
		t.emit(models.EventOptionDelisted, option, models.EventPayload{"price": price.String()})
		delisted = option
		return nil
	})
	if err != nil {
		return nil, err
	}
	return delisted, nil
}

func (s *service) BuyPurchasedOption(ctx context.Context, id uint64, from common.Address, value decimal.Decimal) (*models.Option, error) {
	var bought *models.Option
	err := s.run(ctx, "buy_purchased_option", from, value, func(t *txn) error {
		option, err := t.option(id)
		if err != nil {
			return err
		}
		if !option.ForSale {
			return models.Revert(models.ReasonNotForSale)
		}
		if option.IsOwner(from) {
			return models.Revert(models.ReasonAlreadyOwner)
		}
		if option.IsExpired(t.now) {
			return models.Revert(models.ReasonOptionExpired)
		}
		if value.LessThan(option.ForSalePrice) {
			return models.Revert(models.ReasonInsufficientForResale)
		}

		seller, price := option.Owner, option.ForSalePrice
		if err := t.forward(seller, value, models.EntryKindResale, id, "option resale"); err != nil {
			return err
		}
		option.Owner = from
		option.ClearListing()
		if err := t.repo.SaveOption(ctx, option); err != nil {
			return err
		}
		t.emit(models.EventOptionResold, option, models.EventPayload{
			"seller": seller.Hex(),
			"price":  price.String(),
			"paid":   value.String(),
		})
		bought = option
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bought, nil
}

func (s *service) CancelOption(ctx context.Context, id uint64, from common.Address) (*models.Option, error) {
	var cancelled *models.Option
	err := s.run(ctx, "cancel_option", from, decimal.Zero, func(t *txn) error {
		option, err := t.option(id)
		if err != nil {
			return err
		}
		if option.IsCancelled() {
			return models.Revert(models.ReasonOptionCancelled)
		}
		if option.Purchased {
			return models.Revert(models.ReasonOptionPurchased)
		}
		if option.Creator != from {
			return models.Revert(models.ReasonNotCreator)
		}

		refund := option.HolderEscrow.Add(option.Collateral)
		if err := t.pay(option.Creator, refund, models.EntryKindRefund, id, "option cancelled"); err != nil {
			return err
		}
		option.Settle(models.OptionStatusCancelled, t.now)
		if err := t.repo.SaveOption(ctx, option); err != nil {
			return err
		}
		t.emit(models.EventOptionCancelled, option, models.EventPayload{"refund": refund.String()})
		cancelled = option
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

func (s *service) ViewOption(ctx context.Context, id uint64) (*models.Option, error) {
	return s.repo.GetOption(ctx, id)
}

func (s *service) ViewOptionForSale(ctx context.Context, id uint64) (decimal.Decimal, error) {
	option, err := s.repo.GetOption(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	if !option.ForSale {
		return decimal.Zero, nil
	}
	return option.ForSalePrice, nil
}

func (s *service) ViewRebalanceOrder(ctx context.Context, id uint64) (*models.RebalanceOrder, error) {
	if _, err := s.repo.GetOption(ctx, id); err != nil {
		return nil, err
	}
	order, err := s.repo.GetRebalanceOrder(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return order, nil
}

func (s *service) ListOptions(ctx context.Context, filter Filter) ([]models.Option, int64, error) {
	return s.repo.ListOptions(ctx, filter)
}

// QuoteOption values the option over its remaining life. Unpurchased
// options are valued over their full duration.
func (s *service) QuoteOption(ctx context.Context, id uint64) (*pricing.Valuation, error) {
	option, err := s.repo.GetOption(ctx, id)
	if err != nil {
		return nil, err
	}

	remaining := option.DurationPeriod()
	switch {
	case option.IsSettled():
		remaining = 0
	case option.ExpiresAt != nil:
		remaining = max(option.ExpiresAt.Sub(s.now()), 0)
	}
	return s.prices.Value(ctx, pricing.ValuationRequest{
		Symbol:    option.Symbol,
		Strike:    option.StrikePrice,
		Remaining: remaining,
	})
}

// Audit checks that escrow holds every live escrow, every pending
// rebalance deposit and the float.
func (s *service) Audit(ctx context.Context) (*AuditReport, error) {
	desk, err := s.repo.GetDesk(ctx)
	if err != nil {
		return nil, err
	}
	balance, err := ledger.NewBook(s.repo.Ledger()).Balance(ctx, desk.Escrow)
	if err != nil {
		return nil, err
	}
	live, err := s.repo.LiveEscrow(ctx)
	if err != nil {
		return nil, err
	}
	pending, err := s.repo.PendingDeposits(ctx)
	if err != nil {
		return nil, err
	}

	expected := live.Add(pending).Add(desk.Float)
	report := &AuditReport{
		Escrow:          desk.Escrow,
		EscrowBalance:   balance,
		LiveEscrow:      live,
		PendingDeposits: pending,
		Float:           desk.Float,
		Expected:        expected,
		Balanced:        balance.Equal(expected),
		CheckedAt:       s.now().UTC(),
	}
	if !report.Balanced {
		s.logger.Info("escrow out of balance", map[string]interface{}{
			"balance":  balance.String(),
			"expected": expected.String(),
		})
	}
	return report, nil
}

func (s *service) SweepExpired(ctx context.Context) (int, error) {
	now := s.now().UTC()
	expired, err := s.repo.ListExpired(ctx, now, s.cfg.SweepBatch)
	if err != nil {
		return 0, err
	}

	lapsed := 0
	for _, candidate := range expired {
		var event *models.Event
		err := s.repo.Transaction(ctx, func(repo Repository) error {
			option, err := repo.LockOption(ctx, candidate.ID)
			if err != nil {
				return err
			}
			if option.Status != models.OptionStatusActive || !option.IsExpired(now) {
				return nil
			}
			option.Status = models.OptionStatusLapsed
			if err := repo.SaveOption(ctx, option); err != nil {
				return err
			}
			event = models.NewOptionEvent(models.EventOptionLapsed, option.ID, common.Address{}, models.EventPayload{
				"symbol":     option.Symbol,
				"status":     string(option.Status),
				"risk_taker": option.RiskTaker.Hex(),
			})
			return repo.Events().Create(ctx, event)
		})
		if err != nil {
			s.metrics.AddLapsed(lapsed)
			return lapsed, err
		}
		if event != nil {
			lapsed++
			s.notifier.Notify(ctx, event)
		}
	}

	s.metrics.AddLapsed(lapsed)
	if lapsed > 0 {
		s.logger.Info("options lapsed", map[string]interface{}{"count": lapsed})
	}
	return lapsed, nil
}
