package options

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joefazee/optionsdesk/models"
	"github.com/shopspring/decimal"
)

// RebalanceOption proposes a new strike, or accepts the counterparty's
// pending proposal for the same strike. A proposal replaces any earlier one
// and holds value as its deposit.
func (s *service) RebalanceOption(ctx context.Context, id uint64, from common.Address, newStrike, value decimal.Decimal) (*RebalanceResult, error) {
	var result *RebalanceResult
	err := s.run(ctx, "rebalance_option", from, value, func(t *txn) error {
		option, err := t.option(id)
		if err != nil {
			return err
		}
		if !option.Purchased {
			return models.Revert(models.ReasonNotPurchased)
		}
		if option.IsSettled() {
			return models.Revert(models.ReasonOptionSettled)
		}
		if !isParty(option, from) {
			return models.Revert(models.ReasonRebalanceParty)
		}
		if !newStrike.IsPositive() {
			return models.Revert(models.ReasonStrikeMustBePositive)
		}

		order, err := t.repo.GetRebalanceOrder(ctx, id)
		if err != nil && !errors.Is(err, models.ErrRecordNotFound) {
			return err
		}

		// an order left by a party who has since sold the option is stale
		if order != nil && order.Matches(from, newStrike) && isParty(option, order.Rebalancer) {
			result, err = s.acceptRebalance(t, option, order)
			return err
		}

		if order != nil {
			if err := t.pay(order.Rebalancer, order.Deposit, models.EntryKindRefund, id, "rebalance proposal replaced"); err != nil {
				return err
			}
		}
		if err := t.collect(value, models.EntryKindRebalance, id, "rebalance deposit"); err != nil {
			return err
		}
		proposal := &models.RebalanceOrder{
			OptionID:       id,
			Rebalancer:     from,
			NewStrikePrice: newStrike,
			Deposit:        value,
		}
		if err := t.repo.SaveRebalanceOrder(ctx, proposal); err != nil {
			return err
		}
		t.emit(models.EventRebalanceProposed, option, models.EventPayload{
			"new_strike_price": newStrike.String(),
			"deposit":          value.String(),
		})
		result = &RebalanceResult{Option: option, Order: proposal}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// acceptRebalance moves the option to the agreed strike. On the buy side the
// holder's strike escrow follows the strike: an increase is funded first by
// the holder's deposit and then by the holder's value, a decrease is paid
// back to the holder.
func (s *service) acceptRebalance(t *txn, option *models.Option, order *models.RebalanceOrder) (*RebalanceResult, error) {
	oldStrike := option.StrikePrice
	delta := decimal.Zero
	if option.Side == models.OptionSideBuy {
		delta = s.calc.ContractValue(order.NewStrikePrice.Sub(oldStrike))
	}

	holderDeposit := decimal.Zero
	if option.IsOwner(order.Rebalancer) {
		holderDeposit = order.Deposit
	}
	holderValue := decimal.Zero
	if option.IsOwner(t.from) {
		holderValue = t.value
	}

	fromDeposit, fromValue := decimal.Zero, decimal.Zero
	if delta.IsPositive() {
		if holderDeposit.Add(holderValue).LessThan(delta) {
			return nil, models.Revert(models.ReasonStrikeIncreaseFunds)
		}
		fromDeposit = decimal.Min(delta, holderDeposit)
		fromValue = delta.Sub(fromDeposit)
	}

	if err := t.pay(order.Rebalancer, order.Deposit.Sub(fromDeposit), models.EntryKindRefund, option.ID, "rebalance deposit returned"); err != nil {
		return nil, err
	}
	if err := t.collect(fromValue, models.EntryKindRebalance, option.ID, "strike increase"); err != nil {
		return nil, err
	}
	if delta.IsNegative() {
		if err := t.pay(option.Owner, delta.Neg(), models.EntryKindRebalance, option.ID, "strike decrease"); err != nil {
			return nil, err
		}
	}

	option.HolderEscrow = option.HolderEscrow.Add(delta)
	option.StrikePrice = order.NewStrikePrice
	if err := t.repo.DeleteRebalanceOrder(t.ctx, option.ID); err != nil {
		return nil, err
	}
	if err := t.repo.SaveOption(t.ctx, option); err != nil {
		return nil, err
	}
	t.emit(models.EventRebalanced, option, models.EventPayload{
		"old_strike_price": oldStrike.String(),
		"new_strike_price": option.StrikePrice.String(),
		"escrow_delta":     delta.String(),
		"proposer":         order.Rebalancer.Hex(),
	})
	return &RebalanceResult{Accepted: true, Option: option}, nil
}

// RebalanceIncrease tops the risk taker's collateral up to the current
// market value of the contract.
func (s *service) RebalanceIncrease(ctx context.Context, id uint64, from common.Address, value decimal.Decimal) (*models.Option, error) {
	var increased *models.Option
	err := s.run(ctx, "rebalance_increase", from, value, func(t *txn) error {
		option, err := t.option(id)
		if err != nil {
			return err
		}
		if !option.IsRiskTaker(from) {
			return models.Revert(models.ReasonOnlyRiskTakerIncrease)
		}
		if option.IsSettled() {
			return models.Revert(models.ReasonOptionSettled)
		}

		market, err := t.marketPrice(option.Symbol)
		if err != nil {
			return err
		}
		target := s.calc.ContractValue(market)
		if option.Collateral.GreaterThanOrEqual(target) {
			return models.Revert(models.ReasonCollateralCovers)
		}
		needed := target.Sub(option.Collateral)
		if value.LessThan(needed) {
			return models.Revert(models.ReasonIncreaseFunds)
		}

		if err := t.collect(needed, models.EntryKindDeposit, id, "collateral top up"); err != nil {
			return err
		}
		previous := option.MarketPrice
		option.Collateral = target
		option.MarketPrice = market
		if err := t.repo.SaveOption(ctx, option); err != nil {
			return err
		}
		t.emit(models.EventCollateralIncreased, option, models.EventPayload{
			"added":                 needed.String(),
			"collateral":            target.String(),
			"previous_market_price": previous.String(),
			"market_price":          market.String(),
		})
		increased = option
		return nil
	})
	if err != nil {
		return nil, err
	}
	return increased, nil
}

func isParty(option *models.Option, addr common.Address) bool {
	return option.IsOwner(addr) || option.IsRiskTaker(addr)
}
