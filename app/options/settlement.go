package options

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joefazee/optionsdesk/models"
	"github.com/shopspring/decimal"
)

// CallOption exercises a purchased option. The holder receives the current
// market value of the contract, capped by the collateral; the risk taker
// receives the strike escrow and whatever collateral is left.
func (s *service) CallOption(ctx context.Context, id uint64, from common.Address, value decimal.Decimal) (*Settlement, error) {
	var settlement *Settlement
	err := s.run(ctx, "call_option", from, value, func(t *txn) error {
		option, err := t.option(id)
		if err != nil {
			return err
		}
		if !option.Purchased {
			return models.Revert(models.ReasonNotPurchased)
		}
		if !option.IsOwner(from) {
			return models.Revert(models.ReasonNotOwner)
		}
		if option.IsSettled() {
			return models.Revert(models.ReasonOptionSettled)
		}
		if option.ForSale {
			return models.Revert(models.ReasonUpForSale)
		}
		if option.IsExpired(t.now) {
			return models.Revert(models.ReasonOptionExpired)
		}
		if option.Style == models.OptionStyleEuropean && !option.InExerciseWindow(t.now, s.calc.ExerciseWindow()) {
			return models.Revert(models.ReasonEuropeanAtExpiry)
		}

		if option.Side == models.OptionSideSell {
			strike := s.calc.ContractValue(option.StrikePrice)
			if value.LessThan(strike) {
				return models.Revert(models.ReasonCoverStrike)
			}
			if err := t.collect(strike, models.EntryKindSettlement, id, "strike payment"); err != nil {
				return err
			}
			option.HolderEscrow = option.HolderEscrow.Add(strike)
		}

		market, err := t.marketPrice(option.Symbol)
		if err != nil {
			return err
		}
		toHolder := decimal.Min(option.Collateral, s.calc.ContractValue(market))
		toRiskTaker := option.HolderEscrow.Add(option.Collateral.Sub(toHolder))

		settlement = &Settlement{Option: option}
		if err := s.payout(t, settlement, option.Owner, toHolder, "call: market value to holder"); err != nil {
			return err
		}
		if err := s.payout(t, settlement, option.RiskTaker, toRiskTaker, "call: strike and remaining collateral to risk taker"); err != nil {
			return err
		}
		if err := s.refundOrder(t, option); err != nil {
			return err
		}

		option.Settle(models.OptionStatusCalled, t.now)
		if err := t.repo.SaveOption(ctx, option); err != nil {
			return err
		}
		t.emit(models.EventOptionCalled, option, models.EventPayload{
			"market_price":  market.String(),
			"to_holder":     toHolder.String(),
			"to_risk_taker": toRiskTaker.String(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return settlement, nil
}

// CashOut lets the risk taker close an option that expired unexercised.
// On the buy side the premium is taken out of the holder's strike escrow.
func (s *service) CashOut(ctx context.Context, id uint64, from common.Address) (*Settlement, error) {
	var settlement *Settlement
	err := s.run(ctx, "cash_out", from, decimal.Zero, func(t *txn) error {
		option, err := t.option(id)
		if err != nil {
			return err
		}
		if !option.Purchased {
			return models.Revert(models.ReasonNotPurchased)
		}
		if !option.IsRiskTaker(from) {
			return models.Revert(models.ReasonNotRiskTaker)
		}
		if option.IsSettled() {
			return models.Revert(models.ReasonOptionSettled)
		}
		if !option.IsExpired(t.now) {
			return models.Revert(models.ReasonNotExpired)
		}

		premium := decimal.Zero
		if option.Side == models.OptionSideBuy {
			premium = decimal.Min(option.Premium, option.HolderEscrow)
		}
		toRiskTaker := option.Collateral.Add(premium)
		toHolder := option.HolderEscrow.Sub(premium)

		settlement = &Settlement{Option: option}
		if err := s.payout(t, settlement, option.RiskTaker, toRiskTaker, "cash out: collateral and premium to risk taker"); err != nil {
			return err
		}
		if err := s.payout(t, settlement, option.Owner, toHolder, "cash out: strike escrow back to holder"); err != nil {
			return err
		}
		if err := s.refundOrder(t, option); err != nil {
			return err
		}

		option.Settle(models.OptionStatusCashedOut, t.now)
		if err := t.repo.SaveOption(ctx, option); err != nil {
			return err
		}
		t.emit(models.EventOptionCashedOut, option, models.EventPayload{
			"premium":       premium.String(),
			"to_holder":     toHolder.String(),
			"to_risk_taker": toRiskTaker.String(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return settlement, nil
}

func (s *service) payout(t *txn, settlement *Settlement, to common.Address, amount decimal.Decimal, memo string) error {
	if !amount.IsPositive() {
		return nil
	}
	if err := t.pay(to, amount, models.EntryKindSettlement, settlement.Option.ID, memo); err != nil {
		return err
	}
	settlement.Payouts = append(settlement.Payouts, Payout{To: to, Amount: amount, Memo: memo})
	return nil
}

// refundOrder returns a pending rebalance deposit and drops the order.
func (s *service) refundOrder(t *txn, option *models.Option) error {
	order, err := t.repo.GetRebalanceOrder(t.ctx, option.ID)
	if err != nil {
		if errors.Is(err, models.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if err := t.pay(order.Rebalancer, order.Deposit, models.EntryKindRefund, option.ID, "rebalance deposit returned"); err != nil {
		return err
	}
	return t.repo.DeleteRebalanceOrder(t.ctx, option.ID)
}
