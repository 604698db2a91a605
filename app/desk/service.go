package desk

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joefazee/optionsdesk/app/events"
	"github.com/joefazee/optionsdesk/app/ledger"
	"github.com/joefazee/optionsdesk/app/pricing"
	"github.com/joefazee/optionsdesk/internal/chain"
	"github.com/joefazee/optionsdesk/internal/logger"
	"github.com/joefazee/optionsdesk/internal/metrics"
	"github.com/joefazee/optionsdesk/models"
	"github.com/shopspring/decimal"
)

var ErrPrefundTooLarge = errors.New("prefund exceeds the configured maximum")

type service struct {
	repo       Repository
	calc       *pricing.Calculator
	notifier   *events.Notifier
	logger     logger.Logger
	metrics    *metrics.Registry
	maxPrefund decimal.Decimal
	now        func() time.Time
}

// NewService creates a new desk service
func NewService(repo Repository,
	calc *pricing.Calculator,
	cfg *Config,
	notifier *events.Notifier,
	log logger.Logger,
	m *metrics.Registry,
) Service {
	maxPrefund, _ := chain.ParseValue(cfg.MaxPrefund, chain.Ether)
	return &service{
		repo:       repo,
		calc:       calc,
		notifier:   notifier,
		logger:     log,
		metrics:    m,
		maxPrefund: maxPrefund,
		now:        time.Now,
	}
}

func (s *service) Deploy(ctx context.Context, req *DeployRequest) (*DeployResult, error) {
	if req.Deployer == (common.Address{}) {
		return nil, models.ErrInvalidAddress
	}
	if symbols := s.calc.Symbols(); len(req.Units) != len(symbols) {
		return nil, fmt.Errorf("%w: expected %d prices for %v", models.ErrInvalidMarketPrice, len(symbols), symbols)
	}
	// Zero prices are allowed; the admin sets them later.
	for _, u := range req.Units {
		if u.IsNegative() {
			return nil, models.Revert(models.ReasonPriceMustBePositive)
		}
	}
	if req.Value.IsNegative() || req.Prefund.IsNegative() {
		return nil, models.ErrInvalidEntryAmount
	}
	if req.Prefund.GreaterThan(s.maxPrefund) {
		return nil, ErrPrefundTooLarge
	}

	now := s.now().UTC()
	escrow := chain.EscrowAddress(req.Deployer)
	result := &DeployResult{}
	var event *models.Event

	err := s.repo.Transaction(ctx, func(repo Repository) error {
		if _, err := repo.GetDesk(ctx); err == nil {
			return models.Revert(models.ReasonDeskAlreadyDeployed)
		} else if !errors.Is(err, models.ErrDeskNotDeployed) {
			return err
		}

		book := ledger.NewBook(repo.Ledger())
		if req.Prefund.IsPositive() {
			if _, err := book.Mint(ctx, req.Deployer, req.Prefund, "deployer prefund"); err != nil {
				return err
			}
		}
		if _, err := book.Transfer(ctx, ledger.Transfer{
			From:   req.Deployer,
			To:     escrow,
			Amount: req.Value,
			Kind:   models.EntryKindDeploy,
			Memo:   "desk float",
		}); err != nil {
			return err
		}

		desk := &models.Desk{
			Admin:        req.Deployer,
			Escrow:       escrow,
			PriceUnit:    s.calc.PriceUnit(),
			ContractSize: s.calc.ContractSize(),
			Float:        req.Value,
			DeployedAt:   now,
		}
		if err := repo.CreateDesk(ctx, desk); err != nil {
			return err
		}

		prices, err := pricing.SeedPrices(ctx, repo.Prices(), s.calc, req.Units, now)
		if err != nil {
			return err
		}

		payload := models.EventPayload{"value": req.Value.String(), "escrow": escrow.Hex()}
		for _, p := range prices {
			payload[p.Symbol] = p.Price.String()
		}
		event = models.NewDeskEvent(models.EventDeskDeployed, req.Deployer, payload)
		if err := repo.Events().Create(ctx, event); err != nil {
			return err
		}

		result.Desk = desk
		result.Prices = pricing.ToPriceResponses(prices)
		return nil
	})
	if err != nil {
		if reason, ok := models.RevertReason(err); ok {
			s.metrics.ObserveRevert("deploy", reason)
		} else {
			s.metrics.ObserveOperation("deploy", metrics.ResultError)
		}
		return nil, err
	}

	s.metrics.ObserveOperation("deploy", metrics.ResultOK)
	for _, p := range result.Prices {
		ether, _ := p.Price.Shift(-int32(chain.Ether)).Float64()
		s.metrics.SetTokenPrice(p.Symbol, ether)
	}
	s.notifier.Notify(ctx, event)
	s.logger.Info("desk deployed", map[string]interface{}{
		"admin":  req.Deployer.Hex(),
		"escrow": escrow.Hex(),
		"float":  req.Value.String(),
	})
	return result, nil
}

func (s *service) Info(ctx context.Context) (*InfoResponse, error) {
	desk, err := s.repo.GetDesk(ctx)
	if err != nil {
		return nil, err
	}
	prices, err := s.repo.Prices().ListPrices(ctx)
	if err != nil {
		return nil, err
	}
	balance, err := ledger.NewBook(s.repo.Ledger()).Balance(ctx, desk.Escrow)
	if err != nil {
		return nil, err
	}

	return &InfoResponse{
		Admin:         desk.Admin,
		Escrow:        desk.Escrow,
		PriceUnit:     desk.PriceUnit,
		ContractSize:  desk.ContractSize,
		Float:         desk.Float,
		OptionCount:   desk.OptionCount,
		EscrowBalance: balance,
		DeployedAt:    desk.DeployedAt,
		Symbols:       s.calc.Symbols(),
		Durations:     s.calc.Durations(),
		Prices:        pricing.ToPriceResponses(prices),
	}, nil
}

func (s *service) Admin(ctx context.Context) (common.Address, error) {
	desk, err := s.repo.GetDesk(ctx)
	if err != nil {
		return common.Address{}, err
	}
	return desk.Admin, nil
}
