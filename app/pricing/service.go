package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joefazee/optionsdesk/app/events"
	"github.com/joefazee/optionsdesk/internal/cache"
	"github.com/joefazee/optionsdesk/internal/chain"
	"github.com/joefazee/optionsdesk/internal/logger"
	"github.com/joefazee/optionsdesk/internal/metrics"
	"github.com/joefazee/optionsdesk/models"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// Price sources recorded on price points.
const (
	SourceDeploy = "deploy"
	SourceAdmin  = "admin"
	SourceOracle = "oracle"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 1000
)

var ErrOracleDisabled = fmt.Errorf("%w: oracle updates are disabled", models.ErrForbidden)

type service struct {
	repo          Repository
	calc          *Calculator
	cache         cache.Cache[string]
	notifier      *events.Notifier
	logger        logger.Logger
	metrics       *metrics.Registry
	oracleKeyHash []byte
	now           func() time.Time
}

// NewService creates a new price book service. priceCache may be nil.
func NewService(repo Repository,
	calc *Calculator,
	cfg *Config,
	priceCache cache.Cache[string],
	notifier *events.Notifier,
	log logger.Logger,
	m *metrics.Registry,
) Service {
	return &service{
		repo:          repo,
		calc:          calc,
		cache:         priceCache,
		notifier:      notifier,
		logger:        log,
		metrics:       m,
		oracleKeyHash: []byte(cfg.OracleKeyHash),
		now:           time.Now,
	}
}

func (s *service) Calculator() *Calculator {
	return s.calc
}

func (s *service) Prices(ctx context.Context) ([]models.TokenPrice, error) {
	return s.repo.ListPrices(ctx)
}

func priceCacheKey(symbol string) string {
	return "price:" + symbol
}

// Price returns the current price of symbol, served from cache when possible.
func (s *service) Price(ctx context.Context, symbol string) (*models.TokenPrice, error) {
	symbol = models.NormalizeSymbol(symbol)

	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, priceCacheKey(symbol)); err == nil {
			var p models.TokenPrice
			if json.Unmarshal([]byte(raw), &p) == nil {
				return &p, nil
			}
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Error(err, map[string]interface{}{"action": "price_cache_get", "symbol": symbol})
		}
	}

	price, err := s.repo.GetPrice(ctx, symbol)
	if err != nil {
		return nil, err
	}
	s.cachePrice(ctx, price)
	return price, nil
}

func (s *service) cachePrice(ctx context.Context, price *models.TokenPrice) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(price)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, priceCacheKey(price.Symbol), string(raw), s.calc.priceCacheTTL); err != nil {
		s.logger.Error(err, map[string]interface{}{"action": "price_cache_set", "symbol": price.Symbol})
	}
}

func (s *service) History(ctx context.Context, symbol string, limit int) ([]models.PricePoint, error) {
	symbol = models.NormalizeSymbol(symbol)
	if _, err := s.repo.GetPrice(ctx, symbol); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return s.repo.ListPricePoints(ctx, symbol, limit)
}

func (s *service) UpdatePrice(ctx context.Context, from common.Address, symbol string, units decimal.Decimal) (*models.TokenPrice, error) {
	price, err := s.applyPrice(ctx, SourceAdmin, from, symbol, units, func(desk *models.Desk) error {
		if !desk.IsAdmin(from) {
			return models.Revert(models.ReasonOnlyAdminPrices)
		}
		return nil
	})
	s.observe("update_price", err)
	return price, err
}

func (s *service) OracleUpdate(ctx context.Context, key, symbol string, units decimal.Decimal) (*models.TokenPrice, error) {
	if len(s.oracleKeyHash) == 0 {
		return nil, ErrOracleDisabled
	}
	if err := bcrypt.CompareHashAndPassword(s.oracleKeyHash, []byte(key)); err != nil {
		return nil, fmt.Errorf("%w: bad oracle key", models.ErrUnauthorized)
	}
	price, err := s.applyPrice(ctx, SourceOracle, common.Address{}, symbol, units, nil)
	s.observe("oracle_update", err)
	return price, err
}

// applyPrice checks the caller via authorize, then moves symbol to units
// and records the observation in one transaction.
func (s *service) applyPrice(ctx context.Context,
	source string,
	actor common.Address,
	symbol string,
	units decimal.Decimal,
	authorize func(*models.Desk) error,
) (*models.TokenPrice, error) {
	symbol = models.NormalizeSymbol(symbol)
	now := s.now().UTC()

	var updated *models.TokenPrice
	var event *models.Event
	err := s.repo.Transaction(ctx, func(repo Repository) error {
		desk, err := repo.GetDesk(ctx)
		if err != nil {
			return err
		}
		if authorize != nil {
			if err := authorize(desk); err != nil {
				return err
			}
		}

		price, err := repo.GetPrice(ctx, symbol)
		if err != nil {
			if errors.Is(err, models.ErrRecordNotFound) {
				return models.Revert(models.ReasonTokenNotSupported)
			}
			return err
		}
		if !units.IsPositive() {
			return models.Revert(models.ReasonPriceMustBePositive)
		}

		previous := price.Price
		price.Units = units
		price.Price = s.calc.MarketPrice(units)
		price.UpdatedAt = now
		if err := repo.SavePrice(ctx, price); err != nil {
			return err
		}
		if err := repo.CreatePricePoint(ctx, &models.PricePoint{
			Symbol: symbol, Price: price.Price, Source: source, ObservedAt: now,
		}); err != nil {
			return fmt.Errorf("failed to record price point: %w", err)
		}

		event = models.NewDeskEvent(models.EventPriceUpdated, actor, models.EventPayload{
			"symbol":         symbol,
			"units":          units.String(),
			"price":          price.Price.String(),
			"previous_price": previous.String(),
			"source":         source,
		})
		if err := repo.CreateEvents(ctx, event); err != nil {
			return err
		}
		updated = price
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		_ = s.cache.Delete(ctx, priceCacheKey(symbol))
	}
	ether, _ := updated.Price.Shift(-int32(chain.Ether)).Float64()
	s.metrics.SetTokenPrice(symbol, ether)
	s.notifier.Notify(ctx, event)
	s.logger.Info("token price updated", map[string]interface{}{
		"symbol": symbol, "price": updated.Price.String(), "source": source,
	})
	return updated, nil
}

func (s *service) observe(operation string, err error) {
	switch {
	case err == nil:
		s.metrics.ObserveOperation(operation, metrics.ResultOK)
	default:
		if reason, ok := models.RevertReason(err); ok {
			s.metrics.ObserveRevert(operation, reason)
			return
		}
		s.metrics.ObserveOperation(operation, metrics.ResultError)
	}
}

// Value prices one contract of a call struck at req.Strike with req.Remaining
// left, using realized volatility from recent price points when available.
func (s *service) Value(ctx context.Context, req ValuationRequest) (*Valuation, error) {
	price, err := s.Price(ctx, req.Symbol)
	if err != nil {
		if errors.Is(err, models.ErrRecordNotFound) {
			return nil, models.Revert(models.ReasonTokenNotSupported)
		}
		return nil, err
	}

	points, err := s.repo.ListPricePoints(ctx, price.Symbol, s.calc.volWindow)
	if err != nil {
		return nil, err
	}
	vol, ok := RealizedVolatility(points)
	source := "realized"
	if !ok {
		vol, source = s.calc.defaultVol, "default"
	}

	intrinsic := decimal.Max(price.Price.Sub(req.Strike), decimal.Zero)
	v := &Valuation{
		Spot:             price.Price,
		Strike:           req.Strike,
		Years:            req.Remaining.Seconds() / SecondsPerYear,
		Volatility:       vol,
		VolatilitySource: source,
		RiskFreeRate:     s.calc.riskFree,
		IntrinsicValue:   s.calc.ContractValue(intrinsic),
		FairValue:        s.calc.ContractValue(intrinsic),
	}
	if v.Years <= 0 || !req.Strike.IsPositive() || !price.Price.IsPositive() {
		return v, nil
	}

	spot, _ := price.Price.Shift(-int32(chain.Ether)).Float64()
	strike, _ := req.Strike.Shift(-int32(chain.Ether)).Float64()
	call, _, err := BlackScholes(spot, strike, s.calc.riskFree, vol, v.Years)
	if err != nil {
		return nil, err
	}
	greeks, err := CallGreeks(spot, strike, s.calc.riskFree, vol, v.Years)
	if err != nil {
		return nil, err
	}
	v.FairValue = s.calc.ContractValue(decimal.NewFromFloat(call).Shift(int32(chain.Ether))).Truncate(0)
	v.Greeks = greeks
	return v, nil
}

// Quote applies createOption's checks and prices the resulting option.
func (s *service) Quote(ctx context.Context, req *QuoteRequest) (*QuoteResponse, error) {
	symbol := models.NormalizeSymbol(req.Symbol)
	price, err := s.Price(ctx, symbol)
	if err != nil {
		if errors.Is(err, models.ErrRecordNotFound) {
			return nil, models.Revert(models.ReasonTokenNotSupported)
		}
		return nil, err
	}
	if !price.Price.IsPositive() {
		return nil, models.Revert(models.ReasonTokenPriceNotSet)
	}
	if !s.calc.IsAcceptedDuration(req.Duration) {
		return nil, models.Revert(models.ReasonDurationNotAccepted)
	}
	if !s.calc.ValidTier(req.StrikeTier) {
		return nil, models.Revert(models.ReasonInvalidStrikeTier)
	}

	strike := s.calc.StrikePrice(price.Price, req.StrikeTier)
	collateral := s.calc.ContractValue(price.Price)
	valuation, err := s.Value(ctx, ValuationRequest{
		Symbol:    symbol,
		Strike:    strike,
		Remaining: time.Duration(req.Duration) * time.Second,
	})
	if err != nil {
		return nil, err
	}

	return &QuoteResponse{
		Symbol:       symbol,
		StrikeTier:   req.StrikeTier,
		Duration:     req.Duration,
		MarketPrice:  price.Price,
		StrikePrice:  strike,
		HolderEscrow: s.calc.ContractValue(strike),
		Collateral:   collateral,
		Premium:      s.calc.Premium(collateral, req.Duration),
		Valuation:    valuation,
	}, nil
}

// SeedPrices writes the constructor prices in calculator symbol order.
// It runs inside the deploy transaction.
func SeedPrices(ctx context.Context, repo Repository, calc *Calculator, units []decimal.Decimal, now time.Time) ([]models.TokenPrice, error) {
	symbols := calc.Symbols()
	if len(units) != len(symbols) {
		return nil, fmt.Errorf("expected %d prices (%v), got %d", len(symbols), symbols, len(units))
	}

	prices := make([]models.TokenPrice, len(symbols))
	for i, symbol := range symbols {
		p := models.TokenPrice{
			Symbol:    symbol,
			Position:  i,
			Units:     units[i],
			Price:     calc.MarketPrice(units[i]),
			UpdatedAt: now,
		}
		if err := repo.SavePrice(ctx, &p); err != nil {
			return nil, err
		}
		if err := repo.CreatePricePoint(ctx, &models.PricePoint{
			Symbol: symbol, Price: p.Price, Source: SourceDeploy, ObservedAt: now,
		}); err != nil {
			return nil, fmt.Errorf("failed to record price point: %w", err)
		}
		prices[i] = p
	}
	return prices, nil
}
