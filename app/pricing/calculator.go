package pricing

import (
	"slices"
	"time"

	"github.com/joefazee/optionsdesk/internal/chain"
	"github.com/joefazee/optionsdesk/models"
	"github.com/shopspring/decimal"
)

// SecondsPerYear annualises premiums and option lifetimes.
const SecondsPerYear = 365 * 24 * 60 * 60

var hundred = decimal.NewFromInt(100)

// Calculator turns token prices into option amounts. All amounts are wei.
type Calculator struct {
	priceUnit     decimal.Decimal
	contractSize  decimal.Decimal
	symbols       []string
	strikeBase    int
	strikeStep    int
	maxTier       int
	premiumRate   decimal.Decimal
	durations     map[int64]bool
	window        time.Duration
	riskFree      float64
	defaultVol    float64
	volWindow     int
	priceCacheTTL time.Duration
}

// NewCalculator builds a calculator from a validated config.
func NewCalculator(cfg *Config) (*Calculator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	unit, _ := chain.ParseValue(cfg.PriceUnit, chain.Ether)
	rate, _ := decimal.NewFromString(cfg.PremiumRate)

	symbols := make([]string, len(cfg.Symbols))
	for i, s := range cfg.Symbols {
		symbols[i] = models.NormalizeSymbol(s)
	}
	durations := make(map[int64]bool, len(cfg.AcceptedDurations))
	for _, d := range cfg.AcceptedDurations {
		durations[d] = true
	}

	return &Calculator{
		priceUnit:     unit,
		contractSize:  decimal.NewFromInt(cfg.ContractSize),
		symbols:       symbols,
		strikeBase:    cfg.StrikeBasePct,
		strikeStep:    cfg.StrikeStepPct,
		maxTier:       cfg.MaxStrikeTier,
		premiumRate:   rate,
		durations:     durations,
		window:        cfg.ExerciseWindow,
		riskFree:      cfg.RiskFreeRate,
		defaultVol:    cfg.DefaultVolatility,
		volWindow:     cfg.VolatilityWindow,
		priceCacheTTL: cfg.PriceCacheTTL,
	}, nil
}

// MustCalculator panics on an invalid config. Intended for tests.
func MustCalculator(cfg *Config) *Calculator {
	c, err := NewCalculator(cfg)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Calculator) PriceUnit() decimal.Decimal { return c.priceUnit }

func (c *Calculator) ContractSize() int64 { return c.contractSize.IntPart() }

// Symbols returns the supported tokens in constructor order.
func (c *Calculator) Symbols() []string {
	out := make([]string, len(c.symbols))
	copy(out, c.symbols)
	return out
}

func (c *Calculator) ExerciseWindow() time.Duration { return c.window }

// MarketPrice converts constructor units to a per-token price.
func (c *Calculator) MarketPrice(units decimal.Decimal) decimal.Decimal {
	return units.Mul(c.priceUnit).Truncate(0)
}

// ValidTier reports whether tier is a selectable strike tier.
func (c *Calculator) ValidTier(tier int) bool {
	return tier >= 0 && tier <= c.maxTier
}

// StrikePct is the strike as a percentage of market for tier.
func (c *Calculator) StrikePct(tier int) int {
	return c.strikeBase + c.strikeStep*tier
}

// StrikePrice returns market scaled by the tier's percentage, truncated to wei.
func (c *Calculator) StrikePrice(market decimal.Decimal, tier int) decimal.Decimal {
	return market.Mul(decimal.NewFromInt(int64(c.StrikePct(tier)))).Div(hundred).Truncate(0)
}

// ContractValue scales a per-token price to one contract.
func (c *Calculator) ContractValue(price decimal.Decimal) decimal.Decimal {
	return price.Mul(c.contractSize)
}

// Durations returns the accepted option lifetimes in seconds, shortest first.
func (c *Calculator) Durations() []int64 {
	out := make([]int64, 0, len(c.durations))
	for d := range c.durations {
		out = append(out, d)
	}
	slices.Sort(out)
	return out
}

// IsAcceptedDuration reports whether seconds is an offered option lifetime.
func (c *Calculator) IsAcceptedDuration(seconds int64) bool {
	return c.durations[seconds]
}

// Premium is the writer's fee for posting collateral over duration seconds:
// collateral * rate * duration / year, truncated to wei.
func (c *Calculator) Premium(collateral decimal.Decimal, duration int64) decimal.Decimal {
	return collateral.
		Mul(c.premiumRate).
		Mul(decimal.NewFromInt(duration)).
		Div(decimal.NewFromInt(SecondsPerYear)).
		Truncate(0)
}
