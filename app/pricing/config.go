package pricing

import (
	"errors"
	"fmt"
	"time"

	"github.com/joefazee/optionsdesk/internal/chain"
	"github.com/joefazee/optionsdesk/models"
	"github.com/shopspring/decimal"
)

// Config holds the desk's pricing rules.
type Config struct {
	// PriceUnit is the value of one constructor price unit, in ether.
	PriceUnit    string   `env:"PRICE_UNIT_ETHER" env-default:"0.1" toml:"price_unit_ether"`
	ContractSize int64    `env:"CONTRACT_SIZE" env-default:"100" toml:"contract_size"`
	Symbols      []string `env:"SUPPORTED_TOKENS" env-separator:"," env-default:"CRV,UNI,COMP" toml:"symbols"`

	// Strike = market * (StrikeBasePct + StrikeStepPct*tier) / 100.
	StrikeBasePct int `env:"STRIKE_BASE_PCT" env-default:"40" toml:"strike_base_pct"`
	StrikeStepPct int `env:"STRIKE_STEP_PCT" env-default:"20" toml:"strike_step_pct"`
	MaxStrikeTier int `env:"MAX_STRIKE_TIER" env-default:"5" toml:"max_strike_tier"`

	// PremiumRate is the annual premium as a fraction of collateral.
	PremiumRate       string        `env:"PREMIUM_RATE" env-default:"0.5" toml:"premium_rate"`
	AcceptedDurations []int64       `env:"ACCEPTED_DURATIONS" env-separator:"," env-default:"1296000,2592000,5184000,7776000" toml:"accepted_durations"`
	ExerciseWindow    time.Duration `env:"EXERCISE_WINDOW" env-default:"24h" toml:"exercise_window"`

	RiskFreeRate      float64       `env:"RISK_FREE_RATE" env-default:"0.05" toml:"risk_free_rate"`
	DefaultVolatility float64       `env:"DEFAULT_VOLATILITY" env-default:"0.8" toml:"default_volatility"`
	VolatilityWindow  int           `env:"VOLATILITY_WINDOW" env-default:"30" toml:"volatility_window"`
	PriceCacheTTL     time.Duration `env:"PRICE_CACHE_TTL" env-default:"30s" toml:"price_cache_ttl"`

	// OracleKeyHash is a bcrypt hash of the oracle's shared key. Empty disables the oracle.
	OracleKeyHash string `env:"ORACLE_KEY_HASH" secret:"true" toml:"-"`
}

// GetDefaultConfig returns the rules the desk was deployed with.
func GetDefaultConfig() *Config {
	return &Config{
		PriceUnit:         "0.1",
		ContractSize:      100,
		Symbols:           []string{"CRV", "UNI", "COMP"},
		StrikeBasePct:     40,
		StrikeStepPct:     20,
		MaxStrikeTier:     5,
		PremiumRate:       "0.5",
		AcceptedDurations: []int64{1_296_000, 2_592_000, 5_184_000, 7_776_000},
		ExerciseWindow:    24 * time.Hour,
		RiskFreeRate:      0.05,
		DefaultVolatility: 0.8,
		VolatilityWindow:  30,
		PriceCacheTTL:     30 * time.Second,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	unit, err := chain.ParseValue(c.PriceUnit, chain.Ether)
	if err != nil || !unit.IsPositive() {
		return fmt.Errorf("%w: %q", models.ErrInvalidPriceUnit, c.PriceUnit)
	}
	if c.ContractSize <= 0 {
		return models.ErrInvalidContractSize
	}
	if len(c.Symbols) == 0 {
		return errors.New("at least one supported token is required")
	}
	seen := make(map[string]bool, len(c.Symbols))
	for _, s := range c.Symbols {
		n := models.NormalizeSymbol(s)
		if n == "" || seen[n] {
			return fmt.Errorf("%w: %q", models.ErrInvalidTokenSymbol, s)
		}
		seen[n] = true
	}
	if c.StrikeBasePct <= 0 || c.StrikeStepPct < 0 || c.MaxStrikeTier < 0 {
		return models.ErrInvalidStrikeTiers
	}
	rate, err := decimal.NewFromString(c.PremiumRate)
	if err != nil || rate.IsNegative() {
		return fmt.Errorf("%w: %q", models.ErrInvalidPremiumRate, c.PremiumRate)
	}
	if len(c.AcceptedDurations) == 0 {
		return models.ErrInvalidDuration
	}
	for _, d := range c.AcceptedDurations {
		if d <= 0 {
			return fmt.Errorf("%w: %d", models.ErrInvalidDuration, d)
		}
	}
	if c.ExerciseWindow <= 0 {
		return models.ErrInvalidExerciseGrace
	}
	if c.DefaultVolatility <= 0 || c.VolatilityWindow < 2 {
		return errors.New("volatility settings must be positive")
	}
	return nil
}
