package pricing

import (
	"math"
	"testing"
	"time"

	"github.com/joefazee/optionsdesk/internal/chain"
	"github.com/joefazee/optionsdesk/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{"defaults", func(_ *Config) {}, nil},
		{"zero price unit", func(c *Config) { c.PriceUnit = "0" }, models.ErrInvalidPriceUnit},
		{"bad price unit", func(c *Config) { c.PriceUnit = "ten" }, models.ErrInvalidPriceUnit},
		{"zero contract size", func(c *Config) { c.ContractSize = 0 }, models.ErrInvalidContractSize},
		{"duplicate symbol", func(c *Config) { c.Symbols = []string{"UNI", "uni"} }, models.ErrInvalidTokenSymbol},
		{"negative premium", func(c *Config) { c.PremiumRate = "-0.1" }, models.ErrInvalidPremiumRate},
		{"no durations", func(c *Config) { c.AcceptedDurations = nil }, models.ErrInvalidDuration},
		{"negative duration", func(c *Config) { c.AcceptedDurations = []int64{-1} }, models.ErrInvalidDuration},
		{"no window", func(c *Config) { c.ExerciseWindow = 0 }, models.ErrInvalidExerciseGrace},
		{"bad tiers", func(c *Config) { c.StrikeBasePct = 0 }, models.ErrInvalidStrikeTiers},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCalculator_Amounts(t *testing.T) {
	calc := MustCalculator(GetDefaultConfig())

	assert.Equal(t, []string{"CRV", "UNI", "COMP"}, calc.Symbols())
	assert.Equal(t, int64(100), calc.ContractSize())
	assert.Equal(t, 24*time.Hour, calc.ExerciseWindow())
	assert.True(t, calc.PriceUnit().Equal(chain.MustEther("0.1")))

	market := calc.MarketPrice(decimal.NewFromInt(1))
	assert.True(t, market.Equal(chain.MustEther("0.1")), market.String())
	assert.True(t, calc.ContractValue(market).Equal(chain.MustEther("10")))
}

func TestCalculator_StrikeTiers(t *testing.T) {
	calc := MustCalculator(GetDefaultConfig())
	market := chain.MustEther("0.3")

	tests := []struct {
		tier int
		pct  int
		want string
	}{
		{0, 40, "0.12"},
		{1, 60, "0.18"},
		{2, 80, "0.24"},
		{3, 100, "0.3"},
		{4, 120, "0.36"},
		{5, 140, "0.42"},
	}
	for _, tt := range tests {
		assert.True(t, calc.ValidTier(tt.tier))
		assert.Equal(t, tt.pct, calc.StrikePct(tt.tier))
		got := calc.StrikePrice(market, tt.tier)
		assert.True(t, got.Equal(chain.MustEther(tt.want)), "tier %d: %s", tt.tier, got)
	}

	assert.False(t, calc.ValidTier(-1))
	assert.False(t, calc.ValidTier(6))
}

func TestCalculator_StrikeTruncatesToWei(t *testing.T) {
	calc := MustCalculator(GetDefaultConfig())
	got := calc.StrikePrice(decimal.NewFromInt(7), 0)
	assert.True(t, got.Equal(decimal.NewFromInt(2)), got.String())
}

func TestCalculator_Durations(t *testing.T) {
	calc := MustCalculator(GetDefaultConfig())
	for _, d := range []int64{1_296_000, 2_592_000, 5_184_000, 7_776_000} {
		assert.True(t, calc.IsAcceptedDuration(d), d)
	}
	assert.False(t, calc.IsAcceptedDuration(100_000))
	assert.False(t, calc.IsAcceptedDuration(0))
	assert.Equal(t, []int64{1_296_000, 2_592_000, 5_184_000, 7_776_000}, calc.Durations())
}

func TestCalculator_Premium(t *testing.T) {
	calc := MustCalculator(GetDefaultConfig())

	got := calc.Premium(chain.MustEther("10"), 1_296_000)
	assert.Equal(t, "205479452054794520", got.String())

	full := calc.Premium(chain.MustEther("10"), SecondsPerYear)
	assert.True(t, full.Equal(chain.MustEther("5")))

	assert.True(t, calc.Premium(decimal.Zero, 1_296_000).IsZero())
}

func TestNewCalculator_InvalidConfig(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.ContractSize = -1
	_, err := NewCalculator(cfg)
	require.Error(t, err)
	assert.Panics(t, func() { MustCalculator(cfg) })
}

func TestBlackScholes_ReferenceValues(t *testing.T) {
	call, put, err := BlackScholes(100, 100, 0.05, 0.2, 1)
	require.NoError(t, err)
	assert.InDelta(t, 10.450583572185565, call, 1e-9)
	assert.InDelta(t, 5.573526022256971, put, 1e-9)

	// put-call parity: C - P = S - K e^{-rT}
	assert.InDelta(t, 100-100*math.Exp(-0.05), call-put, 1e-9)
}

func TestBlackScholes_InvalidInput(t *testing.T) {
	tests := []struct {
		name                          string
		spot, strike, rate, vol, year float64
	}{
		{"zero spot", 0, 100, 0.05, 0.2, 1},
		{"zero strike", 100, 0, 0.05, 0.2, 1},
		{"zero vol", 100, 100, 0.05, 0, 1},
		{"expired", 100, 100, 0.05, 0.2, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := BlackScholes(tt.spot, tt.strike, tt.rate, tt.vol, tt.year)
			assert.ErrorIs(t, err, ErrInvalidModelInput)
			_, err = CallGreeks(tt.spot, tt.strike, tt.rate, tt.vol, tt.year)
			assert.ErrorIs(t, err, ErrInvalidModelInput)
		})
	}
}

func TestCallGreeks(t *testing.T) {
	g, err := CallGreeks(100, 100, 0.05, 0.2, 1)
	require.NoError(t, err)

	assert.InDelta(t, 0.6368306511756191, g.Delta, 1e-9)
	assert.InDelta(t, 0.018762017345846895, g.Gamma, 1e-9)
	assert.InDelta(t, 37.52403469169379, g.Vega, 1e-9)
	assert.InDelta(t, -6.414027546438197, g.Theta, 1e-9)
	assert.InDelta(t, 53.232481545376345, g.Rho, 1e-9)
}

func TestRealizedVolatility(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	point := func(day int, ether string) models.PricePoint {
		return models.PricePoint{Symbol: "UNI", Price: chain.MustEther(ether), ObservedAt: base.AddDate(0, 0, day)}
	}

	t.Run("too few points", func(t *testing.T) {
		_, ok := RealizedVolatility([]models.PricePoint{point(0, "1"), point(1, "1.1")})
		assert.False(t, ok)
	})

	t.Run("flat price", func(t *testing.T) {
		_, ok := RealizedVolatility([]models.PricePoint{point(0, "1"), point(1, "1"), point(2, "1")})
		assert.False(t, ok)
	})

	t.Run("daily moves", func(t *testing.T) {
		points := []models.PricePoint{point(0, "1"), point(1, "1.1"), point(2, "1"), point(3, "1.1")}
		vol, ok := RealizedVolatility(points)
		require.True(t, ok)

		r := math.Log(1.1)
		// returns are r, -r, r: sample sd = r * sqrt(4/3)
		want := r * math.Sqrt(4.0/3.0) * math.Sqrt(365)
		assert.InDelta(t, want, vol, 1e-9)
	})
}
