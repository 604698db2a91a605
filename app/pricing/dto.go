package pricing

import (
	"time"

	"github.com/joefazee/optionsdesk/internal/chain"
	"github.com/joefazee/optionsdesk/models"
	"github.com/shopspring/decimal"
)

// UpdatePriceRequest sets a token's price in constructor units.
type UpdatePriceRequest struct {
	Units string `json:"units" binding:"required,wei" example:"4"`
}

// PriceResponse represents a token price in API responses
type PriceResponse struct {
	Symbol     string          `json:"symbol"`
	Units      decimal.Decimal `json:"units"`
	Price      decimal.Decimal `json:"price"`
	PriceEther string          `json:"price_ether"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func ToPriceResponse(p *models.TokenPrice) *PriceResponse {
	return &PriceResponse{
		Symbol:     p.Symbol,
		Units:      p.Units,
		Price:      p.Price,
		PriceEther: chain.FormatEther(p.Price),
		UpdatedAt:  p.UpdatedAt,
	}
}

func ToPriceResponses(prices []models.TokenPrice) []*PriceResponse {
	out := make([]*PriceResponse, len(prices))
	for i := range prices {
		out[i] = ToPriceResponse(&prices[i])
	}
	return out
}

// PricePointResponse is one entry of a token's price history.
type PricePointResponse struct {
	Price      decimal.Decimal `json:"price"`
	Source     string          `json:"source"`
	ObservedAt time.Time       `json:"observed_at"`
}

func ToPricePointResponses(points []models.PricePoint) []PricePointResponse {
	out := make([]PricePointResponse, len(points))
	for i, p := range points {
		out[i] = PricePointResponse{Price: p.Price, Source: p.Source, ObservedAt: p.ObservedAt}
	}
	return out
}

// QuoteRequest prices an option before it is created.
type QuoteRequest struct {
	Symbol     string `form:"-"`
	StrikeTier int    `form:"tier"`
	Duration   int64  `form:"duration" binding:"required"`
}

// QuoteResponse is what a writer posts and a buyer pays for a new option.
type QuoteResponse struct {
	Symbol      string          `json:"symbol"`
	StrikeTier  int             `json:"strike_tier"`
	Duration    int64           `json:"duration"`
	MarketPrice decimal.Decimal `json:"market_price"`
	StrikePrice decimal.Decimal `json:"strike_price"`
	// HolderEscrow is strike * contract size, posted by a buy-side creator.
	HolderEscrow decimal.Decimal `json:"holder_escrow"`
	// Collateral is market * contract size, posted by the risk taker.
	Collateral decimal.Decimal `json:"collateral"`
	Premium    decimal.Decimal `json:"premium"`
	Valuation  *Valuation      `json:"valuation"`
}

// ValuationRequest values a call on one contract of Symbol.
type ValuationRequest struct {
	Symbol    string
	Strike    decimal.Decimal
	Remaining time.Duration
}

// Valuation is the model value of one contract.
type Valuation struct {
	Spot       decimal.Decimal `json:"spot"`
	Strike     decimal.Decimal `json:"strike"`
	Years      float64         `json:"years"`
	Volatility float64         `json:"volatility"`
	// VolatilitySource is "realized" or "default".
	VolatilitySource string          `json:"volatility_source"`
	RiskFreeRate     float64         `json:"risk_free_rate"`
	FairValue        decimal.Decimal `json:"fair_value"`
	IntrinsicValue   decimal.Decimal `json:"intrinsic_value"`
	Greeks           Greeks          `json:"greeks"`
}
