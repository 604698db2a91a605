package options

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joefazee/optionsdesk/internal/chain"
	"github.com/joefazee/optionsdesk/models"
	"github.com/shopspring/decimal"
)

// CreateOptionRequest carries createOption's arguments. Side and Style are
// checked by the service so their reverts keep their order.
type CreateOptionRequest struct {
	StrikeTier int    `json:"strike_tier" example:"0"`
	Symbol     string `json:"symbol" binding:"required" example:"COMP"`
	Duration   int64  `json:"duration" binding:"required" example:"2592000"`
	Side       string `json:"side" binding:"required" example:"buy"`
	Style      string `json:"style" binding:"required" example:"European"`
	// Value is the amount sent with the call, parsed by the handler. A bare
	// number is ether.
	Value string `json:"value" example:"7 ether"`
}

// ValuePayload is the body of a payable call that takes no other argument.
type ValuePayload struct {
	Value string `json:"value" example:"10"`
}

// Amount returns Value in wei. A bare number is ether, empty is zero.
func (p *ValuePayload) Amount() (decimal.Decimal, error) {
	return chain.ParseValue(p.Value, chain.Ether)
}

// ListingPayload puts a purchased option up for resale.
type ListingPayload struct {
	// Price is the asking price. A bare number is ether.
	Price string `json:"price" binding:"required" example:"3"`
	Note  string `json:"note" binding:"max=2000" example:"Deep in the money"`
}

// RebalancePayload proposes or accepts a new strike price.
type RebalancePayload struct {
	// NewStrike is the per token strike. A bare number is ether.
	NewStrike string `json:"new_strike" binding:"required" example:"0.2"`
	Value     string `json:"value" example:"0"`
}

// ListQuery holds the listOptions query parameters.
type ListQuery struct {
	Symbol    string `form:"symbol"`
	Owner     string `form:"owner" binding:"omitempty,ethaddr"`
	RiskTaker string `form:"risk_taker" binding:"omitempty,ethaddr"`
	Status    string `form:"status" binding:"omitempty,oneof=open active lapsed called cashed_out cancelled"`
	ForSale   *bool  `form:"for_sale"`
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PerPage   int    `form:"per_page" binding:"omitempty,min=1,max=100"`
}

func (q *ListQuery) ToFilter() Filter {
	f := Filter{
		Symbol:  q.Symbol,
		Status:  models.OptionStatus(q.Status),
		ForSale: q.ForSale,
		Page:    q.Page,
		PerPage: q.PerPage,
	}
	if q.Owner != "" {
		owner := common.HexToAddress(q.Owner)
		f.Owner = &owner
	}
	if q.RiskTaker != "" {
		rt := common.HexToAddress(q.RiskTaker)
		f.RiskTaker = &rt
	}
	return f
}

// OptionResponse represents an option in API responses
type OptionResponse struct {
	ID           uint64          `json:"id"`
	Symbol       string          `json:"symbol"`
	Creator      common.Address  `json:"creator"`
	Owner        common.Address  `json:"owner"`
	RiskTaker    common.Address  `json:"risk_taker"`
	Side         string          `json:"side"`
	Style        string          `json:"style"`
	Status       string          `json:"status"`
	StrikeTier   int             `json:"strike_tier"`
	StrikePrice  decimal.Decimal `json:"strike_price"`
	MarketPrice  decimal.Decimal `json:"market_price"`
	Duration     int64           `json:"duration"`
	Premium      decimal.Decimal `json:"premium"`
	HolderEscrow decimal.Decimal `json:"holder_escrow"`
	Collateral   decimal.Decimal `json:"collateral"`
	Purchased    bool            `json:"purchased"`
	ForSale      bool            `json:"for_sale"`
	ForSalePrice decimal.Decimal `json:"for_sale_price"`
	ListingNote  string          `json:"listing_note,omitempty"`
	PurchasedAt  *time.Time      `json:"purchased_at,omitempty"`
	ExpiresAt    *time.Time      `json:"expires_at,omitempty"`
	SettledAt    *time.Time      `json:"settled_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

func ToOptionResponse(o *models.Option) *OptionResponse {
	return &OptionResponse{
		ID:           o.ID,
		Symbol:       o.Symbol,
		Creator:      o.Creator,
		Owner:        o.Owner,
		RiskTaker:    o.RiskTaker,
		Side:         string(o.Side),
		Style:        string(o.Style),
		Status:       string(o.Status),
		StrikeTier:   o.StrikeTier,
		StrikePrice:  o.StrikePrice,
		MarketPrice:  o.MarketPrice,
		Duration:     o.Duration,
		Premium:      o.Premium,
		HolderEscrow: o.HolderEscrow,
		Collateral:   o.Collateral,
		Purchased:    o.Purchased,
		ForSale:      o.ForSale,
		ForSalePrice: o.ForSalePrice,
		ListingNote:  o.ListingNote,
		PurchasedAt:  o.PurchasedAt,
		ExpiresAt:    o.ExpiresAt,
		SettledAt:    o.SettledAt,
		CreatedAt:    o.CreatedAt,
	}
}

func ToOptionResponses(options []models.Option) []*OptionResponse {
	out := make([]*OptionResponse, len(options))
	for i := range options {
		out[i] = ToOptionResponse(&options[i])
	}
	return out
}

// ListingResponse is viewOptionsForSale: the price is zero when not listed.
type ListingResponse struct {
	OptionID   uint64          `json:"option_id"`
	Price      decimal.Decimal `json:"price"`
	PriceEther string          `json:"price_ether"`
}

// Payout is one settlement leg out of escrow.
type Payout struct {
	To     common.Address  `json:"to"`
	Amount decimal.Decimal `json:"amount"`
	Memo   string          `json:"memo"`
}

// Settlement is the result of callOption and cashOut.
type Settlement struct {
	Option  *models.Option `json:"option"`
	Payouts []Payout       `json:"payouts"`
}

// Total sums the payouts.
func (s *Settlement) Total() decimal.Decimal {
	sum := decimal.Zero
	for _, p := range s.Payouts {
		sum = sum.Add(p.Amount)
	}
	return sum
}

// RebalanceResult reports whether a rebalance proposal was placed or
// accepted. Order is nil once accepted.
type RebalanceResult struct {
	Accepted bool                   `json:"accepted"`
	Option   *models.Option         `json:"option"`
	Order    *models.RebalanceOrder `json:"order,omitempty"`
}

// AuditReport compares the escrow balance with what it should hold.
type AuditReport struct {
	Escrow          common.Address  `json:"escrow"`
	EscrowBalance   decimal.Decimal `json:"escrow_balance"`
	LiveEscrow      decimal.Decimal `json:"live_escrow"`
	PendingDeposits decimal.Decimal `json:"pending_deposits"`
	Float           decimal.Decimal `json:"float"`
	Expected        decimal.Decimal `json:"expected"`
	Balanced        bool            `json:"balanced"`
	CheckedAt       time.Time       `json:"checked_at"`
}
