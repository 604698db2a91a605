package models

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// OptionSide tells which party opened the option.
type OptionSide string

// OptionStyle controls when an option may be exercised.
type OptionStyle string

// OptionStatus tracks an option through its lifecycle.
type OptionStatus string

const (
	// OptionSideBuy is opened by the holder, who escrows the strike.
	OptionSideBuy OptionSide = "buy"
	// OptionSideSell is opened by the writer, who escrows the collateral.
	OptionSideSell OptionSide = "sell"

	OptionStyleEuropean OptionStyle = "European"
	OptionStyleAmerican OptionStyle = "American"

	OptionStatusOpen      OptionStatus = "open"
	OptionStatusActive    OptionStatus = "active"
	OptionStatusLapsed    OptionStatus = "lapsed"
	OptionStatusCalled    OptionStatus = "called"
	OptionStatusCashedOut OptionStatus = "cashed_out"
	OptionStatusCancelled OptionStatus = "cancelled"
)

// Option is a covered call on ContractSize units of a supported token.
// Amounts are wei.
type Option struct {
	ID           uint64          `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Symbol       string          `gorm:"type:varchar(10);not null;index:idx_options_symbol" json:"symbol"`
	Creator      common.Address  `gorm:"type:bytea;not null" json:"creator"`
	Owner        common.Address  `gorm:"type:bytea;not null;index:idx_options_owner" json:"owner"`
	RiskTaker    common.Address  `gorm:"type:bytea;not null;index:idx_options_risk_taker" json:"risk_taker"`
	Side         OptionSide      `gorm:"type:varchar(4);not null" json:"side"`
	Style        OptionStyle     `gorm:"type:varchar(8);not null" json:"style"`
	Status       OptionStatus    `gorm:"type:varchar(12);not null;index:idx_options_status" json:"status"`
	StrikeTier   int             `gorm:"not null" json:"strike_tier"`
	StrikePrice  decimal.Decimal `gorm:"type:numeric(78,0);not null" json:"strike_price"`
	MarketPrice  decimal.Decimal `gorm:"type:numeric(78,0);not null" json:"market_price"`
	Duration     int64           `gorm:"not null" json:"duration"`
	Premium      decimal.Decimal `gorm:"type:numeric(78,0);not null;default:0" json:"premium"`
	HolderEscrow decimal.Decimal `gorm:"type:numeric(78,0);not null;default:0" json:"holder_escrow"`
	Collateral   decimal.Decimal `gorm:"type:numeric(78,0);not null;default:0" json:"collateral"`
	Purchased    bool            `gorm:"not null;default:false" json:"purchased"`
	ForSale      bool            `gorm:"not null;default:false" json:"for_sale"`
	ForSalePrice decimal.Decimal `gorm:"type:numeric(78,0);not null;default:0" json:"for_sale_price"`
	ListingNote  string          `gorm:"type:text" json:"listing_note,omitempty"`
	PurchasedAt  *time.Time      `json:"purchased_at,omitempty"`
	ExpiresAt    *time.Time      `gorm:"index:idx_options_expires_at" json:"expires_at,omitempty"`
	SettledAt    *time.Time      `json:"settled_at,omitempty"`
	ArchivedAt   *time.Time      `json:"archived_at,omitempty"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for Option model
func (*Option) TableName() string {
	return "options"
}

// IsValidSide reports whether s is a known side.
func IsValidSide(s string) bool {
	return OptionSide(s) == OptionSideBuy || OptionSide(s) == OptionSideSell
}

// IsValidStyle reports whether s is a known style.
func IsValidStyle(s string) bool {
	return OptionStyle(s) == OptionStyleEuropean || OptionStyle(s) == OptionStyleAmerican
}

// IsSettled reports whether the option reached a terminal state.
func (o *Option) IsSettled() bool {
	switch o.Status {
	case OptionStatusCalled, OptionStatusCashedOut, OptionStatusCancelled:
		return true
	}
	return false
}

// IsCancelled reports whether the creator withdrew the option before purchase.
func (o *Option) IsCancelled() bool {
	return o.Status == OptionStatusCancelled
}

// IsOwner reports whether addr holds the option.
func (o *Option) IsOwner(addr common.Address) bool {
	return o.Owner == addr
}

// IsRiskTaker reports whether addr wrote the option.
func (o *Option) IsRiskTaker(addr common.Address) bool {
	return o.RiskTaker != (common.Address{}) && o.RiskTaker == addr
}

// DurationPeriod returns the option lifetime as a time.Duration.
func (o *Option) DurationPeriod() time.Duration {
	return time.Duration(o.Duration) * time.Second
}

// IsExpired reports whether the option's lifetime has passed at now.
func (o *Option) IsExpired(now time.Time) bool {
	return o.ExpiresAt != nil && !now.Before(*o.ExpiresAt)
}

// InExerciseWindow reports whether a European option may be called at now.
// The window is the final `window` before expiry.
func (o *Option) InExerciseWindow(now time.Time, window time.Duration) bool {
	if o.ExpiresAt == nil {
		return false
	}
	return !now.Before(o.ExpiresAt.Add(-window)) && now.Before(*o.ExpiresAt)
}

// MarkPurchased stamps the purchase time and derives expiry.
func (o *Option) MarkPurchased(now time.Time) {
	purchasedAt := now
	expiresAt := now.Add(o.DurationPeriod())
	o.Purchased = true
	o.Status = OptionStatusActive
	o.PurchasedAt = &purchasedAt
	o.ExpiresAt = &expiresAt
}

// Settle moves the option into a terminal status.
func (o *Option) Settle(status OptionStatus, now time.Time) {
	settledAt := now
	o.Status = status
	o.ForSale = false
	o.ForSalePrice = decimal.Zero
	o.ListingNote = ""
	o.SettledAt = &settledAt
}

// ClearListing takes the option off the resale market.
func (o *Option) ClearListing() {
	o.ForSale = false
	o.ForSalePrice = decimal.Zero
	o.ListingNote = ""
}

// Validate performs validation on the option model
func (o *Option) Validate() error {
	if o.Symbol == "" {
		return ErrInvalidTokenSymbol
	}
	if o.Side != OptionSideBuy && o.Side != OptionSideSell {
		return ErrInvalidOptionSide
	}
	if o.Style != OptionStyleEuropean && o.Style != OptionStyleAmerican {
		return ErrInvalidOptionStyle
	}
	if o.Duration <= 0 {
		return ErrInvalidDuration
	}
	if !o.StrikePrice.IsPositive() {
		return ErrInvalidStrikePrice
	}
	if !o.MarketPrice.IsPositive() {
		return ErrInvalidMarketPrice
	}
	if o.Creator == (common.Address{}) {
		return ErrInvalidAddress
	}
	if o.HolderEscrow.IsNegative() || o.Collateral.IsNegative() {
		return ErrNegativeBalance
	}
	return nil
}
