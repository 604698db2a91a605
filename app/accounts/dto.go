package accounts

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joefazee/optionsdesk/app/ledger"
	"github.com/joefazee/optionsdesk/internal/chain"
	"github.com/joefazee/optionsdesk/models"
	"github.com/shopspring/decimal"
)

// ChallengeRequest asks for a sign-in message.
type ChallengeRequest struct {
	Address string `json:"address" binding:"required,ethaddr" example:"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"`
}

// ChallengeResponse is the message the wallet must personal_sign.
type ChallengeResponse struct {
	Address   common.Address `json:"address"`
	Message   string         `json:"message"`
	Nonce     string         `json:"nonce"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// LoginRequest carries the signed challenge.
type LoginRequest struct {
	Address   string `json:"address" binding:"required,ethaddr" example:"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"`
	Signature string `json:"signature" binding:"required" example:"0x..."`
}

type LoginResponse struct {
	AccessToken string         `json:"access_token"`
	TokenType   string         `json:"token_type"`
	ExpiresAt   time.Time      `json:"expires_at"`
	Address     common.Address `json:"address"`
}

// AccountResponse is a balance in wei with its ether rendering.
type AccountResponse struct {
	Address      common.Address  `json:"address"`
	Balance      decimal.Decimal `json:"balance"`
	BalanceEther string          `json:"balance_ether"`
}

func NewAccountResponse(address common.Address, balance decimal.Decimal) *AccountResponse {
	return &AccountResponse{
		Address:      address,
		Balance:      balance,
		BalanceEther: chain.FormatEther(balance),
	}
}

// LedgerQuery holds the ledger history query parameters.
type LedgerQuery struct {
	OptionID *uint64 `form:"option_id"`
	Kind     string  `form:"kind" binding:"omitempty,oneof=faucet deploy deposit refund premium resale settlement rebalance"`
	Page     int     `form:"page" binding:"omitempty,min=1"`
	PerPage  int     `form:"per_page" binding:"omitempty,min=1,max=100"`
}

func (q *LedgerQuery) ToFilter(account common.Address) ledger.EntryFilter {
	f := ledger.EntryFilter{
		Account:  account,
		OptionID: q.OptionID,
		Kind:     models.EntryKind(q.Kind),
		Page:     q.Page,
		PerPage:  q.PerPage,
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = 20
	}
	return f
}

// FundPayload is the body of an admin faucet request. Bare amounts are ether.
type FundPayload struct {
	Amount string `json:"amount" binding:"required" example:"10 ether"`
}
