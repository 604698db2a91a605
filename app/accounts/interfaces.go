package accounts

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joefazee/optionsdesk/app/ledger"
	"github.com/joefazee/optionsdesk/models"
	"github.com/shopspring/decimal"
)

var (
	ErrNoChallenge       = fmt.Errorf("%w: no pending challenge for this address", models.ErrUnauthorized)
	ErrSignatureMismatch = fmt.Errorf("%w: signature does not match the address", models.ErrUnauthorized)
	ErrFaucetLimit       = fmt.Errorf("%w: amount exceeds the faucet limit", models.ErrForbidden)
)

// Repository gives the service balances and a transaction to mint in.
type Repository interface {
	Ledger() ledger.Repository
	Transaction(ctx context.Context, fn func(repo ledger.Repository) error) error
}

// Service defines the interface for wallet login and balances
type Service interface {
	// Challenge issues a one-time message for address to personal_sign.
	Challenge(ctx context.Context, address common.Address) (*ChallengeResponse, error)
	// Login exchanges a signed challenge for an access token.
	Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error)

	Account(ctx context.Context, address common.Address) (*AccountResponse, error)
	Entries(ctx context.Context, filter ledger.EntryFilter) ([]models.LedgerEntry, int64, error)
	// Fund credits address from the faucet.
	Fund(ctx context.Context, address common.Address, amount decimal.Decimal) (*AccountResponse, error)
}
