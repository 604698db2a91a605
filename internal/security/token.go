package security

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

const (
	TokenScopeAccess = "access"
)

// Maker makes a new token
type Maker interface {

	// CreateToken creates a new token for a wallet address and duration
	CreateToken(address common.Address, duration time.Duration, scope string) (string, *Payload, error)

	// VerifyToken checks if the token is valid or not
	VerifyToken(token string) (*Payload, error)
}
