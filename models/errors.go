package models

import "errors"

var (
	ErrInvalidOptionID     = errors.New("invalid option ID")
	ErrInvalidTokenSymbol  = errors.New("invalid token symbol")
	ErrInvalidOptionSide   = errors.New("invalid option side")
	ErrInvalidOptionStyle  = errors.New("invalid option style")
	ErrInvalidOptionStatus = errors.New("invalid option status")
	ErrInvalidDuration     = errors.New("invalid option duration")
	ErrInvalidStrikePrice  = errors.New("invalid strike price")
	ErrInvalidMarketPrice  = errors.New("invalid market price")
	ErrInvalidAddress      = errors.New("invalid address")

	ErrInvalidAccountBalance = errors.New("invalid account balance")
	ErrNegativeBalance       = errors.New("balance cannot be negative")
	ErrInsufficientBalance   = errors.New("insufficient balance")

	ErrInvalidEntryKind   = errors.New("invalid ledger entry kind")
	ErrInvalidEntryAmount = errors.New("invalid ledger entry amount")

	ErrInvalidEventType = errors.New("invalid event type")

	ErrInvalidPriceUnit     = errors.New("invalid price unit")
	ErrInvalidContractSize  = errors.New("invalid contract size")
	ErrInvalidPremiumRate   = errors.New("invalid premium rate")
	ErrInvalidStrikeTiers   = errors.New("invalid strike tier configuration")
	ErrInvalidExerciseGrace = errors.New("invalid exercise window")
	ErrInvalidSweepInterval = errors.New("invalid sweep interval")

	ErrDatabaseCredentialNotConfigured = errors.New("database credentials not configured")
	ErrDeskNotDeployed                 = errors.New("desk has not been deployed")

	ErrRevert         = errors.New("execution reverted")
	ErrRecordNotFound = errors.New("record not found")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
)

// RevertError is a lifecycle rule violation. The reason string is part of the
// public contract and is returned verbatim to callers.
type RevertError struct {
	Reason string
}

// Revert builds a RevertError for reason.
func Revert(reason string) error {
	return &RevertError{Reason: reason}
}

func (e *RevertError) Error() string {
	return "execution reverted: " + e.Reason
}

// Is makes every RevertError match ErrRevert.
func (e *RevertError) Is(target error) bool {
	return target == ErrRevert
}

// RevertReason extracts the reason of a revert anywhere in err's chain.
func RevertReason(err error) (string, bool) {
	var re *RevertError
	if errors.As(err, &re) {
		return re.Reason, true
	}
	return "", false
}
