// Package chain holds the Ethereum conventions the desk follows: wei
// denominated amounts and hex addresses.
package chain

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Unit is a power-of-ten multiplier of wei.
type Unit int32

const (
	Wei   Unit = 0
	Gwei  Unit = 9
	Ether Unit = 18
)

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrNegativeAmount = errors.New("amount cannot be negative")
	ErrFractionalWei  = errors.New("amount is not a whole number of wei")
	ErrAmountTooLarge = errors.New("amount exceeds uint256")
)

const (
	// maxAmountLength bounds the text handed to the decimal parser.
	maxAmountLength = 100
	// maxWeiDigits is the precision of the numeric(78,0) amount columns.
	maxWeiDigits = 78
)

// MaxWei is the largest amount a uint256 can hold.
var MaxWei = decimal.NewFromBigInt(new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1)), 0)

var unitNames = map[string]Unit{
	"wei":   Wei,
	"gwei":  Gwei,
	"ether": Ether,
	"eth":   Ether,
}

// ParseValue parses strings such as "10 ether", "0.5eth", "250 gwei" or
// "1000". A bare number is read in defaultUnit. The result is wei and never
// exceeds MaxWei.
func ParseValue(s string, defaultUnit Unit) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return decimal.Zero, nil
	}
	if len(s) > maxAmountLength {
		return decimal.Zero, fmt.Errorf("%w: longer than %d characters", ErrInvalidAmount, maxAmountLength)
	}

	unit := defaultUnit
	for name, u := range unitNames {
		if strings.HasSuffix(s, name) {
			candidate := strings.TrimSpace(strings.TrimSuffix(s, name))
			// "gwei" also ends in "wei"; keep the longest match.
			if name == "wei" && strings.HasSuffix(candidate, "g") {
				continue
			}
			s, unit = candidate, u
			break
		}
	}

	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if amount.IsNegative() {
		return decimal.Zero, ErrNegativeAmount
	}
	if amount.IsZero() {
		return decimal.Zero, nil
	}

	// Bound the exponent before anything rescales the coefficient.
	exp := int64(amount.Exponent()) + int64(unit)
	if int64(amount.NumDigits())+exp > maxWeiDigits {
		return decimal.Zero, ErrAmountTooLarge
	}
	if exp < -maxAmountLength {
		return decimal.Zero, ErrFractionalWei
	}

	wei := amount.Shift(int32(unit))
	if !wei.Equal(wei.Truncate(0)) {
		return decimal.Zero, ErrFractionalWei
	}
	if wei.GreaterThan(MaxWei) {
		return decimal.Zero, ErrAmountTooLarge
	}
	return wei, nil
}

// MustEther converts a whole or fractional ether string to wei and panics on
// malformed input. Intended for constants and tests.
func MustEther(s string) decimal.Decimal {
	v, err := ParseValue(s, Ether)
	if err != nil {
		panic(err)
	}
	return v
}

// ToWei scales n units of u to wei.
func ToWei(n decimal.Decimal, u Unit) decimal.Decimal {
	return n.Shift(int32(u))
}

// FormatEther renders a wei amount in ether.
func FormatEther(wei decimal.Decimal) string {
	return wei.Shift(-int32(Ether)).String()
}
