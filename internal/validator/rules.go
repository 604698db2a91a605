package validator

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

var (
	// SymbolRgx matches an upper case token ticker.
	SymbolRgx = regexp.MustCompile(`^[A-Z0-9]{2,10}$`)
)

// NotBlank returns true if a string is not empty or contains only whitespace.
func NotBlank(value string) bool {
	return strings.TrimSpace(value) != ""
}

// MaxRunes returns true if a string is less than or equal to a maximum number of n
func MaxRunes(value string, n int) bool {
	return utf8.RuneCountInString(value) <= n
}

// Matches returns true if a string value matches a specific regexp pattern.
func Matches(value string, rx *regexp.Regexp) bool {
	return rx.MatchString(value)
}

// In returns true if a value is in a list of values.
func In[T comparable](value T, list ...T) bool {
	for i := range list {
		if value == list[i] {
			return true
		}
	}
	return false
}

// Between returns true if min <= value <= max.
func Between(value, minimum, maximum int) bool {
	return value >= minimum && value <= maximum
}

// IsHexAddress returns true for a 0x prefixed, 20 byte, non-zero address.
func IsHexAddress(value string) bool {
	if !strings.HasPrefix(value, "0x") && !strings.HasPrefix(value, "0X") {
		return false
	}
	if !common.IsHexAddress(value) {
		return false
	}
	return common.HexToAddress(value) != (common.Address{})
}

// IsPositiveDecimal returns true if value parses as a decimal greater than zero.
func IsPositiveDecimal(value string) bool {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	return err == nil && d.IsPositive()
}

// IsNonNegativeDecimal returns true if value is empty or parses as a decimal >= 0.
func IsNonNegativeDecimal(value string) bool {
	if strings.TrimSpace(value) == "" {
		return true
	}
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	return err == nil && !d.IsNegative()
}
