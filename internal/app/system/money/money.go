// Package money parses and formats currency amounts. Amounts are kept as
// integer cents everywhere past the form boundary.
package money

import (
	"errors"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalid is returned for input that is not a decimal number.
	ErrInvalid = errors.New("please enter a valid amount")
	// ErrNotPositive is returned when the amount rounds to zero or less.
	ErrNotPositive = errors.New("amount must be greater than 0")
	// ErrTooLarge is returned above MaxCents.
	ErrTooLarge = errors.New("amount is too large")
)

// MaxCents is the largest accepted amount, 99,999,999.99.
const MaxCents int64 = 9_999_999_999

// maxInputLen bounds the digits handed to the decimal parser.
const maxInputLen = 32

var (
	hundred = decimal.NewFromInt(100)

	// Plain positional notation only. Exponent forms such as "1e99999999"
	// would make Mul/Round build an enormous integer.
	amountRe = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
)

// ParseCents parses a user-entered amount such as "42.5", "1,200.00" or
// "$3" and rounds it half-up to whole cents.
func ParseCents(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" || len(s) > maxInputLen || !amountRe.MatchString(s) {
		return 0, ErrInvalid
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalid
	}

	cents := d.Mul(hundred).Round(0)
	if !cents.IsPositive() {
		return 0, ErrNotPositive
	}
	if cents.GreaterThan(decimal.NewFromInt(MaxCents)) {
		return 0, ErrTooLarge
	}
	return cents.IntPart(), nil
}

// Format renders cents as a plain two-decimal string, e.g. 4250 -> "42.50".
func Format(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}
