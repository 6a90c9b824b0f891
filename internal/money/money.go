package money

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Money is an amount in minor units (cents) of a three-letter currency.
// Arithmetic stays on int64 so totals never pick up float drift.
type Money struct {
	Currency string
	Cents    int64
}

var (
	// ErrOverflow occurs when an amount would exceed int64 capacity.
	ErrOverflow = errors.New("money: arithmetic overflow")

	// ErrInvalidFormat occurs when parsing fails.
	ErrInvalidFormat = errors.New("money: invalid format")
)

const centDigits = 2

// New creates Money from minor units. The currency code is lower-cased, the
// form Stripe expects.
func New(currency string, cents int64) Money {
	return Money{Currency: strings.ToLower(currency), Cents: cents}
}

// FromMajor parses a decimal string such as "10.50" into cents, rounding
// half-up on the third fractional digit.
//
// Examples:
//   - FromMajor("usd", "10.50")  → 1050
//   - FromMajor("usd", "10.555") → 1056
func FromMajor(currency, major string) (Money, error) {
	major = strings.TrimSpace(major)
	negative := strings.HasPrefix(major, "-")
	major = strings.TrimPrefix(major, "-")

	integerPart, fractionalPart, hasDot := strings.Cut(major, ".")
	if strings.Contains(fractionalPart, ".") {
		return Money{}, fmt.Errorf("%w: too many decimal points", ErrInvalidFormat)
	}
	if integerPart == "" && (!hasDot || fractionalPart == "") {
		return Money{}, fmt.Errorf("%w: empty amount", ErrInvalidFormat)
	}
	if integerPart == "" {
		integerPart = "0"
	}
	if strings.HasPrefix(integerPart, "+") {
		return Money{}, fmt.Errorf("%w: unexpected sign", ErrInvalidFormat)
	}

	whole, err := strconv.ParseInt(integerPart, 10, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return Money{}, ErrOverflow
		}
		return Money{}, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	var fraction int64
	if fractionalPart != "" {
		for _, c := range fractionalPart {
			if c < '0' || c > '9' {
				return Money{}, fmt.Errorf("%w: bad digit %q", ErrInvalidFormat, c)
			}
		}
		roundUp := false
		if len(fractionalPart) > centDigits {
			roundUp = fractionalPart[centDigits] >= '5'
			fractionalPart = fractionalPart[:centDigits]
		}
		for len(fractionalPart) < centDigits {
			fractionalPart += "0"
		}
		fraction, _ = strconv.ParseInt(fractionalPart, 10, 64)
		if roundUp {
			fraction++
		}
	}

	if whole > (math.MaxInt64-fraction)/100 {
		return Money{}, ErrOverflow
	}
	cents := whole*100 + fraction
	if negative {
		cents = -cents
	}
	return New(currency, cents), nil
}

// FromFloat converts a JSON-decoded price into cents. The float is formatted
// with the shortest representation that round-trips, so 1.005 rounds to 101
// rather than drifting down to 100.
func FromFloat(currency string, price float64) (Money, error) {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return Money{}, fmt.Errorf("%w: %v", ErrInvalidFormat, price)
	}
	return FromMajor(currency, strconv.FormatFloat(price, 'f', -1, 64))
}

// IsPositive reports whether the amount is greater than zero.
func (m Money) IsPositive() bool {
	return m.Cents > 0
}
