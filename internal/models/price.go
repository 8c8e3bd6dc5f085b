package models

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidPrice is returned when a price string is not a two-place decimal.
var ErrInvalidPrice = errors.New("invalid price")

// Price is a fixed-point amount with two fractional digits, stored in cents.
type Price int64

// PriceFromCents builds a price from an integer number of cents.
func PriceFromCents(cents int64) Price {
	return Price(cents)
}

// maxUnits is the largest whole amount whose cents still fit in an int64.
const maxUnits = (math.MaxInt64 - 99) / 100

// ParsePrice parses a plain decimal such as "12.50", "12.5" or "12".
// Currency symbols and thousands separators must already be stripped.
func ParsePrice(s string) (Price, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidPrice)
	}

	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" || (hasFrac && (frac == "" || len(frac) > 2)) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPrice, s)
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || units < 0 || units > maxUnits {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPrice, s)
	}

	var cents int64

	if hasFrac {
		if len(frac) == 1 {
			frac += "0"
		}

		cents, err = strconv.ParseInt(frac, 10, 64)
		if err != nil || cents < 0 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidPrice, s)
		}
	}

	return Price(units*100 + cents), nil
}

// Cents returns the amount in cents.
func (p Price) Cents() int64 {
	return int64(p)
}

// Float64 returns the amount as a float, for presentation only.
func (p Price) Float64() float64 {
	return float64(p) / 100
}

// String renders the amount with exactly two decimals, e.g. "12.50".
func (p Price) String() string {
	sign := ""
	v := int64(p)

	if v < 0 {
		sign = "-"
		v = -v
	}

	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// Dollars renders the amount as "$12.50".
func (p Price) Dollars() string {
	return "$" + p.String()
}
