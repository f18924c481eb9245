// Package money provides fixed-point currency arithmetic in integer minor
// units (paise). Amounts are never accumulated in floating point; rounding
// happens once, at parse or percentage boundaries, using half-up rounding.
package money

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Amount is a monetary value in minor units (1/100 of the major unit).
type Amount int64

// Zero is the zero amount.
const Zero Amount = 0

// FromPaise builds an Amount from integer minor units.
func FromPaise(p int64) Amount { return Amount(p) }

// FromRupees converts a major-unit float to an Amount, rounding half-up to
// the nearest paisa. Intended for boundary conversion only (config, request
// payloads), never for chained arithmetic.
func FromRupees(r float64) Amount {
	if r < 0 {
		return Amount(-int64(math.Floor(-r*100 + 0.5)))
	}
	return Amount(int64(math.Floor(r*100 + 0.5)))
}

// Parse reads a decimal string ("1315", "1315.5", "1315.00") into an Amount.
// More than two fractional digits is an error rather than a silent rounding.
func Parse(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("money: empty amount")
	}
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("money: %q has more than 2 decimal places", s)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("money: invalid amount %q", s)
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("money: invalid amount %q", s)
	}
	v := w*100 + f
	if neg {
		v = -v
	}
	return Amount(v), nil
}

// Paise returns the value in minor units.
func (a Amount) Paise() int64 { return int64(a) }

// Rupees returns the value in major units as a float. Display only.
func (a Amount) Rupees() float64 { return float64(a) / 100 }

// Add returns a + b.
func (a Amount) Add(b Amount) Amount { return a + b }

// Sub returns a - b.
func (a Amount) Sub(b Amount) Amount { return a - b }

// MulInt returns a × n for an integer multiplier (quantity, days).
func (a Amount) MulInt(n int) Amount { return a * Amount(n) }

// Percent returns p% of a, rounded half-up to the nearest paisa.
// p is expressed in whole percent (5 means 5%). Fractional percentages are
// supported (2.5 means 2.5%).
func (a Amount) Percent(p float64) Amount {
	v := float64(a) * p / 100
	if v < 0 {
		return Amount(-int64(math.Floor(-v + 0.5)))
	}
	return Amount(int64(math.Floor(v + 0.5)))
}

// ClampZero returns a, or zero when a is negative.
func (a Amount) ClampZero() Amount {
	if a < 0 {
		return 0
	}
	return a
}

// IsNegative reports whether the amount is below zero.
func (a Amount) IsNegative() bool { return a < 0 }

// String formats the amount with exactly two decimal places.
func (a Amount) String() string {
	v := int64(a)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON encodes the amount as a 2-decimal JSON number.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" {
		return nil
	}
	v, err := Parse(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}
