// Package core provides money parsing and handling utilities.
//
// Amounts are opaque decimals: they are parsed, compared and formatted here,
// and never summed locally. The one computation is the dashboard breakdown
// percentage in summary.go.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money wraps a decimal amount. It encodes as a bare JSON number.
type Money struct {
	decimal.Decimal
}

func NewMoney(d decimal.Decimal) Money {
	return Money{Decimal: d}
}

// MustMoney parses s and panics on failure. Intended for tests and constants.
func MustMoney(s string) Money {
	return Money{Decimal: decimal.RequireFromString(s)}
}

// ParseAmount parses a user-entered amount. It accepts both dot (12.34) and
// comma (12,34) separators and rejects zero, negative and non-numeric input.
//
// Examples:
//
//	ParseAmount("50.5")  -> 50.5, nil
//	ParseAmount("12,30") -> 12.3, nil
//	ParseAmount("0")     -> ErrInvalidAmount
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	if strings.ContainsAny(s, "eE+") {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return Money{}, ErrInvalidAmount
	}
	return Money{Decimal: d}, nil
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal.String()), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		m.Decimal = decimal.Zero
		return nil
	}
	return m.Decimal.UnmarshalJSON(data)
}

// Format renders the amount as "$1.234,50", the way the UI displays money.
func (m Money) Format() string {
	neg := m.IsNegative()
	s := m.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	out := "$" + b.String() + "," + frac
	if neg {
		return "-" + out
	}
	return out
}
