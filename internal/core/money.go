// Package core provides money parsing and handling utilities.
//
// Amounts are exact decimals. Arithmetic keeps full precision; only display
// rounds, half away from zero, to two places.
package core

import (
	"bytes"
	"strings"
	"unicode"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// Money is an exact decimal amount in the ledger's single currency.
type Money struct {
	d decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// Zero is the additive identity.
var Zero = Money{}

func NewMoney(d decimal.Decimal) Money { return Money{d: d} }

func MoneyFromInt(units int64) Money { return Money{d: decimal.NewFromInt(units)} }

func MoneyFromFloat(f float64) Money { return Money{d: decimal.NewFromFloat(f)} }

// MustMoney parses s and panics on error. Intended for literals in tests and catalogs.
func MustMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

// ParseMoney parses any signed decimal string.
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Zero, ErrInvalidAmount
	}
	return Money{d: d}, nil
}

// ParseAmount converts user input to a positive amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and keeps
// every fractional digit given. Signs, exponents, and zero are rejected.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,34")  -> 12.34, nil
//	ParseAmount("12.345") -> 12.345, nil (displayed as 12.35)
//	ParseAmount("-1")     -> ErrInvalidAmount
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return Zero, ErrInvalidAmount
	}
	for _, part := range parts {
		for _, r := range part {
			if !unicode.IsDigit(r) {
				return Zero, ErrInvalidAmount
			}
		}
	}
	if parts[0] == "" {
		s = "0" + s
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return Zero, ErrInvalidAmount
	}
	return Money{d: d}, nil
}

func (m Money) Decimal() decimal.Decimal { return m.d }

func (m Money) Add(o Money) Money { return Money{d: m.d.Add(o.d)} }

func (m Money) Sub(o Money) Money { return Money{d: m.d.Sub(o.d)} }

func (m Money) Neg() Money { return Money{d: m.d.Neg()} }

func (m Money) IsZero() bool { return m.d.IsZero() }

func (m Money) IsPositive() bool { return m.d.IsPositive() }

func (m Money) IsNegative() bool { return m.d.IsNegative() }

func (m Money) Cmp(o Money) int { return m.d.Cmp(o.d) }

func (m Money) Equal(o Money) bool { return m.d.Equal(o.d) }

// Round2 rounds half away from zero to cents.
func (m Money) Round2() Money { return Money{d: m.d.Round(2)} }

// PercentOf returns round2(m / base * 100), or zero when base is not positive.
func (m Money) PercentOf(base Money) decimal.Decimal {
	if !base.IsPositive() {
		return decimal.Zero
	}
	return m.d.Div(base.d).Mul(hundred).Round(2)
}

// Float64 returns the value for display purposes.
// Note: use Money for calculations to avoid floating-point precision issues.
func (m Money) Float64() float64 {
	f, _ := m.d.Float64()
	return f
}

// String keeps full precision.
func (m Money) String() string { return m.d.String() }

// Fixed2 renders the amount rounded to two decimals, without grouping.
func (m Money) Fixed2() string { return m.d.StringFixed(2) }

// FormatCurrency renders m with the symbol, thousands separators and two
// decimals, e.g. "$1,234.57" or "-$12.00".
func FormatCurrency(m Money, symbol string) string {
	fixed := m.d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")
	grouped := intPart
	if units, err := decimal.NewFromString(intPart); err == nil && units.IsInteger() && len(intPart) < 19 {
		grouped = humanize.Comma(units.IntPart())
	}
	out := symbol + grouped + "." + frac
	if m.d.Round(2).IsNegative() {
		return "-" + out
	}
	return out
}

// MarshalJSON writes a bare JSON number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.d.String()), nil
}

// UnmarshalJSON accepts numbers and numeric strings.
func (m *Money) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*m = Zero
		return nil
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return ErrInvalidAmount
	}
	m.d = d
	return nil
}
