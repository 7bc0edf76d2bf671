// Package core provides money parsing and handling utilities.
//
// Amounts are kept in minor units (piasters) to avoid floating-point
// drift; parsing goes through shopspring/decimal so that free-text input
// coming from forms, CSV files and OCR output is rounded consistently.
package core

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an amount in minor units (1/100 of a pound).
type Money struct {
	Cents int64
}

var hundred = decimal.NewFromInt(100)

// Pounds builds a Money from a whole pound amount.
func Pounds(p int64) Money {
	return Money{Cents: p * 100}
}

// ParseAmount converts free-text input to Money. It accepts Western and
// Arabic-Indic digits, thousands separators, an optional currency suffix
// (EGP, ج.م, جنيه) and half-up rounds to two decimals. Zero and negative
// values are rejected.
//
// Examples:
//
//	ParseAmount("1500")      -> 150000
//	ParseAmount("1,500.50")  -> 150050
//	ParseAmount("٢٥٠")       -> 25000
//	ParseAmount("12,5")      -> 1250
func ParseAmount(s string) (Money, error) {
	m, err := parseAmount(s)
	if err != nil {
		return Money{}, err
	}
	if m.Cents <= 0 {
		return Money{}, ErrInvalidAmount
	}
	return m, nil
}

// ParseAmountOrZero is like ParseAmount but maps empty input to zero and
// accepts zero itself. Negative amounts are still rejected.
func ParseAmountOrZero(s string) (Money, error) {
	if strings.TrimSpace(s) == "" {
		return Money{}, nil
	}
	m, err := parseAmount(s)
	if err != nil {
		return Money{}, err
	}
	if m.Cents < 0 {
		return Money{}, ErrInvalidAmount
	}
	return m, nil
}

func parseAmount(s string) (Money, error) {
	s = normalizeDigits(strings.TrimSpace(s))
	for _, suffix := range []string{"EGP", "egp", "LE", "ج.م", "جنيه", "ج"} {
		s = strings.TrimSpace(strings.TrimSuffix(s, suffix))
	}
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = normalizeSeparators(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	cents := d.Mul(hundred).Round(0)
	if !cents.IsInteger() || cents.GreaterThan(decimal.NewFromInt(1<<53)) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents.IntPart()}, nil
}

// normalizeSeparators resolves "," as a thousands separator when it groups
// exactly three digits, otherwise as a decimal comma.
func normalizeSeparators(s string) string {
	s = strings.ReplaceAll(s, "٬", ",")
	s = strings.ReplaceAll(s, "٫", ".")
	s = strings.ReplaceAll(s, " ", "")
	if strings.Contains(s, ".") {
		return strings.ReplaceAll(s, ",", "")
	}
	idx := strings.LastIndex(s, ",")
	if idx < 0 {
		return s
	}
	if len(s)-idx-1 == 3 {
		return strings.ReplaceAll(s, ",", "")
	}
	return strings.Replace(s, ",", ".", 1)
}

func normalizeDigits(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '٠' && r <= '٩':
			return '0' + (r - '٠')
		case r >= '۰' && r <= '۹':
			return '0' + (r - '۰')
		}
		return r
	}, s)
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }

func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

func (m Money) IsZero() bool { return m.Cents == 0 }

// Min returns the smaller of two amounts.
func Min(a, b Money) Money {
	if a.Cents < b.Cents {
		return a
	}
	return b
}

// Max returns the larger of two amounts.
func Max(a, b Money) Money {
	if a.Cents > b.Cents {
		return a
	}
	return b
}

// DivMonths splits an amount evenly across n months, truncating to whole
// piasters.
func (m Money) DivMonths(n int) Money {
	if n <= 0 {
		return m
	}
	return Money{Cents: m.Cents / int64(n)}
}

// Decimal returns the amount in pounds.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String formats the amount with thousands grouping, dropping the
// fraction when it is zero: "1,500" or "1,500.50".
func (m Money) String() string {
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}
	whole := group(strconv.FormatInt(cents/100, 10))
	if rem := cents % 100; rem != 0 {
		whole += "." + strconv.FormatInt(rem/10, 10) + strconv.FormatInt(rem%10, 10)
	}
	if neg {
		return "-" + whole
	}
	return whole
}

// EGP formats the amount followed by the pound sign used on screens.
func (m Money) EGP() string {
	return m.String() + " ج"
}

func group(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	pre := len(digits) % 3
	if pre > 0 {
		b.WriteString(digits[:pre])
	}
	for i := pre; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// Sum adds a list of amounts.
func Sum(ms ...Money) Money {
	var total Money
	for _, m := range ms {
		total.Cents += m.Cents
	}
	return total
}
