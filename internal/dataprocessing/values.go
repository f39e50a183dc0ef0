package dataprocessing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a numeric ledger cell that may be missing.
type Amount struct {
	Value decimal.Decimal
	Valid bool
}

// NullAmount is the missing numeric value.
var NullAmount = Amount{}

// NewAmount wraps a present value.
func NewAmount(d decimal.Decimal) Amount {
	return Amount{Value: d, Valid: true}
}

// AmountFromInt is a convenience for fixtures and tests.
func AmountFromInt(v int64) Amount {
	return NewAmount(decimal.NewFromInt(v))
}

// OrZero returns the value, or zero when missing.
func (a Amount) OrZero() decimal.Decimal {
	if !a.Valid {
		return decimal.Zero
	}
	return a.Value
}

// NegAbs forces a present value to -|v|. Missing stays missing.
func (a Amount) NegAbs() Amount {
	if !a.Valid {
		return a
	}
	return NewAmount(a.Value.Abs().Neg())
}

// Plus sums two amounts. Missing operands are skipped and two missing
// operands produce a missing result.
func (a Amount) Plus(b Amount) Amount {
	switch {
	case a.Valid && b.Valid:
		return NewAmount(a.Value.Add(b.Value))
	case a.Valid:
		return a
	default:
		return b
	}
}

// Equal compares presence and numeric value.
func (a Amount) Equal(b Amount) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Value.Equal(b.Value)
}

// String renders a missing amount as the empty string.
func (a Amount) String() string {
	if !a.Valid {
		return ""
	}
	return a.Value.String()
}

// Text is a string ledger cell that may be missing. The zero value is missing.
type Text struct {
	Value string
	Valid bool
}

// NullText is the missing text value.
var NullText = Text{}

// NewText trims s and treats an empty result as missing.
func NewText(s string) Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return NullText
	}
	return Text{Value: s, Valid: true}
}

// Coalesce returns t when present, otherwise other.
func (t Text) Coalesce(other Text) Text {
	if t.Valid {
		return t
	}
	return other
}

// Ptr returns nil for a missing value.
func (t Text) Ptr() *string {
	if !t.Valid {
		return nil
	}
	v := t.Value
	return &v
}

// String renders a missing value as the empty string.
func (t Text) String() string {
	return t.Value
}
