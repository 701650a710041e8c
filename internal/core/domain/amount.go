package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// An Amount is an exact, non-negative token quantity in major units.
type Amount struct {
	d decimal.Decimal
}

func NewAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return Amount{}, fmt.Errorf("parse amount %q: %w", s, ErrNegativeAmount)
	}
	return Amount{d}, nil
}

// MustAmount is [NewAmount] for constants known at compile time.
func MustAmount(s string) Amount {
	a, err := NewAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// AmountFromMinor converts an integer quantity of minor units back to major units.
func AmountFromMinor(units uint64, decimals uint8) Amount {
	d := decimal.NewFromUint64(units).Shift(-int32(decimals))
	return Amount{d}
}

func (a Amount) Add(b Amount) Amount {
	return Amount{a.d.Add(b.d)}
}

func (a Amount) MulQuantity(q uint64) Amount {
	return Amount{a.d.Mul(decimal.NewFromUint64(q))}
}

// Scale multiplies the amount by an exact multiplier, e.g. 0.5 for halving.
func (a Amount) Scale(m decimal.Decimal) Amount {
	return Amount{a.d.Mul(m)}
}

func (a Amount) IsZero() bool {
	return a.d.IsZero()
}

func (a Amount) IsPositive() bool {
	return a.d.IsPositive()
}

func (a Amount) Equal(b Amount) bool {
	return a.d.Equal(b.d)
}

// MinorUnits scales the amount by 10^decimals.
//
// The scaled value must be a whole number that fits uint64, nothing is rounded.
func (a Amount) MinorUnits(decimals uint8) (uint64, error) {
	scaled := a.d.Shift(int32(decimals))
	if scaled.IsNegative() {
		return 0, ErrNegativeAmount
	}
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("%s at %d decimals: %w", a, decimals, ErrAmountPrecision)
	}
	bi := scaled.BigInt()
	if !bi.IsUint64() {
		return 0, ErrAmountOverflow
	}
	return bi.Uint64(), nil
}

func (a Amount) Decimal() decimal.Decimal {
	return a.d
}

func (a Amount) String() string {
	return a.d.String()
}
