package domain_test

import (
	"testing"

	"github.com/niksmo/solpay-checkout/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAmount(t *testing.T) {
	a, err := domain.NewAmount("12.345")
	require.NoError(t, err)
	assert.Equal(t, "12.345", a.String())

	_, err = domain.NewAmount("-1")
	assert.ErrorIs(t, err, domain.ErrNegativeAmount)

	_, err = domain.NewAmount("ten")
	assert.Error(t, err)

	assert.Panics(t, func() { domain.MustAmount("x") })
}

func TestAmountMinorUnits(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		decimals uint8
		want     uint64
		err      error
	}{
		{"Whole", "10", 6, 10_000_000, nil},
		{"Fraction", "0.5", 6, 500_000, nil},
		{"ExactScale", "1.000001", 6, 1_000_001, nil},
		{"NoDecimals", "5", 0, 5, nil},
		{"Zero", "0", 9, 0, nil},
		{"TooPrecise", "0.0000001", 6, 0, domain.ErrAmountPrecision},
		{"Overflow", "18446744073709551616", 0, 0, domain.ErrAmountOverflow},
		{"MaxUint64", "18446744073709551615", 0, 18446744073709551615, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := domain.MustAmount(tt.amount).MinorUnits(tt.decimals)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAmountArithmetic(t *testing.T) {
	a := domain.MustAmount("5").MulQuantity(2).Add(domain.MustAmount("10"))
	assert.True(t, a.Equal(domain.MustAmount("20")))

	half := a.Scale(decimal.RequireFromString("0.5"))
	assert.True(t, half.Equal(domain.MustAmount("10")))

	back := domain.AmountFromMinor(10_000_000, 6)
	assert.True(t, back.Equal(half))

	var zero domain.Amount
	assert.True(t, zero.IsZero())
	assert.False(t, zero.IsPositive())
	assert.True(t, zero.Add(domain.MustAmount("1")).IsPositive())
}
