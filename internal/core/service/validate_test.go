package service_test

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/niksmo/solpay-checkout/internal/core/domain"
	"github.com/niksmo/solpay-checkout/internal/core/service"
	"github.com/stretchr/testify/assert"
)

type transferFixture struct {
	exp   domain.Expectation
	shop  solana.PublicKey
	mint  solana.PublicKey
	buyer solana.PublicKey
}

func newTransferFixture() transferFixture {
	f := transferFixture{
		shop:  newKey(),
		mint:  newKey(),
		buyer: newKey(),
	}
	f.exp = domain.Expectation{
		Recipient: f.shop,
		Mint:      f.mint,
		Amount:    domain.MustAmount("10"),
		Reference: service.NewReference(),
	}
	return f
}

// observed returns a transfer paying shopDelta minor units to the shop.
func (f transferFixture) observed(shopDelta uint64) domain.ObservedTransfer {
	return domain.ObservedTransfer{
		Signature:   solana.Signature{1},
		AccountKeys: []solana.PublicKey{f.buyer, newKey(), newKey(), f.exp.Reference.PublicKey()},
		Balances: []domain.TokenBalanceChange{
			{
				Account: newKey(), Owner: f.buyer, Mint: f.mint,
				Pre: 50_000_000, Post: 50_000_000 - shopDelta, Decimals: 6,
			},
			{
				Account: newKey(), Owner: f.shop, Mint: f.mint,
				Pre: 1_000_000, Post: 1_000_000 + shopDelta, Decimals: 6,
			},
		},
	}
}

func TestValidateTransfer(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		f := newTransferFixture()
		assert.NoError(t, service.ValidateTransfer(f.observed(10_000_000), f.exp))
	})

	t.Run("WrongAmount", func(t *testing.T) {
		f := newTransferFixture()
		err := service.ValidateTransfer(f.observed(9_999_999), f.exp)
		assert.ErrorIs(t, err, domain.ErrTransferMismatch)
	})

	t.Run("Overpaid", func(t *testing.T) {
		f := newTransferFixture()
		err := service.ValidateTransfer(f.observed(10_000_001), f.exp)
		assert.ErrorIs(t, err, domain.ErrTransferMismatch)
	})

	t.Run("Failed", func(t *testing.T) {
		f := newTransferFixture()
		obs := f.observed(10_000_000)
		obs.Failed = true
		assert.ErrorIs(t, service.ValidateTransfer(obs, f.exp), domain.ErrTransferMismatch)
	})

	t.Run("MissingReference", func(t *testing.T) {
		f := newTransferFixture()
		obs := f.observed(10_000_000)
		obs.AccountKeys = obs.AccountKeys[:3]
		assert.ErrorIs(t, service.ValidateTransfer(obs, f.exp), domain.ErrTransferMismatch)
	})

	t.Run("WrongMint", func(t *testing.T) {
		f := newTransferFixture()
		exp := f.exp
		exp.Mint = newKey()
		assert.ErrorIs(t, service.ValidateTransfer(f.observed(10_000_000), exp), domain.ErrTransferMismatch)
	})

	t.Run("WrongRecipient", func(t *testing.T) {
		f := newTransferFixture()
		exp := f.exp
		exp.Recipient = newKey()
		assert.ErrorIs(t, service.ValidateTransfer(f.observed(10_000_000), exp), domain.ErrTransferMismatch)
	})

	t.Run("BalanceDecreased", func(t *testing.T) {
		f := newTransferFixture()
		obs := f.observed(10_000_000)
		obs.Balances[1].Pre, obs.Balances[1].Post = obs.Balances[1].Post, obs.Balances[1].Pre
		assert.ErrorIs(t, service.ValidateTransfer(obs, f.exp), domain.ErrTransferMismatch)
	})

	t.Run("PrecisionExceeded", func(t *testing.T) {
		f := newTransferFixture()
		exp := f.exp
		exp.Amount = domain.MustAmount("10.0000001")
		err := service.ValidateTransfer(f.observed(10_000_000), exp)
		assert.ErrorIs(t, err, domain.ErrTransferMismatch)
		assert.ErrorIs(t, err, domain.ErrAmountPrecision)
	})
}
