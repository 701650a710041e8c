package service_test

import (
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/niksmo/solpay-checkout/internal/core/domain"
	"github.com/niksmo/solpay-checkout/internal/core/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type serviceFixture struct {
	builder *MockBuilder
	events  *MockEventsProducer
	cfg     service.ServiceConfig
	svc     service.Service
}

func newServiceFixture(t *testing.T) serviceFixture {
	t.Helper()
	f := serviceFixture{
		builder: new(MockBuilder),
		events:  new(MockEventsProducer),
		cfg: service.ServiceConfig{
			Descriptor:  domain.Descriptor{Label: "Cookies Inc", Icon: "https://example.com/icon.svg"},
			Shop:        newKey(),
			PaymentMint: newKey(),
			LinkMessage: "Thanks for all the cookies!",
		},
	}
	f.svc = service.New(testCatalog(t), f.builder, f.events, f.cfg)
	return f
}

func TestServiceCheckout(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		f := newServiceFixture(t)
		ref := service.NewReference()
		buyer := newKey()

		built := domain.BuiltTransaction{
			Transaction: "AQID",
			Message:     "Thanks for your order! You earned 1 coupon 🔥",
			Buyer:       buyer,
			Reference:   ref,
			Amount:      domain.MustAmount("20"),
			MinorUnits:  20_000_000,
			Decimals:    6,
			Discount:    domain.DiscountDecision{Kind: domain.DiscountAward, Units: 1},
		}

		f.builder.On("Build", mock.Anything, mock.MatchedBy(func(r domain.BuildRequest) bool {
			return r.Buyer == buyer &&
				r.Reference == ref &&
				r.BaseAmount.Equal(domain.MustAmount("20")) &&
				r.Discount == nil
		})).Return(built, nil).Once()

		f.events.On("ProduceCheckout", mock.Anything, mock.MatchedBy(func(ev domain.CheckoutEvent) bool {
			return ev.Reference == ref &&
				ev.Buyer == buyer &&
				ev.Recipient == f.cfg.Shop &&
				ev.Mint == f.cfg.PaymentMint &&
				ev.MinorUnits == 20_000_000 &&
				!ev.CreatedAt.IsZero()
		})).Return(nil).Once()

		got, err := f.svc.Checkout(t.Context(), domain.CheckoutRequest{
			Charge:    domain.ChargeRequest{"pack": "2", "barrel": "1"},
			Reference: ref.String(),
			Account:   buyer.String(),
		})
		require.NoError(t, err)
		assert.Equal(t, built, got)
		f.builder.AssertExpectations(t)
		f.events.AssertExpectations(t)
	})

	t.Run("PublishFailureIgnored", func(t *testing.T) {
		f := newServiceFixture(t)
		ref := service.NewReference()
		buyer := newKey()

		f.builder.On("Build", mock.Anything, mock.Anything).
			Return(domain.BuiltTransaction{Reference: ref, Buyer: buyer}, nil)
		f.events.On("ProduceCheckout", mock.Anything, mock.Anything).
			Return(errors.New("broker down"))

		_, err := f.svc.Checkout(t.Context(), domain.CheckoutRequest{
			Charge:    domain.ChargeRequest{"pack": "1"},
			Reference: ref.String(),
			Account:   buyer.String(),
		})
		assert.NoError(t, err)
	})

	t.Run("NoEvents", func(t *testing.T) {
		f := newServiceFixture(t)
		svc := service.New(testCatalog(t), f.builder, nil, f.cfg)
		f.builder.On("Build", mock.Anything, mock.Anything).
			Return(domain.BuiltTransaction{}, nil)

		_, err := svc.Checkout(t.Context(), domain.CheckoutRequest{
			Charge:    domain.ChargeRequest{"pack": "1"},
			Reference: service.NewReference().String(),
			Account:   newKey().String(),
		})
		assert.NoError(t, err)
	})

	t.Run("InputErrors", func(t *testing.T) {
		valid := domain.ChargeRequest{"pack": "1"}
		ref := service.NewReference().String()
		acc := newKey().String()

		tests := []struct {
			name string
			req  domain.CheckoutRequest
			want error
		}{
			{"NoCharge", domain.CheckoutRequest{Charge: domain.ChargeRequest{"pack": "0"}, Reference: ref, Account: acc}, domain.ErrNoCharge},
			{"UnknownProduct", domain.CheckoutRequest{Charge: domain.ChargeRequest{"crate": "1"}, Reference: ref, Account: acc}, domain.ErrNoCharge},
			{"MissingReference", domain.CheckoutRequest{Charge: valid, Account: acc}, domain.ErrMissingReference},
			{"InvalidReference", domain.CheckoutRequest{Charge: valid, Reference: "not-a-key", Account: acc}, domain.ErrInvalidReference},
			{"MissingAccount", domain.CheckoutRequest{Charge: valid, Reference: ref}, domain.ErrMissingAccount},
			{"InvalidAccount", domain.CheckoutRequest{Charge: valid, Reference: ref, Account: "0OIl"}, domain.ErrInvalidAccount},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f := newServiceFixture(t)

				_, err := f.svc.Checkout(t.Context(), tt.req)
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.want)
				assert.True(t, domain.IsInputError(err))
				f.builder.AssertNotCalled(t, "Build", mock.Anything, mock.Anything)
				f.events.AssertNotCalled(t, "ProduceCheckout", mock.Anything, mock.Anything)
			})
		}
	})

	t.Run("BuildError", func(t *testing.T) {
		f := newServiceFixture(t)
		f.builder.On("Build", mock.Anything, mock.Anything).
			Return(domain.BuiltTransaction{}, domain.ErrLedger)

		_, err := f.svc.Checkout(t.Context(), domain.CheckoutRequest{
			Charge:    domain.ChargeRequest{"pack": "1"},
			Reference: service.NewReference().String(),
			Account:   newKey().String(),
		})
		assert.ErrorIs(t, err, domain.ErrLedger)
		f.events.AssertNotCalled(t, "ProduceCheckout", mock.Anything, mock.Anything)
	})
}

func TestServiceTransferLink(t *testing.T) {
	t.Run("GeneratedReference", func(t *testing.T) {
		f := newServiceFixture(t)

		l, err := f.svc.TransferLink(t.Context(), domain.ChargeRequest{"barrel": "2"}, "")
		require.NoError(t, err)

		assert.False(t, l.Reference.IsZero())
		assert.Equal(t, f.cfg.Shop, l.Recipient)
		assert.Equal(t, f.cfg.PaymentMint, l.Mint)
		assert.True(t, l.Amount.Equal(domain.MustAmount("20")))
		assert.Equal(t, "Cookies Inc", l.Label)
		assert.Equal(t, f.cfg.LinkMessage, l.Message)
	})

	t.Run("GivenReference", func(t *testing.T) {
		f := newServiceFixture(t)
		ref := service.NewReference()

		l, err := f.svc.TransferLink(t.Context(), domain.ChargeRequest{"pack": "1"}, ref.String())
		require.NoError(t, err)
		assert.Equal(t, ref, l.Reference)
	})

	t.Run("Errors", func(t *testing.T) {
		f := newServiceFixture(t)

		_, err := f.svc.TransferLink(t.Context(), domain.ChargeRequest{}, "")
		assert.ErrorIs(t, err, domain.ErrNoCharge)

		_, err = f.svc.TransferLink(t.Context(), domain.ChargeRequest{"pack": "1"}, "bad")
		assert.ErrorIs(t, err, domain.ErrInvalidReference)
	})
}

func TestServiceDescriptor(t *testing.T) {
	f := newServiceFixture(t)
	assert.Equal(t, f.cfg.Descriptor, f.svc.Descriptor())
	assert.NotEqual(t, solana.PublicKey{}, f.cfg.Shop)
}
