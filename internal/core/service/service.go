package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/niksmo/solpay-checkout/internal/core/domain"
	"github.com/niksmo/solpay-checkout/internal/core/port"
)

var _ port.Checkouter = Service{}

type ServiceConfig struct {
	Descriptor  domain.Descriptor
	Shop        solana.PublicKey
	PaymentMint solana.PublicKey
	LinkMessage string
}

// A Service serves the request-for-payment flow.
//
// It keeps no state between checkouts.
type Service struct {
	catalog domain.Catalog
	builder port.TransactionBuilder
	events  port.CheckoutEventsProducer
	cfg     ServiceConfig
	now     func() time.Time
}

func New(
	catalog domain.Catalog,
	builder port.TransactionBuilder,
	events port.CheckoutEventsProducer,
	cfg ServiceConfig,
) Service {
	return Service{
		catalog: catalog,
		builder: builder,
		events:  events,
		cfg:     cfg,
		now:     time.Now,
	}
}

func (s Service) Descriptor() domain.Descriptor {
	return s.cfg.Descriptor
}

func (s Service) Checkout(
	ctx context.Context, req domain.CheckoutRequest,
) (domain.BuiltTransaction, error) {
	const op = "Service.Checkout"

	if err := ctx.Err(); err != nil {
		return domain.BuiltTransaction{}, fmt.Errorf("%s: %w", op, err)
	}

	amount := CalculatePrice(s.catalog, req.Charge)
	if !amount.IsPositive() {
		return domain.BuiltTransaction{}, fmt.Errorf("%s: %w", op, domain.ErrNoCharge)
	}

	ref, err := domain.ParseReference(req.Reference)
	if err != nil {
		return domain.BuiltTransaction{}, fmt.Errorf("%s: %w", op, err)
	}

	buyer, err := domain.ParseAccount(req.Account)
	if err != nil {
		return domain.BuiltTransaction{}, fmt.Errorf("%s: %w", op, err)
	}

	built, err := s.builder.Build(ctx, domain.BuildRequest{
		Buyer:      buyer,
		BaseAmount: amount,
		Reference:  ref,
	})
	if err != nil {
		return domain.BuiltTransaction{}, fmt.Errorf("%s: %w", op, err)
	}

	s.publish(ctx, built)
	return built, nil
}

// TransferLink returns the fields of a wallet-built transfer for the charge.
// A fresh reference is generated when ref is empty.
func (s Service) TransferLink(
	ctx context.Context, charge domain.ChargeRequest, ref string,
) (domain.TransferLink, error) {
	const op = "Service.TransferLink"

	if err := ctx.Err(); err != nil {
		return domain.TransferLink{}, fmt.Errorf("%s: %w", op, err)
	}

	amount := CalculatePrice(s.catalog, charge)
	if !amount.IsPositive() {
		return domain.TransferLink{}, fmt.Errorf("%s: %w", op, domain.ErrNoCharge)
	}

	reference := NewReference()
	if ref != "" {
		var err error
		reference, err = domain.ParseReference(ref)
		if err != nil {
			return domain.TransferLink{}, fmt.Errorf("%s: %w", op, err)
		}
	}

	return domain.TransferLink{
		Recipient: s.cfg.Shop,
		Mint:      s.cfg.PaymentMint,
		Amount:    amount,
		Reference: reference,
		Label:     s.cfg.Descriptor.Label,
		Message:   s.cfg.LinkMessage,
	}, nil
}

// publish notifies watchers about the checkout. The buyer already holds the
// transaction, so a failure here is only logged.
func (s Service) publish(ctx context.Context, built domain.BuiltTransaction) {
	const op = "Service.publish"
	log := slog.With("op", op)

	if s.events == nil {
		return
	}

	ev := domain.CheckoutEvent{
		Reference:  built.Reference,
		Buyer:      built.Buyer,
		Recipient:  s.cfg.Shop,
		Mint:       s.cfg.PaymentMint,
		Amount:     built.Amount,
		MinorUnits: built.MinorUnits,
		Decimals:   built.Decimals,
		Discount:   built.Discount,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.events.ProduceCheckout(ctx, ev); err != nil {
		log.Warn("failed to publish checkout event",
			"reference", built.Reference.String(), "err", err)
	}
}
