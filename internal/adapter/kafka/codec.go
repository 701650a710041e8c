package kafka

import (
	"fmt"
	"math"

	"github.com/gagliardetto/solana-go"
	"github.com/niksmo/solpay-checkout/internal/core/domain"
	"github.com/niksmo/solpay-checkout/pkg/schema"
	"github.com/shopspring/decimal"
)

func checkoutToSchemaV1(v domain.CheckoutEvent) (s schema.CheckoutEventV1, err error) {
	if v.MinorUnits > math.MaxInt64 || v.Discount.Units > math.MaxInt64 {
		return s, domain.ErrAmountOverflow
	}

	s.Reference = v.Reference.String()
	s.Buyer = v.Buyer.String()
	s.Recipient = v.Recipient.String()
	s.Mint = v.Mint.String()
	s.Amount = v.Amount.String()
	s.MinorUnits = int64(v.MinorUnits)
	s.Decimals = int32(v.Decimals)
	s.Discount.Kind = v.Discount.Kind.String()
	s.Discount.Units = int64(v.Discount.Units)
	s.Discount.Multiplier = v.Discount.Multiplier.String()
	s.CreatedAt = v.CreatedAt
	return s, nil
}

func checkoutFromSchemaV1(s schema.CheckoutEventV1) (v domain.CheckoutEvent, err error) {
	if v.Reference, err = domain.ParseReference(s.Reference); err != nil {
		return v, err
	}
	if v.Buyer, err = solana.PublicKeyFromBase58(s.Buyer); err != nil {
		return v, fmt.Errorf("buyer: %w", err)
	}
	if v.Recipient, err = solana.PublicKeyFromBase58(s.Recipient); err != nil {
		return v, fmt.Errorf("recipient: %w", err)
	}
	if v.Mint, err = solana.PublicKeyFromBase58(s.Mint); err != nil {
		return v, fmt.Errorf("mint: %w", err)
	}
	if v.Amount, err = domain.NewAmount(s.Amount); err != nil {
		return v, err
	}
	if s.MinorUnits < 0 || s.Discount.Units < 0 || s.Decimals < 0 || s.Decimals > math.MaxUint8 {
		return v, fmt.Errorf("negative or out of range units in %q", s.Reference)
	}
	v.MinorUnits = uint64(s.MinorUnits)
	v.Decimals = uint8(s.Decimals)

	switch s.Discount.Kind {
	case domain.DiscountAward.String():
		v.Discount.Kind = domain.DiscountAward
	case domain.DiscountRedeem.String():
		v.Discount.Kind = domain.DiscountRedeem
	default:
		return v, fmt.Errorf("unknown discount kind %q", s.Discount.Kind)
	}
	v.Discount.Units = uint64(s.Discount.Units)
	if v.Discount.Multiplier, err = decimal.NewFromString(s.Discount.Multiplier); err != nil {
		return v, fmt.Errorf("multiplier: %w", err)
	}

	v.CreatedAt = s.CreatedAt
	return v, nil
}

func confirmationToSchemaV1(v domain.ConfirmationEvent) (s schema.ConfirmationEventV1) {
	s.Reference = v.Reference.String()
	s.State = v.State.String()
	if v.Signature != (solana.Signature{}) {
		sig := v.Signature.String()
		s.Signature = &sig
	}
	s.Reason = v.Reason
	s.ObservedAt = v.ObservedAt
	return
}

func confirmationFromSchemaV1(s schema.ConfirmationEventV1) (v domain.ConfirmationEvent, err error) {
	if v.Reference, err = domain.ParseReference(s.Reference); err != nil {
		return v, err
	}

	switch s.State {
	case domain.PollConfirmed.String():
		v.State = domain.PollConfirmed
	case domain.PollFoundInvalid.String():
		v.State = domain.PollFoundInvalid
	case domain.PollCancelled.String():
		v.State = domain.PollCancelled
	default:
		return v, fmt.Errorf("unknown state %q", s.State)
	}

	if s.Signature != nil {
		if v.Signature, err = solana.SignatureFromBase58(*s.Signature); err != nil {
			return v, fmt.Errorf("signature: %w", err)
		}
	}
	v.Reason = s.Reason
	v.ObservedAt = s.ObservedAt
	return v, nil
}

// A checkoutEventCodec used for serde [schema.CheckoutEventV1]
type checkoutEventCodec struct {
	serde Serde
}

func newCheckoutEventCodec(s Serde) checkoutEventCodec {
	return checkoutEventCodec{s}
}

func (c checkoutEventCodec) Encode(v any) ([]byte, error) {
	const op = "checkoutEventCodec.Encode"
	if _, ok := v.(schema.CheckoutEventV1); !ok {
		return nil, opErr(ErrInvalidValueType, op)
	}
	return c.serde.Encode(v)
}

func (c checkoutEventCodec) Decode(data []byte) (any, error) {
	const op = "checkoutEventCodec.Decode"
	var s schema.CheckoutEventV1
	if err := c.serde.Decode(data, &s); err != nil {
		return nil, opErr(err, op)
	}
	return s, nil
}

// A confirmationEventCodec used for serde [schema.ConfirmationEventV1]
type confirmationEventCodec struct {
	serde Serde
}

func newConfirmationEventCodec(s Serde) confirmationEventCodec {
	return confirmationEventCodec{s}
}

func (c confirmationEventCodec) Encode(v any) ([]byte, error) {
	const op = "confirmationEventCodec.Encode"
	if _, ok := v.(schema.ConfirmationEventV1); !ok {
		return nil, opErr(ErrInvalidValueType, op)
	}
	return c.serde.Encode(v)
}

func (c confirmationEventCodec) Decode(data []byte) (any, error) {
	const op = "confirmationEventCodec.Decode"
	var s schema.ConfirmationEventV1
	if err := c.serde.Decode(data, &s); err != nil {
		return nil, opErr(err, op)
	}
	return s, nil
}
