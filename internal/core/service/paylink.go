package service

import (
	"net/url"

	"github.com/niksmo/solpay-checkout/internal/core/domain"
)

const transferScheme = "solana"

// EncodeTransferURL encodes l as a transfer request link for wallet apps.
func EncodeTransferURL(l domain.TransferLink) string {
	q := url.Values{}
	if l.Amount.IsPositive() {
		q.Set("amount", l.Amount.String())
	}
	if !l.Mint.IsZero() {
		q.Set("spl-token", l.Mint.String())
	}
	if !l.Reference.IsZero() {
		q.Set("reference", l.Reference.String())
	}
	if l.Label != "" {
		q.Set("label", l.Label)
	}
	if l.Message != "" {
		q.Set("message", l.Message)
	}

	u := url.URL{
		Scheme:   transferScheme,
		Opaque:   l.Recipient.String(),
		RawQuery: q.Encode(),
	}
	return u.String()
}
