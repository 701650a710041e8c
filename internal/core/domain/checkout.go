package domain

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// A Descriptor is shown by wallets before the buyer requests a transaction.
type Descriptor struct {
	Label string
	Icon  string
}

type CheckoutRequest struct {
	Charge    ChargeRequest
	Reference string
	Account   string
}

// A BuildRequest is the builder input for one checkout attempt.
//
// When Discount is nil the builder evaluates it from the buyer's coupon balance.
type BuildRequest struct {
	Buyer      solana.PublicKey
	BaseAmount Amount
	Reference  Reference
	Discount   *DiscountDecision
}

type BuiltTransaction struct {
	Transaction string
	Message     string
	Buyer       solana.PublicKey
	Reference   Reference
	Amount      Amount
	MinorUnits  uint64
	Decimals    uint8
	Discount    DiscountDecision
}

// A TransferLink holds the fields of a payment request link for wallets
// that build the transfer themselves.
type TransferLink struct {
	Recipient solana.PublicKey
	Mint      solana.PublicKey
	Amount    Amount
	Reference Reference
	Label     string
	Message   string
}

type CheckoutEvent struct {
	Reference  Reference
	Buyer      solana.PublicKey
	Recipient  solana.PublicKey
	Mint       solana.PublicKey
	Amount     Amount
	MinorUnits uint64
	Decimals   uint8
	Discount   DiscountDecision
	CreatedAt  time.Time
}
