package domain

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// An Expectation is what a paying transaction must look like.
//
// Recipient is the wallet owner, not its token account.
type Expectation struct {
	Recipient solana.PublicKey
	Mint      solana.PublicKey
	Amount    Amount
	Reference Reference
}

type TokenBalanceChange struct {
	Account  solana.PublicKey
	Owner    solana.PublicKey
	Mint     solana.PublicKey
	Pre      uint64
	Post     uint64
	Decimals uint8
}

// An ObservedTransfer is a ledger-neutral view of a finalized transaction
// found for a reference.
type ObservedTransfer struct {
	Signature   solana.Signature
	Failed      bool
	AccountKeys []solana.PublicKey
	Balances    []TokenBalanceChange
}

type PollState uint8

const (
	PollPolling PollState = iota
	PollFoundInvalid
	PollConfirmed
	PollCancelled
)

func (s PollState) String() string {
	switch s {
	case PollPolling:
		return "polling"
	case PollFoundInvalid:
		return "found_invalid"
	case PollConfirmed:
		return "confirmed"
	case PollCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

func (s PollState) Terminal() bool {
	return s != PollPolling
}

type PollOutcome struct {
	State     PollState
	Signature solana.Signature
	Err       error
	Ticks     int
}

type ConfirmationEvent struct {
	Reference  Reference
	State      PollState
	Signature  solana.Signature
	Reason     string
	ObservedAt time.Time
}
