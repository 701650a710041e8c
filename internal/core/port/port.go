package port

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/niksmo/solpay-checkout/internal/core/domain"
)

type (
	runner interface {
		Run(context.Context)
	}

	closer interface {
		Close()
	}
)

// A TokenLedger is the part of the ledger the transaction builder reads.
type TokenLedger interface {
	LatestBlockhash(context.Context) (solana.Hash, error)
	MintDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error)
	TokenBalance(ctx context.Context, account solana.PublicKey) (uint64, error)

	// EnsureTokenAccount returns the associated token account of owner for
	// mint, creating it with payer's funds when it does not exist yet.
	EnsureTokenAccount(
		ctx context.Context, payer solana.PrivateKey, mint, owner solana.PublicKey,
	) (solana.PublicKey, error)
}

// A ReferenceFinder is the part of the ledger the confirmation poller reads.
type ReferenceFinder interface {
	// FindReference returns signatures of transactions referencing ref,
	// oldest first, or [domain.ErrReferenceNotFound].
	FindReference(ctx context.Context, ref domain.Reference) ([]solana.Signature, error)
	GetTransfer(ctx context.Context, sig solana.Signature) (domain.ObservedTransfer, error)
}

type TransactionBuilder interface {
	Build(context.Context, domain.BuildRequest) (domain.BuiltTransaction, error)
}

type DiscountEvaluator interface {
	Evaluate(balance uint64) domain.DiscountDecision
}

type Checkouter interface {
	Descriptor() domain.Descriptor
	Checkout(context.Context, domain.CheckoutRequest) (domain.BuiltTransaction, error)
	TransferLink(ctx context.Context, charge domain.ChargeRequest, ref string) (domain.TransferLink, error)
}

type ConfirmationAwaiter interface {
	Await(context.Context, domain.Expectation) (domain.PollOutcome, error)
}

type CheckoutEventsProducer interface {
	ProduceCheckout(context.Context, domain.CheckoutEvent) error
}

type ConfirmationEmitter interface {
	EmitConfirmation(context.Context, domain.ConfirmationEvent) error
	closer
}

// A PollObserver is notified about every poll tick result.
type PollObserver interface {
	ObservePoll(domain.PollState)
}

type CheckoutEventsProcessor interface {
	runner
	closer
}

type CheckoutWatcher interface {
	Watch(context.Context, domain.CheckoutEvent)
}

// A ConfirmationRecorder receives confirmation results published by watchers.
type ConfirmationRecorder interface {
	RecordConfirmation(context.Context, domain.ConfirmationEvent) error
}

type ConfirmationEventsConsumer interface {
	runner
	closer
}

type ConfirmationObserver interface {
	ObserveConfirmation(domain.PollState)
}
