package domain

import "errors"

// Input errors are caused by the caller and are never retried server-side.
var (
	ErrNoCharge         = errors.New("can't checkout with charge of 0")
	ErrMissingReference = errors.New("missing reference")
	ErrInvalidReference = errors.New("invalid reference")
	ErrMissingAccount   = errors.New("missing account")
	ErrInvalidAccount   = errors.New("invalid account")
	ErrAmountPrecision  = errors.New("amount exceeds token precision")
)

// ErrShopCredential reports a missing or unusable shop signing key.
// The process must be reconfigured and restarted.
var ErrShopCredential = errors.New("shop private key not available")

// ErrLedger marks transient ledger failures. The whole build is safe to retry.
var ErrLedger = errors.New("ledger unavailable")

var (
	ErrReferenceNotFound = errors.New("reference not found")
	ErrTransferMismatch  = errors.New("transfer does not match expectation")
)

var (
	ErrNegativeAmount = errors.New("negative amount")
	ErrAmountOverflow = errors.New("amount overflows minor units")
)

var inputErrors = []error{
	ErrNoCharge,
	ErrMissingReference,
	ErrInvalidReference,
	ErrMissingAccount,
	ErrInvalidAccount,
	ErrAmountPrecision,
}

// IsInputError reports whether err is caused by bad caller input.
func IsInputError(err error) bool {
	_, ok := InputCause(err)
	return ok
}

// InputCause returns the input sentinel err wraps.
func InputCause(err error) (error, bool) {
	for _, target := range inputErrors {
		if errors.Is(err, target) {
			return target, true
		}
	}
	return nil, false
}
