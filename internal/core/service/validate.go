package service

import (
	"fmt"

	"github.com/niksmo/solpay-checkout/internal/core/domain"
)

// ValidateTransfer checks that obs pays exactly exp.Amount of exp.Mint to
// exp.Recipient and carries exp.Reference.
func ValidateTransfer(obs domain.ObservedTransfer, exp domain.Expectation) error {
	if obs.Failed {
		return fmt.Errorf("%w: transaction failed", domain.ErrTransferMismatch)
	}

	if !containsKey(obs, exp.Reference) {
		return fmt.Errorf("%w: reference %s not found", domain.ErrTransferMismatch, exp.Reference)
	}

	for _, b := range obs.Balances {
		if !b.Owner.Equals(exp.Recipient) || !b.Mint.Equals(exp.Mint) {
			continue
		}

		want, err := exp.Amount.MinorUnits(b.Decimals)
		if err != nil {
			return fmt.Errorf("%w: %w", domain.ErrTransferMismatch, err)
		}

		if b.Post < b.Pre {
			return fmt.Errorf("%w: recipient balance decreased", domain.ErrTransferMismatch)
		}

		got := b.Post - b.Pre
		if got != want {
			return fmt.Errorf(
				"%w: amount %d, expected %d",
				domain.ErrTransferMismatch, got, want,
			)
		}
		return nil
	}

	return fmt.Errorf(
		"%w: recipient %s not credited in %s",
		domain.ErrTransferMismatch, exp.Recipient, exp.Mint,
	)
}

func containsKey(obs domain.ObservedTransfer, ref domain.Reference) bool {
	for _, k := range obs.AccountKeys {
		if k.Equals(ref.PublicKey()) {
			return true
		}
	}
	return false
}
