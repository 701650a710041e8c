package service

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/niksmo/solpay-checkout/internal/core/domain"
)

// NewReference returns the public key of a fresh ephemeral keypair.
// The private key is dropped immediately.
//
// Panics if the system entropy source fails.
func NewReference() domain.Reference {
	const op = "NewReference"
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		panic(fmt.Errorf("%s: %w", op, err))
	}
	return domain.Reference(key.PublicKey())
}
