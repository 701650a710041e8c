package domain

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// A Reference is a unique public key used only to correlate a checkout with
// the transaction that pays for it. Its private half is never used.
type Reference solana.PublicKey

func ParseReference(s string) (Reference, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Reference{}, ErrMissingReference
	}
	pk, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return Reference{}, fmt.Errorf("%w: %w", ErrInvalidReference, err)
	}
	return Reference(pk), nil
}

func (r Reference) PublicKey() solana.PublicKey {
	return solana.PublicKey(r)
}

func (r Reference) IsZero() bool {
	return r.PublicKey().IsZero()
}

func (r Reference) String() string {
	return r.PublicKey().String()
}

// ParseAccount decodes the buyer's wallet address.
func ParseAccount(s string) (solana.PublicKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return solana.PublicKey{}, ErrMissingAccount
	}
	pk, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: %w", ErrInvalidAccount, err)
	}
	return pk, nil
}
