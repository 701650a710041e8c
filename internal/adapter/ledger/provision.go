package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
)

// mintSize is the length of an SPL token mint account.
const mintSize = 82

// CreateMint creates and initializes a new token mint owned by the token
// program, with authority as both mint and freeze authority.
func (l *Ledger) CreateMint(
	ctx context.Context, authority solana.PrivateKey, decimals uint8,
) (solana.PublicKey, error) {
	const op = "Ledger.CreateMint"
	log := slog.With("op", op)

	mint, err := solana.NewRandomPrivateKey()
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%s: %w", op, err)
	}

	rent, err := l.client.GetMinimumBalanceForRentExemption(ctx, mintSize, l.cfg.Commitment)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%s: rent: %w", op, err)
	}

	create, err := system.NewCreateAccountInstruction(
		rent, mintSize, solana.TokenProgramID, authority.PublicKey(), mint.PublicKey(),
	).ValidateAndBuild()
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%s: %w", op, err)
	}

	initialize, err := token.NewInitializeMintInstruction(
		decimals, authority.PublicKey(), authority.PublicKey(), mint.PublicKey(), solana.SysVarRentPubkey,
	).ValidateAndBuild()
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%s: %w", op, err)
	}

	sig, err := l.sendAndConfirm(ctx, []solana.Instruction{create, initialize}, authority, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("mint created", "mint", mint.PublicKey().String(), "signature", sig.String())
	return mint.PublicKey(), nil
}

// MintTo mints units to the associated token account of owner, creating
// the account first when needed.
func (l *Ledger) MintTo(
	ctx context.Context,
	authority solana.PrivateKey,
	mint, owner solana.PublicKey,
	units uint64,
) (solana.PublicKey, error) {
	const op = "Ledger.MintTo"

	dest, err := l.EnsureTokenAccount(ctx, authority, mint, owner)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%s: %w", op, err)
	}

	decimals, err := l.MintDecimals(ctx, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%s: %w", op, err)
	}

	ix, err := token.NewMintToCheckedInstruction(
		units, decimals, mint, dest, authority.PublicKey(), nil,
	).ValidateAndBuild()
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := l.sendAndConfirm(ctx, []solana.Instruction{ix}, authority); err != nil {
		return solana.PublicKey{}, fmt.Errorf("%s: %w", op, err)
	}
	return dest, nil
}

func createAssociatedAccount(payer, owner, mint solana.PublicKey) (solana.Instruction, error) {
	ix, err := associatedtokenaccount.NewCreateInstruction(payer, owner, mint).ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("create associated account: %w", err)
	}
	return ix, nil
}
