package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/niksmo/solpay-checkout/internal/core/domain"
	"github.com/niksmo/solpay-checkout/internal/core/port"
	"github.com/niksmo/solpay-checkout/pkg/retry"
)

var (
	_ port.TokenLedger     = (*Ledger)(nil)
	_ port.ReferenceFinder = (*Ledger)(nil)
)

const (
	DefaultSignatureLimit  = 1000
	DefaultConfirmAttempts = 40
	DefaultConfirmDelay    = 500 * time.Millisecond
)

var (
	errPending  = errors.New("transaction is not confirmed yet")
	errTxFailed = errors.New("transaction failed")
)

// RPCClient is the subset of the Solana JSON-RPC API the ledger uses.
// *rpc.Client satisfies it.
type RPCClient interface {
	GetLatestBlockhash(
		ctx context.Context, commitment rpc.CommitmentType,
	) (*rpc.GetLatestBlockhashResult, error)

	GetTokenSupply(
		ctx context.Context, mint solana.PublicKey, commitment rpc.CommitmentType,
	) (*rpc.GetTokenSupplyResult, error)

	GetTokenAccountBalance(
		ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType,
	) (*rpc.GetTokenAccountBalanceResult, error)

	GetAccountInfoWithOpts(
		ctx context.Context, account solana.PublicKey, opts *rpc.GetAccountInfoOpts,
	) (*rpc.GetAccountInfoResult, error)

	GetMinimumBalanceForRentExemption(
		ctx context.Context, dataSize uint64, commitment rpc.CommitmentType,
	) (uint64, error)

	SendTransactionWithOpts(
		ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts,
	) (solana.Signature, error)

	GetSignatureStatuses(
		ctx context.Context, searchTransactionHistory bool, sigs ...solana.Signature,
	) (*rpc.GetSignatureStatusesResult, error)

	GetSignaturesForAddressWithOpts(
		ctx context.Context, account solana.PublicKey, opts *rpc.GetSignaturesForAddressOpts,
	) ([]*rpc.TransactionSignature, error)

	GetTransaction(
		ctx context.Context, sig solana.Signature, opts *rpc.GetTransactionOpts,
	) (*rpc.GetTransactionResult, error)
}

type Config struct {
	Commitment      rpc.CommitmentType
	SignatureLimit  int
	ConfirmAttempts int
	ConfirmDelay    time.Duration
}

func (c *Config) normalize() {
	if c.Commitment == "" {
		c.Commitment = rpc.CommitmentConfirmed
	}
	if c.SignatureLimit <= 0 {
		c.SignatureLimit = DefaultSignatureLimit
	}
	if c.ConfirmAttempts <= 0 {
		c.ConfirmAttempts = DefaultConfirmAttempts
	}
	if c.ConfirmDelay <= 0 {
		c.ConfirmDelay = DefaultConfirmDelay
	}
}

// A Ledger reads and writes token state over Solana JSON-RPC.
type Ledger struct {
	client RPCClient
	cfg    Config
}

func New(client RPCClient, cfg Config) *Ledger {
	cfg.normalize()
	return &Ledger{client, cfg}
}

// Dial returns a ledger talking to the RPC endpoint.
func Dial(endpoint string, cfg Config) *Ledger {
	return New(rpc.New(endpoint), cfg)
}

func (l *Ledger) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	const op = "Ledger.LatestBlockhash"

	res, err := l.client.GetLatestBlockhash(ctx, l.cfg.Commitment)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("%s: %w", op, err)
	}
	if res == nil || res.Value == nil {
		return solana.Hash{}, fmt.Errorf("%s: empty response", op)
	}
	return res.Value.Blockhash, nil
}

func (l *Ledger) MintDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error) {
	const op = "Ledger.MintDecimals"

	res, err := l.client.GetTokenSupply(ctx, mint, l.cfg.Commitment)
	if err != nil {
		return 0, fmt.Errorf("%s: %s: %w", op, mint, err)
	}
	if res == nil || res.Value == nil {
		return 0, fmt.Errorf("%s: %s: empty response", op, mint)
	}
	return res.Value.Decimals, nil
}

func (l *Ledger) TokenBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	const op = "Ledger.TokenBalance"

	res, err := l.client.GetTokenAccountBalance(ctx, account, l.cfg.Commitment)
	if err != nil {
		return 0, fmt.Errorf("%s: %s: %w", op, account, err)
	}
	if res == nil || res.Value == nil {
		return 0, fmt.Errorf("%s: %s: empty response", op, account)
	}

	units, err := strconv.ParseUint(res.Value.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %s: %w", op, account, err)
	}
	return units, nil
}

func (l *Ledger) EnsureTokenAccount(
	ctx context.Context, payer solana.PrivateKey, mint, owner solana.PublicKey,
) (solana.PublicKey, error) {
	const op = "Ledger.EnsureTokenAccount"
	log := slog.With("op", op, "owner", owner.String(), "mint", mint.String())

	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%s: %w", op, err)
	}

	exists, err := l.accountExists(ctx, ata)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%s: %w", op, err)
	}
	if exists {
		return ata, nil
	}

	ix, err := createAssociatedAccount(payer.PublicKey(), owner, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%s: %w", op, err)
	}

	sig, err := l.sendAndConfirm(ctx, []solana.Instruction{ix}, payer)
	if err != nil {
		// a concurrent checkout of the same buyer may have created it first
		if exists, checkErr := l.accountExists(ctx, ata); checkErr == nil && exists {
			return ata, nil
		}
		return solana.PublicKey{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("token account created", "account", ata.String(), "signature", sig.String())
	return ata, nil
}

func (l *Ledger) FindReference(
	ctx context.Context, ref domain.Reference,
) ([]solana.Signature, error) {
	const op = "Ledger.FindReference"

	limit := l.cfg.SignatureLimit
	res, err := l.client.GetSignaturesForAddressWithOpts(
		ctx, ref.PublicKey(), &rpc.GetSignaturesForAddressOpts{
			Limit:      &limit,
			Commitment: l.cfg.Commitment,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sigs := make([]solana.Signature, 0, len(res))
	for _, s := range res {
		if s != nil {
			sigs = append(sigs, s.Signature)
		}
	}
	if len(sigs) == 0 {
		return nil, fmt.Errorf("%s: %s: %w", op, ref, domain.ErrReferenceNotFound)
	}

	// newest first on the wire
	slices.Reverse(sigs)
	return sigs, nil
}

func (l *Ledger) GetTransfer(
	ctx context.Context, sig solana.Signature,
) (domain.ObservedTransfer, error) {
	const op = "Ledger.GetTransfer"

	maxVersion := uint64(0)
	res, err := l.client.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     l.cfg.Commitment,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	if err != nil {
		return domain.ObservedTransfer{}, fmt.Errorf("%s: %s: %w", op, sig, err)
	}
	if res == nil || res.Transaction == nil {
		return domain.ObservedTransfer{}, fmt.Errorf("%s: %s: %w", op, sig, rpc.ErrNotFound)
	}

	tx, err := res.Transaction.GetTransaction()
	if err != nil {
		return domain.ObservedTransfer{}, fmt.Errorf("%s: %s: %w", op, sig, err)
	}

	obs, err := observe(sig, tx, res.Meta)
	if err != nil {
		return domain.ObservedTransfer{}, fmt.Errorf("%s: %s: %w", op, sig, err)
	}
	return obs, nil
}

func (l *Ledger) accountExists(ctx context.Context, account solana.PublicKey) (bool, error) {
	_, err := l.client.GetAccountInfoWithOpts(ctx, account, &rpc.GetAccountInfoOpts{
		Commitment: l.cfg.Commitment,
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, rpc.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// sendAndConfirm signs the instructions with signers, the first one paying
// the fee, and waits until the transaction reaches the configured commitment.
func (l *Ledger) sendAndConfirm(
	ctx context.Context, ixs []solana.Instruction, signers ...solana.PrivateKey,
) (solana.Signature, error) {
	const op = "Ledger.sendAndConfirm"

	if len(signers) == 0 {
		return solana.Signature{}, fmt.Errorf("%s: no fee payer", op)
	}

	blockhash, err := l.LatestBlockhash(ctx)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("%s: %w", op, err)
	}

	tx, err := solana.NewTransaction(
		ixs, blockhash, solana.TransactionPayer(signers[0].PublicKey()),
	)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("%s: %w", op, err)
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		for i := range signers {
			if signers[i].PublicKey().Equals(key) {
				return &signers[i]
			}
		}
		return nil
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("%s: %w", op, err)
	}

	sig, err := l.client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: l.cfg.Commitment,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("%s: send: %w", op, err)
	}

	if err := l.waitConfirmed(ctx, sig); err != nil {
		return sig, fmt.Errorf("%s: %s: %w", op, sig, err)
	}
	return sig, nil
}

func (l *Ledger) waitConfirmed(ctx context.Context, sig solana.Signature) error {
	return retry.Do(ctx, retry.RetryConfig{
		MaxAttempts: l.cfg.ConfirmAttempts,
		Backoff:     retry.LinearBackoff(l.cfg.ConfirmDelay),
		ShouldRetry: func(err error) bool { return !errors.Is(err, errTxFailed) },
	}, func() error {
		res, err := l.client.GetSignatureStatuses(ctx, false, sig)
		if err != nil {
			return err
		}
		if res == nil || len(res.Value) == 0 || res.Value[0] == nil {
			return errPending
		}
		st := res.Value[0]
		if st.Err != nil {
			return fmt.Errorf("%w: %v", errTxFailed, st.Err)
		}
		if reached(st.ConfirmationStatus, l.cfg.Commitment) {
			return nil
		}
		return errPending
	})
}

func reached(status rpc.ConfirmationStatusType, want rpc.CommitmentType) bool {
	switch status {
	case rpc.ConfirmationStatusFinalized:
		return true
	case rpc.ConfirmationStatusConfirmed:
		return want != rpc.CommitmentFinalized
	case rpc.ConfirmationStatusProcessed:
		return want == rpc.CommitmentProcessed
	}
	return false
}
