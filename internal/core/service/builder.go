package service

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/niksmo/solpay-checkout/internal/core/domain"
	"github.com/niksmo/solpay-checkout/internal/core/port"
	"github.com/shopspring/decimal"
)

var _ port.TransactionBuilder = Builder{}

// BuilderConfig holds the public addresses the builder transfers between.
type BuilderConfig struct {
	Shop        solana.PublicKey
	PaymentMint solana.PublicKey
	CouponMint  solana.PublicKey
}

// A Builder assembles the partially shop-signed checkout transaction.
//
// The shop key is injected once and only read afterwards.
type Builder struct {
	ledger   port.TokenLedger
	discount port.DiscountEvaluator
	cfg      BuilderConfig
	shopKey  solana.PrivateKey
}

func NewBuilder(
	ledger port.TokenLedger,
	discount port.DiscountEvaluator,
	cfg BuilderConfig,
	shopKey solana.PrivateKey,
) Builder {
	return Builder{
		ledger:   ledger,
		discount: discount,
		cfg:      cfg,
		shopKey:  shopKey,
	}
}

type checkoutAccounts struct {
	buyerPayment solana.PublicKey
	shopPayment  solana.PublicKey
	buyerCoupon  solana.PublicKey
	shopCoupon   solana.PublicKey
}

func (b Builder) Build(
	ctx context.Context, req domain.BuildRequest,
) (domain.BuiltTransaction, error) {
	const op = "Builder.Build"
	log := slog.With("op", op)

	if err := b.checkRequest(req); err != nil {
		return domain.BuiltTransaction{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := ctx.Err(); err != nil {
		return domain.BuiltTransaction{}, fmt.Errorf("%s: %w", op, err)
	}

	accs, err := b.resolveAccounts(ctx, req.Buyer)
	if err != nil {
		return domain.BuiltTransaction{}, fmt.Errorf("%s: %w", op, err)
	}

	couponDecimals, err := b.ledger.MintDecimals(ctx, b.cfg.CouponMint)
	if err != nil {
		return domain.BuiltTransaction{}, ledgerErr(op, "coupon mint", err)
	}

	decision, err := b.decide(ctx, req, accs.buyerCoupon, couponDecimals)
	if err != nil {
		return domain.BuiltTransaction{}, fmt.Errorf("%s: %w", op, err)
	}

	paymentDecimals, err := b.ledger.MintDecimals(ctx, b.cfg.PaymentMint)
	if err != nil {
		return domain.BuiltTransaction{}, ledgerErr(op, "payment mint", err)
	}

	charge := req.BaseAmount.Scale(decision.Multiplier)
	chargeUnits, err := charge.MinorUnits(paymentDecimals)
	if err != nil {
		return domain.BuiltTransaction{}, fmt.Errorf("%s: %w", op, err)
	}
	if chargeUnits == 0 {
		return domain.BuiltTransaction{}, fmt.Errorf("%s: %w", op, domain.ErrNoCharge)
	}

	couponUnits, err := domain.AmountFromMinor(decision.Units, 0).MinorUnits(couponDecimals)
	if err != nil {
		return domain.BuiltTransaction{}, fmt.Errorf("%s: coupon units: %w", op, err)
	}

	paymentIx, err := paymentInstruction(
		chargeUnits, paymentDecimals, b.cfg.PaymentMint, req.Buyer, accs, req.Reference,
	)
	if err != nil {
		return domain.BuiltTransaction{}, fmt.Errorf("%s: %w", op, err)
	}

	couponIx, err := couponInstruction(
		couponUnits, couponDecimals, b.cfg.CouponMint, b.shopKey.PublicKey(), req.Buyer, accs, decision,
	)
	if err != nil {
		return domain.BuiltTransaction{}, fmt.Errorf("%s: %w", op, err)
	}

	blockhash, err := b.ledger.LatestBlockhash(ctx)
	if err != nil {
		return domain.BuiltTransaction{}, ledgerErr(op, "blockhash", err)
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{paymentIx, couponIx},
		blockhash,
		solana.TransactionPayer(req.Buyer),
	)
	if err != nil {
		return domain.BuiltTransaction{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := partialSign(tx, b.shopKey); err != nil {
		return domain.BuiltTransaction{}, fmt.Errorf("%s: %w", op, err)
	}

	raw, err := tx.MarshalBinary()
	if err != nil {
		return domain.BuiltTransaction{}, fmt.Errorf("%s: serialize: %w", op, err)
	}

	log.Debug("transaction built",
		"reference", req.Reference.String(),
		"buyer", req.Buyer.String(),
		"charge", charge.String(),
		"discount", decision.Kind.String(),
	)

	return domain.BuiltTransaction{
		Transaction: base64.StdEncoding.EncodeToString(raw),
		Message:     checkoutMessage(decision),
		Buyer:       req.Buyer,
		Reference:   req.Reference,
		Amount:      charge,
		MinorUnits:  chargeUnits,
		Decimals:    paymentDecimals,
		Discount:    decision,
	}, nil
}

// checkRequest runs every precondition before the ledger is touched.
func (b Builder) checkRequest(req domain.BuildRequest) error {
	if !req.BaseAmount.IsPositive() {
		return domain.ErrNoCharge
	}
	if req.Reference.IsZero() {
		return domain.ErrMissingReference
	}
	if req.Buyer.IsZero() {
		return domain.ErrMissingAccount
	}
	if len(b.shopKey) != ed25519.PrivateKeySize {
		return domain.ErrShopCredential
	}
	if !b.cfg.Shop.IsZero() && !b.cfg.Shop.Equals(b.shopKey.PublicKey()) {
		return fmt.Errorf("%w: key does not match shop address", domain.ErrShopCredential)
	}
	return nil
}

func (b Builder) resolveAccounts(
	ctx context.Context, buyer solana.PublicKey,
) (accs checkoutAccounts, err error) {
	const op = "Builder.resolveAccounts"
	shop := b.shopKey.PublicKey()

	accs.buyerPayment, _, err = solana.FindAssociatedTokenAddress(buyer, b.cfg.PaymentMint)
	if err != nil {
		return accs, fmt.Errorf("%s: buyer payment account: %w", op, err)
	}
	accs.shopPayment, _, err = solana.FindAssociatedTokenAddress(shop, b.cfg.PaymentMint)
	if err != nil {
		return accs, fmt.Errorf("%s: shop payment account: %w", op, err)
	}
	accs.shopCoupon, _, err = solana.FindAssociatedTokenAddress(shop, b.cfg.CouponMint)
	if err != nil {
		return accs, fmt.Errorf("%s: shop coupon account: %w", op, err)
	}

	// the buyer may have never held coupons; the shop pays for the account
	accs.buyerCoupon, err = b.ledger.EnsureTokenAccount(ctx, b.shopKey, b.cfg.CouponMint, buyer)
	if err != nil {
		return accs, ledgerErr(op, "buyer coupon account", err)
	}
	return accs, nil
}

func (b Builder) decide(
	ctx context.Context,
	req domain.BuildRequest,
	buyerCoupon solana.PublicKey,
	couponDecimals uint8,
) (domain.DiscountDecision, error) {
	const op = "Builder.decide"

	if req.Discount != nil {
		return *req.Discount, nil
	}

	balance, err := b.ledger.TokenBalance(ctx, buyerCoupon)
	if err != nil {
		return domain.DiscountDecision{}, ledgerErr(op, "coupon balance", err)
	}

	whole := decimal.NewFromUint64(balance).Shift(-int32(couponDecimals)).Floor()
	return b.discount.Evaluate(whole.BigInt().Uint64()), nil
}

func paymentInstruction(
	units uint64,
	decimals uint8,
	mint solana.PublicKey,
	buyer solana.PublicKey,
	accs checkoutAccounts,
	ref domain.Reference,
) (solana.Instruction, error) {
	metas, data, err := transferChecked(
		units, decimals, accs.buyerPayment, mint, accs.shopPayment, buyer,
	)
	if err != nil {
		return nil, fmt.Errorf("payment instruction: %w", err)
	}

	// the reference is how the transaction is found later
	metas = append(metas, solana.NewAccountMeta(ref.PublicKey(), false, false))
	return solana.NewInstruction(solana.TokenProgramID, metas, data), nil
}

func couponInstruction(
	units uint64,
	decimals uint8,
	mint solana.PublicKey,
	shop solana.PublicKey,
	buyer solana.PublicKey,
	accs checkoutAccounts,
	decision domain.DiscountDecision,
) (solana.Instruction, error) {
	source, dest, owner := accs.shopCoupon, accs.buyerCoupon, shop
	if decision.Kind == domain.DiscountRedeem {
		source, dest, owner = accs.buyerCoupon, accs.shopCoupon, buyer
	}

	metas, data, err := transferChecked(units, decimals, source, mint, dest, owner)
	if err != nil {
		return nil, fmt.Errorf("coupon instruction: %w", err)
	}

	metas = withSigner(metas, shop)
	return solana.NewInstruction(solana.TokenProgramID, metas, data), nil
}

func transferChecked(
	units uint64,
	decimals uint8,
	source, mint, dest, owner solana.PublicKey,
) (solana.AccountMetaSlice, []byte, error) {
	ix, err := token.NewTransferCheckedInstruction(
		units, decimals, source, mint, dest, owner, nil,
	).ValidateAndBuild()
	if err != nil {
		return nil, nil, err
	}

	data, err := ix.Data()
	if err != nil {
		return nil, nil, err
	}
	return ix.Accounts(), data, nil
}

// withSigner marks key as a signer of the instruction, appending it when absent.
func withSigner(metas solana.AccountMetaSlice, key solana.PublicKey) solana.AccountMetaSlice {
	for _, m := range metas {
		if m.PublicKey.Equals(key) {
			m.IsSigner = true
			return metas
		}
	}
	return append(metas, solana.NewAccountMeta(key, false, true))
}

// partialSign adds the signature of key and leaves every other slot zeroed
// for the wallet to fill.
func partialSign(tx *solana.Transaction, key solana.PrivateKey) error {
	msg, err := tx.Message.MarshalBinary()
	if err != nil {
		return fmt.Errorf("partial sign: %w", err)
	}

	n := int(tx.Message.Header.NumRequiredSignatures)
	idx := -1
	for i := 0; i < n && i < len(tx.Message.AccountKeys); i++ {
		if tx.Message.AccountKeys[i].Equals(key.PublicKey()) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return errors.New("partial sign: key is not a required signer")
	}

	sig, err := key.Sign(msg)
	if err != nil {
		return fmt.Errorf("partial sign: %w", err)
	}

	if len(tx.Signatures) != n {
		tx.Signatures = make([]solana.Signature, n)
	}
	tx.Signatures[idx] = sig
	return nil
}

func checkoutMessage(d domain.DiscountDecision) string {
	if d.Applied() {
		off := decimal.NewFromInt(1).Sub(d.Multiplier).Shift(2)
		return fmt.Sprintf(
			"Thanks for your order! %d coupons redeemed for %s%% off 🔥",
			d.Units, off.String(),
		)
	}
	return fmt.Sprintf(
		"Thanks for your order! You earned %d coupon 🔥", d.Units,
	)
}

func ledgerErr(op, what string, err error) error {
	return fmt.Errorf("%s: %s: %w: %w", op, what, domain.ErrLedger, err)
}
