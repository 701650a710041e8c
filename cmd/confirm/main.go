// Command confirm polls the ledger for the payment of one checkout
// reference, or decodes a built checkout transaction.
package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/niksmo/solpay-checkout/config"
	"github.com/niksmo/solpay-checkout/internal/adapter/ledger"
	"github.com/niksmo/solpay-checkout/internal/core/domain"
	"github.com/niksmo/solpay-checkout/internal/core/service"
	"github.com/niksmo/solpay-checkout/pkg/sigctx"
	"github.com/spf13/pflag"
)

type flags struct {
	config    string
	reference string
	amount    string
	recipient string
	mint      string
	timeout   time.Duration
	decode    string
}

func parseFlags() flags {
	var f flags
	fs := pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	fs.StringVar(&f.config, "config", "/config.yaml", "config file")
	fs.StringVarP(&f.reference, "reference", "r", "", "checkout reference (base58)")
	fs.StringVarP(&f.amount, "amount", "a", "", "expected amount in tokens, e.g. 2.5")
	fs.StringVar(&f.recipient, "recipient", "", "recipient wallet, defaults to shop.address")
	fs.StringVar(&f.mint, "mint", "", "payment mint, defaults to ledger.payment_mint")
	fs.DurationVarP(&f.timeout, "timeout", "t", 5*time.Minute, "give up after")
	fs.StringVar(&f.decode, "decode", "", "print a base64 checkout transaction and exit")
	_ = fs.Parse(os.Args[1:])
	return f
}

func main() {
	f := parseFlags()

	if f.decode != "" {
		if err := printTransaction(f.decode); err != nil {
			die(err)
		}
		return
	}

	cfg, err := config.LoadFile(f.config)
	if err != nil {
		die(err)
	}

	exp, err := expectation(f, cfg)
	if err != nil {
		die(err)
	}

	sigCtx, stop := sigctx.NotifyContext()
	defer stop()
	ctx, cancel := context.WithTimeout(sigCtx, f.timeout)
	defer cancel()

	l := ledger.Dial(cfg.Ledger.RPCEndpoint, ledger.Config{
		Commitment:     rpc.CommitmentType(cfg.Ledger.Commitment),
		SignatureLimit: cfg.Ledger.SignatureLimit,
	})
	poller := service.NewPoller(l, nil, service.PollerConfig{
		Interval:         cfg.Ledger.PollInterval,
		ResumeOnMismatch: cfg.Ledger.ResumeOnMismatch,
	})

	fmt.Printf("waiting for %s %s to %s, reference %s\n",
		exp.Amount, exp.Mint, exp.Recipient, exp.Reference)

	out, err := poller.Await(ctx, exp)
	if err != nil {
		die(err)
	}

	switch out.State {
	case domain.PollConfirmed:
		fmt.Printf("confirmed: %s (%d ticks)\n", out.Signature, out.Ticks)
	case domain.PollFoundInvalid:
		fmt.Printf("invalid transfer %s: %v\n", out.Signature, out.Err)
		os.Exit(1)
	default:
		fmt.Printf("not paid after %d ticks\n", out.Ticks)
		os.Exit(1)
	}
}

func expectation(f flags, cfg config.Config) (domain.Expectation, error) {
	ref, err := domain.ParseReference(f.reference)
	if err != nil {
		return domain.Expectation{}, err
	}

	amount, err := domain.NewAmount(f.amount)
	if err != nil {
		return domain.Expectation{}, err
	}

	recipient, err := keyOr(f.recipient, cfg.Shop.Address, "recipient")
	if err != nil {
		return domain.Expectation{}, err
	}

	mint, err := keyOr(f.mint, cfg.Ledger.PaymentMint, "mint")
	if err != nil {
		return domain.Expectation{}, err
	}

	return domain.Expectation{
		Recipient: recipient,
		Mint:      mint,
		Amount:    amount,
		Reference: ref,
	}, nil
}

func keyOr(flagValue, fallback, name string) (solana.PublicKey, error) {
	s := flagValue
	if s == "" {
		s = fallback
	}
	if s == "" {
		return solana.PublicKey{}, fmt.Errorf("%s is not set", name)
	}
	pk, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%s: %w", name, err)
	}
	return pk, nil
}

func printTransaction(b64 string) error {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return err
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return err
	}
	fmt.Println(tx.String())
	return nil
}

func die(err error) {
	fmt.Fprintf(os.Stderr, "confirm: %v\n", err)
	os.Exit(2)
}
