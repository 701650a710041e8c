// Command couponmint provisions the loyalty coupon token: a new mint with
// no decimals and an initial supply held by the shop.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/niksmo/solpay-checkout/config"
	"github.com/niksmo/solpay-checkout/internal/adapter/ledger"
	"github.com/niksmo/solpay-checkout/pkg/sigctx"
	"github.com/spf13/pflag"
)

const couponDecimals = 0

func main() {
	fs := pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	cfgPath := fs.String("config", "/config.yaml", "config file")
	supply := fs.Uint64("supply", 1_000_000, "coupons minted to the shop")
	timeout := fs.Duration("timeout", 2*time.Minute, "give up after")
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.LoadFile(*cfgPath)
	if err != nil {
		die(err)
	}

	if cfg.Shop.PrivateKey == "" {
		die(fmt.Errorf("shop private key is not set"))
	}
	shopKey, err := solana.PrivateKeyFromBase58(cfg.Shop.PrivateKey)
	if err != nil {
		die(fmt.Errorf("shop private key: %w", err))
	}

	sigCtx, stop := sigctx.NotifyContext()
	defer stop()
	ctx, cancel := context.WithTimeout(sigCtx, *timeout)
	defer cancel()

	l := ledger.Dial(cfg.Ledger.RPCEndpoint, ledger.Config{
		Commitment: rpc.CommitmentType(cfg.Ledger.Commitment),
	})

	fmt.Printf("creating coupon mint, authority %s\n", shopKey.PublicKey())
	mint, err := l.CreateMint(ctx, shopKey, couponDecimals)
	if err != nil {
		die(err)
	}
	fmt.Printf("mint: %s\n", mint)

	account, err := l.MintTo(ctx, shopKey, mint, shopKey.PublicKey(), *supply)
	if err != nil {
		die(err)
	}
	fmt.Printf("minted %d coupons to %s\n", *supply, account)
	fmt.Printf("\nset ledger.coupon_mint: %q\n", mint.String())
}

func die(err error) {
	fmt.Fprintf(os.Stderr, "couponmint: %v\n", err)
	os.Exit(2)
}
