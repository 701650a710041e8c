package main

import (
	"context"
	"time"

	"github.com/niksmo/solpay-checkout/config"
	"github.com/niksmo/solpay-checkout/internal/app"
	"github.com/niksmo/solpay-checkout/pkg/sigctx"
)

const closeTimeout = 5 * time.Second

func main() {
	sigCtx, closeApp := sigctx.NotifyContext()
	defer closeApp()

	cfg := config.Load()
	cfg.Print()

	checkout := app.New(sigCtx, cfg)

	checkout.Run(closeApp)

	<-sigCtx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	checkout.Close(ctx)
}
