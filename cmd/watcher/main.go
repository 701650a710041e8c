package main

import (
	"context"
	"time"

	"github.com/niksmo/solpay-checkout/config"
	"github.com/niksmo/solpay-checkout/internal/app"
	"github.com/niksmo/solpay-checkout/pkg/sigctx"
)

const closeTimeout = 10 * time.Second

func main() {
	sigCtx, closeApp := sigctx.NotifyContext()
	defer closeApp()

	cfg := config.Load()
	cfg.Print()

	watcher := app.NewWatcher(sigCtx, cfg)

	watcher.Run(closeApp)

	<-sigCtx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	watcher.Close(ctx)
}
