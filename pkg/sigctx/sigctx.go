// Package sigctx derives contexts cancelled by termination signals.
package sigctx

import (
	"context"
	"os/signal"
	"syscall"
)

// NotifyContext is [WithSignals] over [context.Background].
func NotifyContext() (context.Context, context.CancelFunc) {
	return WithSignals(context.Background())
}

// WithSignals returns a copy of parent that is done on SIGINT, SIGTERM or
// SIGQUIT, or when the returned stop function is called.
func WithSignals(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
}
