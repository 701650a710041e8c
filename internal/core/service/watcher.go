package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/niksmo/solpay-checkout/internal/core/domain"
	"github.com/niksmo/solpay-checkout/internal/core/port"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultWatchTimeout = 10 * time.Minute
	DefaultWatchLimit   = 256
)

// A Watcher runs one confirmation poll per published checkout and emits
// the terminal result.
type Watcher struct {
	awaiter port.ConfirmationAwaiter
	emitter port.ConfirmationEmitter
	timeout time.Duration
	group   *errgroup.Group
	now     func() time.Time
}

func NewWatcher(
	awaiter port.ConfirmationAwaiter,
	emitter port.ConfirmationEmitter,
	timeout time.Duration,
	limit int,
) *Watcher {
	if timeout <= 0 {
		timeout = DefaultWatchTimeout
	}
	if limit <= 0 {
		limit = DefaultWatchLimit
	}
	g := new(errgroup.Group)
	g.SetLimit(limit)
	return &Watcher{
		awaiter: awaiter,
		emitter: emitter,
		timeout: timeout,
		group:   g,
		now:     time.Now,
	}
}

// Watch starts polling for ev in the background.
//
// Blocks while the number of running polls is at the limit.
func (w *Watcher) Watch(ctx context.Context, ev domain.CheckoutEvent) {
	w.group.Go(func() error {
		w.watch(ctx, ev)
		return nil
	})
}

// Wait blocks until every started poll returns.
func (w *Watcher) Wait() {
	_ = w.group.Wait()
}

func (w *Watcher) watch(ctx context.Context, ev domain.CheckoutEvent) {
	const op = "Watcher.watch"
	log := slog.With("op", op, "reference", ev.Reference.String())

	pollCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	out, err := w.awaiter.Await(pollCtx, domain.Expectation{
		Recipient: ev.Recipient,
		Mint:      ev.Mint,
		Amount:    ev.Amount,
		Reference: ev.Reference,
	})
	if err != nil {
		log.Error("failed to await confirmation", "err", err)
		return
	}

	if ctx.Err() != nil {
		log.Info("watch stopped by shutdown")
		return
	}

	result := domain.ConfirmationEvent{
		Reference:  ev.Reference,
		State:      out.State,
		Signature:  out.Signature,
		ObservedAt: w.now().UTC(),
	}
	switch {
	case out.Err != nil:
		result.Reason = out.Err.Error()
	case out.State == domain.PollCancelled:
		result.Reason = "watch timeout"
	}

	if err := w.emitter.EmitConfirmation(ctx, result); err != nil {
		log.Error("failed to emit confirmation", "err", err)
		return
	}
	log.Info("confirmation emitted", "state", out.State.String())
}
