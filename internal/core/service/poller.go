package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/niksmo/solpay-checkout/internal/core/domain"
	"github.com/niksmo/solpay-checkout/internal/core/port"
)

var _ port.ConfirmationAwaiter = Poller{}

const DefaultPollInterval = 500 * time.Millisecond

type PollerConfig struct {
	Interval time.Duration

	// ResumeOnMismatch keeps polling after an invalid transfer was found,
	// waiting for a corrected transaction under the same reference.
	ResumeOnMismatch bool
}

// A Poller watches the ledger for a transaction that references a checkout
// and validates it.
//
// It only reads, so cancelling at any tick leaves nothing behind.
type Poller struct {
	finder   port.ReferenceFinder
	observer port.PollObserver
	cfg      PollerConfig
}

func NewPoller(
	finder port.ReferenceFinder, observer port.PollObserver, cfg PollerConfig,
) Poller {
	if observer == nil {
		observer = nopPollObserver{}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollInterval
	}
	return Poller{finder, observer, cfg}
}

// Await polls until the transfer is confirmed, found invalid or ctx is done.
//
// Cancellation is reported as [domain.PollCancelled] with a nil error.
func (p Poller) Await(
	ctx context.Context, exp domain.Expectation,
) (domain.PollOutcome, error) {
	const op = "Poller.Await"
	log := slog.With("op", op, "reference", exp.Reference.String())

	if exp.Reference.IsZero() {
		return domain.PollOutcome{}, fmt.Errorf("%s: %w", op, domain.ErrMissingReference)
	}

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	rejected := make(map[solana.Signature]struct{})
	var ticks int

	for {
		select {
		case <-ctx.Done():
			log.Debug("cancelled", "ticks", ticks)
			return domain.PollOutcome{State: domain.PollCancelled, Ticks: ticks}, nil
		case <-ticker.C:
		}
		if ctx.Err() != nil {
			return domain.PollOutcome{State: domain.PollCancelled, Ticks: ticks}, nil
		}

		ticks++
		out := p.tick(ctx, exp, rejected)
		out.Ticks = ticks
		p.observer.ObservePoll(out.State)

		switch out.State {
		case domain.PollConfirmed:
			log.Info("payment confirmed", "signature", out.Signature.String(), "ticks", ticks)
			return out, nil
		case domain.PollFoundInvalid:
			log.Warn("invalid transfer for reference",
				"signature", out.Signature.String(), "err", out.Err)
			if !p.cfg.ResumeOnMismatch {
				return out, nil
			}
			rejected[out.Signature] = struct{}{}
		}
	}
}

func (p Poller) tick(
	ctx context.Context,
	exp domain.Expectation,
	rejected map[solana.Signature]struct{},
) domain.PollOutcome {
	const op = "Poller.tick"
	log := slog.With("op", op)

	polling := domain.PollOutcome{State: domain.PollPolling}

	sigs, err := p.finder.FindReference(ctx, exp.Reference)
	if err != nil {
		if !errors.Is(err, domain.ErrReferenceNotFound) && ctx.Err() == nil {
			log.Error("failed to find reference", "err", err)
		}
		return polling
	}

	sig, ok := nextSignature(sigs, rejected)
	if !ok {
		return polling
	}

	obs, err := p.finder.GetTransfer(ctx, sig)
	if err != nil {
		if ctx.Err() == nil {
			log.Error("failed to get transfer", "signature", sig.String(), "err", err)
		}
		return polling
	}

	if err := ValidateTransfer(obs, exp); err != nil {
		return domain.PollOutcome{
			State:     domain.PollFoundInvalid,
			Signature: sig,
			Err:       err,
		}
	}

	return domain.PollOutcome{State: domain.PollConfirmed, Signature: sig}
}

// nextSignature picks the oldest signature not rejected yet.
func nextSignature(
	sigs []solana.Signature, rejected map[solana.Signature]struct{},
) (solana.Signature, bool) {
	for _, s := range sigs {
		if _, ok := rejected[s]; !ok {
			return s, true
		}
	}
	return solana.Signature{}, false
}

type nopPollObserver struct{}

func (nopPollObserver) ObservePoll(domain.PollState) {}
