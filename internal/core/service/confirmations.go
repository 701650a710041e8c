package service

import (
	"context"
	"log/slog"

	"github.com/niksmo/solpay-checkout/internal/core/domain"
	"github.com/niksmo/solpay-checkout/internal/core/port"
)

var _ port.ConfirmationRecorder = ConfirmationLog{}

// A ConfirmationLog records confirmation results reported by watchers.
type ConfirmationLog struct {
	observer port.ConfirmationObserver
}

func NewConfirmationLog(observer port.ConfirmationObserver) ConfirmationLog {
	return ConfirmationLog{observer}
}

func (c ConfirmationLog) RecordConfirmation(
	ctx context.Context, ev domain.ConfirmationEvent,
) error {
	const op = "ConfirmationLog.RecordConfirmation"
	log := slog.With(
		"op", op,
		"reference", ev.Reference.String(),
		"state", ev.State.String(),
	)

	switch ev.State {
	case domain.PollConfirmed:
		log.Info("checkout paid", "signature", ev.Signature.String())
	case domain.PollFoundInvalid:
		log.Warn("checkout paid incorrectly",
			"signature", ev.Signature.String(), "reason", ev.Reason)
	default:
		log.Info("checkout not paid", "reason", ev.Reason)
	}

	if c.observer != nil {
		c.observer.ObserveConfirmation(ev.State)
	}
	return nil
}
