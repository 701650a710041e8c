package kafka

import (
	"context"
	"log/slog"

	"github.com/lovoo/goka"
	"github.com/niksmo/solpay-checkout/internal/core/domain"
	"github.com/niksmo/solpay-checkout/internal/core/port"
)

var _ port.ConfirmationEmitter = ConfirmationEmitter{}

type gokaEmitter interface {
	EmitSync(key string, msg any) error
	Finish() error
}

// A ConfirmationEmitter publishes terminal poll results keyed by reference.
type ConfirmationEmitter struct {
	ge gokaEmitter
}

func NewConfirmationEmitter(
	seedBrokers []string, topic string, serde Serde, sec Security,
) (ConfirmationEmitter, error) {
	const op = "NewConfirmationEmitter"

	applySASLTLS(sec)

	ge, err := goka.NewEmitter(
		seedBrokers, goka.Stream(topic), newConfirmationEventCodec(serde),
	)
	if err != nil {
		return ConfirmationEmitter{}, opErr(err, op)
	}
	return ConfirmationEmitter{ge}, nil
}

func (e ConfirmationEmitter) EmitConfirmation(
	ctx context.Context, ev domain.ConfirmationEvent,
) error {
	const op = "ConfirmationEmitter.EmitConfirmation"

	if err := ctx.Err(); err != nil {
		return opErr(err, op)
	}

	s := confirmationToSchemaV1(ev)
	if err := e.ge.EmitSync(s.Reference, s); err != nil {
		return opErr(err, op)
	}
	return nil
}

func (e ConfirmationEmitter) Close() {
	const op = "ConfirmationEmitter.Close"
	log := slog.With("op", op)

	log.Info("closing emitter...")
	if err := e.ge.Finish(); err != nil {
		log.Error("failed to finish gracefully", "err", err)
		return
	}
	log.Info("emitter is closed")
}
