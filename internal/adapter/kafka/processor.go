package kafka

import (
	"context"
	"errors"
	"log/slog"

	"github.com/lovoo/goka"
	"github.com/lovoo/goka/codec"
	"github.com/niksmo/solpay-checkout/internal/core/port"
	"github.com/niksmo/solpay-checkout/pkg/schema"
)

var _ port.CheckoutEventsProcessor = (*CheckoutWatchProcessor)(nil)

const watchingMark = "watching"

// A processor is used for composition.
//
// Running and closing the underlying [goka.Processor]
type processor struct {
	opPrefix string
	gp       *goka.Processor
}

func (p *processor) run(ctx context.Context) {
	const op = "run"
	log := slog.With("op", makeOp(p.opPrefix, op))

	go p.waitForReady(ctx)

	err := p.gp.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("stopped", "err", err)
		return
	}
	log.Info("stopped")
}

func (p *processor) waitForReady(ctx context.Context) {
	const op = "waitForReady"
	log := slog.With("op", makeOp(p.opPrefix, op))

	log.Info("preparing...")
	err := p.gp.WaitForReadyContext(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Error("fall down while preparing", "err", err)
		return
	}
	log.Info("running")
}

func (p *processor) close() {
	const op = "close"
	log := slog.With("op", makeOp(p.opPrefix, op))

	log.Info("closing processor...")
	p.gp.Stop()
	log.Info("processor is closed")
}

// A CheckoutWatchProcessor consumes checkout events and hands every new
// reference to the watcher. The group table remembers seen references, so
// a redelivered event does not start a second poll.
type CheckoutWatchProcessor struct {
	processor processor
	watcher   port.CheckoutWatcher
}

func NewCheckoutWatchProcessor(
	seedBrokers []string,
	inputStream string,
	group string,
	checkoutSerde Serde,
	watcher port.CheckoutWatcher,
	sec Security,
) (*CheckoutWatchProcessor, error) {
	const op = "NewCheckoutWatchProcessor"

	if watcher == nil {
		return nil, opErr(errors.New("watcher is nil"), op)
	}

	applySASLTLS(sec)

	p := &CheckoutWatchProcessor{watcher: watcher}

	gg := goka.DefineGroup(goka.Group(group),
		goka.Input(
			goka.Stream(inputStream),
			newCheckoutEventCodec(checkoutSerde),
			p.processFn,
		),
		goka.Persist(new(codec.String)),
	)

	gp, err := goka.NewProcessor(seedBrokers, gg, withNonlogProcOpt())
	if err != nil {
		return nil, opErr(err, op)
	}

	p.processor = processor{opPrefix: "CheckoutWatchProcessor", gp: gp}
	return p, nil
}

// Run blocks until ctx is done or the processor fails.
func (p *CheckoutWatchProcessor) Run(ctx context.Context) {
	p.processor.run(ctx)
}

func (p *CheckoutWatchProcessor) Close() {
	p.processor.close()
}

func (p *CheckoutWatchProcessor) processFn(ctx goka.Context, msg any) {
	const op = "CheckoutWatchProcessor.processFn"
	log := slog.With("op", op, "key", ctx.Key())

	if ctx.Value() != nil {
		log.Debug("reference is already watched")
		return
	}

	s, ok := msg.(schema.CheckoutEventV1)
	if !ok {
		log.Error("unexpected message type")
		return
	}

	ev, err := checkoutFromSchemaV1(s)
	if err != nil {
		log.Error("skip malformed checkout event", "err", err)
		return
	}

	ctx.SetValue(watchingMark)
	p.watcher.Watch(ctx.Context(), ev)
}
