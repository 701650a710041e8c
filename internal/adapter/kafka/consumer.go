package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/niksmo/solpay-checkout/internal/core/domain"
	"github.com/niksmo/solpay-checkout/internal/core/port"
	"github.com/niksmo/solpay-checkout/pkg/schema"
	"github.com/twmb/franz-go/pkg/kgo"
)

var _ port.ConfirmationEventsConsumer = ConfirmationsConsumer{}

type ConsumerOpt func(*consumerOpts) error

func ConsumerClientOpt(
	seedBrokers []string, topic, group string, sec Security,
) ConsumerOpt {
	return func(co *consumerOpts) error {
		kopts := append([]kgo.Opt{
			kgo.SeedBrokers(seedBrokers...),
			kgo.ConsumeTopics(topic),
			kgo.ConsumerGroup(group),
			kgo.DisableAutoCommit(),
		}, sec.kgoOpts()...)

		cl, err := kgo.NewClient(kopts...)
		if err != nil {
			return err
		}
		co.cl = cl
		return nil
	}
}

// ConsumerWithClientOpt sets an already configured client.
func ConsumerWithClientOpt(cl ConsumerClient) ConsumerOpt {
	return func(co *consumerOpts) error {
		if cl == nil {
			return errors.New("client is nil")
		}
		co.cl = cl
		return nil
	}
}

func ConsumerDecoderOpt(decoder Decoder) ConsumerOpt {
	return func(co *consumerOpts) error {
		if decoder == nil {
			return errors.New("decoder is nil")
		}
		co.decoder = decoder
		return nil
	}
}

func ConsumerRecorderOpt(r port.ConfirmationRecorder) ConsumerOpt {
	return func(co *consumerOpts) error {
		if r == nil {
			return errors.New("confirmation recorder is nil")
		}
		co.recorder = r
		return nil
	}
}

type consumerOpts struct {
	cl       ConsumerClient
	decoder  Decoder
	recorder port.ConfirmationRecorder
}

func (co *consumerOpts) apply(opts ...ConsumerOpt) error {
	for _, opt := range opts {
		if err := opt(co); err != nil {
			return err
		}
	}
	if co.cl == nil || co.decoder == nil || co.recorder == nil {
		return ErrTooFewOpts
	}
	return nil
}

type consumerParent interface {
	processFetches(context.Context, kgo.Fetches) error
}

// A consumer is used for composition.
//
// Fetching records from kafka broker and closing underlying [kgo.Client].
type consumer struct {
	opPrefix      string
	parent        consumerParent
	cl            ConsumerClient
	slowDownTimer *time.Timer
}

func (c consumer) run(ctx context.Context) {
	const op = "run"
	log := slog.With("op", makeOp(c.opPrefix, op))

	log.Info("running")

	for {
		select {
		case <-ctx.Done():
			return
		default:
			err := c.consume(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					continue
				}
				log.Error("failed to consume", "err", err)
				c.slowDown(ctx)
			}
		}
	}
}

func (c consumer) consume(ctx context.Context) error {
	const op = "consume"

	fetches, err := c.pollFetches(ctx)
	if err != nil {
		return opErr(err, c.opPrefix, op)
	}

	if fetches.Empty() {
		return nil
	}

	err = c.parent.processFetches(ctx, fetches)
	if err != nil {
		return opErr(err, c.opPrefix, op)
	}

	err = c.commit(ctx)
	if err != nil {
		return opErr(err, c.opPrefix, op)
	}
	return nil
}

func (c consumer) pollFetches(ctx context.Context) (kgo.Fetches, error) {
	const op = "pollFetches"

	fetches := c.cl.PollFetches(ctx)
	if err := fetches.Err0(); err != nil {
		return nil, opErr(err, c.opPrefix, op)
	}

	err := c.handleFetchesErrs(fetches)
	if err != nil {
		return nil, opErr(err, c.opPrefix, op)
	}

	return fetches, nil
}

func (c consumer) handleFetchesErrs(fetches kgo.Fetches) error {
	var errsMessages []string
	fetches.EachError(func(t string, p int32, err error) {
		if err != nil {
			errMsg := fmt.Sprintf(
				"topic %q partition %d: %q", t, p, err,
			)
			errsMessages = append(errsMessages, errMsg)
		}
	})

	if len(errsMessages) != 0 {
		return errors.New(strings.Join(errsMessages, "; "))
	}
	return nil
}

func (c consumer) slowDown(ctx context.Context) {
	c.slowDownTimer.Reset(1 * time.Second)
	select {
	case <-ctx.Done():
	case <-c.slowDownTimer.C:
	}
}

func (c consumer) commit(ctx context.Context) error {
	const op = "commit"

	err := ctx.Err()
	if err != nil {
		return opErr(err, c.opPrefix, op)
	}

	err = c.cl.CommitUncommittedOffsets(ctx)
	if err != nil {
		return opErr(err, c.opPrefix, op)
	}
	return nil
}

func (c consumer) close() {
	const op = "close"
	log := slog.With("op", makeOp(c.opPrefix, op))

	c.slowDownTimer.Stop()

	log.Info("closing consumer...")
	c.cl.Close()
	log.Info("consumer is closed")
}

// A ConfirmationsConsumer consumes watcher results
// then sends them to the recorder.
type ConfirmationsConsumer struct {
	opPrefix string
	consumer consumer
	recorder port.ConfirmationRecorder
	decoder  Decoder
}

func NewConfirmationsConsumer(opts ...ConsumerOpt) (cc ConfirmationsConsumer, err error) {
	const op = "NewConfirmationsConsumer"

	var options consumerOpts
	if err := options.apply(opts...); err != nil {
		return cc, opErr(err, op)
	}

	opPrefix := "ConfirmationsConsumer"

	cc.opPrefix = opPrefix
	cc.recorder = options.recorder
	cc.decoder = options.decoder

	cc.consumer = consumer{
		opPrefix:      opPrefix,
		parent:        cc,
		cl:            options.cl,
		slowDownTimer: time.NewTimer(0),
	}

	return cc, nil
}

func (c ConfirmationsConsumer) Run(ctx context.Context) {
	c.consumer.run(ctx)
}

func (c ConfirmationsConsumer) Close() {
	c.consumer.close()
}

func (c ConfirmationsConsumer) processFetches(
	ctx context.Context, fetches kgo.Fetches,
) error {
	const op = "processFetches"

	for _, ev := range c.toDomain(fetches) {
		if err := c.recorder.RecordConfirmation(ctx, ev); err != nil {
			return opErr(err, c.opPrefix, op)
		}
	}
	return nil
}

// toDomain skips records that can not be decoded, they would block the
// partition forever otherwise.
func (c ConfirmationsConsumer) toDomain(fetches kgo.Fetches) []domain.ConfirmationEvent {
	const op = "toDomain"
	log := slog.With("op", makeOp(c.opPrefix, op))

	var out []domain.ConfirmationEvent
	fetches.EachRecord(func(r *kgo.Record) {
		var s schema.ConfirmationEventV1
		if err := c.decoder.Decode(r.Value, &s); err != nil {
			log.Error("skip undecodable record", "offset", r.Offset, "err", err)
			return
		}
		ev, err := confirmationFromSchemaV1(s)
		if err != nil {
			log.Error("skip malformed record", "offset", r.Offset, "err", err)
			return
		}
		out = append(out, ev)
	})
	return out
}
