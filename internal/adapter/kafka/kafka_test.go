package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/niksmo/solpay-checkout/internal/core/domain"
	"github.com/niksmo/solpay-checkout/pkg/schema"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
)

type MockProducerClient struct {
	mock.Mock
}

func (m *MockProducerClient) ProduceSync(
	ctx context.Context, rs ...*kgo.Record,
) kgo.ProduceResults {
	args := m.Called(ctx, rs)
	return args.Get(0).(kgo.ProduceResults)
}

func (m *MockProducerClient) Close() {
	m.Called()
}

type MockConsumerClient struct {
	mock.Mock
}

func (m *MockConsumerClient) PollFetches(ctx context.Context) kgo.Fetches {
	args := m.Called(ctx)
	return args.Get(0).(kgo.Fetches)
}

func (m *MockConsumerClient) CommitUncommittedOffsets(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockConsumerClient) Close() {
	m.Called()
}

type MockSerde struct {
	mock.Mock
}

func (m *MockSerde) Encode(v any) ([]byte, error) {
	args := m.Called(v)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

func (m *MockSerde) Decode(data []byte, v any) error {
	args := m.Called(data, v)
	return args.Error(0)
}

type MockGokaEmitter struct {
	mock.Mock
}

func (m *MockGokaEmitter) EmitSync(key string, msg any) error {
	args := m.Called(key, msg)
	return args.Error(0)
}

func (m *MockGokaEmitter) Finish() error {
	return m.Called().Error(0)
}

type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) RecordConfirmation(
	ctx context.Context, ev domain.ConfirmationEvent,
) error {
	return m.Called(ctx, ev).Error(0)
}

func newKey() solana.PublicKey {
	return solana.NewWallet().PublicKey()
}

func checkoutEvent() domain.CheckoutEvent {
	return domain.CheckoutEvent{
		Reference:  domain.Reference(newKey()),
		Buyer:      newKey(),
		Recipient:  newKey(),
		Mint:       newKey(),
		Amount:     domain.MustAmount("5"),
		MinorUnits: 5_000_000,
		Decimals:   6,
		Discount: domain.DiscountDecision{
			Kind:       domain.DiscountRedeem,
			Units:      5,
			Multiplier: decimal.RequireFromString("0.5"),
		},
		CreatedAt: time.UnixMilli(1_700_000_000_000).UTC(),
	}
}

func TestCheckoutSchemaMapping(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		ev := checkoutEvent()

		s, err := checkoutToSchemaV1(ev)
		require.NoError(t, err)
		assert.Equal(t, "redeem", s.Discount.Kind)
		assert.Equal(t, "0.5", s.Discount.Multiplier)

		got, err := checkoutFromSchemaV1(s)
		require.NoError(t, err)
		assert.Equal(t, ev.Reference, got.Reference)
		assert.Equal(t, ev.Buyer, got.Buyer)
		assert.Equal(t, ev.Recipient, got.Recipient)
		assert.Equal(t, ev.Mint, got.Mint)
		assert.True(t, ev.Amount.Equal(got.Amount))
		assert.Equal(t, ev.MinorUnits, got.MinorUnits)
		assert.Equal(t, ev.Decimals, got.Decimals)
		assert.Equal(t, ev.Discount.Kind, got.Discount.Kind)
		assert.True(t, ev.Discount.Multiplier.Equal(got.Discount.Multiplier))
		assert.True(t, ev.CreatedAt.Equal(got.CreatedAt))
	})

	t.Run("Malformed", func(t *testing.T) {
		s, err := checkoutToSchemaV1(checkoutEvent())
		require.NoError(t, err)

		bad := s
		bad.Reference = "nope"
		_, err = checkoutFromSchemaV1(bad)
		assert.ErrorIs(t, err, domain.ErrInvalidReference)

		bad = s
		bad.Discount.Kind = "giveaway"
		_, err = checkoutFromSchemaV1(bad)
		assert.Error(t, err)

		bad = s
		bad.MinorUnits = -1
		_, err = checkoutFromSchemaV1(bad)
		assert.Error(t, err)
	})
}

func TestConfirmationSchemaMapping(t *testing.T) {
	ev := domain.ConfirmationEvent{
		Reference:  domain.Reference(newKey()),
		State:      domain.PollConfirmed,
		Signature:  solana.Signature{1, 2, 3},
		ObservedAt: time.UnixMilli(1_700_000_000_000).UTC(),
	}

	s := confirmationToSchemaV1(ev)
	require.NotNil(t, s.Signature)
	assert.Equal(t, "confirmed", s.State)

	got, err := confirmationFromSchemaV1(s)
	require.NoError(t, err)
	assert.Equal(t, ev, got)

	ev.Signature = solana.Signature{}
	ev.State = domain.PollCancelled
	ev.Reason = "watch timeout"
	s = confirmationToSchemaV1(ev)
	assert.Nil(t, s.Signature)

	s.State = "polling"
	_, err = confirmationFromSchemaV1(s)
	assert.Error(t, err)
}

func TestCheckoutEventsProducer(t *testing.T) {
	t.Run("Produce", func(t *testing.T) {
		cl, serde := new(MockProducerClient), new(MockSerde)
		ev := checkoutEvent()
		payload := []byte("payload")

		serde.On("Encode", mock.AnythingOfType("schema.CheckoutEventV1")).Return(payload, nil)
		cl.On("ProduceSync", mock.Anything, mock.MatchedBy(func(rs []*kgo.Record) bool {
			return len(rs) == 1 &&
				string(rs[0].Key) == ev.Reference.String() &&
				string(rs[0].Value) == "payload"
		})).Return(kgo.ProduceResults{{}})

		p, err := NewCheckoutEventsProducer(
			ProducerWithClientOpt(cl),
			ProducerEncoderOpt(serde),
		)
		require.NoError(t, err)

		require.NoError(t, p.ProduceCheckout(t.Context(), ev))
		cl.AssertExpectations(t)
	})

	t.Run("ProduceError", func(t *testing.T) {
		cl, serde := new(MockProducerClient), new(MockSerde)
		serde.On("Encode", mock.Anything).Return([]byte("payload"), nil)
		cl.On("ProduceSync", mock.Anything, mock.Anything).
			Return(kgo.ProduceResults{{Err: errors.New("not leader")}})

		p, err := NewCheckoutEventsProducer(
			ProducerWithClientOpt(cl),
			ProducerEncoderOpt(serde),
		)
		require.NoError(t, err)

		assert.Error(t, p.ProduceCheckout(t.Context(), checkoutEvent()))
	})

	t.Run("TooFewOpts", func(t *testing.T) {
		assert.Panics(t, func() {
			_, _ = NewCheckoutEventsProducer(ProducerEncoderOpt(new(MockSerde)))
		})
	})
}

func TestConfirmationEmitter(t *testing.T) {
	ge := new(MockGokaEmitter)
	ev := domain.ConfirmationEvent{
		Reference: domain.Reference(newKey()),
		State:     domain.PollFoundInvalid,
		Reason:    "amount 1, expected 2",
	}

	ge.On("EmitSync", ev.Reference.String(), mock.MatchedBy(func(s schema.ConfirmationEventV1) bool {
		return s.State == "found_invalid" && s.Reason == ev.Reason && s.Signature == nil
	})).Return(nil).Once()
	ge.On("Finish").Return(nil).Once()

	e := ConfirmationEmitter{ge}
	require.NoError(t, e.EmitConfirmation(t.Context(), ev))
	e.Close()

	ge.AssertExpectations(t)
}

func TestConfirmationsConsumer(t *testing.T) {
	cl, serde, recorder := new(MockConsumerClient), new(MockSerde), new(MockRecorder)
	ref := domain.Reference(newKey())

	good, bad := []byte("good"), []byte("bad")
	fetches := kgo.Fetches{{Topics: []kgo.FetchTopic{{
		Topic: "payment_confirmations",
		Partitions: []kgo.FetchPartition{{
			Records: []*kgo.Record{{Value: bad}, {Value: good}},
		}},
	}}}}

	serde.On("Decode", bad, mock.Anything).Return(errors.New("unknown schema id"))
	serde.On("Decode", good, mock.Anything).
		Run(func(args mock.Arguments) {
			s := args.Get(1).(*schema.ConfirmationEventV1)
			s.Reference = ref.String()
			s.State = "confirmed"
		}).
		Return(nil)

	recorder.On("RecordConfirmation", mock.Anything, mock.MatchedBy(func(ev domain.ConfirmationEvent) bool {
		return ev.Reference == ref && ev.State == domain.PollConfirmed
	})).Return(nil).Once()

	cl.On("PollFetches", mock.Anything).Return(fetches).Once()
	cl.On("CommitUncommittedOffsets", mock.Anything).Return(nil).Once()

	c, err := NewConfirmationsConsumer(
		ConsumerWithClientOpt(cl),
		ConsumerDecoderOpt(serde),
		ConsumerRecorderOpt(recorder),
	)
	require.NoError(t, err)

	require.NoError(t, c.consumer.consume(t.Context()))
	recorder.AssertExpectations(t)
	cl.AssertExpectations(t)
}
