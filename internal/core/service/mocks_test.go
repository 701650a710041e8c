package service_test

import (
	"context"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/niksmo/solpay-checkout/internal/core/domain"
	"github.com/stretchr/testify/mock"
)

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	args := m.Called(ctx)
	return args.Get(0).(solana.Hash), args.Error(1)
}

func (m *MockLedger) MintDecimals(
	ctx context.Context, mint solana.PublicKey,
) (uint8, error) {
	args := m.Called(ctx, mint)
	return args.Get(0).(uint8), args.Error(1)
}

func (m *MockLedger) TokenBalance(
	ctx context.Context, account solana.PublicKey,
) (uint64, error) {
	args := m.Called(ctx, account)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockLedger) EnsureTokenAccount(
	ctx context.Context, payer solana.PrivateKey, mint, owner solana.PublicKey,
) (solana.PublicKey, error) {
	args := m.Called(ctx, payer, mint, owner)
	return args.Get(0).(solana.PublicKey), args.Error(1)
}

type MockFinder struct {
	mock.Mock
}

func (m *MockFinder) FindReference(
	ctx context.Context, ref domain.Reference,
) ([]solana.Signature, error) {
	args := m.Called(ctx, ref)
	sigs, _ := args.Get(0).([]solana.Signature)
	return sigs, args.Error(1)
}

func (m *MockFinder) GetTransfer(
	ctx context.Context, sig solana.Signature,
) (domain.ObservedTransfer, error) {
	args := m.Called(ctx, sig)
	return args.Get(0).(domain.ObservedTransfer), args.Error(1)
}

type MockBuilder struct {
	mock.Mock
}

func (m *MockBuilder) Build(
	ctx context.Context, req domain.BuildRequest,
) (domain.BuiltTransaction, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.BuiltTransaction), args.Error(1)
}

type MockEventsProducer struct {
	mock.Mock
}

func (m *MockEventsProducer) ProduceCheckout(
	ctx context.Context, ev domain.CheckoutEvent,
) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

type MockAwaiter struct {
	mock.Mock
}

func (m *MockAwaiter) Await(
	ctx context.Context, exp domain.Expectation,
) (domain.PollOutcome, error) {
	args := m.Called(ctx, exp)
	return args.Get(0).(domain.PollOutcome), args.Error(1)
}

type MockEmitter struct {
	mock.Mock
}

func (m *MockEmitter) EmitConfirmation(
	ctx context.Context, ev domain.ConfirmationEvent,
) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

func (m *MockEmitter) Close() {
	m.Called()
}

type recordingObserver struct {
	mu     sync.Mutex
	states []domain.PollState
}

func (o *recordingObserver) ObservePoll(s domain.PollState) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.states = append(o.states, s)
}

func (o *recordingObserver) snapshot() []domain.PollState {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]domain.PollState, len(o.states))
	copy(out, o.states)
	return out
}

func newKey() solana.PublicKey {
	return solana.NewWallet().PublicKey()
}
