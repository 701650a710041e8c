package httphandler_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/niksmo/solpay-checkout/internal/adapter/httphandler"
	"github.com/niksmo/solpay-checkout/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCheckouter struct {
	mock.Mock
}

func (m *MockCheckouter) Descriptor() domain.Descriptor {
	return m.Called().Get(0).(domain.Descriptor)
}

func (m *MockCheckouter) Checkout(
	ctx context.Context, req domain.CheckoutRequest,
) (domain.BuiltTransaction, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.BuiltTransaction), args.Error(1)
}

func (m *MockCheckouter) TransferLink(
	ctx context.Context, charge domain.ChargeRequest, ref string,
) (domain.TransferLink, error) {
	args := m.Called(ctx, charge, ref)
	return args.Get(0).(domain.TransferLink), args.Error(1)
}

type MockRequestObserver struct {
	mock.Mock
}

func (m *MockRequestObserver) ObserveRequest(
	route, method string, status int, d time.Duration,
) {
	m.Called(route, method, status, d)
}

func newServer(svc *MockCheckouter) http.Handler {
	mux := http.NewServeMux()
	httphandler.RegisterCheckout(mux, svc)
	return httphandler.AllowJSON(mux)
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestGetDescriptor(t *testing.T) {
	svc := new(MockCheckouter)
	svc.On("Descriptor").Return(domain.Descriptor{
		Label: "Beers Inc", Icon: "https://freesvg.org/img/beer1.png",
	})

	rec := do(newServer(svc), http.MethodGet, "/api/makeTransaction", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	got := decode[httphandler.Descriptor](t, rec)
	assert.Equal(t, "Beers Inc", got.Label)
	assert.Equal(t, "https://freesvg.org/img/beer1.png", got.Icon)
}

func TestPostTransaction(t *testing.T) {
	ref := solana.NewWallet().PublicKey().String()
	account := solana.NewWallet().PublicKey().String()
	target := fmt.Sprintf("/api/makeTransaction?pack-of-beer=2&reference=%s", ref)
	body := fmt.Sprintf(`{"account":%q}`, account)

	t.Run("Success", func(t *testing.T) {
		svc := new(MockCheckouter)
		svc.On("Checkout", mock.Anything, domain.CheckoutRequest{
			Charge:    domain.ChargeRequest{"pack-of-beer": "2"},
			Reference: ref,
			Account:   account,
		}).Return(domain.BuiltTransaction{
			Transaction: "AQID",
			Message:     "Thanks for your order!",
			Amount:      domain.MustAmount("10"),
		}, nil).Once()

		rec := do(newServer(svc), http.MethodPost, target, body)

		require.Equal(t, http.StatusOK, rec.Code)
		got := decode[httphandler.TransactionResponse](t, rec)
		assert.Equal(t, "AQID", got.Transaction)
		assert.Equal(t, "Thanks for your order!", got.Message)
		svc.AssertExpectations(t)
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		svc := new(MockCheckouter)

		rec := do(newServer(svc), http.MethodPost, target, `{"account":`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid JSON data", decode[httphandler.ErrorResponse](t, rec).Error)
		svc.AssertNotCalled(t, "Checkout", mock.Anything, mock.Anything)
	})

	t.Run("EmptyBodyNoCharge", func(t *testing.T) {
		svc := new(MockCheckouter)
		svc.On("Checkout", mock.Anything, domain.CheckoutRequest{
			Charge: domain.ChargeRequest{},
		}).Return(domain.BuiltTransaction{}, domain.ErrNoCharge).Once()

		rec := do(newServer(svc), http.MethodPost, "/api/makeTransaction", "")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, domain.ErrNoCharge.Error(), decode[httphandler.ErrorResponse](t, rec).Error)
		svc.AssertExpectations(t)
	})

	t.Run("EmptyBodyWithCharge", func(t *testing.T) {
		svc := new(MockCheckouter)
		svc.On("Checkout", mock.Anything, domain.CheckoutRequest{
			Charge:    domain.ChargeRequest{"pack-of-beer": "2"},
			Reference: ref,
		}).Return(domain.BuiltTransaction{}, domain.ErrMissingAccount).Once()

		rec := do(newServer(svc), http.MethodPost, target, "")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "missing account", decode[httphandler.ErrorResponse](t, rec).Error)
		svc.AssertExpectations(t)
	})

	t.Run("WrongMediaType", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
		r.Header.Set("Content-Type", "text/plain")
		rec := httptest.NewRecorder()

		newServer(new(MockCheckouter)).ServeHTTP(rec, r)

		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	})

	t.Run("ErrorMapping", func(t *testing.T) {
		tests := []struct {
			name   string
			err    error
			status int
			msg    string
		}{
			{"NoCharge", domain.ErrNoCharge, http.StatusBadRequest, domain.ErrNoCharge.Error()},
			{"MissingReference", domain.ErrMissingReference, http.StatusBadRequest, "missing reference"},
			{"InvalidReference", domain.ErrInvalidReference, http.StatusBadRequest, "invalid reference"},
			{"MissingAccount", domain.ErrMissingAccount, http.StatusBadRequest, "missing account"},
			{"InvalidAccount", domain.ErrInvalidAccount, http.StatusBadRequest, "invalid account"},
			{"Credential", domain.ErrShopCredential, http.StatusInternalServerError, "shop private key not available"},
			{"Ledger", domain.ErrLedger, http.StatusInternalServerError, "error creating the transaction"},
			{"Unexpected", errors.New("boom"), http.StatusInternalServerError, "error creating the transaction"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				svc := new(MockCheckouter)
				svc.On("Checkout", mock.Anything, mock.Anything).
					Return(domain.BuiltTransaction{}, fmt.Errorf("Service.Checkout: %w", tt.err))

				rec := do(newServer(svc), http.MethodPost, target, body)

				assert.Equal(t, tt.status, rec.Code)
				assert.Equal(t, tt.msg, decode[httphandler.ErrorResponse](t, rec).Error)
			})
		}
	})
}

func TestMethodNotAllowed(t *testing.T) {
	for _, method := range []string{http.MethodPut, http.MethodDelete, http.MethodPatch} {
		t.Run(method, func(t *testing.T) {
			rec := do(newServer(new(MockCheckouter)), method, "/api/makeTransaction", "")

			assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
			assert.Equal(t, "method not allowed", decode[httphandler.ErrorResponse](t, rec).Error)
		})
	}
}

func TestGetTransferLink(t *testing.T) {
	recipient := solana.NewWallet().PublicKey()
	ref := domain.Reference(solana.NewWallet().PublicKey())

	t.Run("Success", func(t *testing.T) {
		svc := new(MockCheckouter)
		svc.On("TransferLink", mock.Anything, domain.ChargeRequest{"pack-of-beer": "1"}, "").
			Return(domain.TransferLink{
				Recipient: recipient,
				Amount:    domain.MustAmount("5"),
				Reference: ref,
			}, nil).Once()

		rec := do(newServer(svc), http.MethodGet, "/api/transferLink?pack-of-beer=1", "")

		require.Equal(t, http.StatusOK, rec.Code)
		got := decode[httphandler.TransferLinkResponse](t, rec)
		assert.Equal(t, ref.String(), got.Reference)
		assert.Equal(t, "5", got.Amount)
		assert.True(t, strings.HasPrefix(got.URL, "solana:"+recipient.String()+"?"))
		assert.Contains(t, got.URL, "reference="+ref.String())
	})

	t.Run("NoCharge", func(t *testing.T) {
		svc := new(MockCheckouter)
		svc.On("TransferLink", mock.Anything, domain.ChargeRequest{}, "").
			Return(domain.TransferLink{}, domain.ErrNoCharge).Once()

		rec := do(newServer(svc), http.MethodGet, "/api/transferLink", "")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestInstrument(t *testing.T) {
	svc := new(MockCheckouter)
	svc.On("Descriptor").Return(domain.Descriptor{})
	obs := new(MockRequestObserver)
	obs.On("ObserveRequest",
		"GET /api/makeTransaction", http.MethodGet, http.StatusOK, mock.Anything,
	).Once()
	obs.On("ObserveRequest",
		"/api/makeTransaction", http.MethodPut, http.StatusMethodNotAllowed, mock.Anything,
	).Once()

	mux := http.NewServeMux()
	httphandler.RegisterCheckout(mux, svc)
	h := httphandler.Instrument(obs, mux)

	do(h, http.MethodGet, "/api/makeTransaction", "")
	do(h, http.MethodPut, "/api/makeTransaction", "")

	obs.AssertExpectations(t)
}

func TestRequestDeadline(t *testing.T) {
	ref := solana.NewWallet().PublicKey().String()
	account := solana.NewWallet().PublicKey().String()

	svc := new(MockCheckouter)
	svc.On("Checkout", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(domain.BuiltTransaction{}, fmt.Errorf("Ledger.EnsureAccount: %w", context.DeadlineExceeded)).
		Once()

	h := httphandler.RequestDeadline(10*time.Millisecond, newServer(svc))
	rec := do(h, http.MethodPost,
		"/api/makeTransaction?pack-of-beer=1&reference="+ref,
		fmt.Sprintf(`{"account":%q}`, account),
	)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "error creating the transaction", decode[httphandler.ErrorResponse](t, rec).Error)
	svc.AssertExpectations(t)
}
