package httphandler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/niksmo/solpay-checkout/internal/core/domain"
	"github.com/niksmo/solpay-checkout/internal/core/port"
	"github.com/niksmo/solpay-checkout/internal/core/service"
)

// GET  /api/makeTransaction (200 OK)
// POST /api/makeTransaction?<product>=<qty>&reference=<ref> JSON {"account"} (200 OK, 400 Bad request, 500)
// GET  /api/transferLink?<product>=<qty>[&reference=<ref>] (200 OK, 400 Bad request)

const (
	makeTransactionPath = "/api/makeTransaction"
	transferLinkPath    = "/api/transferLink"

	referenceParam = "reference"
)

const (
	errMsgInvalidJSON  = "invalid JSON data"
	errMsgMethod       = "method not allowed"
	errMsgBuildFailure = "error creating the transaction"
)

type CheckoutHandler struct {
	service port.Checkouter
}

func RegisterCheckout(mux *http.ServeMux, service port.Checkouter) {
	h := CheckoutHandler{service}
	mux.HandleFunc("GET "+makeTransactionPath, h.GetDescriptor)
	mux.HandleFunc("POST "+makeTransactionPath, h.PostTransaction)
	mux.HandleFunc(makeTransactionPath, h.MethodNotAllowed)
	mux.HandleFunc("GET "+transferLinkPath, h.GetTransferLink)
}

func (h CheckoutHandler) GetDescriptor(w http.ResponseWriter, r *http.Request) {
	d := h.service.Descriptor()
	writeJSON(w, http.StatusOK, Descriptor{Label: d.Label, Icon: d.Icon})
}

func (h CheckoutHandler) PostTransaction(w http.ResponseWriter, r *http.Request) {
	const op = "CheckoutHandler.PostTransaction"
	log := slog.With("op", op)

	// An empty body leaves the account unset so Checkout reports the missing field.
	var body TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, errMsgInvalidJSON)
		log.Warn("failed to parse JSON", "err", err)
		return
	}

	q := r.URL.Query()
	built, err := h.service.Checkout(r.Context(), domain.CheckoutRequest{
		Charge:    chargeFromQuery(q),
		Reference: q.Get(referenceParam),
		Account:   body.Account,
	})
	if err != nil {
		h.handleErr(w, log, err)
		return
	}

	writeJSON(w, http.StatusOK, TransactionResponse{
		Transaction: built.Transaction,
		Message:     built.Message,
	})
	log.Info("transaction created",
		"reference", built.Reference.String(),
		"amount", built.Amount.String(),
		"discount", built.Discount.Kind.String(),
	)
}

func (h CheckoutHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", "GET, POST")
	writeError(w, http.StatusMethodNotAllowed, errMsgMethod)
}

func (h CheckoutHandler) GetTransferLink(w http.ResponseWriter, r *http.Request) {
	const op = "CheckoutHandler.GetTransferLink"
	log := slog.With("op", op)

	q := r.URL.Query()
	link, err := h.service.TransferLink(
		r.Context(), chargeFromQuery(q), q.Get(referenceParam),
	)
	if err != nil {
		h.handleErr(w, log, err)
		return
	}

	writeJSON(w, http.StatusOK, TransferLinkResponse{
		URL:       service.EncodeTransferURL(link),
		Reference: link.Reference.String(),
		Amount:    link.Amount.String(),
	})
}

func (h CheckoutHandler) handleErr(w http.ResponseWriter, log *slog.Logger, err error) {
	if cause, ok := domain.InputCause(err); ok {
		writeError(w, http.StatusBadRequest, cause.Error())
		log.Warn("rejected", "err", err)
		return
	}

	if errors.Is(err, domain.ErrShopCredential) {
		writeError(w, http.StatusInternalServerError, domain.ErrShopCredential.Error())
		log.Error("shop credential", "err", err)
		return
	}

	writeError(w, http.StatusInternalServerError, errMsgBuildFailure)
	log.Error("failed to create transaction", "err", err)
}

// chargeFromQuery treats every parameter except the reference as a product
// quantity. Unknown products are dropped by the price calculator.
func chargeFromQuery(q url.Values) domain.ChargeRequest {
	charge := make(domain.ChargeRequest, len(q))
	for k, vs := range q {
		if k == referenceParam || len(vs) == 0 {
			continue
		}
		charge[k] = vs[0]
	}
	return charge
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	const op = "httphandler.writeJSON"

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response body", "op", op, "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
