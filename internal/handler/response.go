package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/uiliambrandao/nammos-checkout/internal/domain/cart"
	"github.com/uiliambrandao/nammos-checkout/internal/domain/cashback"
	"github.com/uiliambrandao/nammos-checkout/internal/domain/checkout"
	"github.com/uiliambrandao/nammos-checkout/internal/domain/order"
	"github.com/uiliambrandao/nammos-checkout/internal/domain/pix"
	"github.com/uiliambrandao/nammos-checkout/internal/domain/product"
	"github.com/uiliambrandao/nammos-checkout/internal/domain/user"
)

// errorResponse is the JSON error body.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a domain error to an HTTP status and JSON body.
// Unclassified errors are logged and reported as 500 without leaking details.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapError(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		msg = "internal server error"
	}
	writeJSON(w, status, errorResponse{Code: status, Message: msg})
}

func mapError(err error) int {
	switch {
	case errors.Is(err, product.ErrNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, checkout.ErrSessionNotFound),
		errors.Is(err, cart.ErrLineNotFound),
		errors.Is(err, pix.ErrNotFound),
		errors.Is(err, user.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrMissingAddress),
		errors.Is(err, checkout.ErrInvalidFulfillment),
		errors.Is(err, checkout.ErrInvalidPayment),
		errors.Is(err, product.ErrAddonNotFound):
		return http.StatusUnprocessableEntity
	case errors.Is(err, checkout.ErrSessionClosed),
		errors.Is(err, checkout.ErrSubmitInFlight),
		errors.Is(err, cashback.ErrInsufficientBalance),
		errors.Is(err, pix.ErrAbandoned),
		errors.Is(err, pix.ErrAlreadyPaid):
		return http.StatusConflict
	case errors.Is(err, user.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decode parses the request body into v, rejecting unknown fields.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(err, "decode request body")
	}
	return nil
}

// badRequest writes a 400 with the given message.
func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Code: http.StatusBadRequest, Message: msg})
}
