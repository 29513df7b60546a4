package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/commercekit/zaver-gateway/internal/checkout"
	"github.com/commercekit/zaver-gateway/internal/middleware"
	"github.com/commercekit/zaver-gateway/internal/order"
	"github.com/commercekit/zaver-gateway/internal/reconcile"
)

// CheckoutHandlers serves payment session creation and the order-received
// landing.
type CheckoutHandlers struct {
	store     order.Store
	processor *checkout.Processor
	payments  *reconcile.PaymentReconciler
	builder   *checkout.Builder
	metrics   *middleware.Metrics
	logger    *slog.Logger
}

// NewCheckoutHandlers creates checkout handlers. metrics may be nil.
func NewCheckoutHandlers(store order.Store, processor *checkout.Processor, payments *reconcile.PaymentReconciler, builder *checkout.Builder, metrics *middleware.Metrics, logger *slog.Logger) *CheckoutHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &CheckoutHandlers{
		store:     store,
		processor: processor,
		payments:  payments,
		builder:   builder,
		metrics:   metrics,
		logger:    logger,
	}
}

// createSessionRequest is the body for POST /checkout/sessions.
type createSessionRequest struct {
	OrderID string `json:"order_id"`
}

// HandleCreateSession handles POST /checkout/sessions. It opens a provider
// payment session for the order and returns the checkout token the
// storefront renders.
func (h *CheckoutHandlers) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}
	if req.OrderID == "" {
		ctx = middleware.SetErrorCode(ctx, ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "order_id is required")
		return
	}

	result, err := h.processor.Process(ctx, req.OrderID)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrNotFound):
			ctx = middleware.SetErrorCode(ctx, ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "order not found")
		case errors.Is(err, checkout.ErrNoItems), errors.Is(err, checkout.ErrMissingCurrency):
			ctx = middleware.SetErrorCode(ctx, ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, err.Error())
		default:
			h.logger.ErrorContext(ctx, "failed to create payment session",
				"order_id", req.OrderID,
				"error", err,
			)
			ctx = middleware.SetErrorCode(ctx, ErrCodeProviderError)
			WriteError(w, ctx, http.StatusBadGateway, ErrCodeProviderError, "failed to create payment session")
		}
		return
	}

	if h.metrics != nil {
		h.metrics.IncPaymentSessions()
	}

	writeJSON(w, http.StatusCreated, result)
}

// HandleOrderReceived handles GET /checkout/order-received/{orderID}?key={orderKey}.
//
// The customer lands here after the hosted checkout. The handler polls the
// provider for the payment's current state and either confirms the order or
// redirects the customer back to the payment or checkout page. Failures show
// a generic retry message rather than raw provider errors.
func (h *CheckoutHandlers) HandleOrderReceived(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID := r.PathValue("orderID")

	o, err := h.store.Get(ctx, orderID)
	if err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "order not found")
		return
	}

	if err := reconcile.AuthenticateCallback(o, r.URL.Query().Get("key")); err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeInvalidCallback)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeInvalidCallback, "invalid order key")
		return
	}

	outcome, err := h.payments.Poll(ctx, o, true)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to reconcile on order-received landing",
			"order_id", o.ID,
			"error", err,
		)
		ctx = middleware.SetErrorCode(ctx, ErrCodeProviderError)
		WriteError(w, ctx, http.StatusBadGateway, ErrCodeProviderError,
			"An error occurred with your order. Please try again, or contact customer support.")
		return
	}

	switch outcome.Action {
	case reconcile.ActionRedirectPayment:
		http.Redirect(w, r, h.builder.PayURL(o), http.StatusSeeOther)
	case reconcile.ActionRedirectCancel:
		http.Redirect(w, r, h.builder.CancelURL(), http.StatusSeeOther)
	default:
		// Re-read so the response reflects any settlement just applied.
		if updated, err := h.store.Get(ctx, o.ID); err == nil {
			o = updated
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"order_id": o.ID,
			"status":   string(o.Status),
		})
	}
}
