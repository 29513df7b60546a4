package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/commercekit/zaver-gateway/internal/middleware"
	"github.com/commercekit/zaver-gateway/internal/order"
	"github.com/commercekit/zaver-gateway/internal/reconcile"
	"github.com/commercekit/zaver-gateway/internal/zaver"
)

// WebhookHandlers receives Zaver's server-to-server payment and refund
// callbacks.
type WebhookHandlers struct {
	store         order.Store
	payments      *reconcile.PaymentReconciler
	refunds       *reconcile.RefundReconciler
	callbackToken string
	metrics       *middleware.Metrics
	logger        *slog.Logger
}

// NewWebhookHandlers creates webhook handlers. callbackToken is the shared
// secret expected in the Callback-Token header; empty disables the check.
// metrics may be nil.
func NewWebhookHandlers(store order.Store, payments *reconcile.PaymentReconciler, refunds *reconcile.RefundReconciler, callbackToken string, metrics *middleware.Metrics, logger *slog.Logger) *WebhookHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookHandlers{
		store:         store,
		payments:      payments,
		refunds:       refunds,
		callbackToken: callbackToken,
		metrics:       metrics,
		logger:        logger,
	}
}

// HandlePaymentCallback handles POST /callbacks/zaver/payment?key={orderKey}.
//
// The callback is authenticated twice: the Callback-Token header against the
// shared secret, and the key query parameter against the order's key. A
// status report that cannot be matched to the order is rejected without
// touching the order.
func (h *WebhookHandlers) HandlePaymentCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status, err := zaver.ParsePaymentCallback(r, h.callbackToken)
	if err != nil {
		if errors.Is(err, zaver.ErrInvalidCallbackToken) {
			h.rejectCallback(w, r, "payment", "invalid_token", http.StatusUnauthorized, "invalid callback token")
			return
		}
		h.rejectCallback(w, r, "payment", "bad_payload", http.StatusBadRequest, "malformed callback payload")
		return
	}

	o, err := h.resolveOrder(r, status.MerchantMetadata["orderId"], status.PaymentID)
	if err != nil {
		h.rejectCallback(w, r, "payment", "order_not_found", http.StatusNotFound, "order not found")
		return
	}

	if err := reconcile.AuthenticateCallback(o, r.URL.Query().Get("key")); err != nil {
		h.rejectCallback(w, r, "payment", "invalid_key", http.StatusUnauthorized, "invalid order key")
		return
	}

	outcome, err := h.payments.Apply(ctx, o, status, false)
	if err != nil {
		switch {
		case errors.Is(err, reconcile.ErrMismatchedPaymentID):
			h.rejectCallback(w, r, "payment", "mismatched_payment_id", http.StatusBadRequest, "payment id does not match order")
		case errors.Is(err, reconcile.ErrMissingPaymentID):
			h.rejectCallback(w, r, "payment", "missing_payment_id", http.StatusBadRequest, "order has no payment session")
		default:
			h.logger.ErrorContext(ctx, "failed to reconcile payment callback",
				"order_id", o.ID,
				"payment_id", status.PaymentID,
				"error", err,
			)
			errCtx := middleware.SetErrorCode(ctx, ErrCodeInternal)
			WriteError(w, errCtx, http.StatusInternalServerError, ErrCodeInternal, "failed to process callback")
		}
		return
	}

	if h.metrics != nil {
		h.metrics.IncCallback("payment", string(status.PaymentStatus))
		if outcome.Applied && status.PaymentStatus == zaver.PaymentStatusSettled {
			h.metrics.IncPaymentSettlements()
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleRefundCallback handles POST /callbacks/zaver/refund?key={orderKey}.
func (h *WebhookHandlers) HandleRefundCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	refund, err := zaver.ParseRefundCallback(r, h.callbackToken)
	if err != nil {
		if errors.Is(err, zaver.ErrInvalidCallbackToken) {
			h.rejectCallback(w, r, "refund", "invalid_token", http.StatusUnauthorized, "invalid callback token")
			return
		}
		h.rejectCallback(w, r, "refund", "bad_payload", http.StatusBadRequest, "malformed callback payload")
		return
	}

	o, err := h.resolveOrder(r, refund.MerchantMetadata["orderId"], refund.PaymentID)
	if err != nil {
		h.rejectCallback(w, r, "refund", "order_not_found", http.StatusNotFound, "order not found")
		return
	}

	if err := reconcile.AuthenticateCallback(o, r.URL.Query().Get("key")); err != nil {
		h.rejectCallback(w, r, "refund", "invalid_key", http.StatusUnauthorized, "invalid order key")
		return
	}

	if err := h.refunds.Apply(ctx, o, refund); err != nil {
		switch {
		case errors.Is(err, reconcile.ErrMismatchedRefundID):
			h.rejectCallback(w, r, "refund", "mismatched_refund_id", http.StatusBadRequest, "refund id does not match order")
		case errors.Is(err, reconcile.ErrMissingRefundIDs):
			h.rejectCallback(w, r, "refund", "missing_refund_ids", http.StatusBadRequest, "order has no refunds on record")
		default:
			h.logger.ErrorContext(ctx, "failed to reconcile refund callback",
				"order_id", o.ID,
				"refund_id", refund.RefundID,
				"error", err,
			)
			errCtx := middleware.SetErrorCode(ctx, ErrCodeInternal)
			WriteError(w, errCtx, http.StatusInternalServerError, ErrCodeInternal, "failed to process callback")
		}
		return
	}

	if h.metrics != nil {
		h.metrics.IncCallback("refund", string(refund.Status))
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// resolveOrder finds the order a callback belongs to, preferring the order
// id carried in merchant metadata and falling back to a payment id lookup.
func (h *WebhookHandlers) resolveOrder(r *http.Request, orderID, paymentID string) (*order.Order, error) {
	if orderID != "" {
		o, err := h.store.Get(r.Context(), orderID)
		if err == nil {
			return o, nil
		}
		if !errors.Is(err, order.ErrNotFound) {
			return nil, err
		}
	}
	return h.store.GetByPaymentID(r.Context(), paymentID)
}

func (h *WebhookHandlers) rejectCallback(w http.ResponseWriter, r *http.Request, kind, reason string, status int, message string) {
	h.logger.WarnContext(r.Context(), "rejected provider callback",
		"kind", kind,
		"reason", reason,
	)
	if h.metrics != nil {
		h.metrics.IncCallbackFailure(kind, reason)
	}
	code := ErrCodeInvalidCallback
	switch reason {
	case "mismatched_payment_id":
		code = ErrCodeMismatchedPayment
	case "mismatched_refund_id":
		code = ErrCodeMismatchedRefund
	case "order_not_found":
		code = ErrCodeNotFound
	case "bad_payload":
		code = ErrCodeBadRequest
	}
	ctx := middleware.SetErrorCode(r.Context(), code)
	WriteError(w, ctx, status, code, message)
}
