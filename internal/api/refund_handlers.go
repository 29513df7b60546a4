package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/commercekit/zaver-gateway/internal/middleware"
	"github.com/commercekit/zaver-gateway/internal/order"
	"github.com/commercekit/zaver-gateway/internal/reconcile"
)

// RefundHandlers serves host-initiated refunds.
type RefundHandlers struct {
	initiator *reconcile.RefundInitiator
	metrics   *middleware.Metrics
	logger    *slog.Logger
}

// NewRefundHandlers creates refund handlers. metrics may be nil.
func NewRefundHandlers(initiator *reconcile.RefundInitiator, metrics *middleware.Metrics, logger *slog.Logger) *RefundHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &RefundHandlers{initiator: initiator, metrics: metrics, logger: logger}
}

// refundRequest is the body for POST /orders/{orderID}/refunds. Amount is a
// decimal string so money never rides through binary floats on the wire.
type refundRequest struct {
	Amount string `json:"amount"`
	Reason string `json:"reason,omitempty"`
}

// HandleCreateRefund handles POST /orders/{orderID}/refunds. The amount must
// match a refund already recorded on the order's ledger; the matching entry
// is sent to the provider and approved on behalf of the authenticated
// representative.
func (h *RefundHandlers) HandleCreateRefund(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID := r.PathValue("orderID")

	var req refundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.IsZero() {
		ctx = middleware.SetErrorCode(ctx, ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "amount must be a non-zero decimal string")
		return
	}

	representative := middleware.GetRepresentative(ctx)

	resp, err := h.initiator.Initiate(ctx, orderID, amount, req.Reason, representative)
	if err != nil {
		if h.metrics != nil {
			h.metrics.IncRefundRequests("error")
		}
		switch {
		case errors.Is(err, order.ErrNotFound):
			ctx = middleware.SetErrorCode(ctx, ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "order not found")
		case errors.Is(err, reconcile.ErrRefundNotFound):
			ctx = middleware.SetErrorCode(ctx, ErrCodeRefundNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeRefundNotFound, "no refund of that amount is recorded on the order")
		case errors.Is(err, reconcile.ErrMissingPaymentID):
			ctx = middleware.SetErrorCode(ctx, ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "order has no payment session")
		default:
			h.logger.ErrorContext(ctx, "refund request failed",
				"order_id", orderID,
				"error", err,
			)
			ctx = middleware.SetErrorCode(ctx, ErrCodeProviderError)
			WriteError(w, ctx, http.StatusBadGateway, ErrCodeProviderError, "failed to create refund")
		}
		return
	}

	if h.metrics != nil {
		h.metrics.IncRefundRequests("ok")
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"refund_id": resp.RefundID,
		"status":    string(resp.Status),
	})
}
