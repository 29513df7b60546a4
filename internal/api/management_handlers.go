package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/commercekit/zaver-gateway/internal/middleware"
	"github.com/commercekit/zaver-gateway/internal/order"
	"github.com/commercekit/zaver-gateway/internal/ordermgmt"
)

// ManagementHandlers serves order-status transitions reported by the host
// platform.
type ManagementHandlers struct {
	manager *ordermgmt.Manager
	logger  *slog.Logger
}

// NewManagementHandlers creates management handlers.
func NewManagementHandlers(manager *ordermgmt.Manager, logger *slog.Logger) *ManagementHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &ManagementHandlers{manager: manager, logger: logger}
}

// transitionRequest is the body for POST /orders/{orderID}/transitions.
type transitionRequest struct {
	Status string `json:"status"`
}

// HandleTransition handles POST /orders/{orderID}/transitions. A transition
// to completed captures the payment; a transition to cancelled cancels it.
// Provider failures return 502 so the host can revert the transition.
func (h *ManagementHandlers) HandleTransition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID := r.PathValue("orderID")

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}

	var err error
	switch order.Status(req.Status) {
	case order.StatusCompleted:
		err = h.manager.OnCompleted(ctx, orderID)
	case order.StatusCancelled:
		err = h.manager.OnCancelled(ctx, orderID)
	default:
		ctx = middleware.SetErrorCode(ctx, ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation,
			"status must be completed or cancelled")
		return
	}

	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			ctx = middleware.SetErrorCode(ctx, ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "order not found")
			return
		}
		h.logger.ErrorContext(ctx, "order transition failed",
			"order_id", orderID,
			"status", req.Status,
			"error", err,
		)
		ctx = middleware.SetErrorCode(ctx, ErrCodeProviderError)
		WriteError(w, ctx, http.StatusBadGateway, ErrCodeProviderError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"order_id": orderID,
		"status":   req.Status,
	})
}
