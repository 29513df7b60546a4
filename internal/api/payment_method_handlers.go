package api

import (
	"log/slog"
	"net/http"

	"github.com/commercekit/zaver-gateway/internal/middleware"
	"github.com/commercekit/zaver-gateway/internal/zaver"
)

// PaymentMethodHandlers exposes the provider's payment method catalog.
type PaymentMethodHandlers struct {
	client zaver.Client
	logger *slog.Logger
}

// NewPaymentMethodHandlers creates payment method handlers.
func NewPaymentMethodHandlers(client zaver.Client, logger *slog.Logger) *PaymentMethodHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &PaymentMethodHandlers{client: client, logger: logger}
}

// HandleList handles GET /payment-methods?market={country}. The storefront
// uses this to decide which payment options to show at checkout.
func (h *PaymentMethodHandlers) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	market := r.URL.Query().Get("market")

	methods, err := h.client.GetPaymentMethods(ctx, market)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list payment methods",
			"market", market,
			"error", err,
		)
		ctx = middleware.SetErrorCode(ctx, ErrCodeProviderError)
		WriteError(w, ctx, http.StatusBadGateway, ErrCodeProviderError, "failed to list payment methods")
		return
	}

	writeJSON(w, http.StatusOK, methods)
}
