// Package ordermgmt reacts to host order-status transitions by capturing or
// cancelling the payment at the provider.
package ordermgmt

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/commercekit/zaver-gateway/internal/checkout"
	"github.com/commercekit/zaver-gateway/internal/order"
	"github.com/commercekit/zaver-gateway/internal/zaver"
)

// Manager handles order completion and cancellation.
type Manager struct {
	store   order.Store
	client  zaver.Client
	builder *checkout.Builder
	logger  *slog.Logger
}

// NewManager creates a Manager.
func NewManager(store order.Store, client zaver.Client, builder *checkout.Builder, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{store: store, client: client, builder: builder, logger: logger}
}

// OnCompleted captures the order's payment when the order is marked
// completed. Orders whose payment was already captured, already cancelled or
// cannot be captured get an explanatory note instead; an order without a
// payment session is parked on hold. Provider errors are recorded as a note
// and returned so the caller can revert the transition.
func (m *Manager) OnCompleted(ctx context.Context, orderID string) error {
	o, err := m.store.Get(ctx, orderID)
	if err != nil {
		return err
	}

	if o.Captured() {
		o.AddNote("Payment is already captured.")
		return m.store.Save(ctx, o)
	}

	sess := o.PaymentSession()
	if sess == nil || sess.PaymentID == "" {
		o.UpdateStatus(order.StatusOnHold, "Unable to capture payment: order has no payment session.")
		return m.store.Save(ctx, o)
	}

	if o.PaymentCancelled() {
		o.AddNote("Unable to capture payment: payment has been cancelled.")
		return m.store.Save(ctx, o)
	}

	status, err := m.client.GetPaymentStatus(ctx, sess.PaymentID)
	if err != nil {
		return m.providerFailure(ctx, o, "capture", err)
	}
	if !status.CanCapture() {
		o.AddNote("Payment cannot be captured in its current state.")
		return m.store.Save(ctx, o)
	}

	req := &zaver.PaymentCaptureRequest{
		CaptureIdempotencyKey: uuid.NewString(),
		Amount:                o.Total.Round(2).InexactFloat64(),
		Currency:              o.Currency,
		LineItems:             m.builder.LineItems(o),
	}

	resp, err := m.client.CapturePayment(ctx, sess.PaymentID, req)
	if err != nil {
		return m.providerFailure(ctx, o, "capture", err)
	}

	o.MarkCaptured(fmt.Sprintf("%.2f", resp.Amount))
	o.AddNote(fmt.Sprintf("Captured %.2f %s with Zaver. Capture ID: %s",
		resp.Amount, resp.Currency, resp.CaptureID))
	if err := m.store.Save(ctx, o); err != nil {
		return err
	}

	m.logger.InfoContext(ctx, "payment captured",
		"order_id", o.ID,
		"payment_id", sess.PaymentID,
		"capture_id", resp.CaptureID,
	)
	return nil
}

// OnCancelled cancels the order's payment when the order is cancelled.
// Orders that never opened a payment session are left alone; orders whose
// payment was already cancelled, captured or cannot be cancelled get an
// explanatory note. Provider errors are recorded as a note and returned so
// the caller can revert the transition.
func (m *Manager) OnCancelled(ctx context.Context, orderID string) error {
	o, err := m.store.Get(ctx, orderID)
	if err != nil {
		return err
	}

	if o.PaymentCancelled() {
		o.AddNote("Payment is already cancelled.")
		return m.store.Save(ctx, o)
	}

	sess := o.PaymentSession()
	if sess == nil || sess.PaymentID == "" {
		// Nothing was ever paid or reserved, so there is nothing to cancel.
		if !o.IsPaid() {
			return nil
		}
		o.UpdateStatus(order.StatusOnHold, "Unable to cancel payment: order has no payment session.")
		return m.store.Save(ctx, o)
	}

	if o.Captured() {
		o.AddNote("Unable to cancel payment: payment has been captured.")
		return m.store.Save(ctx, o)
	}

	status, err := m.client.GetPaymentStatus(ctx, sess.PaymentID)
	if err != nil {
		return m.providerFailure(ctx, o, "cancel", err)
	}
	if !status.CanCancel() {
		o.AddNote("Payment cannot be cancelled in its current state.")
		return m.store.Save(ctx, o)
	}

	if _, err := m.client.CancelPayment(ctx, sess.PaymentID); err != nil {
		return m.providerFailure(ctx, o, "cancel", err)
	}

	o.MarkPaymentCancelled()
	o.AddNote("Cancelled the payment with Zaver.")
	if err := m.store.Save(ctx, o); err != nil {
		return err
	}

	m.logger.InfoContext(ctx, "payment cancelled",
		"order_id", o.ID,
		"payment_id", sess.PaymentID,
	)
	return nil
}

// providerFailure records the raw provider error on the order and returns
// the error so the host can revert the attempted transition.
func (m *Manager) providerFailure(ctx context.Context, o *order.Order, op string, err error) error {
	o.AddNote(fmt.Sprintf("Failed to %s payment: %s", op, err))
	if saveErr := m.store.Save(ctx, o); saveErr != nil {
		m.logger.ErrorContext(ctx, "failed to save order after provider failure",
			"order_id", o.ID,
			"error", saveErr,
		)
	}
	return fmt.Errorf("failed to %s payment for order %s: %w", op, o.ID, err)
}
