package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/commercekit/zaver-gateway/internal/order"
	"github.com/commercekit/zaver-gateway/internal/zaver"
)

var (
	// ErrMissingPaymentID indicates an order that never had a payment
	// session opened.
	ErrMissingPaymentID = errors.New("order has no payment id")

	// ErrMismatchedPaymentID indicates a status report for a different
	// payment than the one stored on the order.
	ErrMismatchedPaymentID = errors.New("payment id does not match order")
)

// Action tells the caller what to do with the customer after reconciling.
type Action int

const (
	// ActionNone means no customer-facing action is needed.
	ActionNone Action = iota

	// ActionRedirectPayment sends the customer back to the payment page.
	ActionRedirectPayment

	// ActionRedirectCancel sends the customer back to the checkout page.
	ActionRedirectCancel
)

// Outcome is the result of applying a payment status to an order.
type Outcome struct {
	Action  Action
	Applied bool
}

// PaymentReconciler applies provider payment state to orders.
type PaymentReconciler struct {
	store  order.Store
	client zaver.Client
	logger *slog.Logger
}

// NewPaymentReconciler creates a PaymentReconciler.
func NewPaymentReconciler(store order.Store, client zaver.Client, logger *slog.Logger) *PaymentReconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PaymentReconciler{store: store, client: client, logger: logger}
}

// Poll fetches the payment's current state from the provider and applies it.
func (r *PaymentReconciler) Poll(ctx context.Context, o *order.Order, synchronous bool) (*Outcome, error) {
	sess := o.PaymentSession()
	if sess == nil || sess.PaymentID == "" {
		return nil, ErrMissingPaymentID
	}
	status, err := r.client.GetPaymentStatus(ctx, sess.PaymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch payment status for order %s: %w", o.ID, err)
	}
	return r.Apply(ctx, o, status, synchronous)
}

// Apply reconciles a provider-reported payment status onto the order.
//
// Orders that no longer need payment are left untouched, which makes
// repeated deliveries of the same settlement harmless. A status report
// carrying a payment id other than the order's is rejected without mutating
// the order. synchronous marks reports triggered by a customer landing
// rather than a server-to-server callback; only synchronous reports may ask
// for a customer redirect.
func (r *PaymentReconciler) Apply(ctx context.Context, o *order.Order, status *zaver.PaymentStatusResponse, synchronous bool) (*Outcome, error) {
	if !o.NeedsPayment() {
		r.logger.DebugContext(ctx, "order does not need payment, skipping",
			"order_id", o.ID,
			"order_status", o.Status,
		)
		return &Outcome{}, nil
	}

	sess := o.PaymentSession()
	if sess == nil || sess.PaymentID == "" {
		return nil, ErrMissingPaymentID
	}
	if status.PaymentID != sess.PaymentID {
		return nil, fmt.Errorf("%w: got %s, order %s has %s",
			ErrMismatchedPaymentID, status.PaymentID, o.ID, sess.PaymentID)
	}

	switch status.PaymentStatus {
	case zaver.PaymentStatusCreated:
		if synchronous {
			return &Outcome{Action: ActionRedirectPayment}, nil
		}
		return &Outcome{}, nil

	case zaver.PaymentStatusSettled:
		if !o.PaymentComplete(status.PaymentID) {
			return &Outcome{}, nil
		}
		o.AddNote(fmt.Sprintf("Payment of %.2f %s settled via Zaver. Payment ID: %s",
			status.Amount, status.Currency, status.PaymentID))
		if err := r.store.Save(ctx, o); err != nil {
			return nil, fmt.Errorf("failed to save order %s: %w", o.ID, err)
		}
		r.logger.InfoContext(ctx, "payment settled",
			"order_id", o.ID,
			"payment_id", status.PaymentID,
		)
		return &Outcome{Applied: true}, nil

	case zaver.PaymentStatusCancelled:
		if synchronous {
			return &Outcome{Action: ActionRedirectCancel}, nil
		}
		o.UpdateStatus(order.StatusCancelled, "Payment cancelled by Zaver.")
		if err := r.store.Save(ctx, o); err != nil {
			return nil, fmt.Errorf("failed to save order %s: %w", o.ID, err)
		}
		r.logger.InfoContext(ctx, "payment cancelled",
			"order_id", o.ID,
			"payment_id", status.PaymentID,
		)
		return &Outcome{Applied: true}, nil

	default:
		r.logger.DebugContext(ctx, "payment status requires no action",
			"order_id", o.ID,
			"payment_status", status.PaymentStatus,
		)
		return &Outcome{}, nil
	}
}
