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
	// ErrMissingRefundIDs indicates an order that has no refunds on record.
	ErrMissingRefundIDs = errors.New("order has no refund ids")

	// ErrMismatchedRefundID indicates a refund report for a refund that does
	// not belong to the order.
	ErrMismatchedRefundID = errors.New("refund id does not match order")
)

// RefundReconciler applies provider refund state to orders.
type RefundReconciler struct {
	store  order.Store
	logger *slog.Logger
}

// NewRefundReconciler creates a RefundReconciler.
func NewRefundReconciler(store order.Store, logger *slog.Logger) *RefundReconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RefundReconciler{store: store, logger: logger}
}

// Apply reconciles a provider-reported refund status onto the order.
//
// A refund id that is not on the order's record is rejected without
// mutating the order. Each (refund id, status) pair produces at most one
// order note; redelivered reports are ignored.
func (r *RefundReconciler) Apply(ctx context.Context, o *order.Order, refund *zaver.RefundResponse) error {
	ids := o.RefundIDs()
	if len(ids) == 0 {
		return ErrMissingRefundIDs
	}
	if !o.HasRefundID(refund.RefundID) {
		return fmt.Errorf("%w: refund %s is not recorded on order %s",
			ErrMismatchedRefundID, refund.RefundID, o.ID)
	}

	if o.RefundStatusSeen(refund.RefundID) == string(refund.Status) {
		r.logger.DebugContext(ctx, "refund status already recorded, skipping",
			"order_id", o.ID,
			"refund_id", refund.RefundID,
			"refund_status", refund.Status,
		)
		return nil
	}

	note := r.noteFor(refund)
	if note != "" {
		o.AddNote(note)
	}
	o.MarkRefundStatus(refund.RefundID, string(refund.Status))

	if err := r.store.Save(ctx, o); err != nil {
		return fmt.Errorf("failed to save order %s: %w", o.ID, err)
	}

	r.logger.InfoContext(ctx, "refund status recorded",
		"order_id", o.ID,
		"refund_id", refund.RefundID,
		"refund_status", refund.Status,
	)
	return nil
}

func (r *RefundReconciler) noteFor(refund *zaver.RefundResponse) string {
	amount := fmt.Sprintf("%.2f %s", refund.RefundAmount, refund.Currency)
	switch refund.Status {
	case zaver.RefundStatusPendingMerchantApproval:
		return fmt.Sprintf("Refund of %s awaiting merchant approval%s. Refund ID: %s",
			amount, byRepresentative(refund.InitializingRepresentative), refund.RefundID)
	case zaver.RefundStatusPendingExecution:
		return fmt.Sprintf("Refund of %s approved%s, awaiting execution. Refund ID: %s",
			amount, byRepresentative(refund.ApprovingRepresentative), refund.RefundID)
	case zaver.RefundStatusExecuted:
		return fmt.Sprintf("Refund of %s executed by Zaver. Refund ID: %s",
			amount, refund.RefundID)
	case zaver.RefundStatusCancelled:
		return fmt.Sprintf("Refund of %s cancelled%s. Refund ID: %s",
			amount, byRepresentative(refund.ApprovingRepresentative), refund.RefundID)
	default:
		return ""
	}
}

func byRepresentative(rep *zaver.MerchantRepresentative) string {
	if rep == nil {
		return ""
	}
	name := rep.Username
	if name == "" {
		name = rep.Email
	}
	if name == "" {
		return ""
	}
	return " by " + name
}
