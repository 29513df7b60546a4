package reconcile

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/commercekit/zaver-gateway/internal/order"
	"github.com/commercekit/zaver-gateway/internal/zaver"
)

func orderWithRefund() *order.Order {
	o := pendingOrder()
	o.AddRefundID("ref-1")
	return o
}

func refundReport(status zaver.RefundStatus) *zaver.RefundResponse {
	return &zaver.RefundResponse{
		RefundID:     "ref-1",
		PaymentID:    "pay-1",
		Status:       status,
		RefundAmount: 50.00,
		Currency:     "SEK",
	}
}

func TestRefundApply_RecordsNote(t *testing.T) {
	store := order.NewInMemoryStore()
	ctx := context.Background()
	o := orderWithRefund()
	if err := store.Save(ctx, o); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r := NewRefundReconciler(store, nil)

	if err := r.Apply(ctx, o, refundReport(zaver.RefundStatusExecuted)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	saved, _ := store.Get(ctx, "order-1")
	if len(saved.Notes) != 1 {
		t.Fatalf("expected 1 note, got %d", len(saved.Notes))
	}
	if !strings.Contains(saved.Notes[0].Text, "Refund of 50.00 SEK executed by Zaver") {
		t.Errorf("unexpected note %q", saved.Notes[0].Text)
	}
	if saved.RefundStatusSeen("ref-1") != string(zaver.RefundStatusExecuted) {
		t.Errorf("expected status recorded, got %q", saved.RefundStatusSeen("ref-1"))
	}
}

func TestRefundApply_ReplayedStatusIsIgnored(t *testing.T) {
	store := order.NewInMemoryStore()
	ctx := context.Background()
	o := orderWithRefund()
	if err := store.Save(ctx, o); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r := NewRefundReconciler(store, nil)

	if err := r.Apply(ctx, o, refundReport(zaver.RefundStatusExecuted)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reloaded, _ := store.Get(ctx, "order-1")
	if err := r.Apply(ctx, reloaded, refundReport(zaver.RefundStatusExecuted)); err != nil {
		t.Fatalf("unexpected error on replay: %v", err)
	}

	saved, _ := store.Get(ctx, "order-1")
	if len(saved.Notes) != 1 {
		t.Errorf("replayed status must not add a second note, got %d", len(saved.Notes))
	}
}

func TestRefundApply_EachStatusOnce(t *testing.T) {
	store := order.NewInMemoryStore()
	ctx := context.Background()
	o := orderWithRefund()
	if err := store.Save(ctx, o); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r := NewRefundReconciler(store, nil)

	statuses := []zaver.RefundStatus{
		zaver.RefundStatusPendingMerchantApproval,
		zaver.RefundStatusPendingExecution,
		zaver.RefundStatusExecuted,
	}
	for _, status := range statuses {
		current, _ := store.Get(ctx, "order-1")
		if err := r.Apply(ctx, current, refundReport(status)); err != nil {
			t.Fatalf("unexpected error for %s: %v", status, err)
		}
	}

	saved, _ := store.Get(ctx, "order-1")
	if len(saved.Notes) != 3 {
		t.Errorf("expected one note per status, got %d", len(saved.Notes))
	}
}

func TestRefundApply_MismatchedRefundID(t *testing.T) {
	store := order.NewInMemoryStore()
	ctx := context.Background()
	o := orderWithRefund()
	if err := store.Save(ctx, o); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r := NewRefundReconciler(store, nil)

	report := refundReport(zaver.RefundStatusExecuted)
	report.RefundID = "ref-other"

	err := r.Apply(ctx, o, report)
	if !errors.Is(err, ErrMismatchedRefundID) {
		t.Fatalf("expected ErrMismatchedRefundID, got %v", err)
	}

	saved, _ := store.Get(ctx, "order-1")
	if len(saved.Notes) != 0 {
		t.Errorf("mismatched report must not add notes, got %+v", saved.Notes)
	}
	if saved.RefundStatusSeen("ref-other") != "" {
		t.Error("mismatched report must not record a status")
	}
}

func TestRefundApply_NoRefundsOnRecord(t *testing.T) {
	o := pendingOrder()
	r := NewRefundReconciler(order.NewInMemoryStore(), nil)

	err := r.Apply(context.Background(), o, refundReport(zaver.RefundStatusExecuted))
	if !errors.Is(err, ErrMissingRefundIDs) {
		t.Fatalf("expected ErrMissingRefundIDs, got %v", err)
	}
}

func TestRefundApply_NotesNameTheRepresentative(t *testing.T) {
	store := order.NewInMemoryStore()
	ctx := context.Background()
	o := orderWithRefund()
	if err := store.Save(ctx, o); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r := NewRefundReconciler(store, nil)

	report := refundReport(zaver.RefundStatusPendingMerchantApproval)
	report.InitializingRepresentative = &zaver.MerchantRepresentative{Username: "clerk"}

	if err := r.Apply(ctx, o, report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	saved, _ := store.Get(ctx, "order-1")
	if !strings.Contains(saved.Notes[0].Text, "by clerk") {
		t.Errorf("expected representative in note, got %q", saved.Notes[0].Text)
	}
}

func TestRefundApply_RepresentativeFallsBackToEmail(t *testing.T) {
	store := order.NewInMemoryStore()
	ctx := context.Background()
	o := orderWithRefund()
	if err := store.Save(ctx, o); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r := NewRefundReconciler(store, nil)

	report := refundReport(zaver.RefundStatusPendingExecution)
	report.ApprovingRepresentative = &zaver.MerchantRepresentative{Email: "clerk@example.com"}

	if err := r.Apply(ctx, o, report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	saved, _ := store.Get(ctx, "order-1")
	if !strings.Contains(saved.Notes[0].Text, "by clerk@example.com") {
		t.Errorf("expected email fallback in note, got %q", saved.Notes[0].Text)
	}
}
