package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestInMemoryStore_GetNotFound(t *testing.T) {
	store := NewInMemoryStore()

	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInMemoryStore_SaveAndGet(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	o := &Order{
		ID:       "order-1",
		Number:   "1001",
		Status:   StatusPending,
		Currency: "SEK",
		Total:    decimal.NewFromInt(125),
	}
	if err := store.Save(ctx, o); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := store.Get(ctx, "order-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Number != "1001" || got.Status != StatusPending {
		t.Errorf("unexpected order %+v", got)
	}
}

func TestInMemoryStore_GetReturnsCopy(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	o := &Order{ID: "order-1", Status: StatusPending}
	o.SetMeta("_zaver_payment_id", "pay-1")
	if err := store.Save(ctx, o); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded, _ := store.Get(ctx, "order-1")
	loaded.Status = StatusCancelled
	loaded.SetMeta("_zaver_payment_id", "tampered")
	loaded.AddNote("tampered")

	fresh, _ := store.Get(ctx, "order-1")
	if fresh.Status != StatusPending {
		t.Error("mutating a loaded copy changed stored status")
	}
	if fresh.GetMeta("_zaver_payment_id") != "pay-1" {
		t.Error("mutating a loaded copy changed stored metadata")
	}
	if len(fresh.Notes) != 0 {
		t.Error("mutating a loaded copy changed stored notes")
	}
}

func TestInMemoryStore_SaveRequiresID(t *testing.T) {
	store := NewInMemoryStore()

	if err := store.Save(context.Background(), &Order{}); err == nil {
		t.Fatal("expected an error for an order without id")
	}
	if err := store.Save(context.Background(), nil); err == nil {
		t.Fatal("expected an error for a nil order")
	}
}

func TestInMemoryStore_GetByPaymentID(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	older := &Order{ID: "order-1", CreatedAt: time.Now().Add(-time.Hour)}
	older.SetMeta(MetaPaymentID, "pay-1")
	newer := &Order{ID: "order-2", CreatedAt: time.Now()}
	newer.SetMeta(MetaPaymentID, "pay-1")
	unrelated := &Order{ID: "order-3", CreatedAt: time.Now()}
	unrelated.SetMeta(MetaPaymentID, "pay-2")

	for _, o := range []*Order{older, newer, unrelated} {
		if err := store.Save(ctx, o); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	got, err := store.GetByPaymentID(ctx, "pay-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "order-2" {
		t.Errorf("expected the most recently created order, got %s", got.ID)
	}

	if _, err := store.GetByPaymentID(ctx, "pay-9"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown payment id, got %v", err)
	}
	if _, err := store.GetByPaymentID(ctx, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for empty payment id, got %v", err)
	}
}
