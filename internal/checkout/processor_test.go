package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/commercekit/zaver-gateway/internal/order"
	"github.com/commercekit/zaver-gateway/internal/zaver"
)

// fakeClient implements zaver.Client with overridable behavior per method.
type fakeClient struct {
	createPayment func(ctx context.Context, req *zaver.PaymentCreationRequest) (*zaver.PaymentStatusResponse, error)
}

func (f *fakeClient) CreatePayment(ctx context.Context, req *zaver.PaymentCreationRequest) (*zaver.PaymentStatusResponse, error) {
	return f.createPayment(ctx, req)
}

func (f *fakeClient) GetPaymentStatus(ctx context.Context, paymentID string) (*zaver.PaymentStatusResponse, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeClient) UpdatePayment(ctx context.Context, paymentID string, req *zaver.PaymentUpdateRequest) (*zaver.PaymentStatusResponse, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeClient) CapturePayment(ctx context.Context, paymentID string, req *zaver.PaymentCaptureRequest) (*zaver.PaymentCaptureResponse, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeClient) CancelPayment(ctx context.Context, paymentID string) (*zaver.PaymentStatusResponse, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeClient) CreateRefund(ctx context.Context, req *zaver.RefundCreationRequest) (*zaver.RefundResponse, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeClient) ApproveRefund(ctx context.Context, refundID string, req *zaver.RefundUpdateRequest) (*zaver.RefundResponse, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeClient) GetPaymentMethods(ctx context.Context, market string) (*zaver.PaymentMethodsResponse, error) {
	return nil, errors.New("not implemented")
}

func TestProcess_OpensSessionAndPersists(t *testing.T) {
	store := order.NewInMemoryStore()
	ctx := context.Background()

	o := testOrder()
	if err := store.Save(ctx, o); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	validUntil := time.Now().Add(30 * time.Minute).UTC().Truncate(time.Second)
	client := &fakeClient{
		createPayment: func(ctx context.Context, req *zaver.PaymentCreationRequest) (*zaver.PaymentStatusResponse, error) {
			if req.Amount != 125.00 {
				t.Errorf("unexpected request amount %v", req.Amount)
			}
			return &zaver.PaymentStatusResponse{
				PaymentID:     "pay-1",
				PaymentStatus: zaver.PaymentStatusCreated,
				Token:         "tok-1",
				ValidUntil:    &validUntil,
			}, nil
		},
	}

	p := NewProcessor(store, client, testBuilder(), nil)

	result, err := p.Process(ctx, "order-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.PaymentID != "pay-1" || result.Token != "tok-1" {
		t.Errorf("unexpected result %+v", result)
	}
	if result.RedirectURL != "https://www.store.example/checkout/pay/order-1" {
		t.Errorf("unexpected redirect url %q", result.RedirectURL)
	}

	saved, err := store.Get(ctx, "order-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sess := saved.PaymentSession()
	if sess == nil || sess.PaymentID != "pay-1" || sess.Token != "tok-1" {
		t.Fatalf("expected session persisted on order, got %+v", sess)
	}
	if !sess.ValidUntil.Equal(validUntil) {
		t.Errorf("expected valid until %v, got %v", validUntil, sess.ValidUntil)
	}
}

func TestProcess_OrderNotFound(t *testing.T) {
	p := NewProcessor(order.NewInMemoryStore(), &fakeClient{}, testBuilder(), nil)

	_, err := p.Process(context.Background(), "missing")
	if !errors.Is(err, order.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestProcess_ProviderFailure(t *testing.T) {
	store := order.NewInMemoryStore()
	ctx := context.Background()
	if err := store.Save(ctx, testOrder()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	client := &fakeClient{
		createPayment: func(ctx context.Context, req *zaver.PaymentCreationRequest) (*zaver.PaymentStatusResponse, error) {
			return nil, &zaver.Error{StatusCode: 500, Message: "internal error"}
		},
	}

	p := NewProcessor(store, client, testBuilder(), nil)

	_, err := p.Process(ctx, "order-1")
	if err == nil {
		t.Fatal("expected an error")
	}

	saved, _ := store.Get(ctx, "order-1")
	if saved.PaymentSession() != nil {
		t.Error("failed session creation must not leave a session on the order")
	}
}
