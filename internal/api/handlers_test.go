package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/commercekit/zaver-gateway/internal/checkout"
	"github.com/commercekit/zaver-gateway/internal/order"
	"github.com/commercekit/zaver-gateway/internal/tax"
	"github.com/commercekit/zaver-gateway/internal/zaver"
)

// fakeClient implements zaver.Client with overridable behavior per method.
type fakeClient struct {
	createPayment     func(ctx context.Context, req *zaver.PaymentCreationRequest) (*zaver.PaymentStatusResponse, error)
	getPaymentStatus  func(ctx context.Context, paymentID string) (*zaver.PaymentStatusResponse, error)
	capturePayment    func(ctx context.Context, paymentID string, req *zaver.PaymentCaptureRequest) (*zaver.PaymentCaptureResponse, error)
	cancelPayment     func(ctx context.Context, paymentID string) (*zaver.PaymentStatusResponse, error)
	createRefund      func(ctx context.Context, req *zaver.RefundCreationRequest) (*zaver.RefundResponse, error)
	approveRefund     func(ctx context.Context, refundID string, req *zaver.RefundUpdateRequest) (*zaver.RefundResponse, error)
	getPaymentMethods func(ctx context.Context, market string) (*zaver.PaymentMethodsResponse, error)
}

func (f *fakeClient) CreatePayment(ctx context.Context, req *zaver.PaymentCreationRequest) (*zaver.PaymentStatusResponse, error) {
	if f.createPayment == nil {
		return nil, errors.New("not implemented")
	}
	return f.createPayment(ctx, req)
}

func (f *fakeClient) GetPaymentStatus(ctx context.Context, paymentID string) (*zaver.PaymentStatusResponse, error) {
	if f.getPaymentStatus == nil {
		return nil, errors.New("not implemented")
	}
	return f.getPaymentStatus(ctx, paymentID)
}

func (f *fakeClient) UpdatePayment(ctx context.Context, paymentID string, req *zaver.PaymentUpdateRequest) (*zaver.PaymentStatusResponse, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeClient) CapturePayment(ctx context.Context, paymentID string, req *zaver.PaymentCaptureRequest) (*zaver.PaymentCaptureResponse, error) {
	if f.capturePayment == nil {
		return nil, errors.New("not implemented")
	}
	return f.capturePayment(ctx, paymentID, req)
}

func (f *fakeClient) CancelPayment(ctx context.Context, paymentID string) (*zaver.PaymentStatusResponse, error) {
	if f.cancelPayment == nil {
		return nil, errors.New("not implemented")
	}
	return f.cancelPayment(ctx, paymentID)
}

func (f *fakeClient) CreateRefund(ctx context.Context, req *zaver.RefundCreationRequest) (*zaver.RefundResponse, error) {
	if f.createRefund == nil {
		return nil, errors.New("not implemented")
	}
	return f.createRefund(ctx, req)
}

func (f *fakeClient) ApproveRefund(ctx context.Context, refundID string, req *zaver.RefundUpdateRequest) (*zaver.RefundResponse, error) {
	if f.approveRefund == nil {
		return nil, errors.New("not implemented")
	}
	return f.approveRefund(ctx, refundID, req)
}

func (f *fakeClient) GetPaymentMethods(ctx context.Context, market string) (*zaver.PaymentMethodsResponse, error) {
	if f.getPaymentMethods == nil {
		return nil, errors.New("not implemented")
	}
	return f.getPaymentMethods(ctx, market)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testBuilder() *checkout.Builder {
	resolver := tax.NewTableResolver([]tax.Rate{
		{Country: "SE", Percent: dec("25")},
		{Country: "SE", Shipping: true, Percent: dec("25")},
	})
	return checkout.NewBuilder(resolver, "https://www.store.example/", "https://gateway.example", "")
}

// testOrder builds a pending order ready to check out.
func testOrder() *order.Order {
	return &order.Order{
		ID:       "order-1",
		Number:   "1001",
		Status:   order.StatusPending,
		Currency: "SEK",
		Total:    dec("125.00"),
		OrderKey: "wc_order_abc123",
		Billing:  order.Address{Country: "SE", FirstName: "Astrid", LastName: "Berg", Email: "astrid@example.com"},
		Items: []order.Item{
			{ID: "1", Kind: order.ItemProduct, Name: "Walnut desk", Quantity: 4, NetTotal: dec("100.00"), TaxTotal: dec("25.00"), Reference: "SKU-1", ProviderLineID: "line-1"},
		},
	}
}

// sessionOrder is a testOrder with an open payment session.
func sessionOrder() *order.Order {
	o := testOrder()
	o.SetPaymentSession(order.PaymentSession{PaymentID: "pay-1", Token: "tok-1"})
	return o
}

func mustSave(t *testing.T, store order.Store, o *order.Order) {
	t.Helper()
	if err := store.Save(context.Background(), o); err != nil {
		t.Fatalf("failed to save order: %v", err)
	}
}

// decodeErrorCode returns the error code from a standard error envelope.
func decodeErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error response %q: %v", rec.Body.String(), err)
	}
	return resp.Error.Code
}
