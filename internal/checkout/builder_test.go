package checkout

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/commercekit/zaver-gateway/internal/order"
	"github.com/commercekit/zaver-gateway/internal/tax"
	"github.com/commercekit/zaver-gateway/internal/zaver"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testResolver() tax.Resolver {
	return tax.NewTableResolver([]tax.Rate{
		{Country: "SE", Percent: dec("25")},
		{Country: "SE", Shipping: true, Percent: dec("25")},
	})
}

func testBuilder() *Builder {
	return NewBuilder(testResolver(), "https://www.store.example/", "https://gateway.example", "")
}

func testOrder() *order.Order {
	return &order.Order{
		ID:       "order-1",
		Number:   "1001",
		Status:   order.StatusPending,
		Currency: "SEK",
		Total:    dec("125.00"),
		OrderKey: "wc_order_abc123",
		Billing:  order.Address{Country: "SE", FirstName: "Astrid", LastName: "Berg", Email: "astrid@example.com", Line1: "Storgatan 1", City: "Stockholm", Postcode: "11122"},
		Items: []order.Item{
			{ID: "1", Kind: order.ItemProduct, Name: "Walnut desk", Quantity: 4, NetTotal: dec("100.00"), TaxTotal: dec("25.00"), Reference: "SKU-1", ProviderLineID: "line-1"},
		},
	}
}

func TestBuild_LineMath(t *testing.T) {
	req, err := testBuilder().Build(testOrder())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(req.LineItems) != 1 {
		t.Fatalf("expected 1 line item, got %d", len(req.LineItems))
	}
	line := req.LineItems[0]

	// 100.00 net + 25.00 tax over quantity 4
	if line.TotalAmount != 125.00 {
		t.Errorf("expected total 125.00, got %v", line.TotalAmount)
	}
	if line.UnitPrice != 31.25 {
		t.Errorf("expected unit price 31.25, got %v", line.UnitPrice)
	}
	if line.TaxRatePercent != 25.0 {
		t.Errorf("expected tax rate 25.0, got %v", line.TaxRatePercent)
	}
	if line.TaxAmount != 25.00 {
		t.Errorf("expected tax amount 25.00, got %v", line.TaxAmount)
	}
	if line.ItemType != zaver.ItemTypePhysical {
		t.Errorf("expected PHYSICAL, got %s", line.ItemType)
	}
	if line.ID != "line-1" || line.MerchantReference != "SKU-1" {
		t.Errorf("unexpected line identifiers %+v", line)
	}
}

func TestBuild_CouponBecomesNegativeDiscount(t *testing.T) {
	o := testOrder()
	o.Items = append(o.Items,
		order.Item{ID: "2", Kind: order.ItemShipping, Name: "Shipping", Quantity: 1, NetTotal: dec("10.00"), TaxTotal: dec("2.50")},
		order.Item{ID: "3", Kind: order.ItemFee, Name: "Handling", Quantity: 1, NetTotal: dec("4.00"), TaxTotal: dec("1.00")},
		order.Item{ID: "4", Kind: order.ItemCoupon, Name: "SUMMER10", Quantity: 1, NetTotal: dec("10.00"), TaxTotal: dec("2.50")},
	)

	req, err := testBuilder().Build(o)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(req.LineItems) != 4 {
		t.Fatalf("expected 4 line items, got %d", len(req.LineItems))
	}

	discount := req.LineItems[3]
	if discount.ItemType != zaver.ItemTypeDiscount {
		t.Errorf("expected DISCOUNT, got %s", discount.ItemType)
	}
	if discount.TotalAmount != -12.50 {
		t.Errorf("expected discount total -12.50, got %v", discount.TotalAmount)
	}
	if discount.TaxAmount != -2.50 {
		t.Errorf("expected discount tax -2.50, got %v", discount.TaxAmount)
	}
	if discount.UnitPrice != -12.50 {
		t.Errorf("expected discount unit price -12.50, got %v", discount.UnitPrice)
	}

	if req.LineItems[1].ItemType != zaver.ItemTypeShipping {
		t.Errorf("expected SHIPPING, got %s", req.LineItems[1].ItemType)
	}
	if req.LineItems[2].ItemType != zaver.ItemTypeFee {
		t.Errorf("expected FEE, got %s", req.LineItems[2].ItemType)
	}
}

func TestBuild_VirtualProductIsDigital(t *testing.T) {
	o := testOrder()
	o.Items[0].Virtual = true

	req, err := testBuilder().Build(o)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.LineItems[0].ItemType != zaver.ItemTypeDigital {
		t.Errorf("expected DIGITAL, got %s", req.LineItems[0].ItemType)
	}
}

func TestBuild_ZeroQuantityTreatedAsOne(t *testing.T) {
	o := testOrder()
	o.Items[0].Quantity = 0

	req, err := testBuilder().Build(o)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	line := req.LineItems[0]
	if line.Quantity != 1 {
		t.Errorf("expected quantity clamped to 1, got %d", line.Quantity)
	}
	if line.UnitPrice != 125.00 {
		t.Errorf("expected unit price equal to total, got %v", line.UnitPrice)
	}
}

func TestBuild_Validation(t *testing.T) {
	b := testBuilder()

	empty := testOrder()
	empty.Items = nil
	if _, err := b.Build(empty); !errors.Is(err, ErrNoItems) {
		t.Errorf("expected ErrNoItems, got %v", err)
	}

	noCurrency := testOrder()
	noCurrency.Currency = ""
	if _, err := b.Build(noCurrency); !errors.Is(err, ErrMissingCurrency) {
		t.Errorf("expected ErrMissingCurrency, got %v", err)
	}
}

func TestPurchaseTitle(t *testing.T) {
	b := testBuilder()

	single := testOrder()
	if got := b.PurchaseTitle(single); got != "Walnut desk" {
		t.Errorf("expected sole product name, got %q", got)
	}

	withShipping := testOrder()
	withShipping.Items = append(withShipping.Items,
		order.Item{Kind: order.ItemShipping, Name: "Shipping", Quantity: 1})
	if got := b.PurchaseTitle(withShipping); got != "Walnut desk" {
		t.Errorf("non-product lines should not affect the title, got %q", got)
	}

	multi := testOrder()
	multi.Items = append(multi.Items,
		order.Item{Kind: order.ItemProduct, Name: "Oak chair", Quantity: 1})
	if got := b.PurchaseTitle(multi); got != "Order 1001" {
		t.Errorf("expected generic title, got %q", got)
	}
}

func TestBuild_RequestEnvelope(t *testing.T) {
	req, err := testBuilder().Build(testOrder())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if req.Amount != 125.00 {
		t.Errorf("expected amount 125.00, got %v", req.Amount)
	}
	if req.Market != "SE" {
		t.Errorf("expected market SE, got %q", req.Market)
	}
	if req.MerchantPaymentReference != "store.example - 1001" {
		t.Errorf("unexpected merchant payment reference %q", req.MerchantPaymentReference)
	}
	if req.PayerData == nil || req.PayerData.GivenName != "Astrid" {
		t.Errorf("unexpected payer data %+v", req.PayerData)
	}
	if req.PayerData.BillingAddress == nil || req.PayerData.BillingAddress.City != "Stockholm" {
		t.Errorf("unexpected billing address %+v", req.PayerData.BillingAddress)
	}
	if req.PayerData.ShippingAddress != nil {
		t.Errorf("empty shipping address should be omitted, got %+v", req.PayerData.ShippingAddress)
	}
}

func TestMetadata(t *testing.T) {
	o := testOrder()
	o.CustomerID = "42"
	o.CreatedVia = "checkout"

	meta := testBuilder().Metadata(o)
	if meta["originPlatform"] != "commercekit" {
		t.Errorf("unexpected originPlatform %q", meta["originPlatform"])
	}
	if meta["originWebsite"] != "https://www.store.example" {
		t.Errorf("unexpected originWebsite %q", meta["originWebsite"])
	}
	if meta["orderId"] != "order-1" {
		t.Errorf("unexpected orderId %q", meta["orderId"])
	}
	if meta["customerId"] != "42" {
		t.Errorf("unexpected customerId %q", meta["customerId"])
	}
	if meta["originPage"] != "checkout" {
		t.Errorf("unexpected originPage %q", meta["originPage"])
	}

	guest := testOrder()
	guestMeta := testBuilder().Metadata(guest)
	if _, ok := guestMeta["customerId"]; ok {
		t.Error("guest orders should not carry a customerId")
	}
}

func TestURLs(t *testing.T) {
	b := testBuilder()
	o := testOrder()

	if got := b.SuccessURL(o); got != "https://www.store.example/checkout/order-received/order-1?key=wc_order_abc123" {
		t.Errorf("unexpected success url %q", got)
	}
	if got := b.CancelURL(); got != "https://www.store.example/checkout" {
		t.Errorf("unexpected cancel url %q", got)
	}
	if got := b.PayURL(o); got != "https://www.store.example/checkout/pay/order-1" {
		t.Errorf("unexpected pay url %q", got)
	}
	if got := b.PaymentCallbackURL(o); got != "https://gateway.example/callbacks/zaver/payment?key=wc_order_abc123" {
		t.Errorf("unexpected payment callback url %q", got)
	}
	if got := b.RefundCallbackURL(o); got != "https://gateway.example/callbacks/zaver/refund?key=wc_order_abc123" {
		t.Errorf("unexpected refund callback url %q", got)
	}
}

func TestCallbackURLsRequireHTTPS(t *testing.T) {
	b := NewBuilder(testResolver(), "https://store.example", "http://localhost:8080", "")
	o := testOrder()

	if got := b.PaymentCallbackURL(o); got != "" {
		t.Errorf("plaintext public url must not produce a callback url, got %q", got)
	}
	if got := b.RefundCallbackURL(o); got != "" {
		t.Errorf("plaintext public url must not produce a callback url, got %q", got)
	}

	req, err := b.Build(o)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.MerchantUrls.CallbackURL != "" {
		t.Errorf("expected empty callback url on the request, got %q", req.MerchantUrls.CallbackURL)
	}
	if req.MerchantUrls.SuccessURL == "" {
		t.Error("success url should still be present")
	}
}
