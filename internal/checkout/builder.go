// Package checkout builds Zaver payment sessions from orders.
package checkout

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/commercekit/zaver-gateway/internal/order"
	"github.com/commercekit/zaver-gateway/internal/tax"
	"github.com/commercekit/zaver-gateway/internal/zaver"
)

var (
	// ErrNoItems indicates an order without any lines.
	ErrNoItems = errors.New("order has no line items")

	// ErrMissingCurrency indicates an order without a currency.
	ErrMissingCurrency = errors.New("order has no currency")
)

// Builder assembles payment creation requests from orders.
type Builder struct {
	taxes tax.Resolver

	// storeURL is the storefront's public base URL, used for redirect URLs
	// and the merchant payment reference.
	storeURL string

	// publicURL is this service's public base URL. Callback URLs are only
	// attached when it is served over HTTPS.
	publicURL string

	platform string
}

// NewBuilder creates a Builder. platform names the host platform in payment
// metadata and may be empty.
func NewBuilder(taxes tax.Resolver, storeURL, publicURL, platform string) *Builder {
	if platform == "" {
		platform = "commercekit"
	}
	return &Builder{
		taxes:     taxes,
		storeURL:  strings.TrimRight(storeURL, "/"),
		publicURL: strings.TrimRight(publicURL, "/"),
		platform:  platform,
	}
}

// Build assembles a payment creation request for the order.
func (b *Builder) Build(o *order.Order) (*zaver.PaymentCreationRequest, error) {
	if len(o.Items) == 0 {
		return nil, ErrNoItems
	}
	if o.Currency == "" {
		return nil, ErrMissingCurrency
	}

	req := &zaver.PaymentCreationRequest{
		Amount:                   o.Total.Round(2).InexactFloat64(),
		Currency:                 o.Currency,
		Market:                   o.Billing.Country,
		Title:                    b.PurchaseTitle(o),
		MerchantPaymentReference: fmt.Sprintf("%s - %s", b.storeID(), o.Number),
		LineItems:                b.LineItems(o),
		PayerData:                payerData(o),
		MerchantUrls: &zaver.MerchantUrls{
			SuccessURL:  b.SuccessURL(o),
			CancelURL:   b.CancelURL(),
			CallbackURL: b.PaymentCallbackURL(o),
		},
		MerchantMetadata: b.Metadata(o),
	}
	return req, nil
}

// PurchaseTitle is the sole product line's name when the order has exactly
// one, otherwise a generic order label.
func (b *Builder) PurchaseTitle(o *order.Order) string {
	var products []order.Item
	for _, item := range o.Items {
		if item.Kind == order.ItemProduct {
			products = append(products, item)
		}
	}
	if len(products) == 1 {
		return products[0].Name
	}
	return fmt.Sprintf("Order %s", o.Number)
}

// LineItems converts the order's lines to provider line items. Coupon lines
// come out as DISCOUNT items with negative totals and tax amounts.
func (b *Builder) LineItems(o *order.Order) []zaver.LineItem {
	items := make([]zaver.LineItem, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, b.lineItem(o, item))
	}
	return items
}

func (b *Builder) lineItem(o *order.Order, item order.Item) zaver.LineItem {
	qty := item.Quantity
	if qty < 1 {
		qty = 1
	}

	rate := b.taxes.RateFor(tax.Jurisdiction{
		Country:  o.Billing.Country,
		State:    o.Billing.State,
		City:     o.Billing.City,
		Postcode: o.Billing.Postcode,
		TaxClass: item.TaxClass,
	}, item.Kind == order.ItemShipping)

	net := item.NetTotal
	taxAmount := item.TaxTotal
	total := net.Add(taxAmount).Round(2)
	if item.Kind == order.ItemCoupon {
		total = total.Neg()
		taxAmount = taxAmount.Neg()
	}
	unit := total.Div(decimal.NewFromInt(qty)).Round(2)

	return zaver.LineItem{
		ID:                item.ProviderLineID,
		Name:              item.Name,
		Quantity:          qty,
		UnitPrice:         unit.InexactFloat64(),
		TotalAmount:       total.InexactFloat64(),
		TaxRatePercent:    rate.InexactFloat64(),
		TaxAmount:         taxAmount.Round(2).InexactFloat64(),
		ItemType:          itemType(item),
		MerchantReference: item.Reference,
	}
}

func itemType(item order.Item) zaver.ItemType {
	switch item.Kind {
	case order.ItemShipping:
		return zaver.ItemTypeShipping
	case order.ItemFee:
		return zaver.ItemTypeFee
	case order.ItemCoupon:
		return zaver.ItemTypeDiscount
	default:
		if item.Virtual {
			return zaver.ItemTypeDigital
		}
		return zaver.ItemTypePhysical
	}
}

// Metadata is the merchant metadata bag attached to payments and refunds so
// callbacks can be routed back to the order.
func (b *Builder) Metadata(o *order.Order) map[string]string {
	meta := map[string]string{
		"originPlatform": b.platform,
		"originWebsite":  b.storeURL,
		"orderId":        o.ID,
	}
	if o.CreatedVia != "" {
		meta["originPage"] = o.CreatedVia
	}
	if o.CustomerID != "" {
		meta["customerId"] = o.CustomerID
	}
	return meta
}

// SuccessURL is the storefront's order-received page for this order, keyed
// so the landing request can be authenticated.
func (b *Builder) SuccessURL(o *order.Order) string {
	return fmt.Sprintf("%s/checkout/order-received/%s?key=%s", b.storeURL, url.PathEscape(o.ID), url.QueryEscape(o.OrderKey))
}

// CancelURL is the storefront page a customer lands on after aborting.
func (b *Builder) CancelURL() string {
	return b.storeURL + "/checkout"
}

// PayURL is the storefront's payment page for the order, used when the
// customer must retry payment.
func (b *Builder) PayURL(o *order.Order) string {
	return fmt.Sprintf("%s/checkout/pay/%s", b.storeURL, url.PathEscape(o.ID))
}

// PaymentCallbackURL is this service's payment callback endpoint for the
// order, or empty when the service is not served over HTTPS. Zaver rejects
// plaintext callback URLs.
func (b *Builder) PaymentCallbackURL(o *order.Order) string {
	if !isHTTPS(b.publicURL) {
		return ""
	}
	return fmt.Sprintf("%s/callbacks/zaver/payment?key=%s", b.publicURL, url.QueryEscape(o.OrderKey))
}

// RefundCallbackURL is this service's refund callback endpoint for the
// order, or empty when the service is not served over HTTPS.
func (b *Builder) RefundCallbackURL(o *order.Order) string {
	if !isHTTPS(b.publicURL) {
		return ""
	}
	return fmt.Sprintf("%s/callbacks/zaver/refund?key=%s", b.publicURL, url.QueryEscape(o.OrderKey))
}

// storeID is the storefront host without scheme or leading www, matching the
// reference merchants see on their Zaver dashboard.
func (b *Builder) storeID() string {
	id := b.storeURL
	for _, prefix := range []string{"https://", "http://"} {
		id = strings.TrimPrefix(id, prefix)
	}
	return strings.TrimPrefix(id, "www.")
}

func isHTTPS(rawURL string) bool {
	return strings.HasPrefix(strings.ToLower(rawURL), "https:")
}

func payerData(o *order.Order) *zaver.PayerData {
	return &zaver.PayerData{
		GivenName:       o.Billing.FirstName,
		FamilyName:      o.Billing.LastName,
		Email:           o.Billing.Email,
		PhoneNumber:     o.Billing.Phone,
		BillingAddress:  providerAddress(o.Billing),
		ShippingAddress: providerAddress(o.Shipping),
	}
}

func providerAddress(a order.Address) *zaver.Address {
	if a.Line1 == "" && a.City == "" && a.Country == "" {
		return nil
	}
	return &zaver.Address{
		AddressLine1: a.Line1,
		AddressLine2: a.Line2,
		City:         a.City,
		Region:       a.State,
		PostalCode:   a.Postcode,
		Country:      a.Country,
	}
}
