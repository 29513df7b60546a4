// Package order holds the host platform's view of an order and its
// persistence contracts.
package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the host platform's order status.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusOnHold     Status = "on-hold"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded"
	StatusFailed     Status = "failed"
)

// ItemKind distinguishes the billing role of an order line.
type ItemKind string

const (
	ItemProduct  ItemKind = "product"
	ItemShipping ItemKind = "shipping"
	ItemFee      ItemKind = "fee"
	ItemCoupon   ItemKind = "coupon"
)

// Item is one line on an order. NetTotal and TaxTotal are tax-exclusive and
// tax amounts respectively; for coupon lines they hold the discount granted,
// as positive values.
type Item struct {
	ID             string          `json:"id"`
	Kind           ItemKind        `json:"kind"`
	Name           string          `json:"name"`
	Reference      string          `json:"reference,omitempty"`
	Quantity       int64           `json:"quantity"`
	NetTotal       decimal.Decimal `json:"net_total"`
	TaxTotal       decimal.Decimal `json:"tax_total"`
	TaxClass       string          `json:"tax_class,omitempty"`
	Virtual        bool            `json:"virtual,omitempty"`
	ProviderLineID string          `json:"provider_line_id,omitempty"`
}

// Address is a billing or shipping address on an order.
type Address struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Line1     string `json:"line1,omitempty"`
	Line2     string `json:"line2,omitempty"`
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`
	Postcode  string `json:"postcode,omitempty"`
	Country   string `json:"country,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// RefundItem itemizes part of a host-side refund against an order line.
type RefundItem struct {
	LineItemID     string          `json:"line_item_id,omitempty"`
	Name           string          `json:"name,omitempty"`
	Quantity       int64           `json:"quantity"`
	NetTotal       decimal.Decimal `json:"net_total"`
	TaxTotal       decimal.Decimal `json:"tax_total"`
	TaxRatePercent decimal.Decimal `json:"tax_rate_percent"`
}

// Refund is a host-side refund ledger entry. Entries are appended in
// creation order, so a later index means a more recently created refund.
type Refund struct {
	ID        string          `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	TaxTotal  decimal.Decimal `json:"tax_total"`
	Reason    string          `json:"reason,omitempty"`
	Items     []RefundItem    `json:"items,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Note is an entry on the order's activity log.
type Note struct {
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Order is the host platform's order record.
type Order struct {
	ID            string            `json:"id"`
	Number        string            `json:"number"`
	Status        Status            `json:"status"`
	Currency      string            `json:"currency"`
	Total         decimal.Decimal   `json:"total"`
	OrderKey      string            `json:"order_key"`
	CustomerID    string            `json:"customer_id,omitempty"`
	CreatedVia    string            `json:"created_via,omitempty"`
	TransactionID string            `json:"transaction_id,omitempty"`
	DatePaid      *time.Time        `json:"date_paid,omitempty"`
	Billing       Address           `json:"billing"`
	Shipping      Address           `json:"shipping"`
	Items         []Item            `json:"items"`
	Refunds       []Refund          `json:"refunds,omitempty"`
	Notes         []Note            `json:"notes,omitempty"`
	Meta          map[string]string `json:"meta,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// NeedsPayment reports whether the order is still waiting for a successful
// payment. Zero-total orders never need payment.
func (o *Order) NeedsPayment() bool {
	if !o.Total.IsPositive() {
		return false
	}
	return o.Status == StatusPending || o.Status == StatusFailed
}

// IsPaid reports whether a payment has completed for this order.
func (o *Order) IsPaid() bool {
	return o.DatePaid != nil
}

// PaymentComplete marks the order as paid with the given transaction id.
// It returns false without mutating the order when the order no longer
// needs payment, which makes settlement idempotent.
func (o *Order) PaymentComplete(transactionID string) bool {
	if !o.NeedsPayment() {
		return false
	}
	now := time.Now().UTC()
	o.TransactionID = transactionID
	o.DatePaid = &now
	o.Status = StatusProcessing
	return true
}

// UpdateStatus transitions the order and records a note when given one.
func (o *Order) UpdateStatus(status Status, note string) {
	o.Status = status
	if note != "" {
		o.AddNote(note)
	}
}

// AddNote appends an entry to the order's activity log.
func (o *Order) AddNote(text string) {
	o.Notes = append(o.Notes, Note{Text: text, CreatedAt: time.Now().UTC()})
}

// SetMeta stores a metadata value, allocating the map on first use.
func (o *Order) SetMeta(key, value string) {
	if o.Meta == nil {
		o.Meta = make(map[string]string)
	}
	o.Meta[key] = value
}

// GetMeta returns a metadata value, or the empty string when absent.
func (o *Order) GetMeta(key string) string {
	return o.Meta[key]
}
