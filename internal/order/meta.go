package order

import (
	"encoding/json"
	"time"
)

// Metadata keys used to persist payment-provider state on an order.
const (
	MetaPaymentID     = "_zaver_payment_id"
	MetaCheckoutToken = "_zaver_checkout_token"
	MetaValidUntil    = "_zaver_valid_until"
	MetaPaymentLink   = "_zaver_payment_link"
	MetaRefundIDs     = "_zaver_refund_ids"
	MetaCaptured      = "_zaver_captured"
	MetaCancelled     = "_zaver_cancelled"

	metaRefundStatusPrefix = "_zaver_refund_status_"
)

// PaymentSession is the provider-side payment state stored on an order after
// a checkout session has been opened.
type PaymentSession struct {
	PaymentID  string
	Token      string
	ValidUntil time.Time
}

// PaymentSession returns the stored payment session, or nil when the order
// has none.
func (o *Order) PaymentSession() *PaymentSession {
	paymentID := o.GetMeta(MetaPaymentID)
	if paymentID == "" {
		return nil
	}
	sess := &PaymentSession{
		PaymentID: paymentID,
		Token:     o.GetMeta(MetaCheckoutToken),
	}
	if raw := o.GetMeta(MetaValidUntil); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			sess.ValidUntil = t
		}
	}
	return sess
}

// SetPaymentSession stores the payment session on the order's metadata.
func (o *Order) SetPaymentSession(sess PaymentSession) {
	o.SetMeta(MetaPaymentID, sess.PaymentID)
	o.SetMeta(MetaCheckoutToken, sess.Token)
	if !sess.ValidUntil.IsZero() {
		o.SetMeta(MetaValidUntil, sess.ValidUntil.UTC().Format(time.RFC3339))
	}
}

// RefundIDs returns the provider refund ids recorded on this order, in the
// order they were added.
func (o *Order) RefundIDs() []string {
	raw := o.GetMeta(MetaRefundIDs)
	if raw == "" {
		return nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil
	}
	return ids
}

// AddRefundID appends a provider refund id to the order's metadata.
func (o *Order) AddRefundID(id string) {
	ids := append(o.RefundIDs(), id)
	raw, err := json.Marshal(ids)
	if err != nil {
		return
	}
	o.SetMeta(MetaRefundIDs, string(raw))
}

// HasRefundID reports whether the given provider refund id belongs to this
// order.
func (o *Order) HasRefundID(id string) bool {
	for _, known := range o.RefundIDs() {
		if known == id {
			return true
		}
	}
	return false
}

// RefundStatusSeen returns the last refund status recorded for the given
// provider refund id, or the empty string when none has been seen.
func (o *Order) RefundStatusSeen(refundID string) string {
	return o.GetMeta(metaRefundStatusPrefix + refundID)
}

// MarkRefundStatus records the latest refund status seen for the given
// provider refund id.
func (o *Order) MarkRefundStatus(refundID, status string) {
	o.SetMeta(metaRefundStatusPrefix+refundID, status)
}

// Captured reports whether the payment behind this order has been captured.
func (o *Order) Captured() bool {
	return o.GetMeta(MetaCaptured) != ""
}

// MarkCaptured records the captured amount on the order's metadata.
func (o *Order) MarkCaptured(amount string) {
	o.SetMeta(MetaCaptured, amount)
}

// PaymentCancelled reports whether the payment behind this order has been
// cancelled at the provider.
func (o *Order) PaymentCancelled() bool {
	return o.GetMeta(MetaCancelled) != ""
}

// MarkPaymentCancelled records the provider-side cancellation.
func (o *Order) MarkPaymentCancelled() {
	o.SetMeta(MetaCancelled, "1")
}
