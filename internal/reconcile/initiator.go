package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/commercekit/zaver-gateway/internal/checkout"
	"github.com/commercekit/zaver-gateway/internal/order"
	"github.com/commercekit/zaver-gateway/internal/zaver"
)

// ErrRefundNotFound indicates that no host-side refund ledger entry matches
// the requested amount.
var ErrRefundNotFound = errors.New("no matching refund found on order")

// RefundInitiator sends host-side refunds to the provider.
type RefundInitiator struct {
	store   order.Store
	client  zaver.Client
	builder *checkout.Builder
	logger  *slog.Logger
}

// NewRefundInitiator creates a RefundInitiator.
func NewRefundInitiator(store order.Store, client zaver.Client, builder *checkout.Builder, logger *slog.Logger) *RefundInitiator {
	if logger == nil {
		logger = slog.Default()
	}
	return &RefundInitiator{store: store, client: client, builder: builder, logger: logger}
}

// Initiate creates a provider refund matching a host-side refund ledger
// entry of the given amount. When several entries share the amount the most
// recently created one is used. When representative is non-empty the refund
// is also approved on their behalf.
//
// Provider failures are recorded as an order note before the error is
// returned.
func (ri *RefundInitiator) Initiate(ctx context.Context, orderID string, amount decimal.Decimal, reason, representative string) (*zaver.RefundResponse, error) {
	o, err := ri.store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	sess := o.PaymentSession()
	if sess == nil || sess.PaymentID == "" {
		return nil, ErrMissingPaymentID
	}

	amount = amount.Abs().Round(2)

	entry := findRefund(o.Refunds, amount)
	if entry == nil {
		return nil, fmt.Errorf("%w: amount %s on order %s", ErrRefundNotFound, amount, o.ID)
	}

	req := ri.buildRequest(o, sess.PaymentID, entry, reason)

	resp, err := ri.client.CreateRefund(ctx, req)
	if err != nil {
		o.AddNote(fmt.Sprintf("Failed to request a refund of %s %s: %s", amount, o.Currency, err))
		if saveErr := ri.store.Save(ctx, o); saveErr != nil {
			ri.logger.ErrorContext(ctx, "failed to save order after refund failure",
				"order_id", o.ID,
				"error", saveErr,
			)
		}
		return nil, fmt.Errorf("failed to create refund for order %s: %w", o.ID, err)
	}

	o.AddRefundID(resp.RefundID)
	o.AddNote(fmt.Sprintf("Requested a refund of %.2f %s. Refund ID: %s",
		resp.RefundAmount, resp.Currency, resp.RefundID))

	if representative != "" {
		approved, err := ri.client.ApproveRefund(ctx, resp.RefundID, &zaver.RefundUpdateRequest{
			ActingRepresentative: &zaver.MerchantRepresentative{Username: representative},
		})
		if err != nil {
			ri.logger.WarnContext(ctx, "refund created but approval failed",
				"order_id", o.ID,
				"refund_id", resp.RefundID,
				"error", err,
			)
		} else {
			resp = approved
		}
	}

	if err := ri.store.Save(ctx, o); err != nil {
		return nil, fmt.Errorf("failed to save order %s: %w", o.ID, err)
	}

	ri.logger.InfoContext(ctx, "refund requested",
		"order_id", o.ID,
		"refund_id", resp.RefundID,
		"amount", amount,
	)
	return resp, nil
}

// findRefund returns the ledger entry matching the amount. Entries are in
// creation order, so scanning forward and keeping the last match selects the
// most recently created one.
func findRefund(refunds []order.Refund, amount decimal.Decimal) *order.Refund {
	var match *order.Refund
	for i := range refunds {
		if refunds[i].Amount.Abs().Round(2).Equal(amount) {
			match = &refunds[i]
		}
	}
	return match
}

func (ri *RefundInitiator) buildRequest(o *order.Order, paymentID string, entry *order.Refund, reason string) *zaver.RefundCreationRequest {
	if reason == "" {
		reason = entry.Reason
	}

	req := &zaver.RefundCreationRequest{
		PaymentID:        paymentID,
		InvoiceReference: o.Number,
		RefundAmount:     entry.Amount.Abs().Round(2).InexactFloat64(),
		Description:      reason,
		CallbackURL:      ri.builder.RefundCallbackURL(o),
		MerchantMetadata: ri.builder.Metadata(o),
	}

	items := refundLineItems(entry)
	if len(items) > 0 {
		req.LineItems = items
	} else {
		taxAmount := entry.TaxTotal.Abs().Round(2).InexactFloat64()
		req.RefundTaxAmount = &taxAmount
	}
	return req
}

// refundLineItems itemizes the refund against provider line items. Ledger
// items without a provider line id cannot be itemized; if any is missing the
// whole refund falls back to a flat tax amount.
func refundLineItems(entry *order.Refund) []zaver.RefundLineItem {
	items := make([]zaver.RefundLineItem, 0, len(entry.Items))
	for _, item := range entry.Items {
		if item.LineItemID == "" {
			return nil
		}
		items = append(items, zaver.RefundLineItem{
			LineItemID:     item.LineItemID,
			Quantity:       item.Quantity,
			RefundAmount:   item.NetTotal.Add(item.TaxTotal).Abs().Round(2).InexactFloat64(),
			TaxRatePercent: item.TaxRatePercent.InexactFloat64(),
			TaxAmount:      item.TaxTotal.Abs().Round(2).InexactFloat64(),
		})
	}
	return items
}
