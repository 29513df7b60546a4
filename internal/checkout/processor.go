package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/commercekit/zaver-gateway/internal/order"
	"github.com/commercekit/zaver-gateway/internal/zaver"
)

// Result is the outcome of opening a payment session.
type Result struct {
	PaymentID   string     `json:"payment_id"`
	Token       string     `json:"token"`
	ValidUntil  *time.Time `json:"valid_until,omitempty"`
	RedirectURL string     `json:"redirect_url"`
}

// Processor opens provider payment sessions for orders and persists the
// session state on the order.
type Processor struct {
	store   order.Store
	client  zaver.Client
	builder *Builder
	logger  *slog.Logger
}

// NewProcessor creates a Processor.
func NewProcessor(store order.Store, client zaver.Client, builder *Builder, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{store: store, client: client, builder: builder, logger: logger}
}

// Process opens a payment session for the order and stores the provider's
// payment id, checkout token and token expiry on the order.
func (p *Processor) Process(ctx context.Context, orderID string) (*Result, error) {
	o, err := p.store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	req, err := p.builder.Build(o)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.CreatePayment(ctx, req)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to create payment",
			"order_id", o.ID,
			"error", err,
		)
		return nil, fmt.Errorf("failed to create payment for order %s: %w", o.ID, err)
	}

	sess := order.PaymentSession{
		PaymentID: resp.PaymentID,
		Token:     resp.Token,
	}
	if resp.ValidUntil != nil {
		sess.ValidUntil = *resp.ValidUntil
	}
	o.SetPaymentSession(sess)

	if err := p.store.Save(ctx, o); err != nil {
		return nil, fmt.Errorf("failed to save order %s: %w", o.ID, err)
	}

	p.logger.InfoContext(ctx, "payment session created",
		"order_id", o.ID,
		"payment_id", resp.PaymentID,
	)

	return &Result{
		PaymentID:   resp.PaymentID,
		Token:       resp.Token,
		ValidUntil:  resp.ValidUntil,
		RedirectURL: p.builder.PayURL(o),
	}, nil
}
