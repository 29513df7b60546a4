package order

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound indicates that no order matches the lookup.
var ErrNotFound = errors.New("order not found")

// Store persists orders. Save replaces the stored order wholesale, so
// callers mutate a loaded copy and save it back.
type Store interface {
	// Get returns the order with the given id.
	Get(ctx context.Context, id string) (*Order, error)

	// GetByPaymentID returns the most recently created order carrying the
	// given provider payment id.
	GetByPaymentID(ctx context.Context, paymentID string) (*Order, error)

	// Save creates or replaces the order.
	Save(ctx context.Context, o *Order) error
}

// InMemoryStore is a Store backed by a map. Intended for tests and for
// running without a database.
type InMemoryStore struct {
	mu     sync.RWMutex
	orders map[string]*Order
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{orders: make(map[string]*Order)}
}

// Get returns a copy of the order with the given id.
func (s *InMemoryStore) Get(ctx context.Context, id string) (*Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyOrder(o), nil
}

// GetByPaymentID returns a copy of the most recently created order whose
// stored payment id matches.
func (s *InMemoryStore) GetByPaymentID(ctx context.Context, paymentID string) (*Order, error) {
	if paymentID == "" {
		return nil, ErrNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var newest *Order
	for _, o := range s.orders {
		if o.GetMeta(MetaPaymentID) != paymentID {
			continue
		}
		if newest == nil || o.CreatedAt.After(newest.CreatedAt) {
			newest = o
		}
	}
	if newest == nil {
		return nil, ErrNotFound
	}
	return copyOrder(newest), nil
}

// Save stores a copy of the order, replacing any existing record.
func (s *InMemoryStore) Save(ctx context.Context, o *Order) error {
	if o == nil || o.ID == "" {
		return errors.New("order id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.orders[o.ID] = copyOrder(o)
	return nil
}

// copyOrder deep-copies an order so callers cannot mutate stored state.
func copyOrder(o *Order) *Order {
	dup := *o
	if o.DatePaid != nil {
		t := *o.DatePaid
		dup.DatePaid = &t
	}
	if o.Items != nil {
		dup.Items = make([]Item, len(o.Items))
		copy(dup.Items, o.Items)
	}
	if o.Refunds != nil {
		dup.Refunds = make([]Refund, len(o.Refunds))
		for i, r := range o.Refunds {
			dup.Refunds[i] = r
			if r.Items != nil {
				dup.Refunds[i].Items = make([]RefundItem, len(r.Items))
				copy(dup.Refunds[i].Items, r.Items)
			}
		}
	}
	if o.Notes != nil {
		dup.Notes = make([]Note, len(o.Notes))
		copy(dup.Notes, o.Notes)
	}
	if o.Meta != nil {
		dup.Meta = make(map[string]string, len(o.Meta))
		for k, v := range o.Meta {
			dup.Meta[k] = v
		}
	}
	return &dup
}
