package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/commercekit/zaver-gateway/internal/tracing"
)

// PostgresStore is a Store backed by Postgres. The full order is stored as a
// JSONB payload; the columns used for lookups are kept alongside it.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store on top of an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the orders table when it does not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS orders (
			id         TEXT PRIMARY KEY,
			payment_id TEXT,
			payload    JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_orders_payment_id ON orders (payment_id) WHERE payment_id IS NOT NULL;
	`)
	if err != nil {
		return fmt.Errorf("failed to ensure orders schema: %w", err)
	}
	return nil
}

// Get returns the order with the given id.
func (s *PostgresStore) Get(ctx context.Context, id string) (*Order, error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "orders", tracing.DBOperationQuery)
	row := s.db.QueryRowContext(ctx, `SELECT payload FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	endSpan(err)
	return o, err
}

// GetByPaymentID returns the most recently created order carrying the given
// provider payment id. The payment id is verified against the decoded
// payload to guard against stale index columns.
func (s *PostgresStore) GetByPaymentID(ctx context.Context, paymentID string) (*Order, error) {
	if paymentID == "" {
		return nil, ErrNotFound
	}
	ctx, endSpan := tracing.StartDBSpan(ctx, "orders", tracing.DBOperationQuery)
	row := s.db.QueryRowContext(ctx, `
		SELECT payload FROM orders
		WHERE payment_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, paymentID)
	o, err := scanOrder(row)
	endSpan(err)
	if err != nil {
		return nil, err
	}
	if o.GetMeta(MetaPaymentID) != paymentID {
		return nil, ErrNotFound
	}
	return o, nil
}

// Save upserts the order in a single transaction.
func (s *PostgresStore) Save(ctx context.Context, o *Order) (err error) {
	if o == nil || o.ID == "" {
		return errors.New("order id is required")
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, "orders", tracing.DBOperationUpsert)
	defer func() { endSpan(err) }()

	now := time.Now().UTC()
	o.UpdatedAt = now
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}

	payload, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("failed to encode order: %w", err)
	}

	var paymentID sql.NullString
	if id := o.GetMeta(MetaPaymentID); id != "" {
		paymentID = sql.NullString{String: id, Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, payment_id, payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			payment_id = EXCLUDED.payment_id,
			payload    = EXCLUDED.payload,
			updated_at = EXCLUDED.updated_at
	`, o.ID, paymentID, payload, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func scanOrder(row *sql.Row) (*Order, error) {
	var payload []byte
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	var o Order
	if err := json.Unmarshal(payload, &o); err != nil {
		return nil, fmt.Errorf("failed to decode order: %w", err)
	}
	return &o, nil
}
