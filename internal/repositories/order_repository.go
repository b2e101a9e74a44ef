package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

var ErrOrderNotFound = errors.New("order not found")

// OrderRepository stores raw order documents.
type OrderRepository interface {
	GetOrder(ctx context.Context, orderID string) ([]byte, error)
	PutOrder(ctx context.Context, orderID, customerEmail string, body []byte) error
}

// OrderRepo is a sqlx implementation of OrderRepository.
type OrderRepo struct {
	db *sqlx.DB
}

// NewOrderRepo constructs an OrderRepo.
func NewOrderRepo(db *sqlx.DB) *OrderRepo {
	return &OrderRepo{db: db}
}

// GetOrder returns the stored JSON document of an order.
func (r *OrderRepo) GetOrder(ctx context.Context, orderID string) ([]byte, error) {
	var body []byte
	err := r.db.GetContext(ctx, &body, `SELECT body FROM orders WHERE id=$1`, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	return body, err
}

// PutOrder creates or replaces an order document. Conversations of the order
// pick up the customer email.
func (r *OrderRepo) PutOrder(ctx context.Context, orderID, customerEmail string, body []byte) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO orders (id, customer_email, body) VALUES ($1, $2, $3)
        ON CONFLICT (id) DO UPDATE SET customer_email=EXCLUDED.customer_email, body=EXCLUDED.body`, orderID, customerEmail, body); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE conversations SET customer_email=$2 WHERE order_id=$1`, orderID, customerEmail); err != nil {
		return err
	}
	return tx.Commit()
}
