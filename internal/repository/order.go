package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/kart-checkout/internal/domain/order"
	"github.com/xenking/kart-checkout/internal/domain/product"
)

const (
	createOrderSQL = `INSERT INTO orders (id, user_id, lines, total_amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	getOrderByIDSQL = `SELECT id, user_id, lines, total_amount, status, created_at
		FROM orders WHERE id = $1`

	listOrdersByUserSQL = `SELECT id, user_id, lines, total_amount, status, created_at
		FROM orders WHERE user_id = $1 ORDER BY created_at DESC`

	updateOrderStatusSQL = `UPDATE orders SET status = $3
		WHERE id = $1 AND status = $2`
)

var (
	_ order.Repository = (*OrderRepository)(nil)
	_ order.Checkout   = (*OrderRepository)(nil)
)

// OrderRepository implements order.Repository and order.Checkout backed by
// PostgreSQL. Order lines are serialized to a JSONB column; they are
// immutable after creation so no per-line table is needed.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Commit persists the order, decrements stock for every line, and clears the
// user's cart inside a single transaction. A conditional stock decrement
// affecting zero rows means another checkout won the race; the transaction
// rolls back and the shortfall surfaces as a domain error, leaving stock,
// orders, and the cart untouched.
func (r *OrderRepository) Commit(ctx context.Context, o *order.Order) error {
	linesJSON, err := json.Marshal(o.Lines)
	if err != nil {
		return fmt.Errorf("marshaling order lines: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning checkout transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, createOrderSQL,
		o.ID, o.UserID, linesJSON, o.TotalAmount, o.Status, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	for _, line := range o.Lines {
		tag, err := tx.Exec(ctx, reserveStockSQL, line.ProductID, line.Quantity)
		if err != nil {
			return fmt.Errorf("reserving stock for product %q: %w", line.ProductID, err)
		}
		if tag.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx, productExistsSQL, line.ProductID).Scan(&exists); err != nil {
				return fmt.Errorf("checking product %q: %w", line.ProductID, err)
			}
			if !exists {
				return fmt.Errorf("reserving stock for product %q: %w", line.ProductID, product.ErrNotFound)
			}
			return fmt.Errorf("reserving stock for product %q: %w", line.ProductID, product.ErrInsufficientStock)
		}
	}

	if _, err := tx.Exec(ctx, clearCartSQL, o.UserID); err != nil {
		return fmt.Errorf("clearing cart for user %q: %w", o.UserID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing checkout for order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID returns a single order by its identifier.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

// ListByUser returns a user's orders, most recent first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %q: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// UpdateStatus moves the order status from the expected current value to the
// next one. The UPDATE is conditional on the stored status, so a concurrent
// writer that got there first makes this call fail instead of silently
// clobbering its transition.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, from, to order.Status) error {
	tag, err := r.pool.Exec(ctx, updateOrderStatusSQL, id, from, to)
	if err != nil {
		return fmt.Errorf("updating order %q status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("updating order %q status: expected status %s no longer current", id, from)
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o         order.Order
		linesJSON []byte
	)
	if err := row.Scan(&o.ID, &o.UserID, &linesJSON, &o.TotalAmount, &o.Status, &o.CreatedAt); err != nil {
		return o, err
	}
	if err := json.Unmarshal(linesJSON, &o.Lines); err != nil {
		return o, fmt.Errorf("unmarshaling order lines: %w", err)
	}
	return o, nil
}
