package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/kart-checkout/internal/domain/cart"
)

const (
	addCartItemSQL = `INSERT INTO cart_items (id, user_id, product_id, quantity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + excluded.quantity
		RETURNING id, user_id, product_id, quantity, created_at`

	listCartItemsSQL = `SELECT id, user_id, product_id, quantity, created_at
		FROM cart_items WHERE user_id = $1 ORDER BY created_at`

	clearCartSQL = `DELETE FROM cart_items WHERE user_id = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// Add upserts a cart item. The ON CONFLICT clause merges quantities for an
// existing (user_id, product_id) pair in a single atomic statement, so
// concurrent adds cannot produce duplicate rows or lost increments.
func (r *CartRepository) Add(ctx context.Context, userID, productID string, quantity int) (*cart.Item, error) {
	rows, err := r.pool.Query(ctx, addCartItemSQL,
		uuid.New().String(), userID, productID, quantity,
	)
	if err != nil {
		return nil, fmt.Errorf("adding cart item: %w", err)
	}

	item, err := pgx.CollectExactlyOneRow(rows, scanCartItem)
	if err != nil {
		return nil, fmt.Errorf("adding cart item: %w", err)
	}
	return &item, nil
}

// ListByUser returns all cart items for a user in insertion order.
func (r *CartRepository) ListByUser(ctx context.Context, userID string) ([]cart.Item, error) {
	rows, err := r.pool.Query(ctx, listCartItemsSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing cart items for user %q: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanCartItem)
}

// ClearByUser deletes every cart item for a user. An empty cart is not an
// error.
func (r *CartRepository) ClearByUser(ctx context.Context, userID string) error {
	if _, err := r.pool.Exec(ctx, clearCartSQL, userID); err != nil {
		return fmt.Errorf("clearing cart for user %q: %w", userID, err)
	}
	return nil
}

func scanCartItem(row pgx.CollectableRow) (cart.Item, error) {
	var it cart.Item
	err := row.Scan(&it.ID, &it.UserID, &it.ProductID, &it.Quantity, &it.CreatedAt)
	return it, err
}
