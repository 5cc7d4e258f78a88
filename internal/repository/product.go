package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/kart-checkout/internal/domain/product"
)

const (
	listProductsSQL = `SELECT id, name, price, stock, created_at
		FROM products ORDER BY id`

	getProductByIDSQL = `SELECT id, name, price, stock, created_at
		FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT id, name, price, stock, created_at
		FROM products WHERE id = ANY($1)`

	createProductSQL = `INSERT INTO products (id, name, price, stock, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	reserveStockSQL = `UPDATE products SET stock = stock - $2
		WHERE id = $1 AND stock >= $2`

	productExistsSQL = `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns all products from the catalog ordered by ID.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// GetByIDs returns products matching any of the given IDs.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Create persists a new catalog product.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	_, err := r.pool.Exec(ctx, createProductSQL,
		p.ID, p.Name, p.Price, p.Stock, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating product %q: %w", p.ID, err)
	}
	return nil
}

// ReserveStock decrements stock by quantity in one conditional UPDATE. The
// WHERE clause carries the availability check, so two concurrent reservations
// for the same product can never both pass it and drive stock negative.
func (r *ProductRepository) ReserveStock(ctx context.Context, id string, quantity int) error {
	tag, err := r.pool.Exec(ctx, reserveStockSQL, id, quantity)
	if err != nil {
		return fmt.Errorf("reserving stock for product %q: %w", id, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Distinguish a missing product from a stock shortfall.
	var exists bool
	if err := r.pool.QueryRow(ctx, productExistsSQL, id).Scan(&exists); err != nil {
		return fmt.Errorf("checking product %q: %w", id, err)
	}
	if !exists {
		return product.ErrNotFound
	}
	return product.ErrInsufficientStock
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.CreatedAt)
	return p, err
}
