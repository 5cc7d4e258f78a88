package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/kart-checkout/internal/domain/payment"
)

const (
	createPaymentSQL = `INSERT INTO payments (id, order_id, amount, payment_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	getPaymentByOrderIDSQL = `SELECT id, order_id, amount, payment_id, status, created_at
		FROM payments WHERE order_id = $1
		ORDER BY created_at LIMIT 1`

	updatePaymentSQL = `UPDATE payments SET payment_id = $2, status = $3
		WHERE id = $1`
)

var _ payment.Repository = (*PaymentRepository)(nil)

// PaymentRepository implements payment.Repository backed by PostgreSQL.
type PaymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository returns a PaymentRepository that uses the given pool.
func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

// Create persists a new payment record.
func (r *PaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	_, err := r.pool.Exec(ctx, createPaymentSQL,
		p.ID, p.OrderID, p.Amount, p.PaymentID, p.Status, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating payment %q: %w", p.ID, err)
	}
	return nil
}

// GetByOrderID returns the payment for an order, or payment.ErrNotFound.
func (r *PaymentRepository) GetByOrderID(ctx context.Context, orderID string) (*payment.Payment, error) {
	rows, err := r.pool.Query(ctx, getPaymentByOrderIDSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("getting payment for order %q: %w", orderID, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanPayment)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payment.ErrNotFound
		}
		return nil, fmt.Errorf("getting payment for order %q: %w", orderID, err)
	}
	return &p, nil
}

// Update persists the mutable payment fields (provider reference and status).
func (r *PaymentRepository) Update(ctx context.Context, p *payment.Payment) error {
	_, err := r.pool.Exec(ctx, updatePaymentSQL, p.ID, p.PaymentID, p.Status)
	if err != nil {
		return fmt.Errorf("updating payment %q: %w", p.ID, err)
	}
	return nil
}

func scanPayment(row pgx.CollectableRow) (payment.Payment, error) {
	var p payment.Payment
	err := row.Scan(&p.ID, &p.OrderID, &p.Amount, &p.PaymentID, &p.Status, &p.CreatedAt)
	return p, err
}
