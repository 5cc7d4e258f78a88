package payment

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when no payment exists for the requested order.
var ErrNotFound = errors.New("payment not found")

// Status is the payment lifecycle state. Webhook deliveries overwrite it
// with the provider's status string verbatim, so values outside the declared
// constants can be stored; the order state machine only reacts to
// StatusSuccess and StatusFailed.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// Payment is a pending or settled payment attempt for one order. The design
// allows a single payment per order, enforced by lookup rather than a
// uniqueness constraint; callers must not create a second payment for the
// same order.
type Payment struct {
	ID        string
	OrderID   string
	Amount    decimal.Decimal
	PaymentID string // external provider reference
	Status    Status
	CreatedAt time.Time
}

// Repository defines persistence operations for payments.
type Repository interface {
	Create(ctx context.Context, p *Payment) error
	GetByOrderID(ctx context.Context, orderID string) (*Payment, error)
	Update(ctx context.Context, p *Payment) error
}
