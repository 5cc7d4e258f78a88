package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for the order workflow.
var (
	ErrNotFound  = errors.New("order not found")
	ErrEmptyCart = errors.New("cart is empty")
)

// Status is the closed set of order lifecycle states.
type Status string

const (
	StatusCreated Status = "CREATED"
	StatusPaid    Status = "PAID"
	StatusFailed  Status = "FAILED"
)

// transitions declares the only legal edges of the order state machine.
var transitions = map[Status][]Status{
	StatusCreated: {StatusPaid, StatusFailed},
}

// CanTransitionTo reports whether moving from s to next is a declared edge.
func (s Status) CanTransitionTo(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Terminal reports whether s has no outgoing transitions.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// Line is a priced, quantity-snapshotted record of one product within an
// order. Name and price are captured at order time and never recomputed
// from the live catalog.
type Line struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

// Order represents a customer order built from a cart snapshot. Everything
// except Status is immutable after creation.
type Order struct {
	ID          string
	UserID      string
	Lines       []Line
	TotalAmount decimal.Decimal
	Status      Status
	CreatedAt   time.Time
}

// Repository defines read and status-update operations for orders.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)

	// UpdateStatus moves the order from the expected current status to the
	// next one. The write is conditional on the stored status still matching
	// from, so concurrent writers cannot interleave.
	UpdateStatus(ctx context.Context, id string, from, to Status) error
}

// Checkout persists a freshly built order together with its side effects --
// per-line stock decrement and cart clearing -- as one atomic unit. A stock
// shortfall discovered during the commit rolls everything back and surfaces
// product.ErrInsufficientStock.
type Checkout interface {
	Commit(ctx context.Context, o *Order) error
}
