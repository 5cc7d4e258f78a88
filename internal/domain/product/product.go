package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// ErrInsufficientStock is returned when a stock reservation asks for more
// units than are currently available.
var ErrInsufficientStock = errors.New("insufficient stock")

// Product represents a catalog item available for purchase. Stock is only
// ever mutated through Repository.ReserveStock.
type Product struct {
	ID        string
	Name      string
	Price     decimal.Decimal
	Stock     int
	CreatedAt time.Time
}

// Repository defines persistence operations for the product catalog and the
// stock ledger.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	Create(ctx context.Context, p *Product) error

	// ReserveStock atomically checks that the product has at least quantity
	// units available and decrements the stock by that amount. It returns
	// ErrNotFound if the product does not exist and ErrInsufficientStock when
	// the check fails; in both cases nothing is mutated.
	ReserveStock(ctx context.Context, id string, quantity int) error
}
