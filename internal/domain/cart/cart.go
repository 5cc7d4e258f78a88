package cart

import (
	"context"
	"time"

	"github.com/xenking/kart-checkout/internal/domain/product"
)

// Item is a single (user, product) entry in a shopping cart. The pair is
// unique per user; adding the same product again increments Quantity.
type Item struct {
	ID        string
	UserID    string
	ProductID string
	Quantity  int
	CreatedAt time.Time
}

// Line pairs a cart item with its resolved product. Product is nil when the
// catalog entry has been removed since the item was added.
type Line struct {
	Item    Item
	Product *product.Product
}

// Repository defines persistence operations for cart items.
type Repository interface {
	// Add inserts a cart item or, when one already exists for the
	// (userID, productID) pair, increments its quantity by quantity.
	// It returns the stored item after the merge.
	Add(ctx context.Context, userID, productID string, quantity int) (*Item, error)
	ListByUser(ctx context.Context, userID string) ([]Item, error)
	ClearByUser(ctx context.Context, userID string) error
}
