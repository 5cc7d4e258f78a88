package cart

import (
	"context"
	"fmt"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/kart-checkout/internal/domain/product"
)

// ErrInvalidQuantity is returned when an add request carries a quantity
// below 1.
var ErrInvalidQuantity = fmt.Errorf("quantity must be greater than 0")

// InsufficientStockError indicates the requested quantity exceeds the
// product's currently available stock.
type InsufficientStockError struct {
	ProductID string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: %d available, %d requested",
		e.ProductID, e.Available, e.Requested)
}

// Service encapsulates cart business logic. It validates products against
// the catalog but never mutates stock; reservation happens at order time.
type Service struct {
	carts    Repository
	products product.Repository
}

// NewService creates a cart Service with the required dependencies.
func NewService(carts Repository, products product.Repository) *Service {
	return &Service{
		carts:    carts,
		products: products,
	}
}

// AddItem validates the product and its available stock, then merges the
// quantity into the user's cart. Stock is checked here as an early guard
// only; the authoritative check-and-decrement happens during checkout.
func (s *Service) AddItem(ctx context.Context, userID, productID string, quantity int) (*Item, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", productID, err)
	}
	if p.Stock < quantity {
		return nil, &InsufficientStockError{
			ProductID: productID,
			Available: p.Stock,
			Requested: quantity,
		}
	}

	item, err := s.carts.Add(ctx, userID, productID, quantity)
	if err != nil {
		return nil, fmt.Errorf("add cart item: %w", err)
	}

	zctx.From(ctx).Info("Cart item added",
		zap.String("user_id", userID),
		zap.String("product_id", productID),
		zap.Int("quantity", item.Quantity),
	)
	return item, nil
}

// GetCart returns the user's cart items with their products resolved in a
// single batch. A product deleted after being added to the cart yields a
// line with a nil Product rather than failing the whole listing.
func (s *Service) GetCart(ctx context.Context, userID string) ([]Line, error) {
	items, err := s.carts.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	if len(items) == 0 {
		return []Line{}, nil
	}

	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ProductID
	}
	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}

	productMap := make(map[string]*product.Product, len(fetched))
	for i := range fetched {
		productMap[fetched[i].ID] = &fetched[i]
	}

	lines := make([]Line, len(items))
	for i, it := range items {
		p, ok := productMap[it.ProductID]
		if !ok {
			zctx.From(ctx).Warn("Cart references missing product",
				zap.String("user_id", userID),
				zap.String("product_id", it.ProductID),
			)
		}
		lines[i] = Line{Item: it, Product: p}
	}
	return lines, nil
}

// ClearCart removes every item from the user's cart. Clearing an already
// empty cart succeeds.
func (s *Service) ClearCart(ctx context.Context, userID string) error {
	if err := s.carts.ClearByUser(ctx, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	zctx.From(ctx).Info("Cart cleared", zap.String("user_id", userID))
	return nil
}
