package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/kart-checkout/internal/domain/cart"
	"github.com/xenking/kart-checkout/internal/domain/product"
)

// ProductNotFoundError indicates a cart line references a product that no
// longer exists in the catalog.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InsufficientStockError indicates a cart line requests more units than the
// product has available.
type InsufficientStockError struct {
	ProductID string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: %d available, %d requested",
		e.ProductID, e.Available, e.Requested)
}

// Service converts carts into orders and owns order reads. Status
// transitions past CREATED belong to the payment reconciler.
type Service struct {
	carts    cart.Repository
	products product.Repository
	orders   Repository
	checkout Checkout
	tracer   trace.Tracer
}

// NewService creates an order Service with the required dependencies.
func NewService(
	carts cart.Repository,
	products product.Repository,
	orders Repository,
	checkout Checkout,
) *Service {
	return &Service{
		carts:    carts,
		products: products,
		orders:   orders,
		checkout: checkout,
		tracer:   otel.Tracer("kart-checkout/order"),
	}
}

// CreateOrder converts the user's cart into an order in status CREATED.
//
// Every line is validated against the catalog and current stock before any
// mutation. The persisted commit (order insert, per-line stock decrement,
// cart clear) happens as a single atomic unit; concurrent checkouts racing
// over the same product are resolved by the conditional decrement inside
// the commit, which rolls the whole order back on a shortfall.
func (s *Service) CreateOrder(ctx context.Context, userID string) (*Order, error) {
	ctx, span := s.tracer.Start(ctx, "CreateOrder")
	defer span.End()

	items, err := s.carts.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ProductID
	}
	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	productMap := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		productMap[p.ID] = p
	}

	// Validate every line before mutating anything.
	for _, it := range items {
		p, ok := productMap[it.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: it.ProductID}
		}
		if p.Stock < it.Quantity {
			return nil, &InsufficientStockError{
				ProductID: it.ProductID,
				Available: p.Stock,
				Requested: it.Quantity,
			}
		}
	}

	// Snapshot names and prices; sum the total.
	lines := make([]Line, len(items))
	total := decimal.Zero
	for i, it := range items {
		p := productMap[it.ProductID]
		lines[i] = Line{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    it.Quantity,
			Price:       p.Price,
		}
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}

	o := &Order{
		ID:          uuid.New().String(),
		UserID:      userID,
		Lines:       lines,
		TotalAmount: total.Round(2),
		Status:      StatusCreated,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.checkout.Commit(ctx, o); err != nil {
		return nil, fmt.Errorf("commit order: %w", err)
	}

	zctx.From(ctx).Info("Order created",
		zap.String("order_id", o.ID),
		zap.String("user_id", userID),
		zap.Int("lines", len(o.Lines)),
		zap.String("total_amount", o.TotalAmount.String()),
	)
	return o, nil
}

// GetOrder returns a single order by its identifier.
func (s *Service) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", orderID, err)
	}
	return o, nil
}

// GetUserOrders returns the user's orders, most recent first.
func (s *Service) GetUserOrders(ctx context.Context, userID string) ([]Order, error) {
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders for user %s: %w", userID, err)
	}
	return orders, nil
}
