package payment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/kart-checkout/internal/domain/order"
	"github.com/xenking/kart-checkout/pkg/keylock"
)

// InvalidOrderStateError indicates a payment was requested for an order that
// is not in status CREATED.
type InvalidOrderStateError struct {
	OrderID string
	Status  order.Status
}

func (e *InvalidOrderStateError) Error() string {
	return fmt.Sprintf("order %s is in status %s, payment requires CREATED", e.OrderID, e.Status)
}

// Config controls reconciliation policy.
type Config struct {
	// AllowTerminalOverride permits a webhook to move an order away from a
	// terminal status (PAID or FAILED). Off by default: a delayed duplicate
	// must not flip a settled order.
	AllowTerminalOverride bool
}

// Service creates pending payments and reconciles asynchronous provider
// webhooks against order state.
type Service struct {
	payments Repository
	orders   order.Repository
	cfg      Config
	locks    *keylock.KeyLock
	tracer   trace.Tracer
}

// NewService creates a payment Service with the required dependencies.
func NewService(payments Repository, orders order.Repository, cfg Config) *Service {
	return &Service{
		payments: payments,
		orders:   orders,
		cfg:      cfg,
		locks:    keylock.New(),
		tracer:   otel.Tracer("kart-checkout/payment"),
	}
}

// CreatePayment records a pending payment for an order in status CREATED.
// It does not transition the order; that happens when the provider calls
// back via ApplyWebhook.
func (s *Service) CreatePayment(ctx context.Context, orderID string, amount decimal.Decimal) (*Payment, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", orderID, err)
	}
	if o.Status != order.StatusCreated {
		return nil, &InvalidOrderStateError{OrderID: orderID, Status: o.Status}
	}

	p := &Payment{
		ID:        uuid.New().String(),
		OrderID:   orderID,
		Amount:    amount,
		PaymentID: mintPaymentRef(),
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.payments.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	zctx.From(ctx).Info("Payment created",
		zap.String("payment_id", p.ID),
		zap.String("order_id", orderID),
		zap.String("amount", amount.String()),
	)
	return p, nil
}

// ApplyWebhook applies a provider notification to the payment and order for
// orderID. Deliveries for the same order are serialized on a per-order lock,
// so a duplicate or concurrent webhook cannot interleave its payment and
// order writes with another delivery.
//
// The payment's status is overwritten with the webhook status as received;
// externalPaymentID, when non-empty, replaces the stored provider reference.
// The order only moves on "SUCCESS" (to PAID) or "FAILED" (to FAILED); any
// other status leaves it untouched. Re-applying the same webhook is a no-op
// on the order, and a transition away from a settled status is rejected
// unless Config.AllowTerminalOverride is set.
func (s *Service) ApplyWebhook(ctx context.Context, orderID, status, externalPaymentID string) error {
	ctx, span := s.tracer.Start(ctx, "ApplyWebhook")
	defer span.End()

	s.locks.Lock(orderID)
	defer s.locks.Unlock(orderID)

	p, err := s.payments.GetByOrderID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("get payment for order %s: %w", orderID, err)
	}

	p.Status = Status(status)
	if externalPaymentID != "" {
		p.PaymentID = externalPaymentID
	}
	if err := s.payments.Update(ctx, p); err != nil {
		return fmt.Errorf("update payment %s: %w", p.ID, err)
	}

	next, ok := orderStatusFor(status)
	if !ok {
		zctx.From(ctx).Warn("Webhook status has no order mapping, order untouched",
			zap.String("order_id", orderID),
			zap.String("status", status),
		)
		return nil
	}

	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("get order %s: %w", orderID, err)
	}
	if o.Status == next {
		// Duplicate delivery; the state is already what the webhook asks for.
		return nil
	}
	if !o.Status.CanTransitionTo(next) && !s.cfg.AllowTerminalOverride {
		zctx.From(ctx).Warn("Webhook rejected: order already settled",
			zap.String("order_id", orderID),
			zap.String("current", string(o.Status)),
			zap.String("requested", string(next)),
		)
		return nil
	}

	if err := s.orders.UpdateStatus(ctx, orderID, o.Status, next); err != nil {
		return fmt.Errorf("update order %s status: %w", orderID, err)
	}

	zctx.From(ctx).Info("Order reconciled from webhook",
		zap.String("order_id", orderID),
		zap.String("order_status", string(next)),
		zap.String("payment_status", status),
	)
	return nil
}

// GetByOrderID returns the payment for an order, or ErrNotFound.
func (s *Service) GetByOrderID(ctx context.Context, orderID string) (*Payment, error) {
	return s.payments.GetByOrderID(ctx, orderID)
}

// orderStatusFor maps a webhook status to the resulting order status.
func orderStatusFor(status string) (order.Status, bool) {
	switch status {
	case string(StatusSuccess):
		return order.StatusPaid, true
	case string(StatusFailed):
		return order.StatusFailed, true
	default:
		return "", false
	}
}

// mintPaymentRef produces an opaque provider-style reference like
// pay_1a2b3c4d.
func mintPaymentRef() string {
	return "pay_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}
