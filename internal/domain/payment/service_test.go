package payment

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/kart-checkout/internal/domain/order"
)

// --- Mock implementations ---

type mockPaymentRepo struct {
	mu        sync.Mutex
	byOrderID map[string]*Payment
}

func (m *mockPaymentRepo) Create(_ context.Context, p *Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.byOrderID[p.OrderID] = &cp
	return nil
}

func (m *mockPaymentRepo) GetByOrderID(_ context.Context, orderID string) (*Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byOrderID[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockPaymentRepo) Update(_ context.Context, p *Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.byOrderID[p.OrderID] = &cp
	return nil
}

type mockOrderRepo struct {
	mu   sync.Mutex
	byID map[string]*order.Order
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byID[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) ListByUser(_ context.Context, _ string) ([]order.Order, error) {
	return nil, nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, id string, from, to order.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byID[id]
	if !ok {
		return order.ErrNotFound
	}
	if o.Status != from {
		return order.ErrNotFound
	}
	o.Status = to
	return nil
}

// --- Helpers ---

func newFixture(cfg Config, orders ...*order.Order) (*Service, *mockPaymentRepo, *mockOrderRepo) {
	payments := &mockPaymentRepo{byOrderID: make(map[string]*Payment)}
	orderRepo := &mockOrderRepo{byID: make(map[string]*order.Order)}
	for _, o := range orders {
		orderRepo.byID[o.ID] = o
	}
	return NewService(payments, orderRepo, cfg), payments, orderRepo
}

func createdOrder(id string) *order.Order {
	return &order.Order{
		ID:          id,
		UserID:      "u1",
		TotalAmount: decimal.RequireFromString("50.00"),
		Status:      order.StatusCreated,
	}
}

// --- Tests ---

func TestCreatePayment_Success(t *testing.T) {
	svc, _, _ := newFixture(Config{}, createdOrder("o1"))

	p, err := svc.CreatePayment(context.Background(), "o1", decimal.RequireFromString("50.0"))
	require.NoError(t, err)

	assert.Equal(t, "o1", p.OrderID)
	assert.Equal(t, StatusPending, p.Status)
	assert.True(t, strings.HasPrefix(p.PaymentID, "pay_"))
	assert.Len(t, p.PaymentID, len("pay_")+8)
	assert.True(t, decimal.RequireFromString("50.0").Equal(p.Amount))
}

func TestCreatePayment_OrderNotFound(t *testing.T) {
	svc, _, _ := newFixture(Config{})

	_, err := svc.CreatePayment(context.Background(), "nope", decimal.NewFromInt(10))
	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestCreatePayment_InvalidOrderState(t *testing.T) {
	paid := createdOrder("o1")
	paid.Status = order.StatusPaid
	svc, _, _ := newFixture(Config{}, paid)

	_, err := svc.CreatePayment(context.Background(), "o1", decimal.NewFromInt(10))

	var stateErr *InvalidOrderStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, order.StatusPaid, stateErr.Status)
}

func TestApplyWebhook_PaymentNotFound(t *testing.T) {
	svc, _, _ := newFixture(Config{}, createdOrder("o1"))

	err := svc.ApplyWebhook(context.Background(), "o1", "SUCCESS", "")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestApplyWebhook_Success(t *testing.T) {
	svc, payments, orders := newFixture(Config{}, createdOrder("o1"))
	_, err := svc.CreatePayment(context.Background(), "o1", decimal.RequireFromString("50.0"))
	require.NoError(t, err)

	require.NoError(t, svc.ApplyWebhook(context.Background(), "o1", "SUCCESS", "ext_123"))

	p := payments.byOrderID["o1"]
	assert.Equal(t, StatusSuccess, p.Status)
	assert.Equal(t, "ext_123", p.PaymentID)
	assert.Equal(t, order.StatusPaid, orders.byID["o1"].Status)
}

func TestApplyWebhook_Failed(t *testing.T) {
	svc, payments, orders := newFixture(Config{}, createdOrder("o1"))
	_, err := svc.CreatePayment(context.Background(), "o1", decimal.RequireFromString("50.0"))
	require.NoError(t, err)

	require.NoError(t, svc.ApplyWebhook(context.Background(), "o1", "FAILED", ""))

	assert.Equal(t, StatusFailed, payments.byOrderID["o1"].Status)
	assert.Equal(t, order.StatusFailed, orders.byID["o1"].Status)
}

func TestApplyWebhook_Idempotent(t *testing.T) {
	svc, payments, orders := newFixture(Config{}, createdOrder("o1"))
	_, err := svc.CreatePayment(context.Background(), "o1", decimal.RequireFromString("50.0"))
	require.NoError(t, err)

	for range 2 {
		require.NoError(t, svc.ApplyWebhook(context.Background(), "o1", "SUCCESS", "ext_123"))
		assert.Equal(t, order.StatusPaid, orders.byID["o1"].Status)
		assert.Equal(t, StatusSuccess, payments.byOrderID["o1"].Status)
	}
}

func TestApplyWebhook_TerminalStatePreservedByDefault(t *testing.T) {
	svc, payments, orders := newFixture(Config{}, createdOrder("o1"))
	_, err := svc.CreatePayment(context.Background(), "o1", decimal.RequireFromString("50.0"))
	require.NoError(t, err)

	require.NoError(t, svc.ApplyWebhook(context.Background(), "o1", "SUCCESS", ""))
	// A delayed FAILED must not flip the settled order.
	require.NoError(t, svc.ApplyWebhook(context.Background(), "o1", "FAILED", ""))

	assert.Equal(t, order.StatusPaid, orders.byID["o1"].Status)
	// The payment record still reflects the latest delivery.
	assert.Equal(t, StatusFailed, payments.byOrderID["o1"].Status)
}

func TestApplyWebhook_TerminalOverrideAllowed(t *testing.T) {
	svc, _, orders := newFixture(Config{AllowTerminalOverride: true}, createdOrder("o1"))
	_, err := svc.CreatePayment(context.Background(), "o1", decimal.RequireFromString("50.0"))
	require.NoError(t, err)

	require.NoError(t, svc.ApplyWebhook(context.Background(), "o1", "SUCCESS", ""))
	require.NoError(t, svc.ApplyWebhook(context.Background(), "o1", "FAILED", ""))

	assert.Equal(t, order.StatusFailed, orders.byID["o1"].Status)
}

func TestApplyWebhook_UnknownStatusLeavesOrderUntouched(t *testing.T) {
	svc, payments, orders := newFixture(Config{}, createdOrder("o1"))
	_, err := svc.CreatePayment(context.Background(), "o1", decimal.RequireFromString("50.0"))
	require.NoError(t, err)

	require.NoError(t, svc.ApplyWebhook(context.Background(), "o1", "PROCESSING", ""))

	assert.Equal(t, Status("PROCESSING"), payments.byOrderID["o1"].Status)
	assert.Equal(t, order.StatusCreated, orders.byID["o1"].Status)
}

func TestApplyWebhook_ConcurrentDeliveries(t *testing.T) {
	svc, _, orders := newFixture(Config{}, createdOrder("o1"))
	_, err := svc.CreatePayment(context.Background(), "o1", decimal.RequireFromString("50.0"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, svc.ApplyWebhook(context.Background(), "o1", "SUCCESS", "ext_123"))
		}()
	}
	wg.Wait()

	assert.Equal(t, order.StatusPaid, orders.byID["o1"].Status)
}

func TestGetByOrderID(t *testing.T) {
	svc, _, _ := newFixture(Config{}, createdOrder("o1"))

	_, err := svc.GetByOrderID(context.Background(), "o1")
	require.ErrorIs(t, err, ErrNotFound)

	created, err := svc.CreatePayment(context.Background(), "o1", decimal.RequireFromString("50.0"))
	require.NoError(t, err)

	got, err := svc.GetByOrderID(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}
