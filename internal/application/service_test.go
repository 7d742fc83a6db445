package application

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deofis/cursos-online-apirest/internal/domain"
	"github.com/deofis/cursos-online-apirest/internal/inventory"
	"github.com/deofis/cursos-online-apirest/internal/payment"
)

// ---- in-memory fakes with snapshot/rollback transaction semantics ----

type snapshotter interface {
	snapshot() (restore func())
}

type memTx struct {
	stores []snapshotter
}

func (t *memTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	restores := make([]func(), 0, len(t.stores))
	for _, s := range t.stores {
		restores = append(restores, s.snapshot())
	}
	if err := fn(ctx); err != nil {
		for i := len(restores) - 1; i >= 0; i-- {
			restores[i]()
		}
		return err
	}
	return nil
}

type memOrders struct {
	mu     sync.Mutex
	next   int64
	orders map[int64]*domain.Order
}

func newMemOrders() *memOrders {
	return &memOrders{next: 100, orders: make(map[int64]*domain.Order)}
}

func cloneOrder(o *domain.Order) *domain.Order {
	cp := *o
	cp.Items = append([]domain.LineItem(nil), o.Items...)
	if o.Payment != nil {
		p := *o.Payment
		cp.Payment = &p
	}
	return &cp
}

func (m *memOrders) Create(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	order.Number = m.next
	m.next++
	m.orders[order.Number] = cloneOrder(order)
	return nil
}

func (m *memOrders) Get(_ context.Context, number int64) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[number]
	if !ok {
		return nil, fmt.Errorf("order %d: %w", number, domain.ErrOrderNotFound)
	}
	return cloneOrder(o), nil
}

func (m *memOrders) GetForUpdate(ctx context.Context, number int64) (*domain.Order, error) {
	return m.Get(ctx, number)
}

func (m *memOrders) Update(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[order.Number]; !ok {
		return fmt.Errorf("order %d: %w", order.Number, domain.ErrOrderNotFound)
	}
	m.orders[order.Number] = cloneOrder(order)
	return nil
}

func (m *memOrders) List(_ context.Context, limit int) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Order, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, cloneOrder(o))
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memOrders) snapshot() func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	saved := make(map[int64]*domain.Order, len(m.orders))
	for n, o := range m.orders {
		saved[n] = cloneOrder(o)
	}
	savedNext := m.next
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.orders = saved
		m.next = savedNext
	}
}

type memSkus struct {
	mu   sync.Mutex
	skus map[int64]*domain.Sku
}

func newMemSkus(skus ...*domain.Sku) *memSkus {
	m := &memSkus{skus: make(map[int64]*domain.Sku)}
	for _, s := range skus {
		m.skus[s.ID] = s
	}
	return m
}

func (m *memSkus) Get(_ context.Context, id int64) (*domain.Sku, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.skus[id]
	if !ok {
		return nil, fmt.Errorf("sku %d: %w", id, domain.ErrSkuNotFound)
	}
	cp := *s
	return &cp, nil
}

func (m *memSkus) ReserveStock(_ context.Context, id int64, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.skus[id]
	if !ok {
		return domain.ErrSkuNotFound
	}
	if s.Available < qty {
		return domain.ErrInsufficientStock
	}
	s.Available -= qty
	return nil
}

func (m *memSkus) ReleaseStock(_ context.Context, id int64, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.skus[id]
	if !ok {
		return domain.ErrSkuNotFound
	}
	s.Available += qty
	return nil
}

func (m *memSkus) available(id int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.skus[id].Available
}

func (m *memSkus) snapshot() func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	saved := make(map[int64]*domain.Sku, len(m.skus))
	for id, s := range m.skus {
		cp := *s
		saved[id] = &cp
	}
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.skus = saved
	}
}

type recordingNotifier struct {
	mu         sync.Mutex
	registered []int64
	completed  []int64
}

func (n *recordingNotifier) OrderRegistered(_ context.Context, order *domain.Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.registered = append(n.registered, order.Number)
}

func (n *recordingNotifier) PaymentCompleted(_ context.Context, order *domain.Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completed = append(n.completed, order.Number)
}

type stubStrategy struct {
	createInfo   *domain.PaymentInfo
	createErr    error
	completeInfo *domain.PaymentInfo
	completeErr  error
}

func (s *stubStrategy) CreatePayment(_ context.Context, order *domain.Order) (*domain.PaymentInfo, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	info := *s.createInfo
	info.OrderNumber = order.Number
	return &info, nil
}

func (s *stubStrategy) CompletePayment(_ context.Context, order *domain.Order, _, referenceID string) (*domain.PaymentInfo, error) {
	if s.completeErr != nil {
		return nil, s.completeErr
	}
	if order.Payment.ProviderRef != referenceID {
		return nil, domain.ErrPaymentMismatch
	}
	info := *s.completeInfo
	info.OrderNumber = order.Number
	return &info, nil
}

// ---- environment ----

type env struct {
	orders   *memOrders
	skus     *memSkus
	notifier *recordingNotifier
	registry *payment.Registry
	service  *OrdersService
	checkout *CheckoutService
	now      time.Time
}

func newEnv(t *testing.T, skus ...*domain.Sku) *env {
	t.Helper()

	e := &env{
		orders:   newMemOrders(),
		skus:     newMemSkus(skus...),
		notifier: &recordingNotifier{},
		registry: payment.NewRegistry(),
		now:      time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	e.registry.Register(domain.MethodCash, payment.NewCashStrategy())

	tx := &memTx{stores: []snapshotter{e.orders, e.skus}}
	alloc := inventory.NewAllocator(e.skus)

	e.checkout = NewCheckoutService(tx, e.orders, e.registry, e.notifier)
	e.checkout.now = func() time.Time { return e.now }

	e.service = NewOrdersService(tx, e.orders, alloc, e.checkout, e.notifier)
	e.service.now = func() time.Time { return e.now }
	return e
}

func sku(id int64, available int, price float64) *domain.Sku {
	return &domain.Sku{
		ID:        id,
		Name:      fmt.Sprintf("sku-%d", id),
		ProductID: id,
		Price:     decimal.NewFromFloat(price),
		Available: available,
	}
}

func cashDraft(items ...inventory.ItemRequest) DraftOrder {
	return DraftOrder{
		Customer: domain.Customer{Email: "buyer@example.com", Name: "Ada Buyer"},
		Shipping: domain.ShippingAddress{Street: "Tverskaya 1", City: "Moscow", Zip: "101000"},
		Method:   domain.MethodCash,
		Items:    items,
	}
}

// ---- tests ----

func TestRegister_CashOrder(t *testing.T) {
	e := newEnv(t, sku(1, 10, 25.50), sku(2, 3, 9.99))

	info, err := e.service.Register(context.Background(), cashDraft(
		inventory.ItemRequest{SkuID: 1, Quantity: 2},
		inventory.ItemRequest{SkuID: 2, Quantity: 3},
	))
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, domain.PaymentCreated, info.Status)

	order, err := e.orders.Get(context.Background(), info.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaymentPending, order.Status)
	// 2*25.50 = 51.00, +3*9.99 = 29.97 -> 80.97
	assert.True(t, order.Total.Equal(decimal.NewFromFloat(80.97)), "total=%s", order.Total)
	require.NotNil(t, order.Payment)
	assert.Equal(t, domain.PaymentCreated, order.Payment.Status)
	assert.Equal(t, e.now, order.Payment.CreatedAt)
	assert.Nil(t, order.Payment.PaidAt)

	assert.Equal(t, 8, e.skus.available(1))
	assert.Equal(t, 0, e.skus.available(2))
	assert.Equal(t, []int64{order.Number}, e.notifier.registered)
}

func TestRegister_RoundsAfterEachAddition(t *testing.T) {
	e := newEnv(t, sku(1, 10, 1.115), sku(2, 10, 1.115))

	info, err := e.service.Register(context.Background(), cashDraft(
		inventory.ItemRequest{SkuID: 1, Quantity: 1},
		inventory.ItemRequest{SkuID: 2, Quantity: 1},
	))
	require.NoError(t, err)

	order, err := e.orders.Get(context.Background(), info.OrderNumber)
	require.NoError(t, err)
	// round(0 + 1.115) = 1.12, round(1.12 + 1.115) = 2.24; a single final
	// rounding would give 2.23.
	assert.True(t, order.Total.Equal(decimal.NewFromFloat(2.24)), "total=%s", order.Total)
}

func TestRegister_UsesActivePromotionPrice(t *testing.T) {
	s := sku(1, 5, 100)
	e := newEnv(t) // sku added below so the promotion window can use e.now
	s.Promotion = &domain.Promotion{
		OfferPrice: decimal.NewFromFloat(80),
		ValidFrom:  e.now.Add(-time.Hour),
		ValidUntil: e.now.Add(time.Hour),
	}
	e.skus.skus[1] = s

	info, err := e.service.Register(context.Background(), cashDraft(inventory.ItemRequest{SkuID: 1, Quantity: 1}))
	require.NoError(t, err)

	order, _ := e.orders.Get(context.Background(), info.OrderNumber)
	assert.True(t, order.Items[0].UnitPrice.Equal(decimal.NewFromFloat(80)))
	assert.True(t, order.Total.Equal(decimal.NewFromFloat(80)))
}

func TestRegister_IsDeterministic(t *testing.T) {
	run := func() (decimal.Decimal, int) {
		e := newEnv(t, sku(1, 10, 33.335), sku(2, 10, 12.07))
		info, err := e.service.Register(context.Background(), cashDraft(
			inventory.ItemRequest{SkuID: 1, Quantity: 3},
			inventory.ItemRequest{SkuID: 2, Quantity: 2},
		))
		require.NoError(t, err)
		order, _ := e.orders.Get(context.Background(), info.OrderNumber)
		return order.Total, e.skus.available(1)
	}

	totalA, stockA := run()
	totalB, stockB := run()
	assert.True(t, totalA.Equal(totalB))
	assert.Equal(t, stockA, stockB)
}

func TestRegister_InsufficientStockRollsBackEverything(t *testing.T) {
	e := newEnv(t, sku(1, 10, 5), sku(2, 1, 5))

	_, err := e.service.Register(context.Background(), cashDraft(
		inventory.ItemRequest{SkuID: 1, Quantity: 4}, // would decrement first
		inventory.ItemRequest{SkuID: 2, Quantity: 2}, // then fail here
	))
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	assert.Equal(t, 10, e.skus.available(1), "earlier decrement must be rolled back")
	assert.Equal(t, 1, e.skus.available(2))
	orders, _ := e.orders.List(context.Background(), 0)
	assert.Empty(t, orders, "no partial order is persisted")
	assert.Empty(t, e.notifier.registered)
}

func TestRegister_UnsupportedMethodRollsBackReservation(t *testing.T) {
	e := newEnv(t, sku(1, 5, 10))

	draft := cashDraft(inventory.ItemRequest{SkuID: 1, Quantity: 2})
	draft.Method = domain.MethodPayPal // not registered in this env

	_, err := e.service.Register(context.Background(), draft)
	require.ErrorIs(t, err, domain.ErrMethodNotSupported)
	assert.Equal(t, 5, e.skus.available(1))
}

func TestRegister_ProviderFailureRollsBackReservation(t *testing.T) {
	e := newEnv(t, sku(1, 5, 10))
	e.registry.Register(domain.MethodPayPal, &stubStrategy{
		createErr: fmt.Errorf("%w: provider down", domain.ErrPaymentCreation),
	})

	draft := cashDraft(inventory.ItemRequest{SkuID: 1, Quantity: 2})
	draft.Method = domain.MethodPayPal

	_, err := e.service.Register(context.Background(), draft)
	require.ErrorIs(t, err, domain.ErrPaymentCreation)
	assert.Equal(t, 5, e.skus.available(1), "inventory is never decremented on a failed creation")
	orders, _ := e.orders.List(context.Background(), 0)
	assert.Empty(t, orders)
}

func TestRegisterBuyNow_SingleItemOrder(t *testing.T) {
	e := newEnv(t, sku(1, 5, 19.90))

	info, err := e.service.RegisterBuyNow(context.Background(), BuyNowRequest{
		Customer: domain.Customer{Email: "buyer@example.com", Name: "Ada Buyer"},
		Shipping: domain.ShippingAddress{City: "Moscow"},
		Method:   domain.MethodCash,
		Item:     inventory.ItemRequest{SkuID: 1, Quantity: 2},
	})
	require.NoError(t, err)

	order, _ := e.orders.Get(context.Background(), info.OrderNumber)
	require.Len(t, order.Items, 1)
	assert.True(t, order.Total.Equal(decimal.NewFromFloat(39.80)))
	assert.Equal(t, 3, e.skus.available(1))
}

func registerCashOrder(t *testing.T, e *env, items ...inventory.ItemRequest) *domain.Order {
	t.Helper()
	info, err := e.service.Register(context.Background(), cashDraft(items...))
	require.NoError(t, err)
	order, err := e.orders.Get(context.Background(), info.OrderNumber)
	require.NoError(t, err)
	return order
}

func TestComplete_CashCheckout(t *testing.T) {
	e := newEnv(t, sku(1, 5, 10))
	order := registerCashOrder(t, e, inventory.ItemRequest{SkuID: 1, Quantity: 1})

	createdAt := order.Payment.CreatedAt
	e.now = e.now.Add(15 * time.Minute)

	info, err := e.checkout.Complete(context.Background(), order.Number, "-", "-")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentCompleted, info.Status)

	updated, _ := e.orders.Get(context.Background(), order.Number)
	assert.Equal(t, domain.StatusPaid, updated.Status)
	assert.Equal(t, domain.PaymentCompleted, updated.Payment.Status)
	assert.Equal(t, createdAt, updated.Payment.CreatedAt, "creation timestamp carried across completion")
	require.NotNil(t, updated.Payment.PaidAt)
	assert.Equal(t, e.now, *updated.Payment.PaidAt)
	assert.Equal(t, []int64{order.Number}, e.notifier.completed)
}

func TestComplete_DuplicateCallbackFailsAndChangesNothing(t *testing.T) {
	e := newEnv(t, sku(1, 5, 10))
	order := registerCashOrder(t, e, inventory.ItemRequest{SkuID: 1, Quantity: 1})

	_, err := e.checkout.Complete(context.Background(), order.Number, "-", "-")
	require.NoError(t, err)
	first, _ := e.orders.Get(context.Background(), order.Number)

	_, err = e.checkout.Complete(context.Background(), order.Number, "-", "-")
	require.ErrorIs(t, err, domain.ErrAlreadyCompleted)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))

	second, _ := e.orders.Get(context.Background(), order.Number)
	assert.Equal(t, first, second, "second call must not modify the payment record")
	assert.Len(t, e.notifier.completed, 1)
}

func TestComplete_ReferenceMismatchLeavesOrderUnchanged(t *testing.T) {
	e := newEnv(t, sku(1, 5, 10))
	e.registry.Register(domain.MethodPayPal, &stubStrategy{
		createInfo:   &domain.PaymentInfo{Provider: domain.MethodPayPal, ProviderRef: "PP-1", Status: domain.PaymentCreated},
		completeInfo: &domain.PaymentInfo{Provider: domain.MethodPayPal, ProviderRef: "PP-1", Status: domain.PaymentCompleted},
	})

	draft := cashDraft(inventory.ItemRequest{SkuID: 1, Quantity: 1})
	draft.Method = domain.MethodPayPal
	info, err := e.service.Register(context.Background(), draft)
	require.NoError(t, err)

	_, err = e.checkout.Complete(context.Background(), info.OrderNumber, "pay-1", "WRONG-REF")
	require.ErrorIs(t, err, domain.ErrPaymentMismatch)

	order, _ := e.orders.Get(context.Background(), info.OrderNumber)
	assert.Equal(t, domain.StatusPaymentPending, order.Status)
	assert.Equal(t, domain.PaymentCreated, order.Payment.Status)
}

func TestComplete_UnknownOrder(t *testing.T) {
	e := newEnv(t)
	_, err := e.checkout.Complete(context.Background(), 9999, "-", "-")
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestComplete_TransitionFailureRollsBackPaymentWrite(t *testing.T) {
	e := newEnv(t, sku(1, 5, 10))
	order := registerCashOrder(t, e, inventory.ItemRequest{SkuID: 1, Quantity: 1})

	// Force a status the COMPLETE_PAYMENT event is illegal from while the
	// payment itself still looks pending.
	stored, _ := e.orders.Get(context.Background(), order.Number)
	stored.Status = domain.StatusSent
	require.NoError(t, e.orders.Update(context.Background(), stored))

	_, err := e.checkout.Complete(context.Background(), order.Number, "-", "-")
	var illegal *domain.IllegalTransitionError
	require.ErrorAs(t, err, &illegal)

	after, _ := e.orders.Get(context.Background(), order.Number)
	assert.Equal(t, domain.StatusSent, after.Status)
	assert.Equal(t, domain.PaymentCreated, after.Payment.Status, "payment must not be left completed when the transition fails")
	assert.Nil(t, after.Payment.PaidAt)
}

func TestCancel_BeforePaymentReleasesInventory(t *testing.T) {
	e := newEnv(t, sku(1, 10, 5), sku(2, 4, 5))
	order := registerCashOrder(t, e,
		inventory.ItemRequest{SkuID: 1, Quantity: 3},
		inventory.ItemRequest{SkuID: 2, Quantity: 4},
	)
	assert.Equal(t, 7, e.skus.available(1))
	assert.Equal(t, 0, e.skus.available(2))

	cancelled, err := e.service.Cancel(context.Background(), order.Number)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)

	assert.Equal(t, 10, e.skus.available(1), "stock restored to pre-order level")
	assert.Equal(t, 4, e.skus.available(2))
}

func TestCancel_FromReceivedIsIllegal(t *testing.T) {
	e := newEnv(t, sku(1, 5, 10))
	order := registerCashOrder(t, e, inventory.ItemRequest{SkuID: 1, Quantity: 2})

	_, err := e.checkout.Complete(context.Background(), order.Number, "-", "-")
	require.NoError(t, err)
	_, err = e.service.RegisterShipped(context.Background(), order.Number)
	require.NoError(t, err)
	_, err = e.service.RegisterReceived(context.Background(), order.Number)
	require.NoError(t, err)

	_, err = e.service.Cancel(context.Background(), order.Number)
	var illegal *domain.IllegalTransitionError
	require.ErrorAs(t, err, &illegal)
	assert.Equal(t, domain.StatusReceived, illegal.From)

	assert.Equal(t, 3, e.skus.available(1), "no release on a rejected cancel")
}

func TestShippedAndReceived_SetTimestamps(t *testing.T) {
	e := newEnv(t, sku(1, 5, 10))
	order := registerCashOrder(t, e, inventory.ItemRequest{SkuID: 1, Quantity: 1})

	_, err := e.checkout.Complete(context.Background(), order.Number, "-", "-")
	require.NoError(t, err)

	e.now = e.now.Add(24 * time.Hour)
	shipped, err := e.service.RegisterShipped(context.Background(), order.Number)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSent, shipped.Status)
	require.NotNil(t, shipped.ShippedAt)
	assert.Equal(t, e.now, *shipped.ShippedAt)

	e.now = e.now.Add(48 * time.Hour)
	received, err := e.service.RegisterReceived(context.Background(), order.Number)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReceived, received.Status)
	require.NotNil(t, received.ReceivedAt)
	assert.Equal(t, e.now, *received.ReceivedAt)

	// Shipping an already received order is rejected.
	_, err = e.service.RegisterShipped(context.Background(), order.Number)
	require.Error(t, err)
}
