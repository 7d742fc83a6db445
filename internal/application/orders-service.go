package application

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/deofis/cursos-online-apirest/internal/domain"
	"github.com/deofis/cursos-online-apirest/internal/inventory"
	"github.com/deofis/cursos-online-apirest/internal/logger"
)

// DraftOrder is the caller-supplied input for registering an order. Identity
// comes in explicitly with every call; there is no ambient logged-in user.
type DraftOrder struct {
	Customer domain.Customer         `json:"customer"`
	Shipping domain.ShippingAddress  `json:"shipping"`
	Method   domain.PaymentMethod    `json:"payment_method"`
	Items    []inventory.ItemRequest `json:"items"`
}

// BuyNowRequest registers an order from a single SKU and quantity, skipping
// the cart.
type BuyNowRequest struct {
	Customer domain.Customer        `json:"customer"`
	Shipping domain.ShippingAddress `json:"shipping"`
	Method   domain.PaymentMethod   `json:"payment_method"`
	Item     inventory.ItemRequest  `json:"item"`
}

// OrdersService owns order creation (pricing, inventory allocation,
// persistence) and the shipment/receipt/cancellation transitions. Checkout is
// delegated to CheckoutService.
type OrdersService struct {
	tx        TxManager
	orders    OrderRepository
	allocator *inventory.Allocator
	checkout  *CheckoutService
	notifier  Notifier
	now       func() time.Time
}

func NewOrdersService(tx TxManager, orders OrderRepository, allocator *inventory.Allocator, checkout *CheckoutService, notifier Notifier) *OrdersService {
	return &OrdersService{
		tx:        tx,
		orders:    orders,
		allocator: allocator,
		checkout:  checkout,
		notifier:  notifier,
		now:       time.Now,
	}
}

// Register validates and prices a draft order, reserves stock for every line,
// persists the order with a pending payment and returns the payment info. The
// whole sequence is one unit of work: a failure at any step rolls back every
// decrement and write already made.
func (s *OrdersService) Register(ctx context.Context, draft DraftOrder) (*domain.PaymentInfo, error) {
	var (
		info  *domain.PaymentInfo
		order *domain.Order
	)

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		now := s.now()

		skus, err := s.allocator.Reserve(ctx, draft.Items)
		if err != nil {
			return err
		}

		order = &domain.Order{
			Customer:  draft.Customer,
			Shipping:  draft.Shipping,
			Method:    draft.Method,
			Status:    domain.StatusPaymentPending,
			Total:     decimal.Zero,
			CreatedAt: now,
		}

		for i, req := range draft.Items {
			sku := skus[i]
			unit := sku.SalePriceAt(now)
			subtotal := unit.Mul(decimal.NewFromInt(int64(req.Quantity)))
			order.Items = append(order.Items, domain.LineItem{
				SkuID:     sku.ID,
				SkuName:   sku.Name,
				Quantity:  req.Quantity,
				UnitPrice: unit,
				Subtotal:  subtotal,
			})
			// Running total is rounded after every addition, not once at the
			// end. Totals are reproducible for identical input.
			order.Total = order.Total.Add(subtotal).Round(2)
		}

		if err := s.orders.Create(ctx, order); err != nil {
			return err
		}

		info, err = s.checkout.Initiate(ctx, order)
		if err != nil {
			return err
		}

		pay := info.ToPayment()
		pay.CreatedAt = now
		order.Payment = &pay
		return s.orders.Update(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("order registered", "order", order.Number, "total", order.Total.String(), "method", order.Method)
	s.notifier.OrderRegistered(ctx, order)
	return info, nil
}

// RegisterBuyNow wraps a single item as a one-line order and registers it.
func (s *OrdersService) RegisterBuyNow(ctx context.Context, req BuyNowRequest) (*domain.PaymentInfo, error) {
	return s.Register(ctx, DraftOrder{
		Customer: req.Customer,
		Shipping: req.Shipping,
		Method:   req.Method,
		Items:    []inventory.ItemRequest{req.Item},
	})
}

// RegisterShipped records that the order left the warehouse.
func (s *OrdersService) RegisterShipped(ctx context.Context, orderNumber int64) (*domain.Order, error) {
	return s.applyEvent(ctx, orderNumber, domain.EventSend, func(_ context.Context, order *domain.Order, at time.Time) error {
		order.ShippedAt = &at
		return nil
	})
}

// RegisterReceived records that the customer received the goods.
func (s *OrdersService) RegisterReceived(ctx context.Context, orderNumber int64) (*domain.Order, error) {
	return s.applyEvent(ctx, orderNumber, domain.EventReceive, func(_ context.Context, order *domain.Order, at time.Time) error {
		order.ReceivedAt = &at
		return nil
	})
}

// Cancel cancels an order that has not shipped and returns every reserved
// unit back to stock, atomically with the status change.
func (s *OrdersService) Cancel(ctx context.Context, orderNumber int64) (*domain.Order, error) {
	return s.applyEvent(ctx, orderNumber, domain.EventCancel, func(ctx context.Context, order *domain.Order, _ time.Time) error {
		return s.allocator.Release(ctx, order.Items)
	})
}

// applyEvent loads and locks the order, asks the state machine to accept the
// event, runs the event's side effect and persists the new status as one unit
// of work.
func (s *OrdersService) applyEvent(ctx context.Context, orderNumber int64, event domain.OrderEvent, sideEffect func(context.Context, *domain.Order, time.Time) error) (*domain.Order, error) {
	var updated *domain.Order

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		order, err := s.orders.GetForUpdate(ctx, orderNumber)
		if err != nil {
			return err
		}

		next, err := domain.Transition(order.Status, event)
		if err != nil {
			return err
		}

		at := s.now()
		if err := sideEffect(ctx, order, at); err != nil {
			return err
		}

		order.Status = next
		if err := s.orders.Update(ctx, order); err != nil {
			return err
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("order status changed", "order", orderNumber, "event", event, "status", updated.Status)
	return updated, nil
}

// Get returns one order by number.
func (s *OrdersService) Get(ctx context.Context, orderNumber int64) (*domain.Order, error) {
	return s.orders.Get(ctx, orderNumber)
}

// List returns the most recent orders.
func (s *OrdersService) List(ctx context.Context, limit int) ([]*domain.Order, error) {
	return s.orders.List(ctx, limit)
}
