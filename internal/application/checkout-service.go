package application

import (
	"context"
	"fmt"
	"time"

	"github.com/deofis/cursos-online-apirest/internal/domain"
	"github.com/deofis/cursos-online-apirest/internal/logger"
	"github.com/deofis/cursos-online-apirest/internal/payment"
)

// CheckoutService drives the two checkout phases. Initiate creates a pending
// payment for a freshly registered order; Complete finalizes it when the
// provider callback arrives and advances the order to PAID.
type CheckoutService struct {
	tx       TxManager
	orders   OrderRepository
	registry *payment.Registry
	notifier Notifier
	now      func() time.Time
}

func NewCheckoutService(tx TxManager, orders OrderRepository, registry *payment.Registry, notifier Notifier) *CheckoutService {
	return &CheckoutService{
		tx:       tx,
		orders:   orders,
		registry: registry,
		notifier: notifier,
		now:      time.Now,
	}
}

// Initiate resolves the strategy for the order's payment method and creates
// the provider-side payment. No money moves here; the result describes a
// payment in CREATED status.
func (s *CheckoutService) Initiate(ctx context.Context, order *domain.Order) (*domain.PaymentInfo, error) {
	strategy := s.registry.Get(order.Method)
	if strategy == nil {
		return nil, fmt.Errorf("%s: %w", order.Method, domain.ErrMethodNotSupported)
	}
	return strategy.CreatePayment(ctx, order)
}

// Complete finalizes the payment for an order and fires COMPLETE_PAYMENT.
// The whole sequence runs as one unit of work: the order row is locked for
// its duration, the already-completed guard runs before any provider call,
// and a failed state transition rolls the payment write back with it.
// Completion is at-most-once per order; duplicate callbacks fail with
// domain.ErrAlreadyCompleted and leave the payment record untouched.
func (s *CheckoutService) Complete(ctx context.Context, orderNumber int64, paymentID, referenceID string) (*domain.PaymentInfo, error) {
	var (
		info      *domain.PaymentInfo
		completed *domain.Order
	)

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		order, err := s.orders.GetForUpdate(ctx, orderNumber)
		if err != nil {
			return err
		}
		if order.Payment == nil {
			return fmt.Errorf("order %d has no payment: %w", orderNumber, domain.ErrPaymentNotFound)
		}
		if order.Payment.Completed() {
			return domain.ErrAlreadyCompleted
		}

		// The completed payment is a new value object; carry the creation
		// timestamp forward so it survives the swap.
		createdAt := order.Payment.CreatedAt

		strategy := s.registry.Get(order.Method)
		if strategy == nil {
			return fmt.Errorf("%s: %w", order.Method, domain.ErrMethodNotSupported)
		}

		result, err := strategy.CompletePayment(ctx, order, paymentID, referenceID)
		if err != nil {
			return err
		}

		next, err := domain.Transition(order.Status, domain.EventCompletePayment)
		if err != nil {
			return err
		}

		pay := result.ToPayment()
		pay.CreatedAt = createdAt
		paidAt := s.now()
		pay.PaidAt = &paidAt

		order.Payment = &pay
		order.Status = next
		if err := s.orders.Update(ctx, order); err != nil {
			return err
		}

		info, completed = result, order
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("checkout completed", "order", orderNumber, "provider", info.Provider, "status", info.Status)
	s.notifier.PaymentCompleted(ctx, completed)
	return info, nil
}
