package payment

import (
	"context"

	"github.com/deofis/cursos-online-apirest/internal/domain"
)

// Strategy is the provider-specific implementation of the two checkout
// phases. CreatePayment builds a pending provider-side payment for the order.
// CompletePayment finalizes it against provider confirmation data; for
// provider-backed strategies referenceID is mandatory and must match the
// reference stored on the order's payment at creation time.
type Strategy interface {
	CreatePayment(ctx context.Context, order *domain.Order) (*domain.PaymentInfo, error)
	CompletePayment(ctx context.Context, order *domain.Order, paymentID, referenceID string) (*domain.PaymentInfo, error)
}

// Registry resolves the strategy for a payment-method identifier. Lookup of
// an unregistered method returns nil; callers treat that as "checkout not
// supported for this method". New providers plug in here without touching the
// checkout flow.
type Registry struct {
	strategies map[domain.PaymentMethod]Strategy
}

func NewRegistry() *Registry {
	return &Registry{strategies: make(map[domain.PaymentMethod]Strategy)}
}

func (r *Registry) Register(method domain.PaymentMethod, s Strategy) {
	r.strategies[method] = s
}

func (r *Registry) Get(method domain.PaymentMethod) Strategy {
	return r.strategies[method]
}
