package application

import (
	"context"

	"github.com/deofis/cursos-online-apirest/internal/domain"
)

// OrderRepository persists orders. Create assigns the order number.
// GetForUpdate must lock the order row for the rest of the surrounding unit
// of work so concurrent completions of one order serialize.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	Get(ctx context.Context, number int64) (*domain.Order, error)
	GetForUpdate(ctx context.Context, number int64) (*domain.Order, error)
	Update(ctx context.Context, order *domain.Order) error
	List(ctx context.Context, limit int) ([]*domain.Order, error)
}

// TxManager wraps fn in one transactional unit of work. Every write made
// through ctx inside fn commits together or not at all.
type TxManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Notifier delivers customer/admin notifications. Fire-and-forget: failures
// are logged by the implementation and never surface to order flows.
type Notifier interface {
	OrderRegistered(ctx context.Context, order *domain.Order)
	PaymentCompleted(ctx context.Context, order *domain.Order)
}
