package payment

import (
	"context"
	"fmt"

	"github.com/deofis/cursos-online-apirest/internal/domain"
)

// CashStrategy handles payment due on delivery. There is no provider behind
// it: creation is deterministic and completion is recorded without any
// round-trip or reference validation.
type CashStrategy struct{}

func NewCashStrategy() *CashStrategy {
	return &CashStrategy{}
}

func (s *CashStrategy) CreatePayment(_ context.Context, order *domain.Order) (*domain.PaymentInfo, error) {
	return &domain.PaymentInfo{
		Provider:    domain.MethodCash,
		OrderNumber: order.Number,
		ProviderRef: cashRef(order.Number),
		Status:      domain.PaymentCreated,
	}, nil
}

func (s *CashStrategy) CompletePayment(_ context.Context, order *domain.Order, _, _ string) (*domain.PaymentInfo, error) {
	return &domain.PaymentInfo{
		Provider:    domain.MethodCash,
		OrderNumber: order.Number,
		ProviderRef: cashRef(order.Number),
		Status:      domain.PaymentCompleted,
		Amount:      &domain.PaymentAmount{Gross: order.Total, Net: order.Total},
		Payer: &domain.Payer{
			Email:    order.Customer.Email,
			FullName: order.Customer.Name,
		},
	}, nil
}

func cashRef(orderNumber int64) string {
	return fmt.Sprintf("cash-%d", orderNumber)
}
