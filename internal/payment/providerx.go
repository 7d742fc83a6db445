package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/deofis/cursos-online-apirest/internal/domain"
)

// ProviderXPreferenceRequest describes the checkout preference the strategy
// asks ProviderX to create for an order.
type ProviderXPreferenceRequest struct {
	OrderNumber int64
	Items       []ProviderXItem
	SuccessURL  string
	FailureURL  string
}

type ProviderXItem struct {
	ID        string
	Title     string
	Quantity  int
	UnitPrice decimal.Decimal
}

// ProviderXPreference is the pending checkout the provider created. InitPoint
// is the URL the buyer approves the payment at.
type ProviderXPreference struct {
	ID        string
	InitPoint string
}

type ProviderXPayment struct {
	Status         string
	PayerID        string
	PayerEmail     string
	PayerFirstName string
	PayerLastName  string
	TotalPaid      decimal.Decimal
	NetReceived    decimal.Decimal
	Fee            decimal.Decimal
}

// ProviderXAPI is the slice of the ProviderX API the strategy needs.
type ProviderXAPI interface {
	CreatePreference(ctx context.Context, req ProviderXPreferenceRequest) (*ProviderXPreference, error)
	FindPayment(ctx context.Context, paymentID string) (*ProviderXPayment, error)
}

type ProviderXStrategy struct {
	api       ProviderXAPI
	clientURL string
}

func NewProviderXStrategy(api ProviderXAPI, clientURL string) *ProviderXStrategy {
	return &ProviderXStrategy{api: api, clientURL: clientURL}
}

func (s *ProviderXStrategy) CreatePayment(ctx context.Context, order *domain.Order) (*domain.PaymentInfo, error) {
	req := ProviderXPreferenceRequest{
		OrderNumber: order.Number,
		SuccessURL:  redirectURL(s.clientURL, "provider-x", "approved", order.Number),
		FailureURL:  redirectURL(s.clientURL, "provider-x", "cancel", order.Number),
	}
	for _, it := range order.Items {
		req.Items = append(req.Items, ProviderXItem{
			ID:        fmt.Sprintf("%d", it.SkuID),
			Title:     it.SkuName,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}

	pref, err := s.api.CreatePreference(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: provider-x: %v", domain.ErrPaymentCreation, err)
	}
	if pref.ID == "" {
		return nil, fmt.Errorf("%w: provider-x returned no preference id", domain.ErrPaymentCreation)
	}

	return &domain.PaymentInfo{
		Provider:    domain.MethodProviderX,
		OrderNumber: order.Number,
		ProviderRef: pref.ID,
		Status:      domain.PaymentCreated,
		ApproveURL:  pref.InitPoint,
	}, nil
}

func (s *ProviderXStrategy) CompletePayment(ctx context.Context, order *domain.Order, paymentID, referenceID string) (*domain.PaymentInfo, error) {
	if referenceID == "" {
		return nil, domain.ErrMissingReference
	}
	if order.Payment == nil || order.Payment.ProviderRef != referenceID {
		return nil, domain.ErrPaymentMismatch
	}

	pay, err := s.api.FindPayment(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("%w: provider-x: %v", domain.ErrPaymentNotFound, err)
	}
	if pay.Status == "" {
		return nil, fmt.Errorf("%w: provider-x payment %s", domain.ErrPaymentNotFound, paymentID)
	}

	return &domain.PaymentInfo{
		Provider:    domain.MethodProviderX,
		OrderNumber: order.Number,
		ProviderRef: order.Payment.ProviderRef,
		Status:      domain.PaymentStatus(strings.ToUpper(pay.Status)),
		Amount:      &domain.PaymentAmount{Gross: pay.TotalPaid, Net: pay.NetReceived, Fee: pay.Fee},
		Payer: &domain.Payer{
			ID:       pay.PayerID,
			Email:    pay.PayerEmail,
			FullName: strings.TrimSpace(pay.PayerLastName + " " + pay.PayerFirstName),
		},
	}, nil
}
