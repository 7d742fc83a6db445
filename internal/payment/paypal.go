package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/deofis/cursos-online-apirest/internal/domain"
)

// PayPalOrderRequest is the provider-neutral input the strategy hands to the
// PayPal client when creating an order.
type PayPalOrderRequest struct {
	OrderNumber int64
	Total       decimal.Decimal
	Currency    string
	Items       []PayPalItem
	ReturnURL   string
	CancelURL   string
}

type PayPalItem struct {
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}

type PayPalOrderResult struct {
	ID         string
	ApproveURL string
}

type PayPalCapture struct {
	Status     string
	PayerID    string
	PayerEmail string
	PayerName  string
	Gross      decimal.Decimal
	Net        decimal.Decimal
	Fee        decimal.Decimal
}

// PayPalAPI is the slice of the PayPal orders API the strategy needs. The
// concrete client owns all provider wire types.
type PayPalAPI interface {
	CreateOrder(ctx context.Context, req PayPalOrderRequest) (*PayPalOrderResult, error)
	CaptureOrder(ctx context.Context, orderID string) (*PayPalCapture, error)
}

type PayPalStrategy struct {
	api       PayPalAPI
	clientURL string
	currency  string
}

func NewPayPalStrategy(api PayPalAPI, clientURL, currency string) *PayPalStrategy {
	return &PayPalStrategy{api: api, clientURL: clientURL, currency: currency}
}

func (s *PayPalStrategy) CreatePayment(ctx context.Context, order *domain.Order) (*domain.PaymentInfo, error) {
	req := PayPalOrderRequest{
		OrderNumber: order.Number,
		Total:       order.Total,
		Currency:    s.currency,
		ReturnURL:   redirectURL(s.clientURL, "paypal", "approved", order.Number),
		CancelURL:   redirectURL(s.clientURL, "paypal", "cancel", order.Number),
	}
	for _, it := range order.Items {
		req.Items = append(req.Items, PayPalItem{Name: it.SkuName, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}

	res, err := s.api.CreateOrder(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: paypal: %v", domain.ErrPaymentCreation, err)
	}
	if res.ID == "" {
		return nil, fmt.Errorf("%w: paypal returned no order id", domain.ErrPaymentCreation)
	}

	return &domain.PaymentInfo{
		Provider:    domain.MethodPayPal,
		OrderNumber: order.Number,
		ProviderRef: res.ID,
		Status:      domain.PaymentCreated,
		ApproveURL:  res.ApproveURL,
	}, nil
}

func (s *PayPalStrategy) CompletePayment(ctx context.Context, order *domain.Order, paymentID, referenceID string) (*domain.PaymentInfo, error) {
	if referenceID == "" {
		return nil, domain.ErrMissingReference
	}
	if order.Payment == nil || order.Payment.ProviderRef != referenceID {
		return nil, domain.ErrPaymentMismatch
	}

	capture, err := s.api.CaptureOrder(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("%w: paypal: %v", domain.ErrPaymentNotFound, err)
	}
	if capture.Status == "" {
		return nil, fmt.Errorf("%w: paypal order %s", domain.ErrPaymentNotFound, paymentID)
	}

	return &domain.PaymentInfo{
		Provider:    domain.MethodPayPal,
		OrderNumber: order.Number,
		ProviderRef: order.Payment.ProviderRef,
		Status:      domain.PaymentStatus(strings.ToUpper(capture.Status)),
		Amount:      &domain.PaymentAmount{Gross: capture.Gross, Net: capture.Net, Fee: capture.Fee},
		Payer:       &domain.Payer{ID: capture.PayerID, Email: capture.PayerEmail, FullName: capture.PayerName},
	}, nil
}

func redirectURL(clientURL, provider, outcome string, orderNumber int64) string {
	return fmt.Sprintf("%s/%s/redirect/%s?orderNumber=%d", clientURL, provider, outcome, orderNumber)
}
