package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentCreated   PaymentStatus = "CREATED"
	PaymentCompleted PaymentStatus = "COMPLETED"
	// PaymentApproved is reported by some providers instead of COMPLETED and
	// counts as terminal for the completion guard.
	PaymentApproved PaymentStatus = "APPROVED"
)

type Payer struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

type PaymentAmount struct {
	Gross decimal.Decimal `json:"gross"`
	Net   decimal.Decimal `json:"net"`
	Fee   decimal.Decimal `json:"fee"`
}

// Payment is the payment record embedded in an order. ProviderRef is assigned
// when the payment is created and never changes; completion must validate the
// caller-supplied reference against it.
type Payment struct {
	Provider    PaymentMethod  `json:"provider"`
	ProviderRef string         `json:"provider_ref"`
	Status      PaymentStatus  `json:"status"`
	ApproveURL  string         `json:"approve_url,omitempty"`
	Amount      *PaymentAmount `json:"amount,omitempty"`
	Payer       *Payer         `json:"payer,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	PaidAt      *time.Time     `json:"paid_at,omitempty"`
}

// Completed reports whether the payment reached a terminal successful state.
func (p *Payment) Completed() bool {
	s := strings.ToUpper(string(p.Status))
	return s == string(PaymentCompleted) || s == string(PaymentApproved)
}

// PaymentInfo is the provider-neutral result of creating or completing a
// payment through a strategy.
type PaymentInfo struct {
	Provider    PaymentMethod  `json:"provider"`
	OrderNumber int64          `json:"order_number"`
	ProviderRef string         `json:"provider_ref"`
	Status      PaymentStatus  `json:"status"`
	ApproveURL  string         `json:"approve_url,omitempty"`
	Amount      *PaymentAmount `json:"amount,omitempty"`
	Payer       *Payer         `json:"payer,omitempty"`
}

// ToPayment maps strategy output onto the order's payment record. Timestamps
// are owned by the checkout flow, not the provider.
func (i PaymentInfo) ToPayment() Payment {
	return Payment{
		Provider:    i.Provider,
		ProviderRef: i.ProviderRef,
		Status:      i.Status,
		ApproveURL:  i.ApproveURL,
		Amount:      i.Amount,
		Payer:       i.Payer,
	}
}
