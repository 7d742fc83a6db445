package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPaymentPending OrderStatus = "PAYMENT_PENDING"
	StatusPaid           OrderStatus = "PAID"
	StatusSent           OrderStatus = "SENT"
	StatusReceived       OrderStatus = "RECEIVED"
	StatusCancelled      OrderStatus = "CANCELLED"
)

type OrderEvent string

const (
	EventCompletePayment OrderEvent = "COMPLETE_PAYMENT"
	EventSend            OrderEvent = "SEND"
	EventReceive         OrderEvent = "RECEIVE"
	EventCancel          OrderEvent = "CANCEL"
)

type PaymentMethod string

const (
	MethodCash      PaymentMethod = "CASH"
	MethodPayPal    PaymentMethod = "PAYPAL"
	MethodProviderX PaymentMethod = "PROVIDER_X"
)

// Customer is the identity of the buyer, supplied explicitly by the caller
// on every order-creation call.
type Customer struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type ShippingAddress struct {
	Street string `json:"street"`
	City   string `json:"city"`
	Region string `json:"region"`
	Zip    string `json:"zip"`
	Phone  string `json:"phone"`
}

// LineItem is one ordered SKU with the sale price captured at order time.
// The captured price does not follow later catalog changes.
type LineItem struct {
	SkuID     int64           `json:"sku_id"`
	SkuName   string          `json:"sku_name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// Order is a customer purchase. Number, items and total are fixed at
// creation; only status, timestamps and the embedded payment change
// afterwards.
type Order struct {
	Number     int64           `json:"number"`
	Customer   Customer        `json:"customer"`
	Shipping   ShippingAddress `json:"shipping"`
	Method     PaymentMethod   `json:"payment_method"`
	Items      []LineItem      `json:"items"`
	Status     OrderStatus     `json:"status"`
	Total      decimal.Decimal `json:"total"`
	Payment    *Payment        `json:"payment,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	ShippedAt  *time.Time      `json:"shipped_at,omitempty"`
	ReceivedAt *time.Time      `json:"received_at,omitempty"`
}
