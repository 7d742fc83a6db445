package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a domain error for callers that need to map it to a
// transport response or retry decision.
type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation marks a problem with the caller's input.
	KindValidation
	// KindConflict marks a request that clashes with current state; retrying
	// unchanged is not automatically safe.
	KindConflict
	// KindUpstream marks a payment-provider failure; the caller may retry
	// after a delay.
	KindUpstream
	// KindNotFound marks an unknown order, SKU or payment.
	KindNotFound
)

var (
	ErrInvalidQuantity    = errors.New("item quantity must be greater than zero")
	ErrUnsellableItem     = errors.New("item is a placeholder sku of a product sold through variants")
	ErrMissingReference   = errors.New("payment reference id is required")
	ErrMethodNotSupported = errors.New("checkout not supported for this payment method")

	ErrInsufficientStock = errors.New("insufficient stock")
	ErrAlreadyCompleted  = errors.New("payment already completed for this order")
	ErrPaymentMismatch   = errors.New("reference id is not associated with this order's payment")

	ErrPaymentCreation = errors.New("payment creation failed")
	ErrPaymentNotFound = errors.New("payment not found at provider")
	ErrOrderNotFound   = errors.New("order not found")
	ErrSkuNotFound     = errors.New("sku not found")
)

// IllegalTransitionError reports an event fired from a status with no
// matching transition. No state change occurs.
type IllegalTransitionError struct {
	From  OrderStatus
	Event OrderEvent
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal transition: event %s from status %s", e.Event, e.From)
}

// KindOf resolves the taxonomy kind of any error produced by this module,
// unwrapping as needed.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrUnsellableItem),
		errors.Is(err, ErrMissingReference),
		errors.Is(err, ErrMethodNotSupported):
		return KindValidation
	case errors.Is(err, ErrInsufficientStock),
		errors.Is(err, ErrAlreadyCompleted),
		errors.Is(err, ErrPaymentMismatch):
		return KindConflict
	case errors.Is(err, ErrPaymentCreation):
		return KindUpstream
	case errors.Is(err, ErrPaymentNotFound),
		errors.Is(err, ErrOrderNotFound),
		errors.Is(err, ErrSkuNotFound):
		return KindNotFound
	}

	var it *IllegalTransitionError
	if errors.As(err, &it) {
		return KindConflict
	}
	return KindUnknown
}
