package domain

var transitions = map[OrderStatus]map[OrderEvent]OrderStatus{
	StatusPaymentPending: {
		EventCompletePayment: StatusPaid,
		EventCancel:          StatusCancelled,
	},
	StatusPaid: {
		EventSend:   StatusSent,
		EventCancel: StatusCancelled,
	},
	StatusSent: {
		EventReceive: StatusReceived,
	},
}

// Transition returns the status an order moves to when event fires in the
// current status. An event with no matching transition returns an
// IllegalTransitionError and the current status unchanged. Side effects
// (inventory release, notifications) are sequenced by the caller after the
// transition is accepted.
func Transition(current OrderStatus, event OrderEvent) (OrderStatus, error) {
	next, ok := transitions[current][event]
	if !ok {
		return current, &IllegalTransitionError{From: current, Event: event}
	}
	return next, nil
}
