package orders

import "github.com/evanrosales/shopsphere-backend/pkg/enums"

// allowedTransitions is the full lifecycle graph. Terminal states have no
// outbound edges; self-transitions are handled by the caller as no-ops.
var allowedTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:   {enums.OrderStatusPreparing, enums.OrderStatusCancelled},
	enums.OrderStatusPreparing: {enums.OrderStatusShipped, enums.OrderStatusCancelled, enums.OrderStatusFailed},
	enums.OrderStatusShipped:   {enums.OrderStatusDelivered, enums.OrderStatusFailed},
	enums.OrderStatusDelivered: {},
	enums.OrderStatusFailed:    {},
	enums.OrderStatusCancelled: {},
}

// CanTransition reports whether the target status is reachable from the
// current one in a single step.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// compensates reports whether entering the status releases reserved stock
// and refunds a captured payment.
func compensates(status enums.OrderStatus) bool {
	return status == enums.OrderStatusFailed || status == enums.OrderStatusCancelled
}
