package enums

import (
	"fmt"
	"strings"
)

// OrderStatus is the canonical order lifecycle state. Legacy clients sent
// mixed-case spellings ("Pending", "Confirmed") and an obsolete
// "delivered" state; ParseOrderStatus folds all of them into this set.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusCompleted,
	OrderStatusCancelled,
	OrderStatusRefunded,
}

// OpenOrderStatuses are the states that count against a seller's
// concurrent open-order quota.
var OpenOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusProcessing,
	OrderStatusShipped,
}

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:  {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusCompleted},
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further payment-driven transition is
// expected from this state.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusCompleted, OrderStatusCancelled, OrderStatusRefunded:
		return true
	default:
		return false
	}
}

// CanTransition reports whether the edge s -> to is legal. Refunded is
// reachable from every non-refunded state, but only a gateway refund
// event may take that edge; callers enforce the trigger.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	if to == OrderStatusRefunded {
		return s != OrderStatusRefunded
	}
	for _, candidate := range orderTransitions[s] {
		if candidate == to {
			return true
		}
	}
	return false
}

// ParseOrderStatus canonicalizes raw input into an OrderStatus. Matching
// is case-insensitive and the legacy "delivered" spelling maps to
// completed; anything else is rejected.
func ParseOrderStatus(value string) (OrderStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "delivered" {
		return OrderStatusCompleted, nil
	}
	for _, candidate := range validOrderStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
