package enums

import "testing"

func TestParseOrderStatusCanonicalizes(t *testing.T) {
	cases := map[string]OrderStatus{
		"pending":    OrderStatusPending,
		"Pending":    OrderStatusPending,
		"CONFIRMED":  OrderStatusConfirmed,
		" shipped ":  OrderStatusShipped,
		"Delivered":  OrderStatusCompleted,
		"delivered":  OrderStatusCompleted,
		"refunded":   OrderStatusRefunded,
		"processing": OrderStatusProcessing,
	}
	for input, want := range cases {
		got, err := ParseOrderStatus(input)
		if err != nil {
			t.Fatalf("ParseOrderStatus(%q) returned error: %v", input, err)
		}
		if got != want {
			t.Fatalf("ParseOrderStatus(%q) = %s, want %s", input, got, want)
		}
	}

	if _, err := ParseOrderStatus("shippedd"); err == nil {
		t.Fatalf("expected unknown spelling to be rejected")
	}
}

func TestOrderStatusTransitions(t *testing.T) {
	legal := []struct{ from, to OrderStatus }{
		{OrderStatusPending, OrderStatusConfirmed},
		{OrderStatusPending, OrderStatusCancelled},
		{OrderStatusConfirmed, OrderStatusProcessing},
		{OrderStatusProcessing, OrderStatusShipped},
		{OrderStatusShipped, OrderStatusCompleted},
		{OrderStatusCompleted, OrderStatusRefunded},
	}
	for _, tt := range legal {
		if !tt.from.CanTransition(tt.to) {
			t.Fatalf("expected %s -> %s to be legal", tt.from, tt.to)
		}
	}

	illegal := []struct{ from, to OrderStatus }{
		{OrderStatusCompleted, OrderStatusProcessing},
		{OrderStatusPending, OrderStatusShipped},
		{OrderStatusCancelled, OrderStatusConfirmed},
		{OrderStatusRefunded, OrderStatusRefunded},
		{OrderStatusShipped, OrderStatusCancelled},
	}
	for _, tt := range illegal {
		if tt.from.CanTransition(tt.to) {
			t.Fatalf("expected %s -> %s to be rejected", tt.from, tt.to)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	for _, s := range []OrderStatus{OrderStatusCompleted, OrderStatusCancelled, OrderStatusRefunded} {
		if !s.IsTerminal() {
			t.Fatalf("expected %s to be terminal", s)
		}
	}
	for _, s := range OpenOrderStatuses {
		if s.IsTerminal() {
			t.Fatalf("expected %s to be open", s)
		}
	}
}
