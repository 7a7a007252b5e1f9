package enums

// NotificationEvent names the order events surfaced to buyers/sellers.
type NotificationEvent string

const (
	NotificationOrderCreated   NotificationEvent = "order.created"
	NotificationOrderConfirmed NotificationEvent = "order.confirmed"
	NotificationOrderShipped   NotificationEvent = "order.shipped"
	NotificationOrderCompleted NotificationEvent = "order.completed"
	NotificationOrderCancelled NotificationEvent = "order.cancelled"
	NotificationOrderRefunded  NotificationEvent = "order.refunded"
)

var validNotificationEvents = []NotificationEvent{
	NotificationOrderCreated,
	NotificationOrderConfirmed,
	NotificationOrderShipped,
	NotificationOrderCompleted,
	NotificationOrderCancelled,
	NotificationOrderRefunded,
}

// String implements fmt.Stringer.
func (n NotificationEvent) String() string {
	return string(n)
}

// IsValid reports whether the value is a known notification event.
func (n NotificationEvent) IsValid() bool {
	for _, candidate := range validNotificationEvents {
		if n == candidate {
			return true
		}
	}
	return false
}
