package enums

import "fmt"

// DeliveryType selects how the buyer receives the order.
type DeliveryType string

const (
	DeliveryTypePickup   DeliveryType = "pickup"
	DeliveryTypeDelivery DeliveryType = "delivery"
)

// IsValid reports whether the value is a known DeliveryType.
func (d DeliveryType) IsValid() bool {
	return d == DeliveryTypePickup || d == DeliveryTypeDelivery
}

// ParseDeliveryType converts raw input into a DeliveryType.
func ParseDeliveryType(value string) (DeliveryType, error) {
	switch DeliveryType(value) {
	case DeliveryTypePickup:
		return DeliveryTypePickup, nil
	case DeliveryTypeDelivery:
		return DeliveryTypeDelivery, nil
	default:
		return "", fmt.Errorf("invalid delivery type %q", value)
	}
}
