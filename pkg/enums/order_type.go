package enums

import "fmt"

// OrderType records which flow created the order.
type OrderType string

const (
	OrderTypeFromListing OrderType = "from-listing"
	OrderTypeFromRequest OrderType = "from-request"
	OrderTypeFromCart    OrderType = "from-cart"
	OrderTypeSingleItem  OrderType = "single-item"
)

var validOrderTypes = []OrderType{
	OrderTypeFromListing,
	OrderTypeFromRequest,
	OrderTypeFromCart,
	OrderTypeSingleItem,
}

// IsValid reports whether the value is a known OrderType.
func (o OrderType) IsValid() bool {
	for _, candidate := range validOrderTypes {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOrderType converts raw input into an OrderType.
func ParseOrderType(value string) (OrderType, error) {
	for _, candidate := range validOrderTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order type %q", value)
}
