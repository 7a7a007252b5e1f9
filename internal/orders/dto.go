package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kachabazaar/kachabazaar-backend/pkg/db/models"
	"github.com/kachabazaar/kachabazaar-backend/pkg/enums"
)

// CartLine is one listing/quantity pair of a multi-item order.
type CartLine struct {
	ListingID uuid.UUID
	Quantity  int
}

// CreateOrderInput carries everything needed to open an order. Listing-backed
// orders price themselves from the listing; request-backed orders carry the
// agreed price in rupees and are converted to paise before persistence.
type CreateOrderInput struct {
	BuyerID       uuid.UUID
	OrderType     enums.OrderType
	DeliveryType  enums.DeliveryType
	PaymentMethod enums.PaymentMethod

	// Listing-backed orders (from-listing, single-item).
	ListingID *uuid.UUID
	Quantity  int

	// Cart-backed orders.
	CartLines []CartLine

	// Request-backed orders.
	SellerID          *uuid.UUID
	RequestID         *uuid.UUID
	ItemName          string
	Unit              enums.Unit
	AgreedPriceRupees decimal.Decimal
	DeliveryFeeRupees decimal.Decimal

	DeliveryAddress *string
	PickupAddress   *string
	Notes           *string

	// ExpectedTotalPaise is the total the client quoted, when it sent one.
	// Creation is rejected before any row or gateway intent exists unless
	// it matches the server-computed total.
	ExpectedTotalPaise *int64
}

// CreateOrderResult returns the stored order plus the checkout fields a
// client needs to open the gateway widget.
type CreateOrderResult struct {
	Order           *models.Order `json:"order"`
	GatewayOrderID  string        `json:"gateway_order_id,omitempty"`
	GatewayKeyID    string        `json:"gateway_key_id,omitempty"`
	AmountPaise     int64         `json:"amount_paise"`
	Currency        string        `json:"currency"`
	RequiresGateway bool          `json:"requires_gateway"`
}

// AdmissionStatus reports a seller's open-order headroom.
type AdmissionStatus struct {
	SellerID    uuid.UUID `json:"seller_id"`
	CurrentOpen int64     `json:"current_open"`
	Limit       int64     `json:"limit"`
	CanAccept   bool      `json:"can_accept"`
}
