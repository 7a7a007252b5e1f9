package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/kachabazaar/kachabazaar-backend/pkg/enums"
	"github.com/kachabazaar/kachabazaar-backend/pkg/types"
)

// Order is the central aggregate of the marketplace. It is created in
// pending, mutated only through conditional status transitions, and never
// deleted; cancellation and refund are terminal states, not deletions.
type Order struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID   uuid.UUID  `gorm:"column:buyer_id;type:uuid;not null"`
	SellerID  uuid.UUID  `gorm:"column:seller_id;type:uuid;not null;index:idx_orders_seller_status"`
	ListingID *uuid.UUID `gorm:"column:listing_id;type:uuid"`
	ProductID *uuid.UUID `gorm:"column:product_id;type:uuid"`
	RequestID *uuid.UUID `gorm:"column:request_id;type:uuid"`

	OrderType    enums.OrderType    `gorm:"column:order_type;type:text;not null"`
	DeliveryType enums.DeliveryType `gorm:"column:delivery_type;type:text;not null"`
	ItemName     string             `gorm:"column:item_name;not null"`
	Quantity     int                `gorm:"column:quantity;not null"`
	Unit         enums.Unit         `gorm:"column:unit;type:text;not null"`

	BasePricePaise    int64  `gorm:"column:base_price_paise;not null"`
	DeliveryFeePaise  int64  `gorm:"column:delivery_fee_paise;not null;default:0"`
	TotalPricePaise   int64  `gorm:"column:total_price_paise;not null"`
	RefundAmountPaise int64  `gorm:"column:refund_amount_paise;not null;default:0"`
	Currency          string `gorm:"column:currency;not null;default:'INR'"`

	Status        enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'pending';index:idx_orders_seller_status"`
	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;type:text;not null;default:'razorpay'"`

	RazorpayOrderID   *string `gorm:"column:razorpay_order_id;uniqueIndex"`
	RazorpayPaymentID *string `gorm:"column:razorpay_payment_id;index"`
	RazorpaySignature *string `gorm:"column:razorpay_signature"`

	ExchangeCode    *string       `gorm:"column:exchange_code;uniqueIndex"`
	ProductSnapshot types.JSONMap `gorm:"column:product_snapshot;type:jsonb;serializer:json"`
	IsReviewable    bool          `gorm:"column:is_reviewable;not null;default:false"`
	ReviewID        *uuid.UUID    `gorm:"column:review_id;type:uuid"`

	DeliveryAddress *string `gorm:"column:delivery_address"`
	PickupAddress   *string `gorm:"column:pickup_address"`
	Notes           *string `gorm:"column:notes"`
	CancelReason    *string `gorm:"column:cancel_reason"`

	PaidAt      *time.Time `gorm:"column:paid_at"`
	RefundedAt  *time.Time `gorm:"column:refunded_at"`
	CompletedAt *time.Time `gorm:"column:completed_at"`
	CanceledAt  *time.Time `gorm:"column:canceled_at"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// RecomputeTotal enforces total = base + delivery fee. Every persistence
// path calls it; the total is never taken from a client.
func (o *Order) RecomputeTotal() {
	o.TotalPricePaise = o.BasePricePaise + o.DeliveryFeePaise
}
