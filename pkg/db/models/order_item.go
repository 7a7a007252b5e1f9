package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/kachabazaar/kachabazaar-backend/pkg/types"
)

// OrderItem is a line of a cart-based order, priced at order time.
type OrderItem struct {
	ID               uuid.UUID     `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID          uuid.UUID     `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID        uuid.UUID     `gorm:"column:product_id;type:uuid;not null;index"`
	Quantity         int           `gorm:"column:quantity;not null"`
	PriceAtTimePaise int64         `gorm:"column:price_at_time_paise;not null"`
	Snapshot         types.JSONMap `gorm:"column:snapshot;type:jsonb;serializer:json"`
	CreatedAt        time.Time     `gorm:"column:created_at;autoCreateTime"`
}
