package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/kachabazaar/kachabazaar-backend/pkg/enums"
)

// Listing is a seller's stocked item. The order core reads it for
// validation/snapshots and mutates only available quantity and sold
// count, always through atomic conditional updates.
type Listing struct {
	ID                uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID          uuid.UUID  `gorm:"column:seller_id;type:uuid;not null;index"`
	ItemName          string     `gorm:"column:item_name;not null"`
	Description       *string    `gorm:"column:description"`
	Unit              enums.Unit `gorm:"column:unit;type:text;not null"`
	PricePaise        int64      `gorm:"column:price_paise;not null"`
	DeliveryFeePaise  int64      `gorm:"column:delivery_fee_paise;not null;default:0"`
	QuantityAvailable int        `gorm:"column:quantity_available;not null;default:0"`
	SoldCount         int        `gorm:"column:sold_count;not null;default:0"`
	Active            bool       `gorm:"column:active;not null;default:true"`
	CreatedAt         time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
