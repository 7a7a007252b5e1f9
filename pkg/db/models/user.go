package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a weak reference target for orders; the order core touches only
// the seller statistics and uses the row as the admission-control lock.
type User struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name            string    `gorm:"column:name;not null"`
	Email           string    `gorm:"column:email;uniqueIndex;not null"`
	Phone           *string   `gorm:"column:phone"`
	OrdersFulfilled int       `gorm:"column:orders_fulfilled;not null;default:0"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
