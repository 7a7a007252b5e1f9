package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/kachabazaar/kachabazaar-backend/pkg/enums"
	"github.com/kachabazaar/kachabazaar-backend/pkg/types"
)

// Notification is a persisted order event addressed to one user.
type Notification struct {
	ID        uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID               `gorm:"column:user_id;type:uuid;not null;index"`
	Event     enums.NotificationEvent `gorm:"column:event;type:text;not null"`
	Payload   types.JSONMap           `gorm:"column:payload;type:jsonb;serializer:json"`
	ReadAt    *time.Time              `gorm:"column:read_at"`
	CreatedAt time.Time               `gorm:"column:created_at;autoCreateTime"`
}
