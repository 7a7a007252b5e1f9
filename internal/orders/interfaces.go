package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kachabazaar/kachabazaar-backend/pkg/db/models"
	"github.com/kachabazaar/kachabazaar-backend/pkg/enums"
	"github.com/kachabazaar/kachabazaar-backend/pkg/pagination"
)

// Repository defines persistence operations for order rows.
//
// UpdateStatusConditional is the only way an order's status changes after
// creation: the WHERE clause carries the allowed source states, so a stale or
// replayed caller affects zero rows instead of overwriting newer state.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateItems(ctx context.Context, items []models.OrderItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByRazorpayOrderID(ctx context.Context, gatewayOrderID string) (*models.Order, error)
	FindByRazorpayPaymentID(ctx context.Context, gatewayPaymentID string) (*models.Order, error)
	CountOpenBySeller(ctx context.Context, sellerID uuid.UUID) (int64, error)
	UpdateStatusConditional(ctx context.Context, id uuid.UUID, from []enums.OrderStatus, updates map[string]any) (bool, error)
	SetExchangeCodeIfAbsent(ctx context.Context, id uuid.UUID, code string) (bool, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID, params ListParams) ([]models.Order, *pagination.Cursor, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, params ListParams) ([]models.Order, *pagination.Cursor, error)
}

// ListParams filters and paginates order listings.
type ListParams struct {
	Status *enums.OrderStatus
	Limit  int
	Cursor *pagination.Cursor
}
