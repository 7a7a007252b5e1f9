package notifications

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kachabazaar/kachabazaar-backend/pkg/db/models"
	"github.com/kachabazaar/kachabazaar-backend/pkg/enums"
	pkgerrors "github.com/kachabazaar/kachabazaar-backend/pkg/errors"
	"github.com/kachabazaar/kachabazaar-backend/pkg/types"
)

// Dispatcher persists order event notifications. Emit participates in the
// caller's transaction so a notification row commits together with the state
// change that produced it.
type Dispatcher interface {
	Emit(ctx context.Context, tx *gorm.DB, userID uuid.UUID, event enums.NotificationEvent, payload types.JSONMap) error
}

type dispatcher struct {
	repo Repository
}

// NewDispatcher wires the persisted notification dispatcher.
func NewDispatcher(repo Repository) (Dispatcher, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	return &dispatcher{repo: repo}, nil
}

func (d *dispatcher) Emit(ctx context.Context, tx *gorm.DB, userID uuid.UUID, event enums.NotificationEvent, payload types.JSONMap) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification user id required")
	}
	if !event.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown notification event")
	}

	repo := d.repo.WithTx(tx)
	_, err := repo.Create(ctx, &models.Notification{
		UserID:  userID,
		Event:   event,
		Payload: payload,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist notification")
	}
	return nil
}
