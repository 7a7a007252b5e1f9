package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kachabazaar/kachabazaar-backend/internal/listings"
	"github.com/kachabazaar/kachabazaar-backend/internal/notifications"
	"github.com/kachabazaar/kachabazaar-backend/internal/orders"
	"github.com/kachabazaar/kachabazaar-backend/internal/users"
	"github.com/kachabazaar/kachabazaar-backend/pkg/config"
	"github.com/kachabazaar/kachabazaar-backend/pkg/db"
	"github.com/kachabazaar/kachabazaar-backend/pkg/db/models"
	"github.com/kachabazaar/kachabazaar-backend/pkg/enums"
	pkgerrors "github.com/kachabazaar/kachabazaar-backend/pkg/errors"
	"github.com/kachabazaar/kachabazaar-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// SignatureVerifier checks checkout callback signatures against the gateway
// credentials.
type SignatureVerifier interface {
	VerifyPaymentSignature(orderID, paymentID, signature string) bool
}

// VerifyPaymentInput carries the checkout callback fields posted by the buyer
// after the gateway widget closes.
type VerifyPaymentInput struct {
	BuyerID          uuid.UUID
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}

// CompleteInput carries the handover confirmation for an order.
type CompleteInput struct {
	OrderID      uuid.UUID
	SellerID     uuid.UUID
	ExchangeCode string
}

// CancelInput carries a buyer or seller initiated cancellation.
type CancelInput struct {
	OrderID uuid.UUID
	ActorID uuid.UUID
	Reason  string
}

// Service reconciles payment events and seller actions into order state.
// Every transition funnels through a conditional update keyed on the allowed
// source states, so replays and out-of-order deliveries settle as no-ops and
// side effects fire at most once.
type Service interface {
	VerifyPayment(ctx context.Context, input VerifyPaymentInput) (*models.Order, error)
	ApplyCapture(ctx context.Context, gatewayOrderID, gatewayPaymentID string) (bool, error)
	ApplyFailure(ctx context.Context, gatewayOrderID, gatewayPaymentID, reason string) (bool, error)
	ApplyRefund(ctx context.Context, gatewayPaymentID string, amountPaise int64) (bool, error)
	Accept(ctx context.Context, orderID, sellerID uuid.UUID) (*models.Order, error)
	MarkProcessing(ctx context.Context, orderID, sellerID uuid.UUID) (*models.Order, error)
	MarkShipped(ctx context.Context, orderID, sellerID uuid.UUID) (*models.Order, error)
	Complete(ctx context.Context, input CompleteInput) (*models.Order, error)
	Cancel(ctx context.Context, input CancelInput) (*models.Order, error)
}

type service struct {
	repo     orders.Repository
	tx       txRunner
	listings listings.Repository
	users    users.Repository
	verifier SignatureVerifier
	notify   notifications.Dispatcher
	cfg      config.OrdersConfig
	now      func() time.Time
}

// NewService builds the payment reconciliation service.
func NewService(repo orders.Repository, tx txRunner, listingsRepo listings.Repository, usersRepo users.Repository, verifier SignatureVerifier, notify notifications.Dispatcher, cfg config.OrdersConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if listingsRepo == nil {
		return nil, fmt.Errorf("listings repository required")
	}
	if usersRepo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if verifier == nil {
		return nil, fmt.Errorf("signature verifier required")
	}
	if notify == nil {
		return nil, fmt.Errorf("notification dispatcher required")
	}
	if cfg.ExchangeCodeLength <= 0 {
		return nil, fmt.Errorf("exchange code length must be positive")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		listings: listingsRepo,
		users:    usersRepo,
		verifier: verifier,
		notify:   notify,
		cfg:      cfg,
		now:      time.Now,
	}, nil
}

func (s *service) VerifyPayment(ctx context.Context, input VerifyPaymentInput) (*models.Order, error) {
	if input.GatewayOrderID == "" || input.GatewayPaymentID == "" || input.Signature == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway order id, payment id and signature required")
	}

	order, err := s.findByGatewayOrderID(ctx, input.GatewayOrderID)
	if err != nil {
		return nil, err
	}
	if input.BuyerID != uuid.Nil && order.BuyerID != input.BuyerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
	}

	if !s.verifier.VerifyPaymentSignature(input.GatewayOrderID, input.GatewayPaymentID, input.Signature) {
		return nil, pkgerrors.New(pkgerrors.CodeSignature, "payment signature verification failed")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		updates := s.confirmUpdates(input.GatewayPaymentID)
		updates["razorpay_signature"] = input.Signature

		applied, err := repo.UpdateStatusConditional(ctx, order.ID,
			[]enums.OrderStatus{enums.OrderStatusPending}, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm order")
		}
		if !applied {
			return nil
		}
		return s.notify.Emit(ctx, tx, order.SellerID, enums.NotificationOrderConfirmed, types.JSONMap{
			"order_id":   order.ID.String(),
			"payment_id": input.GatewayPaymentID,
		})
	})
	if err != nil {
		return nil, err
	}

	fresh, err := s.repo.FindByID(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
	}
	// A verified signature with the order already past pending means this
	// call raced the webhook or is a replay. Both settle as success.
	if fresh.PaymentStatus != enums.PaymentStatusCompleted {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is no longer payable").
			WithDetails(map[string]any{"status": fresh.Status})
	}
	return fresh, nil
}

func (s *service) ApplyCapture(ctx context.Context, gatewayOrderID, gatewayPaymentID string) (bool, error) {
	order, err := s.findByGatewayOrderID(ctx, gatewayOrderID)
	if err != nil {
		return false, err
	}

	var applied bool
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		applied, err = repo.UpdateStatusConditional(ctx, order.ID,
			[]enums.OrderStatus{enums.OrderStatusPending},
			s.confirmUpdates(gatewayPaymentID))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm order")
		}
		if !applied {
			return nil
		}
		return s.notify.Emit(ctx, tx, order.SellerID, enums.NotificationOrderConfirmed, types.JSONMap{
			"order_id":   order.ID.String(),
			"payment_id": gatewayPaymentID,
		})
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

func (s *service) ApplyFailure(ctx context.Context, gatewayOrderID, gatewayPaymentID, reason string) (bool, error) {
	order, err := s.findByGatewayOrderID(ctx, gatewayOrderID)
	if err != nil {
		return false, err
	}
	if reason == "" {
		reason = "payment failed"
	}

	var applied bool
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		// The gateway is authoritative on failure: any order still open
		// cancels, only terminal states are left alone.
		applied, err = repo.UpdateStatusConditional(ctx, order.ID,
			enums.OpenOrderStatuses,
			map[string]any{
				"status":              enums.OrderStatusCancelled,
				"payment_status":      enums.PaymentStatusFailed,
				"razorpay_payment_id": gatewayPaymentID,
				"cancel_reason":       reason,
				"canceled_at":         s.now(),
			})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel failed-payment order")
		}
		if !applied {
			return nil
		}
		return s.notify.Emit(ctx, tx, order.BuyerID, enums.NotificationOrderCancelled, types.JSONMap{
			"order_id": order.ID.String(),
			"reason":   reason,
		})
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

func (s *service) ApplyRefund(ctx context.Context, gatewayPaymentID string, amountPaise int64) (bool, error) {
	if gatewayPaymentID == "" {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "gateway payment id required")
	}
	found, err := s.repo.FindByRazorpayPaymentID(ctx, gatewayPaymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, pkgerrors.New(pkgerrors.CodeNotFound, "no order for payment")
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	// Reload with items so a refund of a completed order can restock
	// every line.
	order, err := s.repo.FindByID(ctx, found.ID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.Status == enums.OrderStatusRefunded {
		return false, nil
	}
	// A refund can never exceed what was charged. Missing and oversized
	// amounts both settle as a full refund.
	if amountPaise <= 0 || amountPaise > order.TotalPricePaise {
		amountPaise = order.TotalPricePaise
	}

	var applied bool
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		applied, err = repo.UpdateStatusConditional(ctx, order.ID,
			[]enums.OrderStatus{order.Status},
			map[string]any{
				"status":              enums.OrderStatusRefunded,
				"payment_status":      enums.PaymentStatusRefunded,
				"refund_amount_paise": amountPaise,
				"refunded_at":         s.now(),
				"is_reviewable":       false,
			})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refund order")
		}
		if !applied {
			return nil
		}
		// Completion moved stock to sold; a refund after completion
		// puts it back.
		if order.Status == enums.OrderStatusCompleted {
			if err := s.restoreStock(ctx, tx, order); err != nil {
				return err
			}
		}
		return s.notify.Emit(ctx, tx, order.BuyerID, enums.NotificationOrderRefunded, types.JSONMap{
			"order_id":            order.ID.String(),
			"refund_amount_paise": amountPaise,
		})
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

// Accept is the seller's confirmation for orders that carry no gateway
// capture. Gateway orders confirm through payment verification instead.
func (s *service) Accept(ctx context.Context, orderID, sellerID uuid.UUID) (*models.Order, error) {
	order, err := s.loadSellerOrder(ctx, orderID, sellerID)
	if err != nil {
		return nil, err
	}
	if order.PaymentMethod == enums.PaymentMethodRazorpay {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order confirms through payment, not seller acceptance")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		applied, err := repo.UpdateStatusConditional(ctx, order.ID,
			[]enums.OrderStatus{enums.OrderStatusPending},
			map[string]any{"status": enums.OrderStatusConfirmed})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "accept order")
		}
		if !applied {
			if order.Status == enums.OrderStatusConfirmed {
				return nil
			}
			return transitionConflict(order.Status, enums.OrderStatusConfirmed)
		}
		return s.notify.Emit(ctx, tx, order.BuyerID, enums.NotificationOrderConfirmed, types.JSONMap{
			"order_id":  order.ID.String(),
			"item_name": order.ItemName,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, order.ID)
}

func (s *service) MarkProcessing(ctx context.Context, orderID, sellerID uuid.UUID) (*models.Order, error) {
	order, err := s.loadSellerOrder(ctx, orderID, sellerID)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		applied, err := repo.UpdateStatusConditional(ctx, order.ID,
			[]enums.OrderStatus{enums.OrderStatusConfirmed},
			map[string]any{"status": enums.OrderStatusProcessing})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark processing")
		}
		if !applied {
			if order.Status == enums.OrderStatusProcessing {
				return nil
			}
			return transitionConflict(order.Status, enums.OrderStatusProcessing)
		}
		return s.issueExchangeCode(ctx, repo, order.ID)
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, order.ID)
}

func (s *service) MarkShipped(ctx context.Context, orderID, sellerID uuid.UUID) (*models.Order, error) {
	order, err := s.loadSellerOrder(ctx, orderID, sellerID)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		applied, err := repo.UpdateStatusConditional(ctx, order.ID,
			[]enums.OrderStatus{enums.OrderStatusProcessing},
			map[string]any{"status": enums.OrderStatusShipped})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark shipped")
		}
		if !applied {
			if order.Status == enums.OrderStatusShipped {
				return nil
			}
			return transitionConflict(order.Status, enums.OrderStatusShipped)
		}
		return s.notify.Emit(ctx, tx, order.BuyerID, enums.NotificationOrderShipped, types.JSONMap{
			"order_id":  order.ID.String(),
			"item_name": order.ItemName,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, order.ID)
}

func (s *service) Complete(ctx context.Context, input CompleteInput) (*models.Order, error) {
	order, err := s.loadSellerOrder(ctx, input.OrderID, input.SellerID)
	if err != nil {
		return nil, err
	}
	if order.Status == enums.OrderStatusCompleted {
		return order, nil
	}
	if order.ExchangeCode == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "exchange code not issued yet")
	}
	if !strings.EqualFold(strings.TrimSpace(input.ExchangeCode), *order.ExchangeCode) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "exchange code does not match")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		applied, err := repo.UpdateStatusConditional(ctx, order.ID,
			[]enums.OrderStatus{enums.OrderStatusShipped},
			map[string]any{
				"status":        enums.OrderStatusCompleted,
				"is_reviewable": true,
				"completed_at":  s.now(),
			})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete order")
		}
		if !applied {
			return transitionConflict(order.Status, enums.OrderStatusCompleted)
		}

		if err := s.recordSales(ctx, tx, order); err != nil {
			return err
		}
		if err := s.users.WithTx(tx).IncrementOrdersFulfilled(ctx, order.SellerID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update seller stats")
		}
		return s.notify.Emit(ctx, tx, order.BuyerID, enums.NotificationOrderCompleted, types.JSONMap{
			"order_id":  order.ID.String(),
			"item_name": order.ItemName,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, order.ID)
}

func (s *service) Cancel(ctx context.Context, input CancelInput) (*models.Order, error) {
	order, err := s.loadOrder(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if input.ActorID != uuid.Nil && order.BuyerID != input.ActorID && order.SellerID != input.ActorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
	}
	if order.Status == enums.OrderStatusCancelled {
		return order, nil
	}

	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		reason = "cancelled by user"
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		applied, err := repo.UpdateStatusConditional(ctx, order.ID,
			[]enums.OrderStatus{
				enums.OrderStatusPending,
				enums.OrderStatusConfirmed,
				enums.OrderStatusProcessing,
			},
			map[string]any{
				"status":        enums.OrderStatusCancelled,
				"cancel_reason": reason,
				"canceled_at":   s.now(),
			})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}
		if !applied {
			return transitionConflict(order.Status, enums.OrderStatusCancelled)
		}

		// Tell the party that did not ask for the cancellation.
		recipient := order.BuyerID
		if input.ActorID == order.BuyerID {
			recipient = order.SellerID
		}
		return s.notify.Emit(ctx, tx, recipient, enums.NotificationOrderCancelled, types.JSONMap{
			"order_id": order.ID.String(),
			"reason":   reason,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, order.ID)
}

func (s *service) confirmUpdates(gatewayPaymentID string) map[string]any {
	return map[string]any{
		"status":              enums.OrderStatusConfirmed,
		"payment_status":      enums.PaymentStatusCompleted,
		"razorpay_payment_id": gatewayPaymentID,
		"paid_at":             s.now(),
	}
}

// issueExchangeCode attaches a fresh handover code to the order. The column
// has a unique index across all orders, so a collision retries with a new
// code; a second writer losing the IS NULL race is fine, the first code wins.
func (s *service) issueExchangeCode(ctx context.Context, repo orders.Repository, orderID uuid.UUID) error {
	for attempt := 0; attempt < 5; attempt++ {
		code, err := GenerateExchangeCode(s.cfg.ExchangeCodeLength)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate exchange code")
		}
		_, err = repo.SetExchangeCodeIfAbsent(ctx, orderID, code)
		if err == nil {
			return nil
		}
		if db.IsUniqueViolation(err, "") {
			continue
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store exchange code")
	}
	return pkgerrors.New(pkgerrors.CodeInternal, "exhausted exchange code attempts")
}

func (s *service) recordSales(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	repo := s.listings.WithTx(tx)
	apply := func(listingID uuid.UUID, qty int) error {
		sold, err := repo.RecordSale(ctx, listingID, qty)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record sale")
		}
		if !sold {
			return pkgerrors.New(pkgerrors.CodeStock, "listing stock below order quantity").
				WithDetails(map[string]any{"listing_id": listingID, "quantity": qty})
		}
		return nil
	}

	if len(order.Items) > 0 {
		for _, item := range order.Items {
			if err := apply(item.ProductID, item.Quantity); err != nil {
				return err
			}
		}
		return nil
	}
	if order.ListingID != nil {
		return apply(*order.ListingID, order.Quantity)
	}
	return nil
}

func (s *service) restoreStock(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	repo := s.listings.WithTx(tx)
	if len(order.Items) > 0 {
		for _, item := range order.Items {
			if err := repo.RestoreStock(ctx, item.ProductID, item.Quantity); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore stock")
			}
		}
		return nil
	}
	if order.ListingID != nil {
		if err := repo.RestoreStock(ctx, *order.ListingID, order.Quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore stock")
		}
	}
	return nil
}

func (s *service) findByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Order, error) {
	if gatewayOrderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway order id required")
	}
	order, err := s.repo.FindByRazorpayOrderID(ctx, gatewayOrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no order for gateway order id")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) loadOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) loadSellerOrder(ctx context.Context, orderID, sellerID uuid.UUID) (*models.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if sellerID != uuid.Nil && order.SellerID != sellerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to seller")
	}
	return order, nil
}

func (s *service) reload(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
	}
	return order, nil
}

func transitionConflict(from, to enums.OrderStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "order state does not allow this transition").
		WithDetails(map[string]any{"current": from, "requested": to})
}
