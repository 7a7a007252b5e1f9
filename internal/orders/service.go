package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/kachabazaar/kachabazaar-backend/internal/listings"
	"github.com/kachabazaar/kachabazaar-backend/internal/notifications"
	"github.com/kachabazaar/kachabazaar-backend/internal/users"
	"github.com/kachabazaar/kachabazaar-backend/pkg/config"
	"github.com/kachabazaar/kachabazaar-backend/pkg/db/models"
	"github.com/kachabazaar/kachabazaar-backend/pkg/enums"
	pkgerrors "github.com/kachabazaar/kachabazaar-backend/pkg/errors"
	"github.com/kachabazaar/kachabazaar-backend/pkg/pagination"
	"github.com/kachabazaar/kachabazaar-backend/pkg/razorpay"
	"github.com/kachabazaar/kachabazaar-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// PaymentGateway registers checkout orders with the payment provider.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, params razorpay.OrderCreateParams) (*razorpay.Order, error)
	KeyID() string
}

// Service defines order creation and query operations.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error)
	Get(ctx context.Context, orderID, actorID uuid.UUID) (*models.Order, error)
	Admission(ctx context.Context, sellerID uuid.UUID) (*AdmissionStatus, error)
	ListForBuyer(ctx context.Context, buyerID uuid.UUID, status string, limit int, cursor string) ([]models.Order, string, error)
	ListForSeller(ctx context.Context, sellerID uuid.UUID, status string, limit int, cursor string) ([]models.Order, string, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	listings listings.Repository
	users    users.Repository
	gateway  PaymentGateway
	notify   notifications.Dispatcher
	cfg      config.OrdersConfig
}

// NewService builds the order service with the required dependencies.
func NewService(repo Repository, tx txRunner, listingsRepo listings.Repository, usersRepo users.Repository, gateway PaymentGateway, notify notifications.Dispatcher, cfg config.OrdersConfig) (Service, error) {
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
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if notify == nil {
		return nil, fmt.Errorf("notification dispatcher required")
	}
	if cfg.SellerOpenLimit <= 0 {
		return nil, fmt.Errorf("seller open limit must be positive")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		listings: listingsRepo,
		users:    usersRepo,
		gateway:  gateway,
		notify:   notify,
		cfg:      cfg,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	draft, err := s.buildDraft(ctx, input)
	if err != nil {
		return nil, err
	}

	// The server's pricing is authoritative. A disagreeing client total is
	// rejected here, before the gateway intent and the insert.
	if input.ExpectedTotalPaise != nil && *input.ExpectedTotalPaise != draft.TotalPricePaise {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "total_amount does not match server pricing").
			WithDetails(map[string]any{"amount_paise": draft.TotalPricePaise})
	}

	// Fast admission pre-check outside the transaction; the authoritative
	// check repeats under the seller row lock below.
	if err := s.checkAdmission(ctx, draft.SellerID); err != nil {
		return nil, err
	}

	if input.PaymentMethod == enums.PaymentMethodRazorpay {
		gwOrder, err := s.gateway.CreateOrder(ctx, razorpay.OrderCreateParams{
			Amount:   draft.TotalPricePaise,
			Currency: draft.Currency,
			Receipt:  draft.ID.String(),
			Notes: map[string]string{
				"order_id": draft.ID.String(),
				"buyer_id": draft.BuyerID.String(),
			},
		})
		if err != nil {
			return nil, err
		}
		gatewayOrderID := gwOrder.ID
		draft.RazorpayOrderID = &gatewayOrderID
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		usersRepo := s.users.WithTx(tx)

		seller, err := usersRepo.FindByIDForUpdate(ctx, draft.SellerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "seller not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock seller")
		}

		count, err := repo.CountOpenBySeller(ctx, seller.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count open orders")
		}
		if count >= int64(s.cfg.SellerOpenLimit) {
			return sellerLimitError(seller.ID, count, int64(s.cfg.SellerOpenLimit))
		}

		if _, err := repo.Create(ctx, draft.Order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist order")
		}
		for i := range draft.Items {
			draft.Items[i].OrderID = draft.ID
		}
		if err := repo.CreateItems(ctx, draft.Items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist order items")
		}

		return s.notify.Emit(ctx, tx, seller.ID, enums.NotificationOrderCreated, types.JSONMap{
			"order_id":  draft.ID.String(),
			"buyer_id":  draft.BuyerID.String(),
			"item_name": draft.ItemName,
		})
	})
	if err != nil {
		return nil, err
	}

	result := &CreateOrderResult{
		Order:           draft.Order,
		AmountPaise:     draft.TotalPricePaise,
		Currency:        draft.Currency,
		RequiresGateway: input.PaymentMethod == enums.PaymentMethodRazorpay,
	}
	if draft.RazorpayOrderID != nil {
		result.GatewayOrderID = *draft.RazorpayOrderID
		result.GatewayKeyID = s.gateway.KeyID()
	}
	return result, nil
}

type orderDraft struct {
	*models.Order
	Items []models.OrderItem
}

func (s *service) buildDraft(ctx context.Context, input CreateOrderInput) (*orderDraft, error) {
	order := &models.Order{
		ID:            uuid.New(),
		BuyerID:       input.BuyerID,
		OrderType:     input.OrderType,
		DeliveryType:  input.DeliveryType,
		PaymentMethod: input.PaymentMethod,
		Status:        enums.OrderStatusPending,
		PaymentStatus: enums.PaymentStatusPending,
		Currency:      s.cfg.DefaultCurrency,
		RequestID:     input.RequestID,

		DeliveryAddress: input.DeliveryAddress,
		PickupAddress:   input.PickupAddress,
		Notes:           input.Notes,
	}

	var items []models.OrderItem

	switch input.OrderType {
	case enums.OrderTypeFromListing, enums.OrderTypeSingleItem:
		listing, err := s.loadValidListing(ctx, *input.ListingID, input.Quantity)
		if err != nil {
			return nil, err
		}
		order.SellerID = listing.SellerID
		order.ListingID = &listing.ID
		order.ItemName = listing.ItemName
		order.Quantity = input.Quantity
		order.Unit = listing.Unit
		order.BasePricePaise = listing.PricePaise * int64(input.Quantity)
		order.DeliveryFeePaise = listing.DeliveryFeePaise
		order.ProductSnapshot = s.snapshotListing(listing)

	case enums.OrderTypeFromCart:
		var verr error
		var base, fee int64
		var sellerID uuid.UUID
		totalQty := 0
		for _, line := range input.CartLines {
			listing, err := s.loadValidListing(ctx, line.ListingID, line.Quantity)
			if err != nil {
				verr = multierr.Append(verr, err)
				continue
			}
			if sellerID == uuid.Nil {
				sellerID = listing.SellerID
			} else if sellerID != listing.SellerID {
				verr = multierr.Append(verr, pkgerrors.New(pkgerrors.CodeValidation, "cart lines must share one seller"))
				continue
			}
			base += listing.PricePaise * int64(line.Quantity)
			if listing.DeliveryFeePaise > fee {
				fee = listing.DeliveryFeePaise
			}
			totalQty += line.Quantity
			items = append(items, models.OrderItem{
				ID:               uuid.New(),
				ProductID:        listing.ID,
				Quantity:         line.Quantity,
				PriceAtTimePaise: listing.PricePaise,
				Snapshot:         s.snapshotListing(listing),
			})
		}
		if verr != nil {
			return nil, wrapValidation(verr)
		}
		order.SellerID = sellerID
		order.ItemName = cartItemName(items)
		order.Quantity = totalQty
		order.Unit = enums.UnitPieces
		order.BasePricePaise = base
		order.DeliveryFeePaise = fee

	case enums.OrderTypeFromRequest:
		base, err := paiseFromRupees(input.AgreedPriceRupees)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "agreed price")
		}
		fee, err := paiseFromRupees(input.DeliveryFeeRupees)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "delivery fee")
		}
		if base <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "agreed price must be positive")
		}
		order.SellerID = *input.SellerID
		order.ItemName = input.ItemName
		order.Quantity = input.Quantity
		order.Unit = input.Unit
		order.BasePricePaise = base * int64(input.Quantity)
		order.DeliveryFeePaise = fee
	}

	order.RecomputeTotal()
	return &orderDraft{Order: order, Items: items}, nil
}

func (s *service) loadValidListing(ctx context.Context, id uuid.UUID, qty int) (*models.Listing, error) {
	listing, err := s.listings.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}
	if !listing.Active {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing is not active").
			WithDetails(map[string]any{"listing_id": listing.ID})
	}
	if qty > listing.QuantityAvailable {
		return nil, pkgerrors.New(pkgerrors.CodeStock, "requested quantity exceeds stock").
			WithDetails(map[string]any{
				"listing_id": listing.ID,
				"requested":  qty,
				"available":  listing.QuantityAvailable,
			})
	}
	return listing, nil
}

func (s *service) snapshotListing(listing *models.Listing) types.JSONMap {
	snapshot := types.JSONMap{
		"listing_id":         listing.ID.String(),
		"item_name":          listing.ItemName,
		"unit":               listing.Unit.String(),
		"price_paise":        listing.PricePaise,
		"delivery_fee_paise": listing.DeliveryFeePaise,
	}
	if listing.Description != nil {
		snapshot["description"] = *listing.Description
	}
	if s.cfg.SnapshotMaxBytes > 0 {
		if raw, err := json.Marshal(snapshot); err == nil && len(raw) > s.cfg.SnapshotMaxBytes {
			delete(snapshot, "description")
		}
	}
	return snapshot
}

func (s *service) Get(ctx context.Context, orderID, actorID uuid.UUID) (*models.Order, error) {
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
	if actorID != uuid.Nil && order.BuyerID != actorID && order.SellerID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
	}
	return order, nil
}

func (s *service) Admission(ctx context.Context, sellerID uuid.UUID) (*AdmissionStatus, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	count, err := s.repo.CountOpenBySeller(ctx, sellerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count open orders")
	}
	limit := int64(s.cfg.SellerOpenLimit)
	return &AdmissionStatus{
		SellerID:    sellerID,
		CurrentOpen: count,
		Limit:       limit,
		CanAccept:   count < limit,
	}, nil
}

func (s *service) ListForBuyer(ctx context.Context, buyerID uuid.UUID, status string, limit int, cursor string) ([]models.Order, string, error) {
	params, err := buildListParams(status, limit, cursor)
	if err != nil {
		return nil, "", err
	}
	if buyerID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	rows, next, err := s.repo.ListByBuyer(ctx, buyerID, params)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list buyer orders")
	}
	return rows, encodeCursor(next), nil
}

func (s *service) ListForSeller(ctx context.Context, sellerID uuid.UUID, status string, limit int, cursor string) ([]models.Order, string, error) {
	params, err := buildListParams(status, limit, cursor)
	if err != nil {
		return nil, "", err
	}
	if sellerID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	rows, next, err := s.repo.ListBySeller(ctx, sellerID, params)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list seller orders")
	}
	return rows, encodeCursor(next), nil
}

func (s *service) checkAdmission(ctx context.Context, sellerID uuid.UUID) error {
	status, err := s.Admission(ctx, sellerID)
	if err != nil {
		return err
	}
	if !status.CanAccept {
		return sellerLimitError(sellerID, status.CurrentOpen, status.Limit)
	}
	return nil
}

func sellerLimitError(sellerID uuid.UUID, current, limit int64) error {
	return pkgerrors.New(pkgerrors.CodeSellerLimit, "seller has too many open orders").
		WithDetails(map[string]any{
			"seller_id":    sellerID,
			"current_open": current,
			"limit":        limit,
		})
}

func validateCreateInput(input CreateOrderInput) error {
	if input.BuyerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	if !input.OrderType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown order type")
	}
	if !input.DeliveryType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown delivery type")
	}
	if !input.PaymentMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}

	switch input.OrderType {
	case enums.OrderTypeFromListing, enums.OrderTypeSingleItem:
		if input.ListingID == nil || *input.ListingID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "listing id required")
		}
		if input.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
	case enums.OrderTypeFromCart:
		if len(input.CartLines) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart lines required")
		}
		for _, line := range input.CartLines {
			if line.ListingID == uuid.Nil || line.Quantity <= 0 {
				return pkgerrors.New(pkgerrors.CodeValidation, "cart lines need a listing and positive quantity")
			}
		}
	case enums.OrderTypeFromRequest:
		if input.SellerID == nil || *input.SellerID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
		}
		if input.ItemName == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "item name required")
		}
		if !input.Unit.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, "unknown unit")
		}
		if input.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
	}

	if input.DeliveryType == enums.DeliveryTypeDelivery && (input.DeliveryAddress == nil || *input.DeliveryAddress == "") {
		return pkgerrors.New(pkgerrors.CodeValidation, "delivery address required for delivery orders")
	}
	return nil
}

// paiseFromRupees converts a rupee amount to paise, rejecting values with
// sub-paise precision rather than silently rounding money.
func paiseFromRupees(rupees decimal.Decimal) (int64, error) {
	if rupees.IsNegative() {
		return 0, fmt.Errorf("amount must not be negative")
	}
	paise := rupees.Mul(decimal.NewFromInt(100))
	if !paise.IsInteger() {
		return 0, fmt.Errorf("amount %s has sub-paise precision", rupees.String())
	}
	return paise.IntPart(), nil
}

func wrapValidation(err error) error {
	if typed := pkgerrors.As(err); typed != nil && len(multierr.Errors(err)) == 1 {
		return typed
	}
	details := make([]string, 0, len(multierr.Errors(err)))
	for _, e := range multierr.Errors(err) {
		details = append(details, e.Error())
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "order validation failed").
		WithDetails(map[string]any{"errors": details})
}

func cartItemName(items []models.OrderItem) string {
	if len(items) == 0 {
		return "cart order"
	}
	first, _ := items[0].Snapshot["item_name"].(string)
	if first == "" {
		first = "cart order"
	}
	if len(items) == 1 {
		return first
	}
	return fmt.Sprintf("%s and %d more", first, len(items)-1)
}

func buildListParams(status string, limit int, cursor string) (ListParams, error) {
	params := ListParams{Limit: limit}
	if status != "" {
		parsed, err := enums.ParseOrderStatus(status)
		if err != nil {
			return params, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		params.Status = &parsed
	}
	if cursor != "" {
		parsed, err := pagination.ParseCursor(cursor)
		if err != nil {
			return params, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		params.Cursor = parsed
	}
	return params, nil
}

func encodeCursor(cursor *pagination.Cursor) string {
	if cursor == nil {
		return ""
	}
	return pagination.EncodeCursor(*cursor)
}
