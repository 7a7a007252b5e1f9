package orders

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kachabazaar/kachabazaar-backend/api/middleware"
	"github.com/kachabazaar/kachabazaar-backend/api/responses"
	"github.com/kachabazaar/kachabazaar-backend/api/validators"
	internalorders "github.com/kachabazaar/kachabazaar-backend/internal/orders"
	"github.com/kachabazaar/kachabazaar-backend/internal/payments"
	"github.com/kachabazaar/kachabazaar-backend/pkg/db/models"
	"github.com/kachabazaar/kachabazaar-backend/pkg/enums"
	pkgerrors "github.com/kachabazaar/kachabazaar-backend/pkg/errors"
	"github.com/kachabazaar/kachabazaar-backend/pkg/logger"
	"github.com/kachabazaar/kachabazaar-backend/pkg/pagination"
)

const (
	maxItemNameLen = 200
	maxAddressLen  = 500
	maxNotesLen    = 1000
	maxReasonLen   = 500
)

type cartLineRequest struct {
	ListingID string `json:"listing_id" validate:"required,uuid4"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type createOrderRequest struct {
	OrderType     string `json:"order_type" validate:"required"`
	DeliveryType  string `json:"delivery_type" validate:"required"`
	PaymentMethod string `json:"payment_method" validate:"required"`

	ListingID *string `json:"listing_id,omitempty" validate:"omitempty,uuid4"`
	Quantity  int     `json:"quantity,omitempty" validate:"omitempty,min=1"`

	Items []cartLineRequest `json:"items,omitempty" validate:"omitempty,min=1,dive"`

	SellerID    *string         `json:"seller_id,omitempty" validate:"omitempty,uuid4"`
	RequestID   *string         `json:"request_id,omitempty" validate:"omitempty,uuid4"`
	ItemName    string          `json:"item_name,omitempty"`
	Unit        string          `json:"unit,omitempty"`
	AgreedPrice decimal.Decimal `json:"agreed_price,omitempty"`
	DeliveryFee decimal.Decimal `json:"delivery_fee,omitempty"`

	DeliveryAddress *string `json:"delivery_address,omitempty"`
	PickupAddress   *string `json:"pickup_address,omitempty"`
	Notes           *string `json:"notes,omitempty"`
}

type completeOrderRequest struct {
	ExchangeCode string `json:"exchange_code" validate:"required"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason,omitempty"`
}

// Create opens an order from a listing, an accepted request, or a cart.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		buyerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := buildCreateInput(buyerID, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// List returns the caller's orders, as buyer by default or as seller when
// view=seller is requested.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cursor := strings.TrimSpace(r.URL.Query().Get("cursor"))
		status := strings.TrimSpace(r.URL.Query().Get("status"))

		view := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("view")))
		var (
			list       []models.Order
			nextCursor string
		)
		switch view {
		case "", "buyer":
			list, nextCursor, err = svc.ListForBuyer(r.Context(), userID, status, limit, cursor)
		case "seller":
			list, nextCursor, err = svc.ListForSeller(r.Context(), userID, status, limit, cursor)
		default:
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "view must be buyer or seller"))
			return
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"orders":      list,
			"next_cursor": nextCursor,
		})
	}
}

// Detail returns one order after an ownership check.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
				return
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// Admission reports the caller's open-order headroom as a seller.
func Admission(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		sellerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := svc.Admission(r.Context(), sellerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}

// Accept confirms a cash or wallet order on the seller's behalf.
func Accept(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return sellerTransition(svc, logg, func(r *http.Request, svc payments.Service, orderID, sellerID uuid.UUID) (interface{}, error) {
		return svc.Accept(r.Context(), orderID, sellerID)
	})
}

// MarkProcessing moves a confirmed order into preparation and issues the
// exchange code.
func MarkProcessing(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return sellerTransition(svc, logg, func(r *http.Request, svc payments.Service, orderID, sellerID uuid.UUID) (interface{}, error) {
		return svc.MarkProcessing(r.Context(), orderID, sellerID)
	})
}

// Ship marks a processing order as out for delivery.
func Ship(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return sellerTransition(svc, logg, func(r *http.Request, svc payments.Service, orderID, sellerID uuid.UUID) (interface{}, error) {
		return svc.MarkShipped(r.Context(), orderID, sellerID)
	})
}

// Complete closes a shipped order against the buyer's exchange code.
func Complete(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		sellerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload completeOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Complete(r.Context(), payments.CompleteInput{
			OrderID:      orderID,
			SellerID:     sellerID,
			ExchangeCode: payload.ExchangeCode,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// Cancel lets the buyer or seller cancel an order that has not shipped.
func Cancel(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cancelOrderRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		order, err := svc.Cancel(r.Context(), payments.CancelInput{
			OrderID: orderID,
			ActorID: userID,
			Reason:  validators.SanitizeString(payload.Reason, maxReasonLen),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type transitionFn func(r *http.Request, svc payments.Service, orderID, sellerID uuid.UUID) (interface{}, error)

func sellerTransition(svc payments.Service, logg *logger.Logger, fn transitionFn) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		sellerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := fn(r, svc, orderID, sellerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func buildCreateInput(buyerID uuid.UUID, payload createOrderRequest) (internalorders.CreateOrderInput, error) {
	var input internalorders.CreateOrderInput

	orderType, err := enums.ParseOrderType(strings.TrimSpace(payload.OrderType))
	if err != nil {
		return input, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order_type")
	}
	deliveryType, err := enums.ParseDeliveryType(strings.TrimSpace(payload.DeliveryType))
	if err != nil {
		return input, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery_type")
	}
	paymentMethod, err := enums.ParsePaymentMethod(strings.TrimSpace(payload.PaymentMethod))
	if err != nil {
		return input, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment_method")
	}

	input = internalorders.CreateOrderInput{
		BuyerID:       buyerID,
		OrderType:     orderType,
		DeliveryType:  deliveryType,
		PaymentMethod: paymentMethod,
		Quantity:      payload.Quantity,
	}

	if payload.ListingID != nil {
		listingID, parseErr := uuid.Parse(strings.TrimSpace(*payload.ListingID))
		if parseErr != nil {
			return input, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid listing_id")
		}
		input.ListingID = &listingID
	}

	for _, line := range payload.Items {
		listingID, parseErr := uuid.Parse(strings.TrimSpace(line.ListingID))
		if parseErr != nil {
			return input, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid listing id in items")
		}
		input.CartLines = append(input.CartLines, internalorders.CartLine{
			ListingID: listingID,
			Quantity:  line.Quantity,
		})
	}

	if payload.SellerID != nil {
		sellerID, parseErr := uuid.Parse(strings.TrimSpace(*payload.SellerID))
		if parseErr != nil {
			return input, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid seller_id")
		}
		input.SellerID = &sellerID
	}
	if payload.RequestID != nil {
		requestID, parseErr := uuid.Parse(strings.TrimSpace(*payload.RequestID))
		if parseErr != nil {
			return input, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid request_id")
		}
		input.RequestID = &requestID
	}

	if name := validators.SanitizeString(payload.ItemName, maxItemNameLen); name != "" {
		input.ItemName = name
	}
	if rawUnit := strings.TrimSpace(payload.Unit); rawUnit != "" {
		unit, parseErr := enums.ParseUnit(rawUnit)
		if parseErr != nil {
			return input, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid unit")
		}
		input.Unit = unit
	}
	input.AgreedPriceRupees = payload.AgreedPrice
	input.DeliveryFeeRupees = payload.DeliveryFee

	input.DeliveryAddress = sanitizeOptional(payload.DeliveryAddress, maxAddressLen)
	input.PickupAddress = sanitizeOptional(payload.PickupAddress, maxAddressLen)
	input.Notes = sanitizeOptional(payload.Notes, maxNotesLen)

	return input, nil
}

func sanitizeOptional(value *string, maxLen int) *string {
	if value == nil {
		return nil
	}
	cleaned := validators.SanitizeString(*value, maxLen)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}

func actorID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}
	return parsed, nil
}

func orderIDParam(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return parsed, nil
}
