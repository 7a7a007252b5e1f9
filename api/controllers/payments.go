package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kachabazaar/kachabazaar-backend/api/middleware"
	"github.com/kachabazaar/kachabazaar-backend/api/responses"
	"github.com/kachabazaar/kachabazaar-backend/api/validators"
	"github.com/kachabazaar/kachabazaar-backend/internal/orders"
	"github.com/kachabazaar/kachabazaar-backend/internal/payments"
	"github.com/kachabazaar/kachabazaar-backend/pkg/enums"
	pkgerrors "github.com/kachabazaar/kachabazaar-backend/pkg/errors"
	"github.com/kachabazaar/kachabazaar-backend/pkg/logger"
)

type paymentOrderItemRequest struct {
	ListingID string `json:"listing_id" validate:"required,uuid4"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type createPaymentOrderRequest struct {
	Items           []paymentOrderItemRequest `json:"items" validate:"required,min=1,dive"`
	TotalAmount     decimal.Decimal           `json:"total_amount"`
	Currency        string                    `json:"currency" validate:"omitempty,len=3"`
	DeliveryAddress *string                   `json:"delivery_address,omitempty"`
	Notes           *string                   `json:"notes,omitempty"`
}

type verifyPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id" validate:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" validate:"required"`
	RazorpaySignature string `json:"razorpay_signature" validate:"required"`
}

// CreatePaymentOrder opens a pending cart order and registers the matching
// gateway order so the client can launch checkout. The server prices the
// cart itself; a disagreeing client total is rejected before anything is
// stored.
func CreatePaymentOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		buyerID, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createPaymentOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if currency := strings.ToUpper(strings.TrimSpace(payload.Currency)); currency != "" && currency != "INR" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "only INR is supported"))
			return
		}

		expectedPaise, err := rupeesToPaise(payload.TotalAmount, "total_amount")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lines := make([]orders.CartLine, 0, len(payload.Items))
		for _, item := range payload.Items {
			listingID, parseErr := uuid.Parse(strings.TrimSpace(item.ListingID))
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid listing id"))
				return
			}
			lines = append(lines, orders.CartLine{ListingID: listingID, Quantity: item.Quantity})
		}

		input := orders.CreateOrderInput{
			BuyerID:            buyerID,
			OrderType:          enums.OrderTypeFromCart,
			DeliveryType:       enums.DeliveryTypeDelivery,
			PaymentMethod:      enums.PaymentMethodRazorpay,
			CartLines:          lines,
			DeliveryAddress:    payload.DeliveryAddress,
			Notes:              payload.Notes,
			ExpectedTotalPaise: &expectedPaise,
		}

		result, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// VerifyPayment confirms a paid order from the client-side checkout callback.
func VerifyPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		buyerID, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload verifyPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.VerifyPayment(r.Context(), payments.VerifyPaymentInput{
			BuyerID:          buyerID,
			GatewayOrderID:   strings.TrimSpace(payload.RazorpayOrderID),
			GatewayPaymentID: strings.TrimSpace(payload.RazorpayPaymentID),
			Signature:        payload.RazorpaySignature,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

func actorFromContext(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	actorID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}
	return actorID, nil
}

func rupeesToPaise(amount decimal.Decimal, field string) (int64, error) {
	if amount.Sign() <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, field+" must be positive")
	}
	paise := amount.Mul(decimal.NewFromInt(100))
	if !paise.IsInteger() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, field+" has sub-paise precision")
	}
	return paise.IntPart(), nil
}
