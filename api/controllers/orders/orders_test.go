package orders

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kachabazaar/kachabazaar-backend/pkg/enums"
	pkgerrors "github.com/kachabazaar/kachabazaar-backend/pkg/errors"
)

func TestBuildCreateInputListingOrder(t *testing.T) {
	buyerID := uuid.New()
	listingID := uuid.New()
	notes := "  ring the bell twice  "

	input, err := buildCreateInput(buyerID, createOrderRequest{
		OrderType:     "from-listing",
		DeliveryType:  "delivery",
		PaymentMethod: "razorpay",
		ListingID:     ptr(listingID.String()),
		Quantity:      2,
		Notes:         &notes,
	})
	require.NoError(t, err)

	assert.Equal(t, buyerID, input.BuyerID)
	assert.Equal(t, enums.OrderTypeFromListing, input.OrderType)
	assert.Equal(t, enums.PaymentMethodRazorpay, input.PaymentMethod)
	require.NotNil(t, input.ListingID)
	assert.Equal(t, listingID, *input.ListingID)
	assert.Equal(t, 2, input.Quantity)
	require.NotNil(t, input.Notes)
	assert.Equal(t, "ring the bell twice", *input.Notes)
}

func TestBuildCreateInputRequestOrder(t *testing.T) {
	sellerID := uuid.New()
	requestID := uuid.New()

	input, err := buildCreateInput(uuid.New(), createOrderRequest{
		OrderType:     "from-request",
		DeliveryType:  "pickup",
		PaymentMethod: "cod",
		SellerID:      ptr(sellerID.String()),
		RequestID:     ptr(requestID.String()),
		ItemName:      "  Basmati Rice  ",
		Unit:          "kg",
		AgreedPrice:   decimal.RequireFromString("150.50"),
		DeliveryFee:   decimal.RequireFromString("20"),
		Quantity:      3,
	})
	require.NoError(t, err)

	require.NotNil(t, input.SellerID)
	assert.Equal(t, sellerID, *input.SellerID)
	assert.Equal(t, "Basmati Rice", input.ItemName)
	assert.Equal(t, enums.UnitKg, input.Unit)
	assert.True(t, input.AgreedPriceRupees.Equal(decimal.RequireFromString("150.50")))
}

func TestBuildCreateInputCartLines(t *testing.T) {
	first := uuid.New()
	second := uuid.New()

	input, err := buildCreateInput(uuid.New(), createOrderRequest{
		OrderType:     "from-cart",
		DeliveryType:  "delivery",
		PaymentMethod: "razorpay",
		Items: []cartLineRequest{
			{ListingID: first.String(), Quantity: 1},
			{ListingID: second.String(), Quantity: 4},
		},
	})
	require.NoError(t, err)
	require.Len(t, input.CartLines, 2)
	assert.Equal(t, first, input.CartLines[0].ListingID)
	assert.Equal(t, 4, input.CartLines[1].Quantity)
}

func TestBuildCreateInputRejectsBadEnums(t *testing.T) {
	cases := []createOrderRequest{
		{OrderType: "impulse", DeliveryType: "delivery", PaymentMethod: "razorpay"},
		{OrderType: "from-cart", DeliveryType: "teleport", PaymentMethod: "razorpay"},
		{OrderType: "from-cart", DeliveryType: "delivery", PaymentMethod: "barter"},
		{OrderType: "from-request", DeliveryType: "pickup", PaymentMethod: "cod", Unit: "bushels"},
	}
	for _, payload := range cases {
		_, err := buildCreateInput(uuid.New(), payload)
		require.Error(t, err)
		typed := pkgerrors.As(err)
		require.NotNil(t, typed)
		assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	}
}

func TestBuildCreateInputRejectsMalformedIDs(t *testing.T) {
	_, err := buildCreateInput(uuid.New(), createOrderRequest{
		OrderType:     "from-listing",
		DeliveryType:  "delivery",
		PaymentMethod: "razorpay",
		ListingID:     ptr("not-a-uuid"),
	})
	require.Error(t, err)

	_, err = buildCreateInput(uuid.New(), createOrderRequest{
		OrderType:     "from-cart",
		DeliveryType:  "delivery",
		PaymentMethod: "razorpay",
		Items:         []cartLineRequest{{ListingID: "nope", Quantity: 1}},
	})
	require.Error(t, err)
}

func TestSanitizeOptionalTruncatesAndDropsBlank(t *testing.T) {
	long := strings.Repeat("a", maxNotesLen+50)
	cleaned := sanitizeOptional(&long, maxNotesLen)
	require.NotNil(t, cleaned)
	assert.Len(t, *cleaned, maxNotesLen)

	blank := "   "
	assert.Nil(t, sanitizeOptional(&blank, maxNotesLen))
	assert.Nil(t, sanitizeOptional(nil, maxNotesLen))
}

func ptr(s string) *string {
	return &s
}
