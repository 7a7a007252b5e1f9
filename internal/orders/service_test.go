package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kachabazaar/kachabazaar-backend/internal/listings"
	"github.com/kachabazaar/kachabazaar-backend/internal/users"
	"github.com/kachabazaar/kachabazaar-backend/pkg/config"
	"github.com/kachabazaar/kachabazaar-backend/pkg/db/models"
	"github.com/kachabazaar/kachabazaar-backend/pkg/enums"
	pkgerrors "github.com/kachabazaar/kachabazaar-backend/pkg/errors"
	"github.com/kachabazaar/kachabazaar-backend/pkg/pagination"
	"github.com/kachabazaar/kachabazaar-backend/pkg/razorpay"
	"github.com/kachabazaar/kachabazaar-backend/pkg/types"
)

type stubOrdersRepo struct {
	orders    map[uuid.UUID]*models.Order
	items     []models.OrderItem
	openCount int64
	countErr  error
}

func newStubOrdersRepo() *stubOrdersRepo {
	return &stubOrdersRepo{orders: make(map[uuid.UUID]*models.Order)}
}

func (s *stubOrdersRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubOrdersRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	s.orders[order.ID] = order
	return order, nil
}

func (s *stubOrdersRepo) CreateItems(ctx context.Context, items []models.OrderItem) error {
	s.items = append(s.items, items...)
	return nil
}

func (s *stubOrdersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := s.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return order, nil
}

func (s *stubOrdersRepo) FindByRazorpayOrderID(ctx context.Context, gatewayOrderID string) (*models.Order, error) {
	panic("not implemented")
}

func (s *stubOrdersRepo) FindByRazorpayPaymentID(ctx context.Context, gatewayPaymentID string) (*models.Order, error) {
	panic("not implemented")
}

func (s *stubOrdersRepo) CountOpenBySeller(ctx context.Context, sellerID uuid.UUID) (int64, error) {
	if s.countErr != nil {
		return 0, s.countErr
	}
	return s.openCount, nil
}

func (s *stubOrdersRepo) UpdateStatusConditional(ctx context.Context, id uuid.UUID, from []enums.OrderStatus, updates map[string]any) (bool, error) {
	panic("not implemented")
}

func (s *stubOrdersRepo) SetExchangeCodeIfAbsent(ctx context.Context, id uuid.UUID, code string) (bool, error) {
	panic("not implemented")
}

func (s *stubOrdersRepo) ListByBuyer(ctx context.Context, buyerID uuid.UUID, params ListParams) ([]models.Order, *pagination.Cursor, error) {
	return nil, nil, nil
}

func (s *stubOrdersRepo) ListBySeller(ctx context.Context, sellerID uuid.UUID, params ListParams) ([]models.Order, *pagination.Cursor, error) {
	return nil, nil, nil
}

type stubListingsRepo struct {
	listings map[uuid.UUID]*models.Listing
}

func (s *stubListingsRepo) WithTx(tx *gorm.DB) listings.Repository { return s }

func (s *stubListingsRepo) Create(ctx context.Context, listing *models.Listing) (*models.Listing, error) {
	panic("not implemented")
}

func (s *stubListingsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	listing, ok := s.listings[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return listing, nil
}

func (s *stubListingsRepo) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Listing, error) {
	panic("not implemented")
}

func (s *stubListingsRepo) RecordSale(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	panic("not implemented")
}

func (s *stubListingsRepo) RestoreStock(ctx context.Context, id uuid.UUID, qty int) error {
	panic("not implemented")
}

type stubUsersRepo struct {
	users map[uuid.UUID]*models.User
}

func (s *stubUsersRepo) WithTx(tx *gorm.DB) users.Repository { return s }

func (s *stubUsersRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	panic("not implemented")
}

func (s *stubUsersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (s *stubUsersRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.FindByID(ctx, id)
}

func (s *stubUsersRepo) IncrementOrdersFulfilled(ctx context.Context, id uuid.UUID) error {
	panic("not implemented")
}

type stubGateway struct {
	created []razorpay.OrderCreateParams
	err     error
}

func (s *stubGateway) CreateOrder(ctx context.Context, params razorpay.OrderCreateParams) (*razorpay.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.created = append(s.created, params)
	return &razorpay.Order{ID: "order_GW1", Amount: params.Amount, Currency: params.Currency, Status: "created"}, nil
}

func (s *stubGateway) KeyID() string { return "rzp_test_key" }

type dispatchedNotification struct {
	userID  uuid.UUID
	event   enums.NotificationEvent
	payload types.JSONMap
}

type stubDispatcher struct {
	emitted []dispatchedNotification
	err     error
}

func (s *stubDispatcher) Emit(ctx context.Context, tx *gorm.DB, userID uuid.UUID, event enums.NotificationEvent, payload types.JSONMap) error {
	if s.err != nil {
		return s.err
	}
	s.emitted = append(s.emitted, dispatchedNotification{userID: userID, event: event, payload: payload})
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type createFixture struct {
	service  Service
	repo     *stubOrdersRepo
	gateway  *stubGateway
	notify   *stubDispatcher
	sellerID uuid.UUID
	listing  *models.Listing
}

func newCreateFixture(t *testing.T) *createFixture {
	t.Helper()

	sellerID := uuid.New()
	listing := &models.Listing{
		ID:                uuid.New(),
		SellerID:          sellerID,
		ItemName:          "Alphonso Mangoes",
		Unit:              enums.UnitDozens,
		PricePaise:        60000,
		DeliveryFeePaise:  2000,
		QuantityAvailable: 10,
		Active:            true,
	}

	repo := newStubOrdersRepo()
	gateway := &stubGateway{}
	notify := &stubDispatcher{}
	svc, err := NewService(
		repo,
		stubTxRunner{},
		&stubListingsRepo{listings: map[uuid.UUID]*models.Listing{listing.ID: listing}},
		&stubUsersRepo{users: map[uuid.UUID]*models.User{sellerID: {ID: sellerID, Name: "seller"}}},
		gateway,
		notify,
		config.OrdersConfig{SellerOpenLimit: 3, DefaultCurrency: "INR", ExchangeCodeLength: 8},
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &createFixture{
		service:  svc,
		repo:     repo,
		gateway:  gateway,
		notify:   notify,
		sellerID: sellerID,
		listing:  listing,
	}
}

func listingInput(f *createFixture, qty int) CreateOrderInput {
	addr := "12 MG Road, Pune"
	return CreateOrderInput{
		BuyerID:         uuid.New(),
		OrderType:       enums.OrderTypeFromListing,
		DeliveryType:    enums.DeliveryTypeDelivery,
		PaymentMethod:   enums.PaymentMethodRazorpay,
		ListingID:       &f.listing.ID,
		Quantity:        qty,
		DeliveryAddress: &addr,
	}
}

func TestCreateListingOrder(t *testing.T) {
	f := newCreateFixture(t)

	result, err := f.service.Create(context.Background(), listingInput(f, 2))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	order := result.Order
	if order.Status != enums.OrderStatusPending || order.PaymentStatus != enums.PaymentStatusPending {
		t.Fatalf("new order must start pending/pending, got %s/%s", order.Status, order.PaymentStatus)
	}
	if order.SellerID != f.sellerID {
		t.Fatalf("seller not taken from listing")
	}
	if order.BasePricePaise != 120000 || order.DeliveryFeePaise != 2000 || order.TotalPricePaise != 122000 {
		t.Fatalf("unexpected totals base=%d fee=%d total=%d", order.BasePricePaise, order.DeliveryFeePaise, order.TotalPricePaise)
	}
	if order.RazorpayOrderID == nil || *order.RazorpayOrderID != "order_GW1" {
		t.Fatalf("gateway order id not stored")
	}
	if result.GatewayKeyID != "rzp_test_key" || !result.RequiresGateway {
		t.Fatalf("checkout fields missing from result")
	}
	if len(f.gateway.created) != 1 || f.gateway.created[0].Amount != 122000 {
		t.Fatalf("gateway called with wrong amount")
	}
	if name, _ := order.ProductSnapshot["item_name"].(string); name != "Alphonso Mangoes" {
		t.Fatalf("snapshot missing listing fields: %v", order.ProductSnapshot)
	}
	if len(f.notify.emitted) != 1 || f.notify.emitted[0].event != enums.NotificationOrderCreated {
		t.Fatalf("seller notification not emitted")
	}
}

func TestCreateCODOrderSkipsGateway(t *testing.T) {
	f := newCreateFixture(t)

	input := listingInput(f, 1)
	input.PaymentMethod = enums.PaymentMethodCOD

	result, err := f.service.Create(context.Background(), input)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(f.gateway.created) != 0 {
		t.Fatalf("gateway must not be called for COD orders")
	}
	if result.RequiresGateway || result.GatewayOrderID != "" {
		t.Fatalf("COD result must not carry gateway fields")
	}
	if result.Order.RazorpayOrderID != nil {
		t.Fatalf("COD order must not store a gateway order id")
	}
}

func TestCreateRejectsClientTotalMismatchBeforePersistence(t *testing.T) {
	f := newCreateFixture(t)

	input := listingInput(f, 2)
	wrong := int64(100)
	input.ExpectedTotalPaise = &wrong

	_, err := f.service.Create(context.Background(), input)
	domainErr := pkgerrors.As(err)
	if domainErr == nil || domainErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(f.gateway.created) != 0 {
		t.Fatalf("gateway must not be called on a total mismatch")
	}
	if len(f.repo.orders) != 0 {
		t.Fatalf("no order row may exist after a total mismatch")
	}
	if len(f.notify.emitted) != 0 {
		t.Fatalf("rejected order must not notify the seller")
	}

	right := int64(122000)
	input.ExpectedTotalPaise = &right
	if _, err := f.service.Create(context.Background(), input); err != nil {
		t.Fatalf("matching total must create the order: %v", err)
	}
}

func TestCreateRejectsInactiveListing(t *testing.T) {
	f := newCreateFixture(t)
	f.listing.Active = false

	_, err := f.service.Create(context.Background(), listingInput(f, 1))
	domainErr := pkgerrors.As(err)
	if domainErr == nil || domainErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateRejectsInsufficientStock(t *testing.T) {
	f := newCreateFixture(t)

	_, err := f.service.Create(context.Background(), listingInput(f, 11))
	domainErr := pkgerrors.As(err)
	if domainErr == nil || domainErr.Code() != pkgerrors.CodeStock {
		t.Fatalf("expected stock error, got %v", err)
	}
	if len(f.gateway.created) != 0 {
		t.Fatalf("gateway must not be called for invalid orders")
	}
}

func TestCreateEnforcesSellerOpenLimit(t *testing.T) {
	f := newCreateFixture(t)
	f.repo.openCount = 3

	_, err := f.service.Create(context.Background(), listingInput(f, 1))
	domainErr := pkgerrors.As(err)
	if domainErr == nil || domainErr.Code() != pkgerrors.CodeSellerLimit {
		t.Fatalf("expected seller limit error, got %v", err)
	}
	if len(f.gateway.created) != 0 {
		t.Fatalf("gateway must not be called when seller is at the limit")
	}
	if len(f.repo.orders) != 0 {
		t.Fatalf("no order row may be created when seller is at the limit")
	}
}

func TestCreateRequestOrderConvertsRupees(t *testing.T) {
	f := newCreateFixture(t)

	input := CreateOrderInput{
		BuyerID:           uuid.New(),
		OrderType:         enums.OrderTypeFromRequest,
		DeliveryType:      enums.DeliveryTypePickup,
		PaymentMethod:     enums.PaymentMethodRazorpay,
		SellerID:          &f.sellerID,
		ItemName:          "Fresh Paneer",
		Unit:              enums.UnitKg,
		Quantity:          2,
		AgreedPriceRupees: decimal.RequireFromString("150.50"),
		DeliveryFeeRupees: decimal.RequireFromString("20"),
	}

	result, err := f.service.Create(context.Background(), input)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	order := result.Order
	if order.BasePricePaise != 30100 {
		t.Fatalf("expected base 30100 paise, got %d", order.BasePricePaise)
	}
	if order.DeliveryFeePaise != 2000 {
		t.Fatalf("expected fee 2000 paise, got %d", order.DeliveryFeePaise)
	}
	if order.TotalPricePaise != 32100 {
		t.Fatalf("expected total 32100 paise, got %d", order.TotalPricePaise)
	}
}

func TestCreateRequestOrderRejectsSubPaisePrecision(t *testing.T) {
	f := newCreateFixture(t)

	input := CreateOrderInput{
		BuyerID:           uuid.New(),
		OrderType:         enums.OrderTypeFromRequest,
		DeliveryType:      enums.DeliveryTypePickup,
		PaymentMethod:     enums.PaymentMethodCOD,
		SellerID:          &f.sellerID,
		ItemName:          "Fresh Paneer",
		Unit:              enums.UnitKg,
		Quantity:          1,
		AgreedPriceRupees: decimal.RequireFromString("10.005"),
	}

	_, err := f.service.Create(context.Background(), input)
	domainErr := pkgerrors.As(err)
	if domainErr == nil || domainErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for sub-paise amount, got %v", err)
	}
}

func TestCreateCartOrderAggregatesLines(t *testing.T) {
	f := newCreateFixture(t)

	second := &models.Listing{
		ID:                uuid.New(),
		SellerID:          f.sellerID,
		ItemName:          "Bananas",
		Unit:              enums.UnitDozens,
		PricePaise:        4000,
		DeliveryFeePaise:  3000,
		QuantityAvailable: 5,
		Active:            true,
	}
	stub := &stubListingsRepo{listings: map[uuid.UUID]*models.Listing{
		f.listing.ID: f.listing,
		second.ID:    second,
	}}
	svc, err := NewService(
		f.repo, stubTxRunner{}, stub,
		&stubUsersRepo{users: map[uuid.UUID]*models.User{f.sellerID: {ID: f.sellerID}}},
		f.gateway, f.notify,
		config.OrdersConfig{SellerOpenLimit: 3, DefaultCurrency: "INR", ExchangeCodeLength: 8},
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	addr := "14 FC Road, Pune"
	result, err := svc.Create(context.Background(), CreateOrderInput{
		BuyerID:       uuid.New(),
		OrderType:     enums.OrderTypeFromCart,
		DeliveryType:  enums.DeliveryTypeDelivery,
		PaymentMethod: enums.PaymentMethodRazorpay,
		CartLines: []CartLine{
			{ListingID: f.listing.ID, Quantity: 1},
			{ListingID: second.ID, Quantity: 2},
		},
		DeliveryAddress: &addr,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	order := result.Order
	if order.BasePricePaise != 68000 {
		t.Fatalf("expected base 68000, got %d", order.BasePricePaise)
	}
	if order.DeliveryFeePaise != 3000 {
		t.Fatalf("cart order must carry the highest line delivery fee, got %d", order.DeliveryFeePaise)
	}
	if len(f.repo.items) != 2 {
		t.Fatalf("expected 2 item rows, got %d", len(f.repo.items))
	}
	for _, item := range f.repo.items {
		if item.OrderID != order.ID {
			t.Fatalf("item rows must reference the order")
		}
	}
}

func TestCreateCartOrderRejectsMixedSellers(t *testing.T) {
	f := newCreateFixture(t)

	other := &models.Listing{
		ID:                uuid.New(),
		SellerID:          uuid.New(),
		ItemName:          "Onions",
		Unit:              enums.UnitKg,
		PricePaise:        2000,
		QuantityAvailable: 50,
		Active:            true,
	}
	stub := &stubListingsRepo{listings: map[uuid.UUID]*models.Listing{
		f.listing.ID: f.listing,
		other.ID:     other,
	}}
	svc, err := NewService(
		f.repo, stubTxRunner{}, stub,
		&stubUsersRepo{users: map[uuid.UUID]*models.User{f.sellerID: {ID: f.sellerID}}},
		f.gateway, f.notify,
		config.OrdersConfig{SellerOpenLimit: 3, DefaultCurrency: "INR", ExchangeCodeLength: 8},
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	addr := "14 FC Road, Pune"
	_, err = svc.Create(context.Background(), CreateOrderInput{
		BuyerID:       uuid.New(),
		OrderType:     enums.OrderTypeFromCart,
		DeliveryType:  enums.DeliveryTypeDelivery,
		PaymentMethod: enums.PaymentMethodRazorpay,
		CartLines: []CartLine{
			{ListingID: f.listing.ID, Quantity: 1},
			{ListingID: other.ID, Quantity: 1},
		},
		DeliveryAddress: &addr,
	})
	domainErr := pkgerrors.As(err)
	if domainErr == nil || domainErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for mixed sellers, got %v", err)
	}
}

func TestAdmissionReportsHeadroom(t *testing.T) {
	f := newCreateFixture(t)
	f.repo.openCount = 2

	status, err := f.service.Admission(context.Background(), f.sellerID)
	if err != nil {
		t.Fatalf("admission: %v", err)
	}
	if status.CurrentOpen != 2 || status.Limit != 3 || !status.CanAccept {
		t.Fatalf("unexpected admission status %+v", status)
	}

	f.repo.openCount = 3
	status, err = f.service.Admission(context.Background(), f.sellerID)
	if err != nil {
		t.Fatalf("admission: %v", err)
	}
	if status.CanAccept {
		t.Fatalf("seller at limit must not be admitted")
	}
}

func TestGetEnforcesOwnership(t *testing.T) {
	f := newCreateFixture(t)

	result, err := f.service.Create(context.Background(), listingInput(f, 1))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := f.service.Get(context.Background(), result.Order.ID, result.Order.BuyerID); err != nil {
		t.Fatalf("buyer must see own order: %v", err)
	}
	if _, err := f.service.Get(context.Background(), result.Order.ID, f.sellerID); err != nil {
		t.Fatalf("seller must see own order: %v", err)
	}

	_, err = f.service.Get(context.Background(), result.Order.ID, uuid.New())
	domainErr := pkgerrors.As(err)
	if domainErr == nil || domainErr.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for strangers, got %v", err)
	}
}
