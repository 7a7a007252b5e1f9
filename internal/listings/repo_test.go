package listings

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kachabazaar/kachabazaar-backend/pkg/db/models"
	"github.com/kachabazaar/kachabazaar-backend/pkg/enums"
)

func setupListingsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	listings := `
CREATE TABLE IF NOT EXISTS listings (
  id TEXT PRIMARY KEY,
  seller_id TEXT NOT NULL,
  item_name TEXT NOT NULL,
  description TEXT,
  unit TEXT NOT NULL,
  price_paise INTEGER NOT NULL,
  delivery_fee_paise INTEGER NOT NULL DEFAULT 0,
  quantity_available INTEGER NOT NULL DEFAULT 0,
  sold_count INTEGER NOT NULL DEFAULT 0,
  active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(listings).Error)
	require.NoError(t, db.Exec(`DELETE FROM listings`).Error)
	return db
}

func newListing(t *testing.T, db *gorm.DB, qty int) *models.Listing {
	t.Helper()

	listing := &models.Listing{
		ID:                uuid.New(),
		SellerID:          uuid.New(),
		ItemName:          "Tomatoes",
		Unit:              enums.UnitKg,
		PricePaise:        4500,
		DeliveryFeePaise:  1000,
		QuantityAvailable: qty,
		Active:            true,
	}
	require.NoError(t, db.Create(listing).Error)
	return listing
}

func TestRecordSaleDecrementsStockOnce(t *testing.T) {
	db := setupListingsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	listing := newListing(t, db, 5)

	ok, err := repo.RecordSale(ctx, listing.ID, 3)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repo.FindByID(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.QuantityAvailable)
	assert.Equal(t, 3, got.SoldCount)
}

func TestRecordSaleRefusesOversell(t *testing.T) {
	db := setupListingsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	listing := newListing(t, db, 2)

	ok, err := repo.RecordSale(ctx, listing.ID, 3)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.FindByID(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.QuantityAvailable)
	assert.Equal(t, 0, got.SoldCount)
}

func TestRecordSaleIgnoresNonPositiveQty(t *testing.T) {
	db := setupListingsTestDB(t)
	repo := NewRepository(db)

	ok, err := repo.RecordSale(context.Background(), uuid.New(), 0)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRestoreStockReturnsQuantity(t *testing.T) {
	db := setupListingsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	listing := newListing(t, db, 5)
	ok, err := repo.RecordSale(ctx, listing.ID, 4)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, repo.RestoreStock(ctx, listing.ID, 4))

	got, err := repo.FindByID(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.QuantityAvailable)
	assert.Equal(t, 0, got.SoldCount)
}

func TestRestoreStockClampsSoldCountAtZero(t *testing.T) {
	db := setupListingsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	listing := newListing(t, db, 1)
	require.NoError(t, repo.RestoreStock(ctx, listing.ID, 2))

	got, err := repo.FindByID(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.QuantityAvailable)
	assert.Equal(t, 0, got.SoldCount)
}

func TestListBySellerReturnsOwnListings(t *testing.T) {
	db := setupListingsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	mine := newListing(t, db, 5)
	_ = newListing(t, db, 5)

	items, err := repo.ListBySeller(ctx, mine.SellerID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, mine.ID, items[0].ID)
}
