package users

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kachabazaar/kachabazaar-backend/pkg/db/models"
)

func setupUsersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	users := `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  email TEXT NOT NULL UNIQUE,
  phone TEXT,
  orders_fulfilled INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(users).Error)
	require.NoError(t, db.Exec(`DELETE FROM users`).Error)
	return db
}

func newUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()

	user := &models.User{
		ID:    uuid.New(),
		Name:  name,
		Email: fmt.Sprintf("%s-%s@example.com", name, uuid.NewString()[:8]),
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestFindByIDForUpdateLoadsRow(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seller := newUser(t, db, "seller")

	got, err := repo.FindByIDForUpdate(ctx, seller.ID)
	require.NoError(t, err)
	assert.Equal(t, seller.ID, got.ID)

	_, err = repo.FindByIDForUpdate(ctx, uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestIncrementOrdersFulfilled(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seller := newUser(t, db, "seller")

	require.NoError(t, repo.IncrementOrdersFulfilled(ctx, seller.ID))
	require.NoError(t, repo.IncrementOrdersFulfilled(ctx, seller.ID))

	got, err := repo.FindByID(ctx, seller.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.OrdersFulfilled)
}
