package orders

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/jmcampos/minimart-backend/pkg/db/models"
	"github.com/jmcampos/minimart-backend/pkg/enums"
	pkgerrors "github.com/jmcampos/minimart-backend/pkg/errors"
	"github.com/jmcampos/minimart-backend/pkg/pagination"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	for _, schema := range []string{
		`CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL,
  email TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  address TEXT,
  contact TEXT,
  role TEXT NOT NULL DEFAULT 'user',
  twofa_enabled INTEGER NOT NULL DEFAULT 0,
  twofa_secret TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL,
  reference_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  payment_mode TEXT NOT NULL DEFAULT 'cash',
  status TEXT NOT NULL,
  total NUMERIC NOT NULL,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  product_name TEXT NOT NULL,
  unit_price NUMERIC NOT NULL,
  quantity INTEGER NOT NULL,
  subtotal NUMERIC NOT NULL,
  created_at DATETIME
);`,
	} {
		require.NoError(t, db.Exec(schema).Error)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	user := models.User{
		ID:           id,
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		Role:         enums.RoleUser,
		IsActive:     true,
	}
	require.NoError(t, db.Create(&user).Error)
	return id
}

func seedOrder(t *testing.T, repo *Repository, userID uuid.UUID, number string, at time.Time) uuid.UUID {
	t.Helper()
	order := &models.Order{
		OrderNumber: number,
		ReferenceID: "REF-" + number,
		UserID:      userID,
		PaymentMode: enums.PaymentModeCash,
		Status:      enums.OrderStatusCompleted,
		Total:       decimal.RequireFromString("7.50"),
		CreatedAt:   at,
	}
	require.NoError(t, repo.CreateOrder(context.Background(), order))
	require.NoError(t, repo.CreateItem(context.Background(), &models.OrderItem{
		OrderID:     order.ID,
		ProductID:   uuid.New(),
		ProductName: "Widget",
		UnitPrice:   decimal.RequireFromString("2.50"),
		Quantity:    3,
		Subtotal:    decimal.RequireFromString("7.50"),
	}))
	return order.ID
}

func TestUserOrdersNewestFirst(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	svc, err := NewService(repo)
	require.NoError(t, err)

	userID := seedUser(t, db, "alice")
	now := time.Now().UTC()
	seedOrder(t, repo, userID, "ORD-1", now.Add(-time.Hour))
	seedOrder(t, repo, userID, "ORD-2", now)

	list, err := svc.UserOrders(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "ORD-2", list[0].OrderNumber)
	require.Equal(t, "ORD-1", list[1].OrderNumber)
}

func TestUserOrderDetailOwnership(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	svc, err := NewService(repo)
	require.NoError(t, err)

	alice := seedUser(t, db, "alice")
	mallory := seedUser(t, db, "mallory")
	orderID := seedOrder(t, repo, alice, "ORD-1", time.Now().UTC())

	detail, err := svc.UserOrderDetail(context.Background(), alice, orderID)
	require.NoError(t, err)
	require.Len(t, detail.Items, 1)
	require.Equal(t, "Widget", detail.Items[0].ProductName)
	require.True(t, detail.Items[0].Subtotal.Equal(decimal.RequireFromString("7.50")))

	// Someone else's order looks like it does not exist.
	_, err = svc.UserOrderDetail(context.Background(), mallory, orderID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestAdminOrdersIncludeUsername(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	svc, err := NewService(repo)
	require.NoError(t, err)

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	seedOrder(t, repo, alice, "ORD-1", time.Now().UTC().Add(-time.Minute))
	seedOrder(t, repo, bob, "ORD-2", time.Now().UTC())

	page, err := svc.AdminOrders(context.Background(), pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Orders, 2)
	require.Empty(t, page.NextCursor)
	require.Equal(t, "bob", page.Orders[0].Username)
	require.Equal(t, "alice", page.Orders[1].Username)
}

func TestAdminOrdersCursorPagination(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	svc, err := NewService(repo)
	require.NoError(t, err)

	alice := seedUser(t, db, "alice")
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		seedOrder(t, repo, alice, fmt.Sprintf("ORD-%d", i+1), base.Add(time.Duration(i)*time.Minute))
	}

	first, err := svc.AdminOrders(context.Background(), pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Orders, 2)
	require.NotEmpty(t, first.NextCursor)
	require.Equal(t, "ORD-3", first.Orders[0].OrderNumber)
	require.Equal(t, "ORD-2", first.Orders[1].OrderNumber)

	second, err := svc.AdminOrders(context.Background(), pagination.Params{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Orders, 1)
	require.Empty(t, second.NextCursor)
	require.Equal(t, "ORD-1", second.Orders[0].OrderNumber)
}

func TestExistsForUser(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	seedOrder(t, repo, alice, "ORD-1", time.Now().UTC())

	has, err := repo.ExistsForUser(context.Background(), alice)
	require.NoError(t, err)
	require.True(t, has)

	has, err = repo.ExistsForUser(context.Background(), bob)
	require.NoError(t, err)
	require.False(t, has)
}
