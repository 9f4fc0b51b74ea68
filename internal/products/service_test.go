package products

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	pkgerrors "github.com/jmcampos/minimart-backend/pkg/errors"
	"github.com/jmcampos/minimart-backend/pkg/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:products_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT,
  category TEXT,
  tags TEXT NOT NULL DEFAULT '{}',
  price NUMERIC NOT NULL,
  quantity INTEGER NOT NULL DEFAULT 0,
  image_url TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func newTestService(t *testing.T) (Service, *Repository) {
	t.Helper()
	repo := NewRepository(newTestDB(t))
	svc, err := NewService(repo, logger.New(logger.Options{ServiceName: "test"}))
	require.NoError(t, err)
	return svc, repo
}

func seedProduct(t *testing.T, svc Service, name, category, price string, qty int) *ProductDTO {
	t.Helper()
	cat := category
	dto, err := svc.CreateProduct(context.Background(), CreateProductInput{
		Name:     name,
		Category: &cat,
		Tags:     []string{category},
		Price:    decimal.RequireFromString(price),
		Quantity: qty,
		IsActive: true,
	})
	require.NoError(t, err)
	return dto
}

func TestCreateAndGetProduct(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created := seedProduct(t, svc, "Widget", "hardware", "2.50", 5)
	require.NotEqual(t, uuid.Nil, created.ID)

	loaded, err := svc.GetProduct(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "Widget", loaded.Name)
	require.True(t, loaded.Price.Equal(decimal.RequireFromString("2.50")))
	require.Equal(t, 5, loaded.Quantity)
}

func TestCreateProductValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, CreateProductInput{Name: "  ", Price: decimal.New(1, 0)})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())

	_, err = svc.CreateProduct(ctx, CreateProductInput{Name: "x", Price: decimal.RequireFromString("-1")})
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())

	_, err = svc.CreateProduct(ctx, CreateProductInput{Name: "x", Price: decimal.New(1, 0), Quantity: -2})
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestGetProductNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.GetProduct(context.Background(), uuid.New())
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestUpdateProductPartial(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	created := seedProduct(t, svc, "Widget", "hardware", "2.50", 5)

	newName := "Super Widget"
	newQty := 9
	updated, err := svc.UpdateProduct(ctx, created.ID, UpdateProductInput{Name: &newName, Quantity: &newQty})
	require.NoError(t, err)
	require.Equal(t, "Super Widget", updated.Name)
	require.Equal(t, 9, updated.Quantity)
	require.True(t, updated.Price.Equal(created.Price), "untouched fields keep their values")
}

func TestDeleteProduct(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	created := seedProduct(t, svc, "Widget", "hardware", "2.50", 5)

	require.NoError(t, svc.DeleteProduct(ctx, created.ID))

	_, err := svc.GetProduct(ctx, created.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestListProductsSearchFilterSort(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	seedProduct(t, svc, "Apple Juice", "drinks", "3.00", 10)
	seedProduct(t, svc, "Orange Juice", "drinks", "4.50", 8)
	seedProduct(t, svc, "Bread", "bakery", "1.25", 20)

	all, err := svc.ListProducts(ctx, ListProductsInput{})
	require.NoError(t, err)
	require.Len(t, all, 3)

	juices, err := svc.ListProducts(ctx, ListProductsInput{Search: "juice"})
	require.NoError(t, err)
	require.Len(t, juices, 2)

	drinks, err := svc.ListProducts(ctx, ListProductsInput{Category: "drinks"})
	require.NoError(t, err)
	require.Len(t, drinks, 2)

	byPrice, err := svc.ListProducts(ctx, ListProductsInput{Sort: SortPriceAsc})
	require.NoError(t, err)
	require.Equal(t, "Bread", byPrice[0].Name)
	require.Equal(t, "Orange Juice", byPrice[2].Name)

	byNameDesc, err := svc.ListProducts(ctx, ListProductsInput{Sort: SortNameDesc})
	require.NoError(t, err)
	require.Equal(t, "Orange Juice", byNameDesc[0].Name)
}

func TestListProductsSkipsInactive(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	active := seedProduct(t, svc, "Widget", "hardware", "2.50", 5)
	inactive := false
	_, err := svc.UpdateProduct(ctx, active.ID, UpdateProductInput{IsActive: &inactive})
	require.NoError(t, err)

	visible, err := svc.ListProducts(ctx, ListProductsInput{})
	require.NoError(t, err)
	require.Empty(t, visible)

	adminView, err := svc.ListProducts(ctx, ListProductsInput{IncludeInactive: true})
	require.NoError(t, err)
	require.Len(t, adminView, 1)
}

func TestDecrementStockGuard(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	created := seedProduct(t, svc, "Widget", "hardware", "2.50", 5)

	rows, err := repo.DecrementStock(ctx, created.ID, 3)
	require.NoError(t, err)
	require.EqualValues(t, 1, rows)

	loaded, err := svc.GetProduct(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, 2, loaded.Quantity)

	// Asking for more than remains leaves the row untouched.
	rows, err = repo.DecrementStock(ctx, created.ID, 6)
	require.NoError(t, err)
	require.EqualValues(t, 0, rows)

	loaded, err = svc.GetProduct(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, 2, loaded.Quantity)
}
