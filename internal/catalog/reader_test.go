package catalog

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/hirelanka/marketplace-backend/pkg/db/models"
	"github.com/hirelanka/marketplace-backend/pkg/enums"
)

func setupCatalogTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:catalog_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.Exec(`
CREATE TABLE products (
  id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL,
  name TEXT NOT NULL,
  price TEXT NOT NULL,
  stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
  status TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`).Error)
	require.NoError(t, db.Exec(`
CREATE TABLE services (
  id TEXT PRIMARY KEY,
  provider_id TEXT NOT NULL,
  title TEXT NOT NULL,
  price TEXT NOT NULL,
  commission_rate TEXT,
  status TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`).Error)
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, stock int) models.Product {
	t.Helper()
	product := models.Product{
		ID:      uuid.New(),
		OwnerID: uuid.New(),
		Name:    "Ceylon tea 500g",
		Price:   decimal.NewFromInt(1000),
		Stock:   stock,
		Status:  enums.ListingStatusApproved,
	}
	require.NoError(t, db.Create(&product).Error)
	return product
}

func TestReader_DecrementStock(t *testing.T) {
	db := setupCatalogTestDB(t)
	reader := NewReader(db)
	product := seedProduct(t, db, 5)
	ctx := context.Background()

	require.NoError(t, reader.DecrementStock(ctx, product.ID, 2))
	got, err := reader.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Stock)

	err = reader.DecrementStock(ctx, product.ID, 4)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	got, err = reader.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Stock)

	require.NoError(t, reader.IncrementStock(ctx, product.ID, 2))
	got, err = reader.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Stock)
}

func TestReader_DecrementStockRejectsNonPositive(t *testing.T) {
	reader := NewReader(setupCatalogTestDB(t))
	assert.Error(t, reader.DecrementStock(context.Background(), uuid.New(), 0))
}

func TestReader_DecrementStockUnknownProduct(t *testing.T) {
	reader := NewReader(setupCatalogTestDB(t))
	assert.ErrorIs(t, reader.DecrementStock(context.Background(), uuid.New(), 1), ErrInsufficientStock)
}

func TestReader_ConcurrentDecrementsNeverOversell(t *testing.T) {
	db := setupCatalogTestDB(t)
	reader := NewReader(db)
	product := seedProduct(t, db, 3)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := reader.DecrementStock(context.Background(), product.ID, 1); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)
	got, err := reader.GetProduct(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Stock)
}

func TestReader_GetProductsAndService(t *testing.T) {
	db := setupCatalogTestDB(t)
	reader := NewReader(db)
	a := seedProduct(t, db, 1)
	b := seedProduct(t, db, 2)

	rows, err := reader.GetProducts(context.Background(), []uuid.UUID{a.ID, b.ID, uuid.New()})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, 2, rows[b.ID].Stock)

	rate := decimal.NewFromInt(12)
	service := models.Service{
		ID:             uuid.New(),
		ProviderID:     uuid.New(),
		Title:          "Logo design",
		Price:          decimal.NewFromInt(10000),
		CommissionRate: &rate,
		Status:         enums.ListingStatusApproved,
	}
	require.NoError(t, db.Create(&service).Error)

	got, err := reader.GetService(context.Background(), service.ID)
	require.NoError(t, err)
	assert.Equal(t, service.ProviderID, got.ProviderID)
	require.NotNil(t, got.CommissionRate)
	assert.True(t, got.CommissionRate.Equal(rate))

	_, err = reader.GetService(context.Background(), uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
