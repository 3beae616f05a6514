package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lumastore/storefront-backend/pkg/db/models"
	"github.com/lumastore/storefront-backend/pkg/enums"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{`
CREATE TABLE orders (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  number INTEGER NOT NULL,
  contact_id TEXT NOT NULL,
  currency TEXT NOT NULL,
  subtotal NUMERIC NOT NULL DEFAULT 0,
  total NUMERIC NOT NULL,
  financial_status TEXT NOT NULL DEFAULT 'pending',
  fulfillment_status TEXT NOT NULL DEFAULT 'fulfilled',
  payment_method TEXT,
  has_subscriptions INTEGER NOT NULL DEFAULT 0,
  metadata TEXT,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (tenant_id, number)
)`, `
CREATE TABLE order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  name TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  billing_cycle TEXT NOT NULL DEFAULT 'one_time',
  unit_price NUMERIC NOT NULL,
  total_price NUMERIC NOT NULL,
  currency TEXT NOT NULL,
  created_at DATETIME
)`, `
CREATE TABLE order_counters (
  tenant_id TEXT PRIMARY KEY,
  next_number INTEGER NOT NULL
)`}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func TestAllocateOrderNumberStartsAtThousandPerTenant(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	first, err := repo.AllocateOrderNumber(ctx, "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), first)

	second, err := repo.AllocateOrderNumber(ctx, "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, int64(1001), second)

	other, err := repo.AllocateOrderNumber(ctx, "tenant-b")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), other)
}

func TestCreateAndFindOrderWithItems(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := &models.Order{
		ID:               uuid.New(),
		TenantID:         "tenant-a",
		Number:           1000,
		ContactID:        uuid.New(),
		Currency:         "USD",
		Subtotal:         decimal.NewFromInt(199),
		Total:            decimal.NewFromInt(199),
		FinancialStatus:  enums.FinancialStatusPending,
		HasSubscriptions: true,
	}
	created, err := repo.CreateOrder(ctx, order)
	require.NoError(t, err)

	items := []models.OrderItem{
		{
			ID:           uuid.New(),
			OrderID:      created.ID,
			ProductID:    uuid.New(),
			Name:         "Monthly Plan",
			Quantity:     1,
			BillingCycle: enums.BillingCycleRecurring,
			UnitPrice:    decimal.NewFromInt(199),
			TotalPrice:   decimal.NewFromInt(199),
			Currency:     "USD",
		},
	}
	require.NoError(t, repo.CreateOrderItems(ctx, items))

	found, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), found.Number)
	assert.True(t, found.Subtotal.Equal(found.Total))
	assert.True(t, found.HasSubscriptions)
	assert.Equal(t, enums.FinancialStatusPending, found.FinancialStatus)

	foundItems, err := repo.FindItemsByOrder(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, foundItems, 1)
	assert.Equal(t, "Monthly Plan", foundItems[0].Name)
	assert.Equal(t, enums.BillingCycleRecurring, foundItems[0].BillingCycle)
}

func TestUpdateFinancialStatusAndMetadata(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := &models.Order{
		ID:        uuid.New(),
		TenantID:  "tenant-a",
		Number:    1000,
		ContactID: uuid.New(),
		Currency:  "USD",
		Subtotal:  decimal.NewFromInt(50),
		Total:     decimal.NewFromInt(50),
	}
	_, err := repo.CreateOrder(ctx, order)
	require.NoError(t, err)

	require.NoError(t, repo.UpdateFinancialStatus(ctx, order.ID, enums.FinancialStatusPaid, "gateway"))
	require.NoError(t, repo.UpdateMetadata(ctx, order.ID, []byte(`{"origin":"web"}`)))

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.FinancialStatusPaid, found.FinancialStatus)
	assert.Equal(t, "gateway", found.PaymentMethod)
	assert.JSONEq(t, `{"origin":"web"}`, string(found.Metadata))
}

func TestFindByIDMissingOrder(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
