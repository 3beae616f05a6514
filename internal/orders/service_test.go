package orders

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lumastore/storefront-backend/internal/catalog"
	"github.com/lumastore/storefront-backend/internal/contacts"
	"github.com/lumastore/storefront-backend/pkg/db/models"
	"github.com/lumastore/storefront-backend/pkg/enums"
	pkgerrors "github.com/lumastore/storefront-backend/pkg/errors"
	"github.com/lumastore/storefront-backend/pkg/logger"
	"github.com/rs/zerolog"
)

type stubRepo struct {
	nextNumber   int64
	orders       map[uuid.UUID]*models.Order
	items        map[uuid.UUID][]models.OrderItem
	statusCalls  []enums.FinancialStatus
	methodCalls  []string
	failAllocate bool
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		nextNumber: 1000,
		orders:     make(map[uuid.UUID]*models.Order),
		items:      make(map[uuid.UUID][]models.OrderItem),
	}
}

func (r *stubRepo) WithTx(tx *gorm.DB) Repository { return r }

func (r *stubRepo) AllocateOrderNumber(ctx context.Context, tenantID string) (int64, error) {
	if r.failAllocate {
		return 0, gorm.ErrInvalidTransaction
	}
	n := r.nextNumber
	r.nextNumber++
	return n, nil
}

func (r *stubRepo) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	order.ID = uuid.New()
	r.orders[order.ID] = order
	return order, nil
}

func (r *stubRepo) CreateOrderItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	r.items[items[0].OrderID] = items
	return nil
}

func (r *stubRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := r.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return order, nil
}

func (r *stubRepo) FindItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	return r.items[orderID], nil
}

func (r *stubRepo) UpdateFinancialStatus(ctx context.Context, id uuid.UUID, status enums.FinancialStatus, paymentMethod string) error {
	r.statusCalls = append(r.statusCalls, status)
	r.methodCalls = append(r.methodCalls, paymentMethod)
	if order, ok := r.orders[id]; ok {
		order.FinancialStatus = status
		if paymentMethod != "" {
			order.PaymentMethod = paymentMethod
		}
	}
	return nil
}

func (r *stubRepo) UpdateMetadata(ctx context.Context, id uuid.UUID, metadata json.RawMessage) error {
	if order, ok := r.orders[id]; ok {
		order.Metadata = metadata
	}
	return nil
}

type stubCatalog struct {
	products []models.Product
}

func (c *stubCatalog) WithTx(tx *gorm.DB) catalog.Repository { return c }

func (c *stubCatalog) FindActiveByIDs(ctx context.Context, tenantID string, ids []uuid.UUID) ([]models.Product, error) {
	found := []models.Product{}
	for _, id := range ids {
		for _, p := range c.products {
			if p.ID == id && p.Active {
				found = append(found, p)
			}
		}
	}
	return found, nil
}

func (c *stubCatalog) FindByID(ctx context.Context, tenantID string, id uuid.UUID) (*models.Product, error) {
	for i := range c.products {
		if c.products[i].ID == id {
			return &c.products[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

type stubContacts struct {
	resolved int
}

func (s *stubContacts) ResolveOrCreate(ctx context.Context, tx *gorm.DB, input contacts.ResolveInput) (*models.Contact, error) {
	s.resolved++
	return &models.Contact{ID: uuid.New(), TenantID: input.TenantID, Email: input.Email}, nil
}

type stubPricing struct{}

func (stubPricing) UnitPrice(ctx context.Context, product *models.Product, currency enums.Currency) (decimal.Decimal, error) {
	return product.BasePrice, nil
}

type stubTx struct{}

func (stubTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func newTestService(t *testing.T, repo *stubRepo, cat *stubCatalog) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:     repo,
		Catalog:  cat,
		Contacts: &stubContacts{},
		Pricing:  stubPricing{},
		TX:       stubTx{},
		Logger:   logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled}),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func activeProduct(base int64, cycle enums.BillingCycle) models.Product {
	return models.Product{
		ID:           uuid.New(),
		TenantID:     "default",
		Name:         "Plan",
		Active:       true,
		BillingCycle: cycle,
		BasePrice:    decimal.NewFromInt(base),
	}
}

func validInput(items ...OrderItemInput) CreateOrderInput {
	return CreateOrderInput{
		TenantID:  "default",
		Email:     "Buyer@Example.com",
		FirstName: "Dana",
		LastName:  "Levi",
		Phone:     "0501234567",
		Currency:  "ILS",
		Items:     items,
	}
}

func TestCreateOrderNumbersStartAtThousandAndIncrease(t *testing.T) {
	repo := newStubRepo()
	product := activeProduct(370, enums.BillingCycleOneTime)
	svc := newTestService(t, repo, &stubCatalog{products: []models.Product{product}})

	first, err := svc.CreateOrder(context.Background(), validInput(OrderItemInput{ProductID: product.ID, Quantity: 1}))
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	second, err := svc.CreateOrder(context.Background(), validInput(OrderItemInput{ProductID: product.ID, Quantity: 1}))
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	if first.Number != 1000 {
		t.Fatalf("first order number = %d, want 1000", first.Number)
	}
	if second.Number <= first.Number {
		t.Fatalf("order numbers must increase: %d then %d", first.Number, second.Number)
	}
}

func TestCreateOrderMissingProductPersistsNothing(t *testing.T) {
	repo := newStubRepo()
	product := activeProduct(370, enums.BillingCycleOneTime)
	svc := newTestService(t, repo, &stubCatalog{products: []models.Product{product}})

	_, err := svc.CreateOrder(context.Background(), validInput(
		OrderItemInput{ProductID: product.ID, Quantity: 1},
		OrderItemInput{ProductID: uuid.New(), Quantity: 1},
	))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
	if typed.Message() != "products not found" {
		t.Fatalf("unexpected message %q", typed.Message())
	}
	if len(repo.orders) != 0 {
		t.Fatal("no order may be persisted when a product is missing")
	}
}

func TestCreateOrderComputesTotalsAndSubscriptionFlag(t *testing.T) {
	repo := newStubRepo()
	oneTime := activeProduct(100, enums.BillingCycleOneTime)
	recurring := activeProduct(50, enums.BillingCycleRecurring)
	svc := newTestService(t, repo, &stubCatalog{products: []models.Product{oneTime, recurring}})

	result, err := svc.CreateOrder(context.Background(), validInput(
		OrderItemInput{ProductID: oneTime.ID, Quantity: 2},
		OrderItemInput{ProductID: recurring.ID, Quantity: 1},
	))
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if !result.Total.Equal(decimal.NewFromInt(250)) {
		t.Fatalf("total = %s, want 250", result.Total)
	}
	if !result.Subtotal.Equal(result.Total) {
		t.Fatalf("subtotal = %s, must equal total %s", result.Subtotal, result.Total)
	}
	if !result.HasSubscriptions {
		t.Fatal("expected subscription flag")
	}
	if len(repo.items[result.OrderID]) != 2 {
		t.Fatalf("expected 2 items persisted, got %d", len(repo.items[result.OrderID]))
	}
	stored := repo.orders[result.OrderID]
	if !stored.Subtotal.Equal(stored.Total) {
		t.Fatalf("stored subtotal = %s, must equal total %s", stored.Subtotal, stored.Total)
	}
}

func TestCreateOrderDisplayPricesWin(t *testing.T) {
	repo := newStubRepo()
	product := activeProduct(370, enums.BillingCycleOneTime)
	svc := newTestService(t, repo, &stubCatalog{products: []models.Product{product}})

	display := decimal.NewFromInt(99)
	displayTotal := decimal.NewFromInt(99)
	result, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		TenantID:     "default",
		Email:        "buyer@example.com",
		FirstName:    "Dana",
		LastName:     "Levi",
		Phone:        "0501234567",
		Currency:     "USD",
		Items:        []OrderItemInput{{ProductID: product.ID, Quantity: 1, DisplayUnitPrice: &display}},
		DisplayTotal: &displayTotal,
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if !result.Total.Equal(display) {
		t.Fatalf("total = %s, want display total 99", result.Total)
	}
	if !result.Subtotal.Equal(result.Total) {
		t.Fatalf("subtotal = %s, must follow the display total %s", result.Subtotal, result.Total)
	}
	items := repo.items[result.OrderID]
	if !items[0].UnitPrice.Equal(display) {
		t.Fatalf("unit price = %s, want display price", items[0].UnitPrice)
	}
}

func TestCreateOrderRejectsDuplicateProducts(t *testing.T) {
	repo := newStubRepo()
	product := activeProduct(370, enums.BillingCycleOneTime)
	svc := newTestService(t, repo, &stubCatalog{products: []models.Product{product}})

	_, err := svc.CreateOrder(context.Background(), validInput(
		OrderItemInput{ProductID: product.ID, Quantity: 1},
		OrderItemInput{ProductID: product.ID, Quantity: 2},
	))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestSetFinancialStatusGuardsDowngrade(t *testing.T) {
	repo := newStubRepo()
	product := activeProduct(370, enums.BillingCycleOneTime)
	svc := newTestService(t, repo, &stubCatalog{products: []models.Product{product}})

	result, err := svc.CreateOrder(context.Background(), validInput(OrderItemInput{ProductID: product.ID, Quantity: 1}))
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	payload := json.RawMessage(`{"payment_id":"txn-1"}`)
	if err := svc.SetFinancialStatus(context.Background(), result.OrderID, enums.FinancialStatusPaid, "gateway", payload); err != nil {
		t.Fatalf("SetFinancialStatus: %v", err)
	}

	order := repo.orders[result.OrderID]
	if order.FinancialStatus != enums.FinancialStatusPaid {
		t.Fatalf("status = %s, want paid", order.FinancialStatus)
	}
	if order.PaymentMethod != "gateway" {
		t.Fatalf("payment method = %q, want gateway", order.PaymentMethod)
	}
	var meta map[string]json.RawMessage
	if err := json.Unmarshal(order.Metadata, &meta); err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if _, ok := meta["charge"]; !ok {
		t.Fatal("charge payload missing from metadata")
	}

	err = svc.SetFinancialStatus(context.Background(), result.OrderID, enums.FinancialStatusPending, "", nil)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected STATE_CONFLICT on downgrade, got %v", err)
	}

	// Same-status update is a no-op, not an error.
	if err := svc.SetFinancialStatus(context.Background(), result.OrderID, enums.FinancialStatusPaid, "", nil); err != nil {
		t.Fatalf("idempotent update: %v", err)
	}
}

func TestCreateOrderRequiresFullContact(t *testing.T) {
	repo := newStubRepo()
	product := activeProduct(370, enums.BillingCycleOneTime)
	svc := newTestService(t, repo, &stubCatalog{products: []models.Product{product}})

	input := validInput(OrderItemInput{ProductID: product.ID, Quantity: 1})
	input.LastName = ""
	input.Phone = " "

	_, err := svc.CreateOrder(context.Background(), input)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
	if len(repo.orders) != 0 {
		t.Fatal("incomplete contact must not persist an order")
	}
}

func TestMarkAwaitingPaymentMergesMetadata(t *testing.T) {
	repo := newStubRepo()
	product := activeProduct(370, enums.BillingCycleOneTime)
	svc := newTestService(t, repo, &stubCatalog{products: []models.Product{product}})

	input := validInput(OrderItemInput{ProductID: product.ID, Quantity: 1})
	input.Origin = "storefront"
	result, err := svc.CreateOrder(context.Background(), input)
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	if err := svc.MarkAwaitingPayment(context.Background(), result.OrderID); err != nil {
		t.Fatalf("MarkAwaitingPayment: %v", err)
	}

	var meta map[string]json.RawMessage
	if err := json.Unmarshal(repo.orders[result.OrderID].Metadata, &meta); err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if string(meta["awaiting_payment"]) != "true" {
		t.Fatal("awaiting_payment flag missing")
	}
	if _, ok := meta["origin"]; !ok {
		t.Fatal("original metadata must survive the merge")
	}
}
