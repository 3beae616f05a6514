package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lumastore/storefront-backend/internal/catalog"
	"github.com/lumastore/storefront-backend/internal/contacts"
	"github.com/lumastore/storefront-backend/pkg/db/models"
	"github.com/lumastore/storefront-backend/pkg/enums"
	pkgerrors "github.com/lumastore/storefront-backend/pkg/errors"
	"github.com/lumastore/storefront-backend/pkg/logger"
)

// displayTotalWarnThreshold flags client totals that stray from the
// resolver's computation by more than 5%.
var displayTotalWarnThreshold = decimal.RequireFromString("0.05")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type priceResolver interface {
	UnitPrice(ctx context.Context, product *models.Product, currency enums.Currency) (decimal.Decimal, error)
}

// Service defines order operations.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error)
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, []models.OrderItem, error)
	SetFinancialStatus(ctx context.Context, orderID uuid.UUID, status enums.FinancialStatus, paymentMethod string, chargePayload json.RawMessage) error
	MarkAwaitingPayment(ctx context.Context, orderID uuid.UUID) error
}

// ServiceParams collects the order service dependencies.
type ServiceParams struct {
	Repo     Repository
	Catalog  catalog.Repository
	Contacts contacts.Service
	Pricing  priceResolver
	TX       txRunner
	Logger   *logger.Logger
}

type service struct {
	repo     Repository
	catalog  catalog.Repository
	contacts contacts.Service
	pricing  priceResolver
	tx       txRunner
	logg     *logger.Logger
}

// NewService validates dependencies and builds the order service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository is required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog repository is required")
	}
	if params.Contacts == nil {
		return nil, fmt.Errorf("contacts service is required")
	}
	if params.Pricing == nil {
		return nil, fmt.Errorf("price resolver is required")
	}
	if params.TX == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{
		repo:     params.Repo,
		catalog:  params.Catalog,
		contacts: params.Contacts,
		pricing:  params.Pricing,
		tx:       params.TX,
		logg:     params.Logger,
	}, nil
}

// CreateOrder turns the submitted wizard state into a persisted order. The
// contact resolution, catalog check, number allocation, and inserts all run
// in one transaction: a missing product rolls everything back and the
// allocated number is never burned on a failed checkout.
func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error) {
	if err := validateCreateInput(&input); err != nil {
		return nil, err
	}
	currency, err := enums.ParseCurrency(input.Currency)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}

	var result *CreateOrderResult
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		catalogRepo := s.catalog.WithTx(tx)

		contact, err := s.contacts.ResolveOrCreate(ctx, tx, contacts.ResolveInput{
			TenantID:  input.TenantID,
			Email:     input.Email,
			FirstName: input.FirstName,
			LastName:  input.LastName,
			Phone:     input.Phone,
			Source:    "checkout",
		})
		if err != nil {
			return err
		}

		ids := make([]uuid.UUID, 0, len(input.Items))
		for _, item := range input.Items {
			ids = append(ids, item.ProductID)
		}
		products, err := catalogRepo.FindActiveByIDs(ctx, input.TenantID, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading products")
		}
		if len(products) != len(input.Items) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "products not found")
		}
		byID := make(map[uuid.UUID]*models.Product, len(products))
		for i := range products {
			byID[products[i].ID] = &products[i]
		}

		total := decimal.Zero
		hasSubscriptions := false
		items := make([]models.OrderItem, 0, len(input.Items))
		for _, item := range input.Items {
			product := byID[item.ProductID]
			if product == nil {
				return pkgerrors.New(pkgerrors.CodeNotFound, "products not found")
			}
			unit, err := s.resolveUnitPrice(ctx, product, item, currency)
			if err != nil {
				return err
			}
			lineTotal := unit.Mul(decimal.NewFromInt(int64(item.Quantity)))
			total = total.Add(lineTotal)
			if product.BillingCycle.IsRecurring() {
				hasSubscriptions = true
			}
			items = append(items, models.OrderItem{
				ProductID:    product.ID,
				Name:         product.Name,
				Quantity:     item.Quantity,
				BillingCycle: product.BillingCycle,
				UnitPrice:    unit,
				TotalPrice:   lineTotal,
				Currency:     currency.String(),
			})
		}

		// The line sum is the subtotal; the buyer-visible display total may
		// override it. Nothing else (tax, shipping) is ever added, so the
		// stored order keeps subtotal equal to total.
		total = s.reconcileDisplayTotal(ctx, total, input.DisplayTotal)
		subtotal := total

		number, err := repo.AllocateOrderNumber(ctx, input.TenantID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "allocating order number")
		}

		metadata, err := json.Marshal(models.OrderMetadata{
			Origin:   strings.TrimSpace(input.Origin),
			Country:  strings.TrimSpace(input.Country),
			Company:  strings.TrimSpace(input.Company),
			Language: strings.TrimSpace(input.Language),
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding order metadata")
		}

		order := &models.Order{
			TenantID:          input.TenantID,
			Number:            number,
			ContactID:         contact.ID,
			Currency:          currency.String(),
			Subtotal:          subtotal,
			Total:             total,
			FinancialStatus:   enums.FinancialStatusPending,
			FulfillmentStatus: enums.FulfillmentStatusFulfilled,
			HasSubscriptions:  hasSubscriptions,
			Metadata:          metadata,
		}
		if _, err := repo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating order")
		}

		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := repo.CreateOrderItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating order items")
		}

		result = &CreateOrderResult{
			OrderID:          order.ID,
			Number:           number,
			Subtotal:         subtotal,
			Total:            total,
			Currency:         currency,
			FinancialStatus:  order.FinancialStatus,
			HasSubscriptions: hasSubscriptions,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"order_id":     result.OrderID.String(),
		"order_number": result.Number,
		"tenant_id":    input.TenantID,
	})
	s.logg.Info(ctx, "order created")
	return result, nil
}

// Get loads an order with its items.
func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, []models.OrderItem, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	items, err := s.repo.FindItemsByOrder(ctx, orderID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order items")
	}
	return order, items, nil
}

// SetFinancialStatus moves the order's payment state, records which method
// settled it, and attaches the charge payload to the metadata bag. Paid
// orders never move back to pending.
func (s *service) SetFinancialStatus(ctx context.Context, orderID uuid.UUID, status enums.FinancialStatus, paymentMethod string, chargePayload json.RawMessage) error {
	if !status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid financial status %q", status))
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	if order.FinancialStatus == status {
		return nil
	}
	if order.FinancialStatus == enums.FinancialStatusPaid && status == enums.FinancialStatusPending {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "paid order cannot move back to pending")
	}

	if err := s.repo.UpdateFinancialStatus(ctx, orderID, status, strings.TrimSpace(paymentMethod)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating financial status")
	}

	if len(chargePayload) > 0 {
		merged, err := mergeMetadata(order.Metadata, map[string]json.RawMessage{"charge": chargePayload})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "merging charge metadata")
		}
		if err := s.repo.UpdateMetadata(ctx, orderID, merged); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "storing charge metadata")
		}
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"order_id": orderID.String(),
		"status":   status.String(),
	})
	s.logg.Info(ctx, "order financial status updated")
	return nil
}

// MarkAwaitingPayment flags the order for the payment-link follow-up path.
func (s *service) MarkAwaitingPayment(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}

	merged, err := mergeMetadata(order.Metadata, map[string]json.RawMessage{"awaiting_payment": json.RawMessage("true")})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "merging metadata")
	}
	if err := s.repo.UpdateMetadata(ctx, orderID, merged); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "storing metadata")
	}
	return nil
}

func (s *service) resolveUnitPrice(ctx context.Context, product *models.Product, item OrderItemInput, currency enums.Currency) (decimal.Decimal, error) {
	if item.DisplayUnitPrice != nil {
		if item.DisplayUnitPrice.Sign() <= 0 {
			return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "display price must be positive")
		}
		return *item.DisplayUnitPrice, nil
	}
	unit, err := s.pricing.UnitPrice(ctx, product, currency)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolving unit price")
	}
	return unit, nil
}

// reconcileDisplayTotal prefers the total the buyer saw, logging when it
// drifts noticeably from the computed one.
func (s *service) reconcileDisplayTotal(ctx context.Context, computed decimal.Decimal, display *decimal.Decimal) decimal.Decimal {
	if display == nil || display.Sign() <= 0 {
		return computed
	}
	if computed.Sign() > 0 {
		drift := display.Sub(computed).Abs().Div(computed)
		if drift.GreaterThan(displayTotalWarnThreshold) {
			ctx = s.logg.WithFields(ctx, map[string]any{
				"computed_total": computed.String(),
				"display_total":  display.String(),
			})
			s.logg.Warn(ctx, "display total deviates from computed total")
		}
	}
	return *display
}

func validateCreateInput(input *CreateOrderInput) error {
	if strings.TrimSpace(input.TenantID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "tenant id is required")
	}
	if strings.TrimSpace(input.Email) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if strings.TrimSpace(input.FirstName) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "first name is required")
	}
	if strings.TrimSpace(input.LastName) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "last name is required")
	}
	if strings.TrimSpace(input.Phone) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "phone is required")
	}
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one item")
	}
	seen := make(map[uuid.UUID]struct{}, len(input.Items))
	for _, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "item product id is required")
		}
		if item.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive")
		}
		if _, dup := seen[item.ProductID]; dup {
			return pkgerrors.New(pkgerrors.CodeValidation, "duplicate product in order")
		}
		seen[item.ProductID] = struct{}{}
	}
	return nil
}

func mergeMetadata(existing json.RawMessage, updates map[string]json.RawMessage) (json.RawMessage, error) {
	merged := map[string]json.RawMessage{}
	if len(existing) > 0 {
		if err := json.Unmarshal(existing, &merged); err != nil {
			return nil, err
		}
	}
	for key, value := range updates {
		merged[key] = value
	}
	return json.Marshal(merged)
}
