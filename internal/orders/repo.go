package orders

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lumastore/storefront-backend/pkg/db/models"
	"github.com/lumastore/storefront-backend/pkg/enums"
)

const firstOrderNumber = 1000

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// AllocateOrderNumber returns the tenant's next sequential order number. The
// counter row is locked FOR UPDATE, so concurrent checkouts serialize here
// and can never observe the same value. Must run inside the order-creation
// transaction.
func (r *repository) AllocateOrderNumber(ctx context.Context, tenantID string) (int64, error) {
	var counter models.OrderCounter
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ?", tenantID).
		First(&counter).Error
	if err == gorm.ErrRecordNotFound {
		counter = models.OrderCounter{TenantID: tenantID, NextNumber: firstOrderNumber}
		if err := r.db.WithContext(ctx).Create(&counter).Error; err != nil {
			return 0, err
		}
	} else if err != nil {
		return 0, err
	}

	number := counter.NextNumber
	err = r.db.WithContext(ctx).
		Model(&models.OrderCounter{}).
		Where("tenant_id = ?", tenantID).
		Update("next_number", number+1).Error
	if err != nil {
		return 0, err
	}
	return number, nil
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) CreateOrderItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) UpdateFinancialStatus(ctx context.Context, id uuid.UUID, status enums.FinancialStatus, paymentMethod string) error {
	updates := map[string]any{"financial_status": status}
	if paymentMethod != "" {
		updates["payment_method"] = paymentMethod
	}
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) UpdateMetadata(ctx context.Context, id uuid.UUID, metadata json.RawMessage) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Update("metadata", metadata).Error
}
