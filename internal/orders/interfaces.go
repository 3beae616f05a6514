package orders

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lumastore/storefront-backend/pkg/db/models"
	"github.com/lumastore/storefront-backend/pkg/enums"
)

// Repository exposes order persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	AllocateOrderNumber(ctx context.Context, tenantID string) (int64, error)
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateOrderItems(ctx context.Context, items []models.OrderItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
	UpdateFinancialStatus(ctx context.Context, id uuid.UUID, status enums.FinancialStatus, paymentMethod string) error
	UpdateMetadata(ctx context.Context, id uuid.UUID, metadata json.RawMessage) error
}
