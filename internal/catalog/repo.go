package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lumastore/storefront-backend/pkg/db/models"
)

// Repository exposes catalog reads used by checkout.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindActiveByIDs(ctx context.Context, tenantID string, ids []uuid.UUID) ([]models.Product, error)
	FindByID(ctx context.Context, tenantID string, id uuid.UUID) (*models.Product, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindActiveByIDs(ctx context.Context, tenantID string, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND active = ? AND id IN ?", tenantID, true, ids).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repository) FindByID(ctx context.Context, tenantID string, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}
