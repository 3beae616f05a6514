package settlement

import (
	"context"

	"gorm.io/gorm"

	"github.com/lumastore/storefront-backend/pkg/db/models"
)

// Repository looks up tenant gateway accounts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindActiveByTenant(ctx context.Context, tenantID string) (*models.GatewayAccount, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository builds the gorm-backed gateway account repository.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) WithTx(tx *gorm.DB) Repository {
	return &gormRepository{db: tx}
}

func (r *gormRepository) FindActiveByTenant(ctx context.Context, tenantID string) (*models.GatewayAccount, error) {
	var account models.GatewayAccount
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND active = ?", tenantID, true).
		First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}
