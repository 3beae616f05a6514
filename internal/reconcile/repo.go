package reconcile

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lumastore/storefront-backend/pkg/db/models"
	"github.com/lumastore/storefront-backend/pkg/enums"
)

// Repository persists reconciliation tasks.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, task *models.PaymentReconciliation) error
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]models.PaymentReconciliation, error)
	MarkDone(ctx context.Context, id uuid.UUID, attempts int) error
	MarkRetry(ctx context.Context, id uuid.UUID, attempts int, nextAttemptAt time.Time, lastError string) error
	MarkExhausted(ctx context.Context, id uuid.UUID, attempts int, lastError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository builds the gorm-backed reconciliation repository.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) WithTx(tx *gorm.DB) Repository {
	return &gormRepository{db: tx}
}

func (r *gormRepository) Create(ctx context.Context, task *models.PaymentReconciliation) error {
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *gormRepository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]models.PaymentReconciliation, error) {
	var tasks []models.PaymentReconciliation
	err := r.db.WithContext(ctx).
		Where("status = ? AND next_attempt_at <= ?", enums.ReconcileStatusPending, now).
		Order("next_attempt_at asc").
		Limit(limit).
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *gormRepository) MarkDone(ctx context.Context, id uuid.UUID, attempts int) error {
	return r.db.WithContext(ctx).
		Model(&models.PaymentReconciliation{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":   enums.ReconcileStatusDone,
			"attempts": attempts,
		}).Error
}

func (r *gormRepository) MarkRetry(ctx context.Context, id uuid.UUID, attempts int, nextAttemptAt time.Time, lastError string) error {
	return r.db.WithContext(ctx).
		Model(&models.PaymentReconciliation{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"attempts":        attempts,
			"next_attempt_at": nextAttemptAt,
			"last_error":      lastError,
		}).Error
}

func (r *gormRepository) MarkExhausted(ctx context.Context, id uuid.UUID, attempts int, lastError string) error {
	return r.db.WithContext(ctx).
		Model(&models.PaymentReconciliation{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     enums.ReconcileStatusExhausted,
			"attempts":   attempts,
			"last_error": lastError,
		}).Error
}
