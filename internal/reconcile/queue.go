package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lumastore/storefront-backend/pkg/db/models"
	"github.com/lumastore/storefront-backend/pkg/enums"
	"github.com/lumastore/storefront-backend/pkg/logger"
)

// Queue records post-charge bookkeeping that must be retried later. It is
// the write side of the worker: settlement enqueues, the worker drains.
type Queue struct {
	repo Repository
	logg *logger.Logger
}

// NewQueue builds the enqueue-only facade used by settlement.
func NewQueue(repo Repository, logg *logger.Logger) (*Queue, error) {
	if repo == nil {
		return nil, fmt.Errorf("reconcile repository is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Queue{repo: repo, logg: logg}, nil
}

// Enqueue stores a pending task due immediately.
func (q *Queue) Enqueue(ctx context.Context, orderID uuid.UUID, target enums.FinancialStatus, paymentMethod string, chargePayload json.RawMessage) error {
	task := &models.PaymentReconciliation{
		OrderID:       orderID,
		TargetStatus:  target,
		PaymentMethod: paymentMethod,
		ChargePayload: chargePayload,
		Status:        enums.ReconcileStatusPending,
		NextAttemptAt: time.Now().UTC(),
	}
	if err := q.repo.Create(ctx, task); err != nil {
		return err
	}
	ctx = q.logg.WithOrderID(ctx, orderID.String())
	q.logg.Info(ctx, "reconciliation task queued")
	return nil
}
