// Package reconcile retries the order bookkeeping that failed after a charge
// already settled. Tasks carry the target status and charge payload; the
// worker drains due tasks on an interval and backs off per task until the
// update lands or attempts run out.
package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/multierr"

	"github.com/lumastore/storefront-backend/pkg/config"
	"github.com/lumastore/storefront-backend/pkg/db/models"
	"github.com/lumastore/storefront-backend/pkg/enums"
	pkgerrors "github.com/lumastore/storefront-backend/pkg/errors"
	"github.com/lumastore/storefront-backend/pkg/logger"
	"github.com/lumastore/storefront-backend/pkg/metrics"
)

const workerName = "payment_reconciliation"

// inRunRetries bounds immediate retries of one task inside a single run;
// further failures reschedule the task instead of blocking the batch.
const inRunRetries = 2

// rescheduleBase and rescheduleCap shape the cross-run backoff schedule.
const (
	rescheduleBase = time.Minute
	rescheduleCap  = time.Hour
)

type orderUpdater interface {
	SetFinancialStatus(ctx context.Context, orderID uuid.UUID, status enums.FinancialStatus, paymentMethod string, chargePayload json.RawMessage) error
}

// Worker drains due reconciliation tasks.
type Worker struct {
	repo        Repository
	orders      orderUpdater
	metrics     *metrics.ReconcileMetrics
	batchSize   int
	maxAttempts int
	logg        *logger.Logger
}

// WorkerParams collects the worker dependencies.
type WorkerParams struct {
	Repo    Repository
	Orders  orderUpdater
	Metrics *metrics.ReconcileMetrics
	Config  config.ReconcileConfig
	Logger  *logger.Logger
}

// NewWorker validates dependencies and builds the worker.
func NewWorker(params WorkerParams) (*Worker, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("reconcile repository is required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order updater is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	batchSize := params.Config.BatchSize
	if batchSize <= 0 {
		batchSize = 50
	}
	maxAttempts := params.Config.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	return &Worker{
		repo:        params.Repo,
		orders:      params.Orders,
		metrics:     params.Metrics,
		batchSize:   batchSize,
		maxAttempts: maxAttempts,
		logg:        params.Logger,
	}, nil
}

// Run drains due tasks on the given interval until the context ends.
func (w *Worker) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil {
				w.logg.Error(ctx, "reconciliation batch finished with errors", err)
			}
		}
	}
}

// RunOnce claims and processes one batch of due tasks. Per-task failures are
// aggregated; one bad task never stops the batch.
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	started := time.Now()
	defer func() { w.metrics.ObserveRun(workerName, time.Since(started)) }()

	tasks, err := w.repo.ClaimDue(ctx, time.Now().UTC(), w.batchSize)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "claiming reconciliation tasks")
	}

	var batchErr error
	processed := 0
	for i := range tasks {
		if ctx.Err() != nil {
			batchErr = multierr.Append(batchErr, ctx.Err())
			break
		}
		if err := w.processTask(ctx, &tasks[i]); err != nil {
			batchErr = multierr.Append(batchErr, err)
			continue
		}
		processed++
	}
	return processed, batchErr
}

func (w *Worker) processTask(ctx context.Context, task *models.PaymentReconciliation) error {
	ctx = w.logg.WithFields(ctx, map[string]any{
		"task_id":  task.ID.String(),
		"order_id": task.OrderID.String(),
	})

	backoff := retry.WithMaxRetries(inRunRetries, retry.NewExponential(250*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := w.orders.SetFinancialStatus(ctx, task.OrderID, task.TargetStatus, task.PaymentMethod, task.ChargePayload); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})

	attempts := task.Attempts + 1

	if err == nil {
		if markErr := w.repo.MarkDone(ctx, task.ID, attempts); markErr != nil {
			w.metrics.IncTask(workerName, "error")
			return pkgerrors.Wrap(pkgerrors.CodeInternal, markErr, "marking task done")
		}
		w.metrics.IncTask(workerName, "done")
		w.logg.Info(ctx, "reconciliation task completed")
		return nil
	}

	// A terminal domain error (order gone, disallowed transition) will never
	// succeed on retry; exhaust the task immediately.
	if typed := pkgerrors.As(err); typed != nil && !pkgerrors.MetadataFor(typed.Code()).Retryable {
		if markErr := w.repo.MarkExhausted(ctx, task.ID, attempts, err.Error()); markErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, markErr, "marking task exhausted")
		}
		w.metrics.IncTask(workerName, "exhausted")
		w.logg.Error(ctx, "reconciliation task failed terminally", err)
		return err
	}

	if attempts >= w.maxAttempts {
		if markErr := w.repo.MarkExhausted(ctx, task.ID, attempts, err.Error()); markErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, markErr, "marking task exhausted")
		}
		w.metrics.IncTask(workerName, "exhausted")
		w.logg.Error(ctx, "reconciliation attempts exhausted", err)
		return err
	}

	next := time.Now().UTC().Add(rescheduleDelay(attempts))
	if markErr := w.repo.MarkRetry(ctx, task.ID, attempts, next, err.Error()); markErr != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, markErr, "rescheduling task")
	}
	w.metrics.IncTask(workerName, "retried")
	w.logg.Warn(ctx, "reconciliation task rescheduled")
	return err
}

// rescheduleDelay doubles per attempt starting at rescheduleBase, capped at
// rescheduleCap.
func rescheduleDelay(attempts int) time.Duration {
	delay := rescheduleBase
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= rescheduleCap {
			return rescheduleCap
		}
	}
	return delay
}
