package reconcile

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/lumastore/storefront-backend/pkg/config"
	"github.com/lumastore/storefront-backend/pkg/db/models"
	"github.com/lumastore/storefront-backend/pkg/enums"
	pkgerrors "github.com/lumastore/storefront-backend/pkg/errors"
	"github.com/lumastore/storefront-backend/pkg/logger"
)

type stubRepo struct {
	due []models.PaymentReconciliation

	done      []uuid.UUID
	retried   []uuid.UUID
	exhausted []uuid.UUID

	lastAttempts int
	lastNext     time.Time
	lastError    string
}

func (r *stubRepo) WithTx(tx *gorm.DB) Repository { return r }

func (r *stubRepo) Create(ctx context.Context, task *models.PaymentReconciliation) error {
	task.ID = uuid.New()
	r.due = append(r.due, *task)
	return nil
}

func (r *stubRepo) ClaimDue(ctx context.Context, now time.Time, limit int) ([]models.PaymentReconciliation, error) {
	if len(r.due) > limit {
		return r.due[:limit], nil
	}
	return r.due, nil
}

func (r *stubRepo) MarkDone(ctx context.Context, id uuid.UUID, attempts int) error {
	r.done = append(r.done, id)
	r.lastAttempts = attempts
	return nil
}

func (r *stubRepo) MarkRetry(ctx context.Context, id uuid.UUID, attempts int, nextAttemptAt time.Time, lastError string) error {
	r.retried = append(r.retried, id)
	r.lastAttempts = attempts
	r.lastNext = nextAttemptAt
	r.lastError = lastError
	return nil
}

func (r *stubRepo) MarkExhausted(ctx context.Context, id uuid.UUID, attempts int, lastError string) error {
	r.exhausted = append(r.exhausted, id)
	r.lastAttempts = attempts
	r.lastError = lastError
	return nil
}

type stubUpdater struct {
	errs       map[uuid.UUID]error
	calls      map[uuid.UUID]int
	lastMethod string
}

func newStubUpdater() *stubUpdater {
	return &stubUpdater{errs: map[uuid.UUID]error{}, calls: map[uuid.UUID]int{}}
}

func (u *stubUpdater) SetFinancialStatus(ctx context.Context, orderID uuid.UUID, status enums.FinancialStatus, paymentMethod string, payload json.RawMessage) error {
	u.calls[orderID]++
	u.lastMethod = paymentMethod
	return u.errs[orderID]
}

func task(attempts int) models.PaymentReconciliation {
	return models.PaymentReconciliation{
		ID:            uuid.New(),
		OrderID:       uuid.New(),
		TargetStatus:  enums.FinancialStatusPaid,
		PaymentMethod: "gateway",
		Status:        enums.ReconcileStatusPending,
		Attempts:      attempts,
		NextAttemptAt: time.Now().UTC().Add(-time.Minute),
	}
}

func newTestWorker(t *testing.T, repo *stubRepo, updater *stubUpdater, maxAttempts int) *Worker {
	t.Helper()
	w, err := NewWorker(WorkerParams{
		Repo:   repo,
		Orders: updater,
		Config: config.ReconcileConfig{BatchSize: 10, MaxAttempts: maxAttempts},
		Logger: logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled}),
	})
	if err != nil {
		t.Fatalf("NewWorker: %v", err)
	}
	return w
}

func TestRunOnceCompletesDueTask(t *testing.T) {
	repo := &stubRepo{due: []models.PaymentReconciliation{task(0)}}
	updater := newStubUpdater()
	w := newTestWorker(t, repo, updater, 10)

	processed, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if processed != 1 || len(repo.done) != 1 {
		t.Fatalf("processed=%d done=%d", processed, len(repo.done))
	}
	if repo.lastAttempts != 1 {
		t.Fatalf("attempts = %d", repo.lastAttempts)
	}
	if updater.lastMethod != "gateway" {
		t.Fatalf("payment method = %q, want the task's method", updater.lastMethod)
	}
}

func TestRunOnceReschedulesFailingTask(t *testing.T) {
	tk := task(1)
	repo := &stubRepo{due: []models.PaymentReconciliation{tk}}
	updater := newStubUpdater()
	updater.errs[tk.OrderID] = pkgerrors.New(pkgerrors.CodeInternal, "db down")
	w := newTestWorker(t, repo, updater, 10)

	_, err := w.RunOnce(context.Background())
	if err == nil {
		t.Fatal("expected batch error")
	}
	if len(repo.retried) != 1 || len(repo.exhausted) != 0 {
		t.Fatalf("retried=%d exhausted=%d", len(repo.retried), len(repo.exhausted))
	}
	if repo.lastAttempts != 2 {
		t.Fatalf("attempts = %d", repo.lastAttempts)
	}
	if !repo.lastNext.After(time.Now()) {
		t.Fatal("next attempt must be in the future")
	}
	if repo.lastError == "" {
		t.Fatal("last error must be recorded")
	}
	// Worker retries inside the run before rescheduling.
	if updater.calls[tk.OrderID] < 2 {
		t.Fatalf("in-run retries = %d", updater.calls[tk.OrderID])
	}
}

func TestRunOnceExhaustsAtMaxAttempts(t *testing.T) {
	tk := task(4)
	repo := &stubRepo{due: []models.PaymentReconciliation{tk}}
	updater := newStubUpdater()
	updater.errs[tk.OrderID] = pkgerrors.New(pkgerrors.CodeInternal, "db down")
	w := newTestWorker(t, repo, updater, 5)

	_, err := w.RunOnce(context.Background())
	if err == nil {
		t.Fatal("expected batch error")
	}
	if len(repo.exhausted) != 1 {
		t.Fatalf("exhausted = %d", len(repo.exhausted))
	}
	if repo.lastAttempts != 5 {
		t.Fatalf("attempts = %d", repo.lastAttempts)
	}
}

func TestRunOnceExhaustsTerminalErrorImmediately(t *testing.T) {
	tk := task(0)
	repo := &stubRepo{due: []models.PaymentReconciliation{tk}}
	updater := newStubUpdater()
	updater.errs[tk.OrderID] = pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	w := newTestWorker(t, repo, updater, 10)

	_, err := w.RunOnce(context.Background())
	if err == nil {
		t.Fatal("expected batch error")
	}
	if len(repo.exhausted) != 1 || len(repo.retried) != 0 {
		t.Fatalf("exhausted=%d retried=%d", len(repo.exhausted), len(repo.retried))
	}
}

func TestRunOnceContinuesPastFailingTask(t *testing.T) {
	bad, good := task(0), task(0)
	repo := &stubRepo{due: []models.PaymentReconciliation{bad, good}}
	updater := newStubUpdater()
	updater.errs[bad.OrderID] = pkgerrors.New(pkgerrors.CodeInternal, "db down")
	w := newTestWorker(t, repo, updater, 10)

	processed, err := w.RunOnce(context.Background())
	if err == nil {
		t.Fatal("expected aggregated batch error")
	}
	if processed != 1 {
		t.Fatalf("processed = %d, want 1", processed)
	}
	if len(repo.done) != 1 || repo.done[0] != good.ID {
		t.Fatal("healthy task must complete despite the failing one")
	}
}

func TestQueueEnqueuesPendingTask(t *testing.T) {
	repo := &stubRepo{}
	q, err := NewQueue(repo, logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled}))
	if err != nil {
		t.Fatalf("NewQueue: %v", err)
	}

	orderID := uuid.New()
	payload := json.RawMessage(`{"payment_id":"txn_1"}`)
	if err := q.Enqueue(context.Background(), orderID, enums.FinancialStatusPaid, "gateway", payload); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if len(repo.due) != 1 {
		t.Fatalf("tasks = %d", len(repo.due))
	}
	stored := repo.due[0]
	if stored.OrderID != orderID || stored.Status != enums.ReconcileStatusPending {
		t.Fatalf("unexpected task %+v", stored)
	}
	if stored.PaymentMethod != "gateway" {
		t.Fatalf("payment method = %q", stored.PaymentMethod)
	}
	if stored.NextAttemptAt.After(time.Now().UTC()) {
		t.Fatal("new task must be due immediately")
	}
}

func TestRescheduleDelayDoublesAndCaps(t *testing.T) {
	if d := rescheduleDelay(1); d != time.Minute {
		t.Fatalf("delay(1) = %s", d)
	}
	if d := rescheduleDelay(3); d != 4*time.Minute {
		t.Fatalf("delay(3) = %s", d)
	}
	if d := rescheduleDelay(20); d != time.Hour {
		t.Fatalf("delay(20) = %s", d)
	}
}
