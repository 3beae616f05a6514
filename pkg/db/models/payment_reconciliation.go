package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/lumastore/storefront-backend/pkg/enums"
)

// PaymentReconciliation is a retryable task recorded when the post-charge
// order update fails. The money already moved; the worker keeps retrying the
// bookkeeping until it lands or attempts are exhausted.
type PaymentReconciliation struct {
	ID            uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID       uuid.UUID             `gorm:"column:order_id;type:uuid;not null;index"`
	TargetStatus  enums.FinancialStatus `gorm:"column:target_status;not null"`
	PaymentMethod string                `gorm:"column:payment_method"`
	ChargePayload json.RawMessage       `gorm:"column:charge_payload;type:jsonb"`
	Status        enums.ReconcileStatus `gorm:"column:status;not null;default:'pending';index:idx_reconciliations_due,priority:1"`
	Attempts      int                   `gorm:"column:attempts;not null;default:0"`
	NextAttemptAt time.Time             `gorm:"column:next_attempt_at;not null;index:idx_reconciliations_due,priority:2"`
	LastError     *string               `gorm:"column:last_error"`
	CreatedAt     time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
