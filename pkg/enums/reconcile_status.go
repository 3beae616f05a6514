package enums

import "fmt"

// ReconcileStatus tracks a payment reconciliation task.
type ReconcileStatus string

const (
	ReconcileStatusPending   ReconcileStatus = "pending"
	ReconcileStatusDone      ReconcileStatus = "done"
	ReconcileStatusExhausted ReconcileStatus = "exhausted"
)

var validReconcileStatuses = []ReconcileStatus{
	ReconcileStatusPending,
	ReconcileStatusDone,
	ReconcileStatusExhausted,
}

// String implements fmt.Stringer.
func (r ReconcileStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReconcileStatus.
func (r ReconcileStatus) IsValid() bool {
	for _, candidate := range validReconcileStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseReconcileStatus converts raw input into a ReconcileStatus.
func ParseReconcileStatus(value string) (ReconcileStatus, error) {
	for _, candidate := range validReconcileStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reconcile status %q", value)
}
