package enums

import "fmt"

// FinancialStatus tracks the payment lifecycle of an order.
type FinancialStatus string

const (
	FinancialStatusPending  FinancialStatus = "pending"
	FinancialStatusPaid     FinancialStatus = "paid"
	FinancialStatusRefunded FinancialStatus = "refunded"
	FinancialStatusVoided   FinancialStatus = "voided"
)

var validFinancialStatuses = []FinancialStatus{
	FinancialStatusPending,
	FinancialStatusPaid,
	FinancialStatusRefunded,
	FinancialStatusVoided,
}

// String implements fmt.Stringer.
func (f FinancialStatus) String() string {
	return string(f)
}

// IsValid reports whether the value is a known FinancialStatus.
func (f FinancialStatus) IsValid() bool {
	for _, candidate := range validFinancialStatuses {
		if candidate == f {
			return true
		}
	}
	return false
}

// ParseFinancialStatus converts raw input into a FinancialStatus.
func ParseFinancialStatus(value string) (FinancialStatus, error) {
	for _, candidate := range validFinancialStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid financial status %q", value)
}
