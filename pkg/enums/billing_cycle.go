package enums

import "fmt"

// BillingCycle distinguishes one-time purchases from recurring subscriptions.
type BillingCycle string

const (
	BillingCycleOneTime   BillingCycle = "one_time"
	BillingCycleRecurring BillingCycle = "recurring"
)

var validBillingCycles = []BillingCycle{
	BillingCycleOneTime,
	BillingCycleRecurring,
}

// String implements fmt.Stringer.
func (b BillingCycle) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BillingCycle.
func (b BillingCycle) IsValid() bool {
	for _, candidate := range validBillingCycles {
		if candidate == b {
			return true
		}
	}
	return false
}

// IsRecurring reports whether items with this cycle require a subscription.
func (b BillingCycle) IsRecurring() bool {
	return b == BillingCycleRecurring
}

// ParseBillingCycle converts raw input into a BillingCycle.
func ParseBillingCycle(value string) (BillingCycle, error) {
	for _, candidate := range validBillingCycles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid billing cycle %q", value)
}
