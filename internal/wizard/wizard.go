// Package wizard drives the four-step checkout flow: Contact, Location,
// Review, Payment. Progress and captured fields persist per session so a
// reload resumes where the buyer left off, but never on the Payment step:
// payment state is process-local and a restored session re-enters at Review.
package wizard

import "fmt"

// Step is a zero-based wizard position.
type Step int

const (
	StepContact Step = iota
	StepLocation
	StepReview
	StepPayment
)

// maxRestorableStep caps what a restored session may resume at.
const maxRestorableStep = StepReview

var stepNames = map[Step]string{
	StepContact:  "contact",
	StepLocation: "location",
	StepReview:   "review",
	StepPayment:  "payment",
}

// String implements fmt.Stringer.
func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// IsValid reports whether the step is one of the four wizard positions.
func (s Step) IsValid() bool {
	return s >= StepContact && s <= StepPayment
}

// Clamp bounds a restored step to what persistence may resume: anything
// past Review (or out of range) lands on Review, never Payment.
func (s Step) Clamp() Step {
	if s < StepContact {
		return StepContact
	}
	if s > maxRestorableStep {
		return maxRestorableStep
	}
	return s
}

// CanJumpTo reports whether a direct jump from s to target is allowed:
// backward is always free, the current step is a no-op, and Payment is
// reachable only by advancing through Review.
func (s Step) CanJumpTo(target Step) bool {
	if !target.IsValid() || target == StepPayment {
		return false
	}
	return target <= s
}
