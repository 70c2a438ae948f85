package service

import (
	"errors"
	"fmt"
)

// Error taxonomy for the reconciliation core. Validation failures are never
// errors, they come back as a structured verdict. Everything here is an
// operational or state failure that propagates to the caller typed.
var (
	// ErrNotFound means the referenced record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidTransition means the attempted status transition is not
	// permitted from the record's current status.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrBalanceViolation means a payment amount is non-positive or exceeds
	// the remaining balance. Rejected before any mutation.
	ErrBalanceViolation = errors.New("payment amount violates remaining balance")

	// ErrLookupFailed means an external dependency (data store, extraction
	// service) failed operationally. Distinct from a validation failure so
	// the UI never confuses "could not check" with "checked and failed".
	ErrLookupFailed = errors.New("lookup failed")

	// ErrConflict means the record's status changed between read and write;
	// the operation was rejected instead of overwriting.
	ErrConflict = errors.New("record changed since it was read")
)

// TransitionError identifies the current and attempted state of a rejected
// transition.
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %q to %q", e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

func newTransitionError(from, to string) error {
	return &TransitionError{From: from, To: to}
}
