package apperr

import (
	"errors"
	"fmt"
)

// ErrValidation is returned when the input fails domain validation.
var ErrValidation = errors.New("invalid input")

// ErrNotFound indicates that the requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates a state conflict, most commonly an assignment race
// lost to another driver. Routine under concurrent offers (HTTP 409).
var ErrConflict = errors.New("conflict")

// ErrPaymentRequired blocks a status transition until the payment settles.
var ErrPaymentRequired = errors.New("payment required")

// ErrExternal indicates a failed call to an external collaborator
// (payments, geocoding, notifications).
var ErrExternal = errors.New("external service error")

// TransitionError is an illegal delivery status change. It carries both the
// current and the attempted status so callers can render a specific reason.
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal transition from %q to %q", e.From, e.To)
}

// NewTransition returns a TransitionError for the given status pair.
func NewTransition(from, to string) error {
	return &TransitionError{From: from, To: to}
}

// IsTransition reports whether err is (or wraps) a TransitionError.
func IsTransition(err error) bool {
	var te *TransitionError
	return errors.As(err, &te)
}
