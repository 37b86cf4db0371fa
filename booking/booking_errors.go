package booking

import (
	"errors"
	"fmt"
)

var ErrBookingNotFound = errors.New("booking not found")

var ErrValidation = errors.New("validation failed")

var ErrDeadlineUnavailable = errors.New("cancellation deadline unavailable")

var ErrNotAllowed = errors.New("not allowed to perform this operation")

// ValidationError is returned synchronously by the lifecycle checks. It matches ErrValidation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s: %s", ErrValidation, e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
