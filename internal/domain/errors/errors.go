package errors

import (
	"errors"
	"fmt"
)

var (
	// Counter errors
	ErrCounterNotFound = errors.New("counter not found")
	ErrInvalidDelta    = errors.New("invalid delta")

	ErrOptimisticLockFailed = errors.New("optimistic lock conflict")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}
