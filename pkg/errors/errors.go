package errors

import (
	"errors"
	"fmt"
)

var (
	// Argument errors
	ErrInvalidArgument = errors.New("invalid argument")

	// Registration errors
	ErrMissingRegistration = errors.New("required service missing")
	ErrCircularDependency  = errors.New("circular dependency")

	// Cancellation errors
	ErrOperationCancelled = errors.New("operation cancelled")

	// Transaction errors
	ErrTransactionAborted = errors.New("transaction aborted")
	ErrIsolationConflict  = errors.New("isolation level conflicts with ambient transaction")
)

// Error codes carried by DomainError.
const (
	CodeTransactionAborted = "transaction_aborted"
	CodeOperationCancelled = "operation_cancelled"
)

// DomainError wraps errors with additional context
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ArgumentError reports a required argument that was absent.
type ArgumentError struct {
	Param string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid argument: %s must not be nil", e.Param)
}

func (e *ArgumentError) Unwrap() error {
	return ErrInvalidArgument
}

// NewArgumentError creates a new argument error
func NewArgumentError(param string) *ArgumentError {
	return &ArgumentError{Param: param}
}

// MissingRegistrationError reports a service type with no registration.
type MissingRegistrationError struct {
	Service string
}

func (e *MissingRegistrationError) Error() string {
	return fmt.Sprintf("no service registered for type %s", e.Service)
}

func (e *MissingRegistrationError) Unwrap() error {
	return ErrMissingRegistration
}

// Cancelled reports that cooperative cancellation was observed. The result
// matches both ErrOperationCancelled and cause.
func Cancelled(cause error) error {
	if cause == nil {
		return NewDomainError(CodeOperationCancelled, "operation cancelled", ErrOperationCancelled)
	}
	return NewDomainError(CodeOperationCancelled, "operation cancelled",
		fmt.Errorf("%w: %w", ErrOperationCancelled, cause))
}

// Aborted reports that a transaction was aborted by its timeout or by the
// infrastructure. The result matches both ErrTransactionAborted and cause.
func Aborted(cause error) error {
	if cause == nil {
		return NewDomainError(CodeTransactionAborted, "transaction aborted", ErrTransactionAborted)
	}
	return NewDomainError(CodeTransactionAborted, "transaction aborted",
		fmt.Errorf("%w: %w", ErrTransactionAborted, cause))
}
