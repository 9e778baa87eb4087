package shared

import "fmt"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewInvalidTransitionError creates an error for a rejected state transition,
// naming the current and the requested state
func NewInvalidTransitionError(entity, current, requested string) *DomainError {
	return &DomainError{
		Code:    "INVALID_TRANSITION",
		Message: fmt.Sprintf("%s cannot transition from %s to %s", entity, current, requested),
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrExternalFailure     = NewDomainError("EXTERNAL_FAILURE", "External collaborator call failed")
	ErrConfiguration       = NewDomainError("CONFIGURATION_ERROR", "Required configuration is missing")
	ErrInsufficientBalance = NewDomainError("INSUFFICIENT_BALANCE", "Insufficient balance available")
)

// IsRetryable reports whether the caller may retry the same operation
// unchanged. Only concurrency conflicts qualify; validation and transition
// errors require corrected input, external and configuration failures
// require operator intervention.
func IsRetryable(err error) bool {
	if de, ok := err.(*DomainError); ok {
		return de.Code == ErrConcurrencyConflict.Code
	}
	return false
}
