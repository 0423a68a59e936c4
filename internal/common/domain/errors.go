package domain

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a DomainError for transport mapping.
type ErrorCode string

const (
	CodeValidation   ErrorCode = "VALIDATION_ERROR"
	CodeNotFound     ErrorCode = "NOT_FOUND"
	CodeConflict     ErrorCode = "CONFLICT"
	CodeInvalidState ErrorCode = "INVALID_STATE"
	CodeUnavailable  ErrorCode = "SERVICE_UNAVAILABLE"
)

// DomainError is an error the caller is expected to act on.
type DomainError struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	cause     error
}

func (e *DomainError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error { return e.cause }

// Is matches another DomainError by code and message, so sentinel values work with errors.Is.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// ErrSlotUnavailable is returned when a reservation loses the race for a slot, or the day is
// disabled or unknown. Retrying with another slot is safe: nothing was written.
var ErrSlotUnavailable = &DomainError{
	Code:      CodeConflict,
	Message:   "slot is no longer available",
	Retryable: true,
}

// NewValidationError creates an error for rejected input.
func NewValidationError(msg string) *DomainError {
	return &DomainError{Code: CodeValidation, Message: msg}
}

// NewNotFoundError creates an error for an unknown entity.
func NewNotFoundError(entity, id string) *DomainError {
	return &DomainError{Code: CodeNotFound, Message: fmt.Sprintf("%s %s not found", entity, id)}
}

// NewConflictError creates an error for a lost concurrent update.
func NewConflictError(msg string) *DomainError {
	return &DomainError{Code: CodeConflict, Message: msg, Retryable: true}
}

// NewInvalidStateError creates an error for a forbidden status transition.
func NewInvalidStateError(from, to string) *DomainError {
	return &DomainError{
		Code:    CodeInvalidState,
		Message: fmt.Sprintf("cannot transition from %s to %s", from, to),
	}
}

// NewUnavailableError wraps a transient infrastructure failure.
func NewUnavailableError(msg string, cause error) *DomainError {
	return &DomainError{Code: CodeUnavailable, Message: msg, Retryable: true, cause: cause}
}

// CodeOf returns the code of the first DomainError in err's chain, or "" if there is none.
func CodeOf(err error) ErrorCode {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// IsNotFound reports whether err carries CodeNotFound.
func IsNotFound(err error) bool { return CodeOf(err) == CodeNotFound }
