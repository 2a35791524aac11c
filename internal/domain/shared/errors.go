package shared

import "errors"

// Error codes shared by every layer. The HTTP layer maps them to status codes.
const (
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeNotFound            = "NOT_FOUND"
	CodeInvalidState        = "INVALID_STATE"
	CodeInvalidInput        = "INVALID_INPUT"
	CodeUnsupportedPlatform = "UNSUPPORTED_PLATFORM"
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeRemoteFailure       = "REMOTE_FAILURE"
	CodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	CodeInternal            = "INTERNAL_ERROR"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	cause   error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause, if any
func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is reports whether target is a DomainError with the same code.
// This lets callers match a specific message against the sentinel for its code.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WrapDomainError creates a domain error that keeps cause in its chain
func WrapDomainError(code, message string, cause error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Common domain errors
var (
	ErrUnauthorized        = NewDomainError(CodeUnauthorized, "Not authorized to perform this action")
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrInvalidState        = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrInvalidInput        = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrUnsupportedPlatform = NewDomainError(CodeUnsupportedPlatform, "Platform is not supported")
	ErrInvalidCredentials  = NewDomainError(CodeInvalidCredentials, "Connection credentials are invalid")
	ErrRemoteFailure       = NewDomainError(CodeRemoteFailure, "Remote platform call failed")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
)

// CodeOf returns the domain error code carried by err, or CodeInternal
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
