package shared

import (
	"errors"
	"fmt"
	"strings"
)

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

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENT_MODIFICATION", "Resource was modified by another process")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")

	// ErrNumberContention signals that the document-number sequence lock could
	// not be acquired. Unlike a concurrency conflict it is safe to retry the
	// whole operation without reloading anything.
	ErrNumberContention = NewDomainError("NUMBER_CONTENTION", "Document number sequence is locked by another writer")
)

// FieldError describes a validation failure on a single field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries field-level validation failures. It is terminal:
// callers must fix the input, not retry.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = fmt.Sprintf("%s: %s", f.Field, f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add appends a field error and returns the receiver for chaining
func (e *ValidationError) Add(field, message string) *ValidationError {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
	return e
}

// HasErrors reports whether any field error was recorded
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

// ErrOrNil returns the error when it carries failures, nil otherwise
func (e *ValidationError) ErrOrNil() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

// NewValidationError creates a validation error for a single field
func NewValidationError(field, message string) *ValidationError {
	return (&ValidationError{}).Add(field, message)
}

// IsValidation reports whether err is (or wraps) a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsConflict reports whether err is the optimistic-locking conflict error
func IsConflict(err error) bool {
	var de *DomainError
	return errors.As(err, &de) && de.Code == ErrConcurrencyConflict.Code
}

// IsContention reports whether err is the retryable number-sequence error
func IsContention(err error) bool {
	var de *DomainError
	return errors.As(err, &de) && de.Code == ErrNumberContention.Code
}

// IsNotFound reports whether err is the not-found error
func IsNotFound(err error) bool {
	var de *DomainError
	return errors.As(err, &de) && de.Code == ErrNotFound.Code
}

// IsRetryable reports whether the caller may retry the whole operation:
// conflicts (after reloading) and sequence contention are retryable,
// validation and not-found are terminal.
func IsRetryable(err error) bool {
	return IsConflict(err) || IsContention(err)
}
