// Package shared contains common domain types, errors, and events that are
// used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	// State errors
	ErrInvalidState    = errors.New("invalid state")
	ErrStateTransition = errors.New("invalid state transition")
	ErrExpired         = errors.New("expired")

	// Authorization errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
	ErrRateLimited        = errors.New("rate limited")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "student", "auth", "chat"
	Op      string // Operation that failed, e.g., "Register", "Validate"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Student domain errors
var (
	ErrStudentNotFound      = NewDomainError("student", "Find", ErrNotFound, "student not found")
	ErrStudentAlreadyExists = NewDomainError("student", "Register", ErrAlreadyExists, "email already registered")
	ErrStudentInactive      = NewDomainError("student", "CheckStatus", ErrInvalidState, "student account is inactive")
	ErrInvalidCredentials   = NewDomainError("student", "Login", ErrUnauthorized, "invalid email or password")
)

// Auth domain errors
var (
	ErrSessionNotFound = NewDomainError("auth", "Validate", ErrUnauthorized, "unknown session token")
	ErrSessionExpired  = NewDomainError("auth", "Validate", ErrExpired, "session has expired")
	ErrSessionRevoked  = NewDomainError("auth", "Validate", ErrUnauthorized, "session has been revoked")
)

// Chat domain errors
var (
	ErrChatSessionNotFound = NewDomainError("chat", "FindSession", ErrNotFound, "chat session not found")
	ErrChatSessionClosed   = NewDomainError("chat", "AppendMessage", ErrInvalidState, "chat session is closed")
	ErrInvalidMessageRole  = NewDomainError("chat", "Validate", ErrInvalidInput, "invalid message role")
	ErrInvalidAgentType    = NewDomainError("chat", "Validate", ErrInvalidInput, "invalid agent type")
)

// Exercise domain errors
var (
	ErrExerciseNotFound   = NewDomainError("exercise", "Find", ErrNotFound, "exercise not found")
	ErrSubmissionNotFound = NewDomainError("exercise", "FindSubmission", ErrNotFound, "submission not found")
	ErrProgressNotFound   = NewDomainError("exercise", "FindProgress", ErrNotFound, "progress record not found")
	ErrInvalidScore       = NewDomainError("exercise", "Validate", ErrValueOutOfRange, "score must be between 0 and 100")
)

// External service errors
var (
	ErrCompletionUnavailable = NewDomainError("assistant", "Complete", ErrServiceUnavailable, "completion service is unavailable")
	ErrCompletionTimeout     = NewDomainError("assistant", "Complete", ErrTimeout, "completion request timed out")
	ErrCompletionBadResponse = NewDomainError("assistant", "Parse", ErrInvalidFormat, "invalid response from completion service")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict checks if the error is an "already exists" error.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsAuthFailure checks if the error is an authentication failure
// (unknown or expired session, bad credentials, inactive account).
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrExpired)
}

// IsValidationError checks if the error is a validation error.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrValueOutOfRange) ||
		errors.Is(err, ErrInvalidFormat)
}

// IsUpstreamFailure checks if the error came from an external service.
func IsUpstreamFailure(err error) bool {
	return errors.Is(err, ErrExternalService) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimited)
}
