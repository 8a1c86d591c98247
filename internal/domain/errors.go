package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used across all layers.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrValidation    = errors.New("validation error")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrConflict      = errors.New("conflict")

	// ErrInvalidTransition is returned when a loan status change is not allowed
	// from the loan's current status, or the target status is unknown.
	ErrInvalidTransition = errors.New("invalid loan status transition")

	// ErrNoAdministrator is returned when an operation needs an administrator
	// recipient and no admin account exists.
	ErrNoAdministrator = errors.New("no administrator available")

	// ErrTransient marks store timeouts and unavailability. Callers may retry.
	ErrTransient = errors.New("transient failure")
)

// Conflict flavours. Both match errors.Is(err, ErrConflict).
var (
	ErrActiveLoanExists = fmt.Errorf("%w: item already has an active loan", ErrConflict)
	ErrAlreadyWaiting   = fmt.Errorf("%w: user is already on the waitlist", ErrConflict)
)

// FieldError describes a validation error for a specific field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError contains a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation: %s: %s", e.Errors[0].Field, e.Errors[0].Message)
	}
	return fmt.Sprintf("validation: %d errors", len(e.Errors))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Errors: []FieldError{{Field: field, Message: message}},
	}
}

// NewValidationErrors creates a ValidationError from multiple field errors.
func NewValidationErrors(errs []FieldError) *ValidationError {
	return &ValidationError{Errors: errs}
}
