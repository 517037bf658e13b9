package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents different types of errors in the engine
type ErrorType string

const (
	// ErrorTypeValidation indicates a malformed or empty request
	ErrorTypeValidation ErrorType = "VALIDATION"

	// ErrorTypeNotFound indicates an unknown recipe id
	ErrorTypeNotFound ErrorType = "NOT_FOUND"

	// ErrorTypeIndexUnavailable indicates no snapshot has been built yet.
	// Callers should treat it as retriable.
	ErrorTypeIndexUnavailable ErrorType = "INDEX_UNAVAILABLE"

	// ErrorTypeInternal indicates an internal server error
	ErrorTypeInternal ErrorType = "INTERNAL"
)

// AppError represents an application error
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a new validation error
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewIndexUnavailableError creates a new index unavailable error
func NewIndexUnavailableError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeIndexUnavailable,
		Message: message,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// TypeOf returns the ErrorType of the first AppError in err's chain,
// or ErrorTypeInternal when there is none.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeInternal
}

// IsValidation reports whether err is a validation error
func IsValidation(err error) bool {
	return err != nil && TypeOf(err) == ErrorTypeValidation
}

// IsNotFound reports whether err is a not found error
func IsNotFound(err error) bool {
	return err != nil && TypeOf(err) == ErrorTypeNotFound
}

// IsIndexUnavailable reports whether err is an index unavailable error
func IsIndexUnavailable(err error) bool {
	return err != nil && TypeOf(err) == ErrorTypeIndexUnavailable
}

// AsAppError returns the first AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
