// Package errors provides structured application errors for the cloudmatrix engine.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeConfig indicates a malformed configuration document, unknown
	// cloud identifier, or invalid filter pattern. Fatal before any job runs.
	ErrCodeConfig ErrorCode = "config"
	// ErrCodeCapacity indicates an invalid worker capacity. Fatal at startup.
	ErrCodeCapacity ErrorCode = "capacity"
	// ErrCodeValidation indicates invalid input data.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeNotFound indicates a resource was not found.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeConflict indicates a conflict with existing data.
	ErrCodeConflict ErrorCode = "conflict"
	// ErrCodeTimeout indicates a timeout occurred.
	ErrCodeTimeout ErrorCode = "timeout"
	// ErrCodeCanceled indicates the operation was canceled.
	ErrCodeCanceled ErrorCode = "canceled"
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "internal"
)

// AppError represents a structured application error with a code, message,
// and optional cause. It supports error wrapping and unwrapping for use with
// errors.Is and errors.As.
type AppError struct {
	// Code categorizes the error type
	Code ErrorCode
	// Message is a human-readable error message
	Message string
	// Cause is the underlying error that caused this error (optional)
	Cause error
	// Field is the configuration field that caused the error (optional)
	Field string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Config creates a new configuration error.
func Config(message string) *AppError {
	return &AppError{Code: ErrCodeConfig, Message: message}
}

// Configf creates a new configuration error with formatted message.
func Configf(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeConfig, Message: fmt.Sprintf(format, args...)}
}

// ConfigField creates a new configuration error for a specific field.
func ConfigField(field, message string) *AppError {
	return &AppError{Code: ErrCodeConfig, Message: message, Field: field}
}

// Capacity creates a new capacity error.
func Capacity(message string) *AppError {
	return &AppError{Code: ErrCodeCapacity, Message: message}
}

// Capacityf creates a new capacity error with formatted message.
func Capacityf(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeCapacity, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a new validation error.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message}
}

// Validationf creates a new validation error with formatted message.
func Validationf(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound creates a new NotFound error.
func NotFound(message string) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: message}
}

// Conflict creates a new Conflict error.
func Conflict(message string) *AppError {
	return &AppError{Code: ErrCodeConflict, Message: message}
}

// Internal creates a new Internal error wrapping a cause.
func Internal(message string, cause error) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: message, Cause: cause}
}

// Wrap creates a new AppError with the given code wrapping a cause.
func Wrap(code ErrorCode, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Cause: cause}
}

// CodeOf extracts the ErrorCode from an error chain. Returns ErrCodeInternal
// for errors that are not AppErrors.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// IsCode reports whether the error chain contains an AppError with the code.
func IsCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsFatal reports whether the error must abort the run before any job
// executes (configuration and capacity errors).
func IsFatal(err error) bool {
	code := CodeOf(err)
	return code == ErrCodeConfig || code == ErrCodeCapacity
}
