package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// Client errors (4xx equivalent)
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeInvalidInput ErrorType = "INVALID_INPUT"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypePrecondition ErrorType = "PRECONDITION_FAILED"

	// Server errors (5xx equivalent)
	ErrorTypeInternal    ErrorType = "INTERNAL"
	ErrorTypeUnavailable ErrorType = "UNAVAILABLE"

	// Business logic errors
	ErrorTypeBusinessRule ErrorType = "BUSINESS_RULE"
	ErrorTypeValidation   ErrorType = "VALIDATION"
	ErrorTypeDuplicate    ErrorType = "DUPLICATE"
)

// Error represents a structured error with a stable code and details
type Error struct {
	Type       ErrorType              `json:"type"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	StatusCode int                    `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors by type and code, so engine errors survive wrapping
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Type == other.Type && e.Code == other.Code
}

// WithDetails adds a detail entry to the error
func (e *Error) WithDetails(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithCause wraps an underlying error
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// New creates a new error
func New(errorType ErrorType, code, message string) *Error {
	e := &Error{
		Type:    errorType,
		Code:    code,
		Message: message,
	}

	switch errorType {
	case ErrorTypeNotFound:
		e.StatusCode = http.StatusNotFound
	case ErrorTypeInvalidInput, ErrorTypeValidation:
		e.StatusCode = http.StatusBadRequest
	case ErrorTypeUnauthorized:
		e.StatusCode = http.StatusUnauthorized
	case ErrorTypeForbidden:
		e.StatusCode = http.StatusForbidden
	case ErrorTypeConflict, ErrorTypeDuplicate:
		e.StatusCode = http.StatusConflict
	case ErrorTypePrecondition, ErrorTypeBusinessRule:
		e.StatusCode = http.StatusUnprocessableEntity
	case ErrorTypeUnavailable:
		e.StatusCode = http.StatusServiceUnavailable
	default:
		e.StatusCode = http.StatusInternalServerError
	}

	return e
}

// Common error constructors

func NotFound(resource string, id interface{}) *Error {
	return New(ErrorTypeNotFound, "RESOURCE_NOT_FOUND",
		fmt.Sprintf("%s not found", resource)).
		WithDetails("resource", resource).
		WithDetails("id", id)
}

func InvalidInput(field string, reason string) *Error {
	return New(ErrorTypeInvalidInput, "INVALID_INPUT",
		fmt.Sprintf("invalid input for field '%s': %s", field, reason)).
		WithDetails("field", field).
		WithDetails("reason", reason)
}

func Unauthorized(reason string) *Error {
	return New(ErrorTypeUnauthorized, "UNAUTHORIZED", reason)
}

func Forbidden(resource string, action string) *Error {
	return New(ErrorTypeForbidden, "FORBIDDEN",
		fmt.Sprintf("forbidden: cannot %s %s", action, resource)).
		WithDetails("resource", resource).
		WithDetails("action", action)
}

func Duplicate(resource string, field string, value interface{}) *Error {
	return New(ErrorTypeDuplicate, "DUPLICATE",
		fmt.Sprintf("%s with %s '%v' already exists", resource, field, value)).
		WithDetails("resource", resource).
		WithDetails("field", field).
		WithDetails("value", value)
}

func Internal(message string) *Error {
	return New(ErrorTypeInternal, "INTERNAL_ERROR", message)
}

func Unavailable(collaborator string) *Error {
	return New(ErrorTypeUnavailable, "UNAVAILABLE",
		fmt.Sprintf("collaborator '%s' is unavailable", collaborator)).
		WithDetails("collaborator", collaborator)
}

// IsType checks if an error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == errorType
	}
	return false
}

// GetCode returns the error code if it's our error type
func GetCode(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "UNKNOWN"
}

// StatusOf returns the HTTP status for an error, defaulting to 500
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return http.StatusInternalServerError
}
