// Package errors defines structured error types for the API.
package errors

import (
	"fmt"
	"net/http"
)

// ErrorCode defines specific error types for the API.
type ErrorCode string

const (
	// ErrValidationFailed is returned when input data fails validation
	ErrValidationFailed ErrorCode = "VALIDATION_FAILED"
	// ErrMissingField is returned when a required field is missing
	ErrMissingField ErrorCode = "MISSING_FIELD"
	// ErrInvalidFormat is returned when a field has an invalid format
	ErrInvalidFormat ErrorCode = "INVALID_FORMAT"

	// ErrNotFound is returned when a resource is not found
	ErrNotFound ErrorCode = "NOT_FOUND"
	// ErrDocumentNotFound is returned when a document is not found
	ErrDocumentNotFound ErrorCode = "DOCUMENT_NOT_FOUND"
	// ErrNotConfigured is returned when the remote store is not configured
	ErrNotConfigured ErrorCode = "NOT_CONFIGURED"

	// ErrConflict is returned when a conditional write loses to a concurrent writer
	ErrConflict ErrorCode = "CONFLICT"
	// ErrStoreUnavailable is returned when the remote store fails or is unreachable
	ErrStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"

	// ErrInternal is returned when an unexpected server error occurs
	ErrInternal ErrorCode = "INTERNAL_ERROR"
	// ErrUnauthorized is returned when authentication is missing or invalid
	ErrUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrForbidden is returned when a user has insufficient permissions
	ErrForbidden ErrorCode = "FORBIDDEN"
	// ErrPayloadTooLarge is returned when an upload exceeds the size limit
	ErrPayloadTooLarge ErrorCode = "PAYLOAD_TOO_LARGE"
)

// ErrorWithStatus is an error that includes an HTTP status code and error code.
type ErrorWithStatus interface {
	Error() string
	StatusCode() int
	Code() ErrorCode
	Details() map[string]any
}

// APIError is a concrete error type with status code, code, and optional details.
type APIError struct {
	statusCode int
	code       ErrorCode
	message    string
	details    map[string]any
	wrappedErr error
}

// NewAPIError creates a new APIError with the given status code and message.
func NewAPIError(statusCode int, code ErrorCode, message string) *APIError {
	return &APIError{
		statusCode: statusCode,
		code:       code,
		message:    message,
		details:    make(map[string]any),
	}
}

// WithDetail adds a single detail to the error.
func (e *APIError) WithDetail(key string, value any) *APIError {
	if e.details == nil {
		e.details = make(map[string]any)
	}
	e.details[key] = value
	return e
}

// Wrap wraps an underlying error.
func (e *APIError) Wrap(err error) *APIError {
	e.wrappedErr = err
	return e
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.wrappedErr != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrappedErr)
	}
	return e.message
}

// StatusCode returns the HTTP status code.
func (e *APIError) StatusCode() int {
	return e.statusCode
}

// Code returns the error code.
func (e *APIError) Code() ErrorCode {
	return e.code
}

// Details returns additional error details.
func (e *APIError) Details() map[string]any {
	return e.details
}

// Unwrap returns the wrapped error if any.
func (e *APIError) Unwrap() error {
	return e.wrappedErr
}

// Predefined error constructors for common cases

// NotFound creates a 404 Not Found error.
func NotFound(resource string) *APIError {
	return NewAPIError(http.StatusNotFound, ErrNotFound, fmt.Sprintf("%s not found", resource))
}

// BadRequest creates a 400 Bad Request error.
func BadRequest(message string) *APIError {
	return NewAPIError(http.StatusBadRequest, ErrValidationFailed, message)
}

// MissingField creates a 400 Bad Request error for a missing field.
func MissingField(fieldName string) *APIError {
	return NewAPIError(http.StatusBadRequest, ErrMissingField, fmt.Sprintf("Missing required field: %s", fieldName))
}

// Unauthorized returns a 401 Unauthorized error.
func Unauthorized() *APIError {
	return NewAPIError(http.StatusUnauthorized, ErrUnauthorized, "Unauthorized")
}

// Internal returns a 500 Internal Server Error.
func Internal(message string) *APIError {
	return NewAPIError(http.StatusInternalServerError, ErrInternal, message)
}

// InternalWithError creates a 500 error wrapping an underlying error.
func InternalWithError(message string, err error) *APIError {
	return Internal(message).Wrap(err)
}

// Conflict creates a 409 error for a conditional write that lost the race.
// The caller decides whether to surface a retry or drop the operation; the
// store layer never retries on its own.
func Conflict(path string) *APIError {
	return NewAPIError(http.StatusConflict, ErrConflict, fmt.Sprintf("concurrent update to %s", path))
}

// StoreUnavailable creates a 500 error for a remote store failure.
func StoreUnavailable(message string) *APIError {
	return NewAPIError(http.StatusInternalServerError, ErrStoreUnavailable, message)
}

// StoreUnavailableWithError creates a store failure error wrapping a transport error.
func StoreUnavailableWithError(message string, err error) *APIError {
	return StoreUnavailable(message).Wrap(err)
}

// NotConfigured creates a 404 error for operations requiring store configuration.
func NotConfigured() *APIError {
	return NewAPIError(http.StatusNotFound, ErrNotConfigured, "remote store is not configured")
}

// PayloadTooLarge creates a 413 error for oversized uploads.
func PayloadTooLarge(limit int64) *APIError {
	return NewAPIError(http.StatusRequestEntityTooLarge, ErrPayloadTooLarge, "payload too large").WithDetail("limit_bytes", limit)
}
