package errors

import (
	"errors"
	"fmt"
	"net/http"
)

type AppError struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code string, message string, status int, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

func NotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found", resource),
		Status:  http.StatusNotFound,
		Err:     err,
	}
}

func BadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    "BAD_REQUEST",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     err,
	}
}

func Unauthorized(message string, err error) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     err,
	}
}

func Forbidden(message string, err error) *AppError {
	return &AppError{
		Code:    "FORBIDDEN",
		Message: message,
		Status:  http.StatusForbidden,
		Err:     err,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: message,
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// InvalidIdentity marks a precondition failure on a participant or property
// identifier. It signals a caller bug and must never be retried or swallowed.
func InvalidIdentity(message string) *AppError {
	return &AppError{
		Code:    "INVALID_IDENTITY",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     nil,
	}
}

// IndexRequired is raised when the store rejects a query for lack of a
// backing composite index. Not retryable until an operator provisions the
// index, so the message must carry the collection and fields involved.
func IndexRequired(detail string, err error) *AppError {
	return &AppError{
		Code:    "INDEX_REQUIRED",
		Message: detail,
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// Transient covers network loss and backend unavailability. Callers may
// retry with backoff.
func Transient(message string, err error) *AppError {
	return &AppError{
		Code:    "TRANSIENT",
		Message: message,
		Status:  http.StatusServiceUnavailable,
		Err:     err,
	}
}

// NotAvailable is returned for mutating operations once the availability
// guard has tripped. Read paths degrade to empty results instead.
func NotAvailable() *AppError {
	return &AppError{
		Code:    "NOT_AVAILABLE",
		Message: "realtime chat backend is not available",
		Status:  http.StatusServiceUnavailable,
		Err:     nil,
	}
}

func TooManyRequests(message string, waitTime interface{}) *AppError {
	return &AppError{
		Code:    "TOO_MANY_REQUESTS",
		Message: message,
		Status:  http.StatusTooManyRequests,
		Err:     nil,
	}
}

func Is(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
