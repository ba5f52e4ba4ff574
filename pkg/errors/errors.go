package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"shoplive/internal/core/domain"
)

// ErrorCode is the machine-readable code carried by outbound error events and
// HTTP error bodies.
type ErrorCode string

const (
	ErrCodeInvalidPayload ErrorCode = "INVALID_PAYLOAD"
	ErrCodeInvalidContent ErrorCode = "INVALID_CONTENT"
	ErrCodeAlreadyLive    ErrorCode = "ALREADY_LIVE"
	ErrCodeNotLive        ErrorCode = "NOT_LIVE"
	ErrCodeRateLimited    ErrorCode = "RATE_LIMITED"
	ErrCodeUnauthorized   ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden      ErrorCode = "FORBIDDEN"
	ErrCodeNotFound       ErrorCode = "NOT_FOUND"
	ErrCodeStorageFailure ErrorCode = "STORAGE_FAILURE"
	ErrCodeInternal       ErrorCode = "INTERNAL_ERROR"
)

// AppError represents an application error with code and context
type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
	Context    map[string]interface{}
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func NewAppError(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Context:    make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with application error
func WrapError(err error, code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Cause:      err,
		Context:    make(map[string]interface{}),
	}
}

func NewInvalidPayloadError(message string) *AppError {
	return NewAppError(ErrCodeInvalidPayload, message, http.StatusBadRequest)
}

func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrCodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

func NewUnauthorizedError(message string) *AppError {
	return NewAppError(ErrCodeUnauthorized, message, http.StatusUnauthorized)
}

func NewForbiddenError(message string) *AppError {
	return NewAppError(ErrCodeForbidden, message, http.StatusForbidden)
}

func NewRateLimitError() *AppError {
	return NewAppError(ErrCodeRateLimited, "rate limit exceeded", http.StatusTooManyRequests)
}

func NewInternalError(message string) *AppError {
	return NewAppError(ErrCodeInternal, message, http.StatusInternalServerError)
}

// IsAppError checks if error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetAppError extracts AppError from error chain
func GetAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return nil
}

var domainMapping = []struct {
	sentinel error
	code     ErrorCode
	status   int
	message  string
}{
	{domain.ErrInvalidPayload, ErrCodeInvalidPayload, http.StatusBadRequest, "invalid payload"},
	{domain.ErrInvalidContent, ErrCodeInvalidContent, http.StatusBadRequest, "message needs a body or a media reference"},
	{domain.ErrAlreadyLive, ErrCodeAlreadyLive, http.StatusConflict, "stream is already live"},
	{domain.ErrNotLive, ErrCodeNotLive, http.StatusNotFound, "stream is not live"},
	{domain.ErrRateLimited, ErrCodeRateLimited, http.StatusTooManyRequests, "slow down"},
	{domain.ErrIdentityMismatch, ErrCodeForbidden, http.StatusForbidden, "identity does not match this connection"},
	{domain.ErrStreamNotFound, ErrCodeNotFound, http.StatusNotFound, "stream not found"},
	{domain.ErrStorageFailure, ErrCodeStorageFailure, http.StatusServiceUnavailable, "storage unavailable"},
}

// FromDomain maps an error from the core into an AppError. AppErrors pass
// through unchanged; anything unrecognised becomes INTERNAL_ERROR.
func FromDomain(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr := GetAppError(err); appErr != nil {
		return appErr
	}
	for _, m := range domainMapping {
		if stderrors.Is(err, m.sentinel) {
			msg := m.message
			// Validation detail is useful to the client; storage detail is not.
			if m.code == ErrCodeInvalidPayload || m.code == ErrCodeInvalidContent {
				msg = err.Error()
			}
			return WrapError(err, m.code, msg, m.status)
		}
	}
	return WrapError(err, ErrCodeInternal, "internal error", http.StatusInternalServerError)
}
