package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"shoplive/internal/core/domain"
)

func TestAppError_Error(t *testing.T) {
	err := NewAppError(ErrCodeInvalidPayload, "test error", 400)
	expected := "INVALID_PAYLOAD: test error"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestAppError_WithCause(t *testing.T) {
	originalErr := errors.New("original error")
	err := WrapError(originalErr, ErrCodeInternal, "wrapped error", 500)

	if err.Cause != originalErr {
		t.Errorf("Cause = %v, want %v", err.Cause, originalErr)
	}
	if !strings.Contains(err.Error(), "original error") {
		t.Errorf("Error() should contain cause, got: %v", err.Error())
	}
	if !errors.Is(err, originalErr) {
		t.Error("errors.Is should see the cause")
	}
}

func TestAppError_WithContext(t *testing.T) {
	err := NewAppError(ErrCodeInvalidPayload, "test error", 400)
	err.WithContext("field", "value").WithContext("count", 42)

	if err.Context["field"] != "value" {
		t.Errorf("Context[field] = %v, want 'value'", err.Context["field"])
	}
	if err.Context["count"] != 42 {
		t.Errorf("Context[count] = %v, want 42", err.Context["count"])
	}
}

func TestGetAppError(t *testing.T) {
	appErr := NewAppError(ErrCodeInvalidPayload, "test", 400)

	if GetAppError(appErr) != appErr {
		t.Error("GetAppError() should return the AppError itself")
	}
	if GetAppError(fmt.Errorf("outer: %w", appErr)) != appErr {
		t.Error("GetAppError() should extract an AppError from a wrapped chain")
	}
	if GetAppError(errors.New("regular error")) != nil {
		t.Error("GetAppError() should return nil for regular error")
	}
	if !IsAppError(appErr) || IsAppError(errors.New("x")) {
		t.Error("IsAppError() mismatch")
	}
}

func TestFromDomain(t *testing.T) {
	cases := []struct {
		err    error
		code   ErrorCode
		status int
	}{
		{domain.ErrAlreadyLive, ErrCodeAlreadyLive, http.StatusConflict},
		{fmt.Errorf("join host-1: %w", domain.ErrNotLive), ErrCodeNotLive, http.StatusNotFound},
		{domain.ErrRateLimited, ErrCodeRateLimited, http.StatusTooManyRequests},
		{domain.ErrInvalidContent, ErrCodeInvalidContent, http.StatusBadRequest},
		{domain.ErrInvalidPayload, ErrCodeInvalidPayload, http.StatusBadRequest},
		{domain.ErrIdentityMismatch, ErrCodeForbidden, http.StatusForbidden},
		{domain.ErrStreamNotFound, ErrCodeNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: redis down", domain.ErrStorageFailure), ErrCodeStorageFailure, http.StatusServiceUnavailable},
		{errors.New("boom"), ErrCodeInternal, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(string(tc.code), func(t *testing.T) {
			got := FromDomain(tc.err)
			if got.Code != tc.code {
				t.Errorf("Code = %v, want %v", got.Code, tc.code)
			}
			if got.HTTPStatus != tc.status {
				t.Errorf("HTTPStatus = %v, want %v", got.HTTPStatus, tc.status)
			}
			if !errors.Is(got, tc.err) {
				t.Error("mapped error should wrap the original")
			}
		})
	}

	if FromDomain(nil) != nil {
		t.Error("FromDomain(nil) should be nil")
	}
}

func TestFromDomain_StorageDetailHidden(t *testing.T) {
	got := FromDomain(fmt.Errorf("%w: dial tcp 10.0.0.1:5432", domain.ErrStorageFailure))
	if strings.Contains(got.Message, "10.0.0.1") {
		t.Errorf("storage detail leaked into message: %q", got.Message)
	}
}
