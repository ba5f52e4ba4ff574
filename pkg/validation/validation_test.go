package validation

import (
	"errors"
	"strings"
	"testing"

	"shoplive/internal/core/domain"
)

type commentPayload struct {
	HostID string `json:"hostId" validate:"required,userid"`
	UserID string `json:"userId" validate:"required,userid"`
	Text   string `json:"text" validate:"notblank,max=500"`
}

func TestValidator_Struct(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		in      commentPayload
		wantErr string
	}{
		{"valid", commentPayload{"host-1", "u_2", "nice"}, ""},
		{"missing host", commentPayload{"", "u_2", "nice"}, "hostId is required"},
		{"bad user id", commentPayload{"host-1", "u 2", "nice"}, "userId is not a valid user id"},
		{"blank text", commentPayload{"host-1", "u_2", "   "}, "text is required"},
		{"long text", commentPayload{"host-1", "u_2", strings.Repeat("x", 501)}, "text is too long (max 500)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.in)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Struct() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Struct() expected error containing %q", tt.wantErr)
			}
			if !errors.Is(err, domain.ErrInvalidPayload) {
				t.Errorf("error should wrap ErrInvalidPayload, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidator_UserID(t *testing.T) {
	v := New()
	for _, ok := range []string{"alice", "user_42", "a.b-c", "auth0:123"} {
		if err := v.UserID(ok); err != nil {
			t.Errorf("UserID(%q) unexpected error %v", ok, err)
		}
	}
	for _, bad := range []string{"", "has space", strings.Repeat("a", 129)} {
		if err := v.UserID(bad); err == nil {
			t.Errorf("UserID(%q) expected error", bad)
		}
	}
}
