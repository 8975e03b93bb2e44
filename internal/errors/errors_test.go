package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "error without cause",
			err:  &AppError{Code: ErrCodeNotFound, Message: "user not found"},
			want: "user not found",
		},
		{
			name: "error with cause",
			err:  &AppError{Code: ErrCodeUnavailable, Message: "session store", Cause: errors.New("dial tcp: refused")},
			want: "session store: dial tcp: refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("AppError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAppError_UnwrapThroughFmt(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("lookup user: %w", &AppError{Code: ErrCodeUnavailable, Message: "database unavailable", Cause: cause})

	if !errors.Is(err, cause) {
		t.Fatalf("errors.Is should reach the cause")
	}
	if !IsUnavailable(err) {
		t.Fatalf("expected unavailable code through fmt wrapping, got %q", GetCode(err))
	}
}

func TestConflict_KeepsMessageVerbatim(t *testing.T) {
	err := Conflict(`series "100%" already exists`)
	if err.Code != ErrCodeConflict || err.Message != `series "100%" already exists` {
		t.Fatalf("got %q/%q", err.Code, err.Message)
	}
	if !IsConflict(err) {
		t.Fatal("IsConflict should match")
	}
}

func TestCodePredicates(t *testing.T) {
	timeout := &AppError{Code: ErrCodeTimeout, Message: "database request timed out"}
	if !IsTimeout(timeout) || IsUnavailable(timeout) || IsConflict(timeout) {
		t.Fatalf("predicates disagree for %q", timeout.Code)
	}
	if IsTimeout(errors.New("plain")) || IsUnavailable(nil) {
		t.Fatal("non-AppErrors match no code")
	}
}

func TestGetCode_NonAppError(t *testing.T) {
	if GetCode(errors.New("plain")) != "" {
		t.Fatal("plain errors carry no code")
	}
}
