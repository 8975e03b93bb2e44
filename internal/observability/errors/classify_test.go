package errors

import (
	goerrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	domainauth "github.com/target/noticeboard/internal/domain/auth"
	apperrors "github.com/target/noticeboard/internal/errors"
)

type customErr struct{}

func (*customErr) Error() string { return "custom" }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"replay", fmt.Errorf("validate: %w", domainauth.ErrTokenReplayDetected), "token_replay"},
		{"expired", domainauth.ErrTokenExpired, "token_expired"},
		{"bad credentials", domainauth.ErrAuthenticationFailed, "bad_credentials"},
		{"store with db code", fmt.Errorf("%w: %w", domainauth.ErrStoreUnavailable, &apperrors.AppError{Code: apperrors.ErrCodeUnavailable, Message: "down"}), "db_unavailable"},
		{"store plain", fmt.Errorf("%w: %w", domainauth.ErrStoreUnavailable, goerrors.New("x")), "store_unavailable"},
		{"custom type", fmt.Errorf("wrap: %w", &customErr{}), "errors_customerr"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}
