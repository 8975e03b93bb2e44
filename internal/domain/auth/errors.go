package auth

import "errors"

// Authentication and authorization failures. Everything except
// ErrStoreUnavailable is handled inside the request pipeline and turned into a
// redirect or a denial page.
var (
	// ErrAuthenticationFailed covers both unknown users and bad credentials.
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrSessionExpired       = errors.New("session expired")
	ErrTokenExpired         = errors.New("remember-me token expired")
	ErrTokenSeriesUnknown   = errors.New("remember-me series unknown")
	// ErrTokenReplayDetected means a stale token value was presented; the whole series is revoked.
	ErrTokenReplayDetected = errors.New("remember-me token replay detected")
	ErrAccessDenied        = errors.New("access denied")
	// ErrStoreUnavailable wraps credential/session store I/O failures. It is fatal for the request.
	ErrStoreUnavailable = errors.New("credential store unavailable")
)

// IsRememberMeRejection reports whether err is one of the remember-me
// failures that should fall through to an interactive login.
func IsRememberMeRejection(err error) bool {
	return errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenSeriesUnknown) ||
		errors.Is(err, ErrTokenReplayDetected)
}
