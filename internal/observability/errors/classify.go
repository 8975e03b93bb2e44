// Package errors turns errors into low-cardinality class names for metric tags.
package errors

import (
	goerrors "errors"
	"reflect"
	"strings"

	domainauth "github.com/target/noticeboard/internal/domain/auth"
	apperrors "github.com/target/noticeboard/internal/errors"
)

var sentinelClasses = []struct {
	err   error
	class string
}{
	{domainauth.ErrTokenReplayDetected, "token_replay"},
	{domainauth.ErrTokenExpired, "token_expired"},
	{domainauth.ErrTokenSeriesUnknown, "token_unknown"},
	{domainauth.ErrAuthenticationFailed, "bad_credentials"},
	{domainauth.ErrSessionExpired, "session_expired"},
	{domainauth.ErrAccessDenied, "access_denied"},
}

// Classify returns a normalized error class suitable for tagging metrics/logs.
// Known auth sentinels and AppError codes map to fixed names; anything else is
// named after the innermost concrete error type.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	for _, s := range sentinelClasses {
		if goerrors.Is(err, s.err) {
			return s.class
		}
	}
	if code := apperrors.GetCode(err); code != "" {
		return "db_" + string(code)
	}
	if goerrors.Is(err, domainauth.ErrStoreUnavailable) {
		return "store_unavailable"
	}

	for {
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			break
		}
		err = unwrapped
	}

	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}
	name := strings.ReplaceAll(strings.ToLower(t.String()), ".", "_")
	if name == "" {
		return "unknown"
	}
	return name
}
