package httpx

import (
	"context"

	domainauth "github.com/target/noticeboard/internal/domain/auth"
)

// Unexported context key types to avoid collisions across packages.
type (
	sessionKey   struct{}
	principalKey struct{}
)

// SetSessionInContext returns a child context that carries the given session.
// If session is nil, the original ctx is returned unchanged.
func SetSessionInContext(ctx context.Context, session *domainauth.Session) context.Context {
	if session == nil {
		return ctx
	}
	return context.WithValue(ctx, sessionKey{}, session)
}

// SessionFromContext returns the session bound by the auth gate, if any.
func SessionFromContext(ctx context.Context) (*domainauth.Session, bool) {
	if session, ok := ctx.Value(sessionKey{}).(*domainauth.Session); ok && session != nil {
		return session, true
	}
	return nil, false
}

// WithPrincipal returns a child context carrying p.
func WithPrincipal(ctx context.Context, p domainauth.Principal) context.Context {
	p.CredentialHash = ""
	return context.WithValue(ctx, principalKey{}, &p)
}

// PrincipalFromContext returns the authenticated principal for the request.
// Public paths never carry one.
func PrincipalFromContext(ctx context.Context) (*domainauth.Principal, bool) {
	if p, ok := ctx.Value(principalKey{}).(*domainauth.Principal); ok && p != nil {
		return p, true
	}
	return nil, false
}
