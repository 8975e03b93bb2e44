package ports

// Package ports defines interfaces (hexagonal ports) for auth-related behavior.
// Implementations live in internal/adapters and internal/data; orchestration in internal/service.

import (
	"context"
	"errors"
	"time"

	domainauth "github.com/target/noticeboard/internal/domain/auth"
)

// ErrNotFound is returned by stores when the requested record does not exist.
var ErrNotFound = errors.New("not found")

// UserDirectory resolves a username to a principal. Unknown and disabled
// users yield ErrNotFound; any other error is a store failure.
type UserDirectory interface {
	LookupUser(ctx context.Context, username string) (domainauth.Principal, error)
}

// CredentialVerifier checks a presented secret against a stored hash.
type CredentialVerifier interface {
	Verify(presented, storedHash string) bool
}

// PasswordHasher produces hashes a CredentialVerifier can check.
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// SessionStore persists and retrieves user sessions.
type SessionStore interface {
	Save(ctx context.Context, sess domainauth.Session) error
	Get(ctx context.Context, id string) (domainauth.Session, error)
	Delete(ctx context.Context, id string) error
}

// TokenStore persists remember-me grants.
type TokenStore interface {
	// Create inserts a new grant. A duplicate series is reported as a conflict.
	Create(ctx context.Context, tok domainauth.RememberMeToken) error
	GetBySeries(ctx context.Context, series string) (domainauth.RememberMeToken, error)
	// Rotate replaces the token value only if the stored value still equals
	// expected. It reports false when another request rotated first.
	Rotate(ctx context.Context, series, expected, next string, usedAt time.Time) (bool, error)
	Delete(ctx context.Context, series string) error
	DeleteForUser(ctx context.Context, username string) (int64, error)
	// DeleteExpired removes up to batch grants last used before cutoff.
	DeleteExpired(ctx context.Context, before time.Time, batch int) (int64, error)
}
