package auth

// Package auth contains domain-level types for authentication, sessions and
// access rules. It is pure and free of framework/adapter concerns.

import (
	"slices"
	"strings"
	"time"
)

// Role represents an authorization role tag carried by a principal.
// Roles are stored upper-case without the legacy "ROLE_" prefix.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

const legacyRolePrefix = "ROLE_"

// NormalizeRole trims, upper-cases and strips a legacy "ROLE_" prefix.
func NormalizeRole(raw string) Role {
	r := strings.ToUpper(strings.TrimSpace(raw))
	r = strings.TrimPrefix(r, legacyRolePrefix)
	return Role(r)
}

// NormalizeRoles normalizes and de-duplicates a list of raw role tags, dropping empties.
func NormalizeRoles(raw []string) []Role {
	out := make([]Role, 0, len(raw))
	for _, r := range raw {
		role := NormalizeRole(r)
		if role == "" || slices.Contains(out, role) {
			continue
		}
		out = append(out, role)
	}
	return out
}

// Principal is the authenticated identity resolved from the user directory.
// CredentialHash is an opaque verification handle and must never be persisted
// outside the credential store.
type Principal struct {
	Username       string
	Roles          []Role
	CredentialHash string
}

// HasRole reports whether the principal carries the given role.
func (p Principal) HasRole(role Role) bool {
	return slices.Contains(p.Roles, NormalizeRole(string(role)))
}

// AuthMethod records how a session was established.
type AuthMethod string

const (
	AuthMethodForm       AuthMethod = "form"
	AuthMethodRememberMe AuthMethod = "remember-me"
)

// Session is the server-side record we persist for an authenticated user.
// ID is an opaque session identifier.
type Session struct {
	ID         string     `json:"id"`
	Username   string     `json:"username"`
	Roles      []Role     `json:"roles"`
	AuthMethod AuthMethod `json:"auth_method"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
}

// Principal returns the session's principal. The credential hash is never
// part of a session.
func (s Session) Principal() Principal {
	return Principal{Username: s.Username, Roles: slices.Clone(s.Roles)}
}

// Expired reports whether the session is past its expiry at the given instant.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// RememberMeToken is a persisted remember-me grant. Series is stable for the
// lifetime of the grant; Token is rotated on every successful use.
type RememberMeToken struct {
	Series   string    `db:"series"`
	Token    string    `db:"token"`
	Username string    `db:"username"`
	LastUsed time.Time `db:"last_used"`
}

// ExpiredAt reports whether the token is older than validity at the given instant.
func (t RememberMeToken) ExpiredAt(now time.Time, validity time.Duration) bool {
	return t.LastUsed.Add(validity).Before(now)
}
