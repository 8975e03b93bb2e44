package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	domainauth "github.com/target/noticeboard/internal/domain/auth"
	apperrors "github.com/target/noticeboard/internal/errors"
	"github.com/target/noticeboard/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.SessionStore  = (*MemorySessionStore)(nil)
	_ ports.TokenStore    = (*MemoryTokenStore)(nil)
	_ ports.UserDirectory = (*StaticUserDirectory)(nil)
)

// ErrNotFound is returned by the doubles when an entity is not present.
var ErrNotFound = ports.ErrNotFound

// MemorySessionStore is an in-memory session store for unit tests.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]domainauth.Session
	// Err, when set, is returned from every call.
	Err error
}

// NewMemorySessionStore creates a new in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]domainauth.Session)}
}

func (m *MemorySessionStore) Save(_ context.Context, sess domainauth.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	m.sessions[sess.ID] = sess
	return nil
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (domainauth.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return domainauth.Session{}, m.Err
	}
	sess, ok := m.sessions[id]
	if !ok || id == "" {
		return domainauth.Session{}, ErrNotFound
	}
	return sess, nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	delete(m.sessions, id)
	return nil
}

// Len returns the number of stored sessions.
func (m *MemorySessionStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// ForUser returns the stored sessions belonging to username.
func (m *MemorySessionStore) ForUser(username string) []domainauth.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domainauth.Session
	for _, s := range m.sessions {
		if s.Username == username {
			out = append(out, s)
		}
	}
	return out
}

// MemoryTokenStore is an in-memory remember-me token store. Rotate is a
// compare-and-swap under a mutex, matching the SQL conditional update.
type MemoryTokenStore struct {
	mu     sync.Mutex
	tokens map[string]domainauth.RememberMeToken
	// Err, when set, is returned from every call.
	Err error
}

// NewMemoryTokenStore creates an empty token store.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{tokens: make(map[string]domainauth.RememberMeToken)}
}

func (m *MemoryTokenStore) Create(_ context.Context, tok domainauth.RememberMeToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if _, exists := m.tokens[tok.Series]; exists {
		return apperrors.Conflict(fmt.Sprintf("series %q already exists", tok.Series))
	}
	m.tokens[tok.Series] = tok
	return nil
}

func (m *MemoryTokenStore) GetBySeries(_ context.Context, series string) (domainauth.RememberMeToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return domainauth.RememberMeToken{}, m.Err
	}
	tok, ok := m.tokens[series]
	if !ok {
		return domainauth.RememberMeToken{}, ErrNotFound
	}
	return tok, nil
}

func (m *MemoryTokenStore) Rotate(_ context.Context, series, expected, next string, usedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	tok, ok := m.tokens[series]
	if !ok || tok.Token != expected {
		return false, nil
	}
	tok.Token = next
	tok.LastUsed = usedAt
	m.tokens[series] = tok
	return true, nil
}

func (m *MemoryTokenStore) Delete(_ context.Context, series string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	delete(m.tokens, series)
	return nil
}

func (m *MemoryTokenStore) DeleteForUser(_ context.Context, username string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	var n int64
	for series, tok := range m.tokens {
		if tok.Username == username {
			delete(m.tokens, series)
			n++
		}
	}
	return n, nil
}

func (m *MemoryTokenStore) DeleteExpired(_ context.Context, before time.Time, batch int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	var n int64
	for series, tok := range m.tokens {
		if batch > 0 && n >= int64(batch) {
			break
		}
		if tok.LastUsed.Before(before) {
			delete(m.tokens, series)
			n++
		}
	}
	return n, nil
}

// Put stores a grant directly, bypassing conflict checks.
func (m *MemoryTokenStore) Put(tok domainauth.RememberMeToken) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[tok.Series] = tok
}

// Snapshot returns the stored grant for series, if any.
func (m *MemoryTokenStore) Snapshot(series string) (domainauth.RememberMeToken, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tok, ok := m.tokens[series]
	return tok, ok
}

// Len returns the number of stored grants.
func (m *MemoryTokenStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tokens)
}

// StaticUserDirectory serves principals from a fixed map.
type StaticUserDirectory struct {
	mu    sync.RWMutex
	users map[string]domainauth.Principal
	// Err, when set, is returned from every lookup.
	Err error
}

// NewStaticUserDirectory builds a directory from the given principals.
func NewStaticUserDirectory(users ...domainauth.Principal) *StaticUserDirectory {
	d := &StaticUserDirectory{users: make(map[string]domainauth.Principal, len(users))}
	for _, u := range users {
		d.users[u.Username] = u
	}
	return d
}

func (d *StaticUserDirectory) LookupUser(_ context.Context, username string) (domainauth.Principal, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.Err != nil {
		return domainauth.Principal{}, d.Err
	}
	p, ok := d.users[username]
	if !ok {
		return domainauth.Principal{}, ErrNotFound
	}
	return p, nil
}

// Remove drops a user, simulating deletion or disablement.
func (d *StaticUserDirectory) Remove(username string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.users, username)
}
