package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/target/noticeboard/internal/data/pgxutil"
	domainauth "github.com/target/noticeboard/internal/domain/auth"
	apperrors "github.com/target/noticeboard/internal/errors"
	"github.com/target/noticeboard/internal/ports"
)

// User is a row of the users table.
type User struct {
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	Roles        []string  `db:"roles"`
	Enabled      bool      `db:"enabled"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// Principal converts the row to a domain principal with normalized roles.
func (u User) Principal() domainauth.Principal {
	return domainauth.Principal{
		Username:       u.Username,
		Roles:          domainauth.NormalizeRoles(u.Roles),
		CredentialHash: u.PasswordHash,
	}
}

// CreateUserRequest holds the fields for a new user.
type CreateUserRequest struct {
	Username     string
	PasswordHash string
	Roles        []domainauth.Role
	// Disabled creates the account in the disabled state.
	Disabled bool
}

// UserRepo is the Postgres-backed user directory.
type UserRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

var _ ports.UserDirectory = (*UserRepo)(nil)

// NewUserRepo creates a new UserRepo. A nil time provider uses the system clock.
func NewUserRepo(db *sql.DB, tp TimeProvider) *UserRepo {
	if tp == nil {
		tp = RealTimeProvider{}
	}
	return &UserRepo{DB: db, timeProvider: tp}
}

const userColumns = `username, password_hash, roles, enabled, created_at, updated_at`

// LookupUser returns the principal for an enabled user. Unknown and disabled
// users both yield ports.ErrNotFound.
func (r *UserRepo) LookupUser(ctx context.Context, username string) (domainauth.Principal, error) {
	u, err := r.Get(ctx, username)
	if err != nil {
		return domainauth.Principal{}, err
	}
	if !u.Enabled {
		return domainauth.Principal{}, ports.ErrNotFound
	}
	return u.Principal(), nil
}

// Get returns the user row regardless of its enabled flag.
func (r *UserRepo) Get(ctx context.Context, username string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ports.ErrNotFound
	}
	u, err := pgxutil.QueryOne[User](ctx, r.DB, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", apperrors.MapDBError(err))
	}
	return &u, nil
}

// List returns all users ordered by username.
func (r *UserRepo) List(ctx context.Context) ([]User, error) {
	out, err := pgxutil.QueryAll[User](ctx, r.DB, `SELECT `+userColumns+` FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", apperrors.MapDBError(err))
	}
	return out, nil
}

// Create inserts a user. A duplicate username is reported as a conflict.
func (r *UserRepo) Create(ctx context.Context, req CreateUserRequest) (*User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, ErrUsernameRequired
	}
	if req.PasswordHash == "" {
		return nil, ErrPasswordHashRequired
	}
	roles := make([]string, 0, len(req.Roles))
	for _, role := range req.Roles {
		if n := domainauth.NormalizeRole(string(role)); n != "" {
			roles = append(roles, string(n))
		}
	}

	now := r.timeProvider.Now().UTC()
	u, err := pgxutil.QueryOne[User](ctx, r.DB, `
		INSERT INTO users (username, password_hash, roles, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING `+userColumns,
		username, req.PasswordHash, roles, !req.Disabled, now)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", apperrors.MapDBError(err))
	}
	return &u, nil
}

// SetPassword replaces a user's password hash.
func (r *UserRepo) SetPassword(ctx context.Context, username, hash string) error {
	if hash == "" {
		return ErrPasswordHashRequired
	}
	return r.update(ctx, "set password",
		`UPDATE users SET password_hash = $2, updated_at = $3 WHERE username = $1`,
		username, hash, r.timeProvider.Now().UTC())
}

// SetEnabled enables or disables a user.
func (r *UserRepo) SetEnabled(ctx context.Context, username string, enabled bool) error {
	return r.update(ctx, "set enabled",
		`UPDATE users SET enabled = $2, updated_at = $3 WHERE username = $1`,
		username, enabled, r.timeProvider.Now().UTC())
}

func (r *UserRepo) update(ctx context.Context, op, query string, username string, args ...any) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return ErrUsernameRequired
	}
	res, err := r.DB.ExecContext(ctx, query, append([]any{username}, args...)...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, apperrors.MapDBError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n == 0 {
		return ports.ErrNotFound
	}
	return nil
}
