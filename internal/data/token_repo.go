package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/target/noticeboard/internal/data/pgxutil"
	domainauth "github.com/target/noticeboard/internal/domain/auth"
	apperrors "github.com/target/noticeboard/internal/errors"
	"github.com/target/noticeboard/internal/ports"
)

// Advisory lock keys for the token reaper, so concurrent instances do not
// purge the same rows.
const (
	advisoryLockTokenReaperMajor = 2000
	advisoryLockTokenReaperPurge = 1
)

// TokenRepo persists remember-me grants in persistent_logins.
type TokenRepo struct {
	DB *sql.DB
}

var _ ports.TokenStore = (*TokenRepo)(nil)

// NewTokenRepo creates a new TokenRepo.
func NewTokenRepo(db *sql.DB) *TokenRepo {
	return &TokenRepo{DB: db}
}

// Create inserts a new grant. A duplicate series maps to a conflict error.
func (r *TokenRepo) Create(ctx context.Context, tok domainauth.RememberMeToken) error {
	if tok.Series == "" {
		return ErrSeriesRequired
	}
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO persistent_logins (series, username, token, last_used) VALUES ($1, $2, $3, $4)`,
		tok.Series, tok.Username, tok.Token, tok.LastUsed.UTC())
	if err != nil {
		return fmt.Errorf("create remember-me token: %w", apperrors.MapDBError(err))
	}
	return nil
}

// GetBySeries loads a grant by its series identifier.
func (r *TokenRepo) GetBySeries(ctx context.Context, series string) (domainauth.RememberMeToken, error) {
	if series == "" {
		return domainauth.RememberMeToken{}, ports.ErrNotFound
	}
	tok, err := pgxutil.QueryOne[domainauth.RememberMeToken](ctx, r.DB,
		`SELECT series, token, username, last_used FROM persistent_logins WHERE series = $1`, series)
	if errors.Is(err, pgx.ErrNoRows) {
		return domainauth.RememberMeToken{}, ports.ErrNotFound
	}
	if err != nil {
		return domainauth.RememberMeToken{}, fmt.Errorf("get remember-me token: %w", apperrors.MapDBError(err))
	}
	return tok, nil
}

// Rotate swaps the token value only if it still equals expected. Exactly one
// of several concurrent callers presenting the same value gets true.
func (r *TokenRepo) Rotate(ctx context.Context, series, expected, next string, usedAt time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE persistent_logins SET token = $3, last_used = $4 WHERE series = $1 AND token = $2`,
		series, expected, next, usedAt.UTC())
	if err != nil {
		return false, fmt.Errorf("rotate remember-me token: %w", apperrors.MapDBError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rotate remember-me token: rows affected: %w", err)
	}
	return n == 1, nil
}

// Delete removes a single series. Deleting an unknown series is not an error.
func (r *TokenRepo) Delete(ctx context.Context, series string) error {
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM persistent_logins WHERE series = $1`, series); err != nil {
		return fmt.Errorf("delete remember-me token: %w", apperrors.MapDBError(err))
	}
	return nil
}

// DeleteForUser removes every grant held by username.
func (r *TokenRepo) DeleteForUser(ctx context.Context, username string) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM persistent_logins WHERE username = $1`, username)
	if err != nil {
		return 0, fmt.Errorf("delete remember-me tokens for user: %w", apperrors.MapDBError(err))
	}
	return res.RowsAffected()
}

// DeleteExpired removes up to batch grants last used before the cutoff. It
// returns 0 without touching rows when another instance holds the purge lock.
func (r *TokenRepo) DeleteExpired(ctx context.Context, before time.Time, batch int) (int64, error) {
	var deleted int64
	err := pgxutil.InTx(ctx, r.DB, func(tx *sql.Tx) error {
		var locked bool
		if err := tx.QueryRowContext(ctx, "SELECT pg_try_advisory_xact_lock($1, $2)",
			advisoryLockTokenReaperMajor, advisoryLockTokenReaperPurge).Scan(&locked); err != nil {
			return fmt.Errorf("acquire advisory lock: %w", err)
		}
		if !locked {
			return nil
		}
		res, err := tx.ExecContext(ctx, `
			DELETE FROM persistent_logins
			WHERE series IN (
				SELECT series FROM persistent_logins
				WHERE last_used < $1
				ORDER BY last_used
				LIMIT $2
			)`, before.UTC(), batch)
		if err != nil {
			return fmt.Errorf("delete expired remember-me tokens: %w", err)
		}
		deleted, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, apperrors.MapDBError(err)
	}
	return deleted, nil
}
