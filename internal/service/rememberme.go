package service

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/target/noticeboard/internal/data"
	domainauth "github.com/target/noticeboard/internal/domain/auth"
	apperrors "github.com/target/noticeboard/internal/errors"
	"github.com/target/noticeboard/internal/ports"
)

const (
	// DefaultRememberMeValidity is how long an unused grant stays valid.
	DefaultRememberMeValidity = 24 * time.Hour

	tokenBytes        = 16
	issueMaxAttempts  = 3
	cookieFieldSep    = ":"
	cookieFieldsCount = 3
)

var errMalformedCookie = errors.New("malformed remember-me cookie")

// IssuedToken is a freshly issued or rotated remember-me grant.
type IssuedToken struct {
	Series    string
	Token     string
	ExpiresAt time.Time
	// CookieValue is the signed value for the remember-me cookie.
	CookieValue string
}

// RememberMeServiceOptions groups dependencies for RememberMeService.
type RememberMeServiceOptions struct {
	Tokens       ports.TokenStore    // Required
	Users        ports.UserDirectory // Required
	Key          []byte              // Required: HMAC key for cookie signing
	Validity     time.Duration       // Optional: defaults to DefaultRememberMeValidity
	TimeProvider data.TimeProvider   // Optional
	Logger       *slog.Logger        // Optional
}

// RememberMeService issues, validates, rotates and revokes persistent login
// grants. Every successful validation rotates the token; presenting a value
// that was already rotated away revokes the whole series.
type RememberMeService struct {
	tokens   ports.TokenStore
	users    ports.UserDirectory
	codec    CookieCodec
	validity time.Duration
	clock    data.TimeProvider
	logger   *slog.Logger
}

// NewRememberMeService constructs a RememberMeService.
func NewRememberMeService(opts RememberMeServiceOptions) (*RememberMeService, error) {
	if opts.Tokens == nil {
		return nil, errors.New("TokenStore is required")
	}
	if opts.Users == nil {
		return nil, errors.New("UserDirectory is required")
	}
	if len(opts.Key) == 0 {
		return nil, errors.New("remember-me key is required")
	}
	validity := opts.Validity
	if validity <= 0 {
		validity = DefaultRememberMeValidity
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &RememberMeService{
		tokens:   opts.Tokens,
		users:    opts.Users,
		codec:    NewCookieCodec(opts.Key),
		validity: validity,
		clock:    timeProviderOrDefault(opts.TimeProvider),
		logger:   logger.With("component", "remember_me"),
	}, nil
}

// Validity returns the configured grant lifetime.
func (s *RememberMeService) Validity() time.Duration { return s.validity }

// Issue creates and persists a new grant for p. The row exists before the
// token is returned.
func (s *RememberMeService) Issue(ctx context.Context, p domainauth.Principal) (IssuedToken, error) {
	if p.Username == "" {
		return IssuedToken{}, errors.New("issue remember-me token: username is required")
	}
	now := s.clock.Now()
	var lastErr error
	for range issueMaxAttempts {
		series, err := randomValue()
		if err != nil {
			return IssuedToken{}, err
		}
		token, err := randomValue()
		if err != nil {
			return IssuedToken{}, err
		}
		err = s.tokens.Create(ctx, domainauth.RememberMeToken{
			Series:   series,
			Token:    token,
			Username: p.Username,
			LastUsed: now,
		})
		if err == nil {
			return s.issued(series, token, now), nil
		}
		if !apperrors.IsConflict(err) {
			return IssuedToken{}, storeErr("issue remember-me token", err)
		}
		lastErr = err
	}
	return IssuedToken{}, fmt.Errorf("issue remember-me token: series collision after %d attempts: %w", issueMaxAttempts, lastErr)
}

// Validate checks a presented series/token pair and rotates the token.
//
// Rejections (ErrTokenSeriesUnknown, ErrTokenReplayDetected, ErrTokenExpired)
// are returned as-is; every rejection except an unknown series deletes the
// series. Store failures wrap ErrStoreUnavailable.
func (s *RememberMeService) Validate(ctx context.Context, series, token string) (domainauth.Principal, IssuedToken, error) {
	stored, err := s.tokens.GetBySeries(ctx, series)
	if errors.Is(err, ports.ErrNotFound) {
		return domainauth.Principal{}, IssuedToken{}, domainauth.ErrTokenSeriesUnknown
	}
	if err != nil {
		return domainauth.Principal{}, IssuedToken{}, storeErr("load remember-me token", err)
	}

	if subtle.ConstantTimeCompare([]byte(stored.Token), []byte(token)) != 1 {
		s.logger.WarnContext(ctx, "remember-me token replay detected; revoking series",
			"username", stored.Username, "series", redactSeries(series))
		return s.reject(ctx, series, domainauth.ErrTokenReplayDetected)
	}

	now := s.clock.Now()
	if stored.ExpiredAt(now, s.validity) {
		return s.reject(ctx, series, domainauth.ErrTokenExpired)
	}

	next, err := randomValue()
	if err != nil {
		return domainauth.Principal{}, IssuedToken{}, err
	}
	rotated, err := s.tokens.Rotate(ctx, series, token, next, now)
	if err != nil {
		return domainauth.Principal{}, IssuedToken{}, storeErr("rotate remember-me token", err)
	}
	if !rotated {
		s.logger.WarnContext(ctx, "remember-me token rotated concurrently; revoking series",
			"username", stored.Username, "series", redactSeries(series))
		return s.reject(ctx, series, domainauth.ErrTokenReplayDetected)
	}

	p, err := s.users.LookupUser(ctx, stored.Username)
	if errors.Is(err, ports.ErrNotFound) {
		return s.reject(ctx, series, domainauth.ErrTokenSeriesUnknown)
	}
	if err != nil {
		return domainauth.Principal{}, IssuedToken{}, storeErr("lookup remember-me user", err)
	}
	return p, s.issued(series, next, now), nil
}

// ValidateCookie decodes a signed cookie value and validates it. Tampered or
// malformed values are rejected as an unknown series without store access.
func (s *RememberMeService) ValidateCookie(ctx context.Context, value string) (domainauth.Principal, IssuedToken, error) {
	series, token, err := s.codec.Decode(value)
	if err != nil {
		return domainauth.Principal{}, IssuedToken{}, fmt.Errorf("%w: %w", domainauth.ErrTokenSeriesUnknown, err)
	}
	return s.Validate(ctx, series, token)
}

// Revoke deletes a single series.
func (s *RememberMeService) Revoke(ctx context.Context, series string) error {
	if series == "" {
		return nil
	}
	if err := s.tokens.Delete(ctx, series); err != nil {
		return storeErr("revoke remember-me token", err)
	}
	return nil
}

// RevokeCookie revokes the series named by a signed cookie value. Invalid
// values are ignored.
func (s *RememberMeService) RevokeCookie(ctx context.Context, value string) error {
	series, _, err := s.codec.Decode(value)
	if err != nil {
		return nil
	}
	return s.Revoke(ctx, series)
}

// RevokeAll deletes every grant for username.
func (s *RememberMeService) RevokeAll(ctx context.Context, username string) (int64, error) {
	n, err := s.tokens.DeleteForUser(ctx, username)
	if err != nil {
		return 0, storeErr("revoke remember-me tokens", err)
	}
	return n, nil
}

func (s *RememberMeService) reject(ctx context.Context, series string, reason error) (domainauth.Principal, IssuedToken, error) {
	if err := s.tokens.Delete(ctx, series); err != nil {
		return domainauth.Principal{}, IssuedToken{}, errors.Join(reason, storeErr("revoke remember-me series", err))
	}
	return domainauth.Principal{}, IssuedToken{}, reason
}

func (s *RememberMeService) issued(series, token string, usedAt time.Time) IssuedToken {
	return IssuedToken{
		Series:      series,
		Token:       token,
		ExpiresAt:   usedAt.Add(s.validity),
		CookieValue: s.codec.Encode(series, token),
	}
}

func randomValue() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate random token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func redactSeries(series string) string {
	if len(series) <= 6 {
		return "***"
	}
	return series[:6] + "..."
}

// CookieCodec signs and verifies remember-me cookie values of the form
// base64url(series ":" token ":" hmac).
type CookieCodec struct {
	key []byte
}

// NewCookieCodec creates a codec keyed by key.
func NewCookieCodec(key []byte) CookieCodec {
	return CookieCodec{key: append([]byte(nil), key...)}
}

// Encode returns the signed cookie value.
func (c CookieCodec) Encode(series, token string) string {
	payload := series + cookieFieldSep + token
	raw := payload + cookieFieldSep + c.sign(payload)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// Decode verifies and splits a cookie value.
func (c CookieCodec) Decode(value string) (series, token string, err error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(value))
	if err != nil {
		return "", "", errMalformedCookie
	}
	parts := strings.Split(string(raw), cookieFieldSep)
	if len(parts) != cookieFieldsCount || parts[0] == "" || parts[1] == "" {
		return "", "", errMalformedCookie
	}
	want := c.sign(parts[0] + cookieFieldSep + parts[1])
	if !hmac.Equal([]byte(want), []byte(parts[2])) {
		return "", "", errors.New("remember-me cookie signature mismatch")
	}
	return parts[0], parts[1], nil
}

func (c CookieCodec) sign(payload string) string {
	mac := hmac.New(sha256.New, c.key)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
