package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/target/noticeboard/internal/data"
	domainauth "github.com/target/noticeboard/internal/domain/auth"
	"github.com/target/noticeboard/internal/observability/metrics"
	"github.com/target/noticeboard/internal/observability/statsd"
	"github.com/target/noticeboard/internal/ports"
)

// DefaultSessionTTL is the absolute session lifetime when none is configured.
const DefaultSessionTTL = 30 * time.Minute

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Users    ports.UserDirectory      // Required
	Verifier ports.CredentialVerifier // Required
	Sessions ports.SessionStore       // Required
	// RememberMe enables persistent logins when set.
	RememberMe *RememberMeService
	SessionTTL time.Duration
	// DummyHash is verified against for unknown users so the response time
	// does not reveal whether a username exists.
	DummyHash    string
	TimeProvider data.TimeProvider
	Logger       *slog.Logger
	Metrics      statsd.Sink
}

// AuthService orchestrates credential checks, session persistence and
// remember-me re-authentication.
type AuthService struct {
	users      ports.UserDirectory
	verifier   ports.CredentialVerifier
	sessions   ports.SessionStore
	rememberMe *RememberMeService
	sessionTTL time.Duration
	dummyHash  string
	clock      data.TimeProvider
	logger     *slog.Logger
	metrics    statsd.Sink
}

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) (*AuthService, error) {
	switch {
	case opts.Users == nil:
		return nil, errors.New("UserDirectory is required")
	case opts.Verifier == nil:
		return nil, errors.New("CredentialVerifier is required")
	case opts.Sessions == nil:
		return nil, errors.New("SessionStore is required")
	}
	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		users:      opts.Users,
		verifier:   opts.Verifier,
		sessions:   opts.Sessions,
		rememberMe: opts.RememberMe,
		sessionTTL: ttl,
		dummyHash:  opts.DummyHash,
		clock:      timeProviderOrDefault(opts.TimeProvider),
		logger:     logger.With("component", "auth_service"),
		metrics:    opts.Metrics,
	}, nil
}

// LoginInput carries a form login attempt.
type LoginInput struct {
	Username   string
	Password   string
	RememberMe bool
	// PreviousSessionID is destroyed on success so a pre-login session ID
	// can never become authenticated.
	PreviousSessionID string
}

// LoginResult is the outcome of a successful authentication.
type LoginResult struct {
	Session   domainauth.Session
	Principal domainauth.Principal
	// RememberMe is set when a grant was issued or rotated.
	RememberMe *IssuedToken
}

// Login verifies credentials and creates a session. Unknown users, disabled
// users and wrong passwords all return ErrAuthenticationFailed.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	p, err := s.authenticate(ctx, in.Username, in.Password)
	if err != nil {
		result := metrics.ResultFailure
		if errors.Is(err, domainauth.ErrStoreUnavailable) {
			result = metrics.ResultError
		}
		metrics.EmitAuth(s.metrics, metrics.AuthEvent{
			Name: metrics.MetricLogin, Result: result, Method: string(domainauth.AuthMethodForm), Err: err,
		})
		return nil, err
	}

	if in.PreviousSessionID != "" {
		if delErr := s.sessions.Delete(ctx, in.PreviousSessionID); delErr != nil {
			return nil, storeErr("delete previous session", delErr)
		}
	}

	sess, err := s.newSession(ctx, p, domainauth.AuthMethodForm)
	if err != nil {
		return nil, err
	}
	res := &LoginResult{Session: sess, Principal: p}

	if in.RememberMe && s.rememberMe != nil {
		tok, issueErr := s.rememberMe.Issue(ctx, p)
		if issueErr != nil {
			// The login stands; the user just is not remembered.
			s.logger.ErrorContext(ctx, "remember-me issuance failed", "username", p.Username, "error", issueErr)
		} else {
			res.RememberMe = &tok
		}
	}

	metrics.EmitAuth(s.metrics, metrics.AuthEvent{
		Name: metrics.MetricLogin, Result: metrics.ResultSuccess, Method: string(domainauth.AuthMethodForm),
	})
	return res, nil
}

func (s *AuthService) authenticate(ctx context.Context, username, password string) (domainauth.Principal, error) {
	if username == "" {
		s.verifier.Verify(password, s.dummyHash)
		return domainauth.Principal{}, domainauth.ErrAuthenticationFailed
	}
	p, err := s.users.LookupUser(ctx, username)
	if errors.Is(err, ports.ErrNotFound) {
		s.verifier.Verify(password, s.dummyHash)
		return domainauth.Principal{}, domainauth.ErrAuthenticationFailed
	}
	if err != nil {
		return domainauth.Principal{}, storeErr("lookup user", err)
	}
	if !s.verifier.Verify(password, p.CredentialHash) {
		return domainauth.Principal{}, domainauth.ErrAuthenticationFailed
	}
	return p, nil
}

// AutoLogin re-authenticates from a remember-me cookie value, creating a new
// session and rotating the grant. Rejections are remember-me sentinels.
func (s *AuthService) AutoLogin(ctx context.Context, cookieValue string) (*LoginResult, error) {
	if s.rememberMe == nil {
		return nil, domainauth.ErrTokenSeriesUnknown
	}
	p, tok, err := s.rememberMe.ValidateCookie(ctx, cookieValue)
	if err != nil {
		result := metrics.ResultFailure
		if errors.Is(err, domainauth.ErrStoreUnavailable) {
			result = metrics.ResultError
		}
		metrics.EmitAuth(s.metrics, metrics.AuthEvent{Name: metrics.MetricRememberMe, Result: result, Err: err})
		return nil, err
	}

	sess, err := s.newSession(ctx, p, domainauth.AuthMethodRememberMe)
	if err != nil {
		return nil, err
	}
	metrics.EmitAuth(s.metrics, metrics.AuthEvent{Name: metrics.MetricRememberMe, Result: metrics.ResultSuccess})
	return &LoginResult{Session: sess, Principal: p, RememberMe: &tok}, nil
}

// GetSession returns a live session. Missing and expired sessions yield
// ErrSessionExpired.
func (s *AuthService) GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error) {
	if sessionID == "" {
		return nil, domainauth.ErrSessionExpired
	}
	sess, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, ports.ErrNotFound) {
		return nil, domainauth.ErrSessionExpired
	}
	if err != nil {
		return nil, storeErr("get session", err)
	}
	if sess.Expired(s.clock.Now()) {
		if delErr := s.sessions.Delete(ctx, sessionID); delErr != nil {
			return nil, errors.Join(domainauth.ErrSessionExpired, storeErr("delete expired session", delErr))
		}
		return nil, domainauth.ErrSessionExpired
	}
	return &sess, nil
}

// Logout destroys the session and revokes the presented remember-me series.
// It returns the principal that was signed in, if any. A failed session
// lookup is reported after the delete and revoke have still been attempted.
func (s *AuthService) Logout(ctx context.Context, sessionID, rememberMeCookie string) (*domainauth.Principal, error) {
	var principal *domainauth.Principal
	var lookupErr error
	if sessionID != "" {
		sess, err := s.sessions.Get(ctx, sessionID)
		switch {
		case err == nil:
			p := sess.Principal()
			principal = &p
		case !errors.Is(err, ports.ErrNotFound):
			lookupErr = storeErr("get session", err)
		}
		if err := s.sessions.Delete(ctx, sessionID); err != nil {
			return principal, errors.Join(lookupErr, storeErr("delete session", err))
		}
	}
	if rememberMeCookie != "" && s.rememberMe != nil {
		if err := s.rememberMe.RevokeCookie(ctx, rememberMeCookie); err != nil {
			return principal, errors.Join(lookupErr, err)
		}
	}
	if lookupErr != nil {
		metrics.EmitAuth(s.metrics, metrics.AuthEvent{Name: metrics.MetricLogout, Result: metrics.ResultError, Err: lookupErr})
		return nil, lookupErr
	}
	metrics.EmitAuth(s.metrics, metrics.AuthEvent{Name: metrics.MetricLogout, Result: metrics.ResultSuccess})
	return principal, nil
}

func (s *AuthService) newSession(ctx context.Context, p domainauth.Principal, method domainauth.AuthMethod) (domainauth.Session, error) {
	now := s.clock.Now()
	sess := domainauth.Session{
		ID:         generateSessionID(),
		Username:   p.Username,
		Roles:      p.Roles,
		AuthMethod: method,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.sessionTTL),
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return domainauth.Session{}, storeErr("save session", err)
	}
	return sess, nil
}

// generateSessionID creates a random, URL-safe session ID.
func generateSessionID() string {
	return uuid.NewString()
}

