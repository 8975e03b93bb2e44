package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	domainauth "github.com/target/noticeboard/internal/domain/auth"
	"github.com/target/noticeboard/internal/observability/metrics"
	"github.com/target/noticeboard/internal/observability/statsd"
	"github.com/target/noticeboard/internal/service"
)

// AuthServiceInterface defines the auth operations the gate depends on.
type AuthServiceInterface interface {
	Login(ctx context.Context, in service.LoginInput) (*service.LoginResult, error)
	AutoLogin(ctx context.Context, cookieValue string) (*service.LoginResult, error)
	GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error)
	Logout(ctx context.Context, sessionID, rememberMeCookie string) (*domainauth.Principal, error)
}

var _ AuthServiceInterface = (*service.AuthService)(nil)

// Default entry points.
const (
	DefaultLoginPath       = "/login"
	DefaultLogoutPath      = "/logout"
	DefaultAccessErrorPath = "/accessError"
)

// Login form field names.
const (
	FormUsername    = "username"
	FormPassword    = "password"
	FormRememberMe  = "remember-me"
	FormRedirectURI = "redirect_uri"
)

// GateOptions configures the authentication gate. Nil outcome handlers get
// the package defaults.
type GateOptions struct {
	Auth    AuthServiceInterface // Required
	Rules   *domainauth.RuleSet  // Required
	Cookies CookieConfig

	LoginPath       string
	LogoutPath      string
	AccessErrorPath string

	Success OutcomeHandler
	Failure OutcomeHandler
	Denied  OutcomeHandler
	Logout  OutcomeHandler

	Logger  *slog.Logger
	Metrics statsd.Sink
}

// Gate is the per-request authentication and authorization pipeline. It
// handles login and logout submissions itself and guards every other path
// with the rule set.
type Gate struct {
	auth    AuthServiceInterface
	rules   *domainauth.RuleSet
	cookies CookieConfig

	loginPath  string
	logoutPath string

	success OutcomeHandler
	failure OutcomeHandler
	denied  OutcomeHandler
	logout  OutcomeHandler

	logger  *slog.Logger
	metrics statsd.Sink
}

// NewGate constructs a Gate.
func NewGate(opts GateOptions) (*Gate, error) {
	if opts.Auth == nil {
		return nil, errors.New("auth service is required")
	}
	if opts.Rules == nil {
		return nil, errors.New("rule set is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gate{
		auth:       opts.Auth,
		rules:      opts.Rules,
		cookies:    opts.Cookies,
		loginPath:  pathOr(opts.LoginPath, DefaultLoginPath),
		logoutPath: pathOr(opts.LogoutPath, DefaultLogoutPath),
		success:    opts.Success,
		failure:    opts.Failure,
		denied:     opts.Denied,
		logout:     opts.Logout,
		logger:     logger.With("component", "auth_gate"),
		metrics:    opts.Metrics,
	}
	if g.success == nil {
		g.success = LoginSuccessHandler{DefaultURL: "/"}
	}
	if g.failure == nil {
		g.failure = LoginFailureHandler{LoginPath: g.loginPath}
	}
	if g.denied == nil {
		g.denied = AccessDeniedHandler{ErrorPath: pathOr(opts.AccessErrorPath, DefaultAccessErrorPath)}
	}
	if g.logout == nil {
		g.logout = LogoutSuccessHandler{LoginPath: g.loginPath}
	}
	return g, nil
}

// Middleware wraps next with the pipeline.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == g.loginPath && r.Method == http.MethodPost:
			g.processLogin(w, r)
			return
		case r.URL.Path == g.logoutPath && (r.Method == http.MethodGet || r.Method == http.MethodPost):
			g.processLogout(w, r)
			return
		}

		required := g.rules.EvaluateRequest(r.URL.Path, domainauth.IsForward(r.Context()))
		if required.Kind == domainauth.RequirePublic {
			next.ServeHTTP(w, r)
			return
		}

		sess, err := g.authenticate(w, r)
		if err != nil {
			g.storeFailure(w, r, err)
			return
		}
		if sess == nil {
			g.challenge(w, r)
			return
		}

		p := sess.Principal()
		if !required.SatisfiedBy(&p) {
			g.deny(w, r, p, required)
			return
		}

		ctx := SetSessionInContext(WithPrincipal(r.Context(), p), sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// authenticate resolves the caller's session, falling back to remember-me.
// A nil session with a nil error means anonymous. Only store failures are
// returned as errors.
func (g *Gate) authenticate(w http.ResponseWriter, r *http.Request) (*domainauth.Session, error) {
	ctx := r.Context()

	if id := cookieValue(r, SessionCookieName); id != "" {
		sess, err := g.auth.GetSession(ctx, id)
		switch {
		case err == nil:
			return sess, nil
		case errors.Is(err, domainauth.ErrStoreUnavailable):
			return nil, err
		default:
			g.cookies.Clear(w, r, SessionCookieName)
		}
	}

	value := cookieValue(r, RememberMeCookieName)
	if value == "" {
		return nil, nil
	}
	res, err := g.auth.AutoLogin(ctx, value)
	if err != nil {
		if domainauth.IsRememberMeRejection(err) {
			g.cookies.Clear(w, r, RememberMeCookieName)
			g.logRememberMeRejection(ctx, err)
		}
		if errors.Is(err, domainauth.ErrStoreUnavailable) {
			return nil, err
		}
		return nil, nil
	}

	g.cookies.SetSession(w, r, res.Session)
	if res.RememberMe != nil {
		g.cookies.SetRememberMe(w, r, res.RememberMe.CookieValue, res.RememberMe.ExpiresAt)
	}
	g.logger.InfoContext(ctx, "login succeeded",
		"username", res.Principal.Username,
		"roles", res.Principal.Roles,
		"method", domainauth.AuthMethodRememberMe,
	)
	return &res.Session, nil
}

func (g *Gate) logRememberMeRejection(ctx context.Context, err error) {
	if errors.Is(err, domainauth.ErrTokenReplayDetected) {
		g.logger.WarnContext(ctx, "remember-me rejected; possible cookie theft", "error", err)
		return
	}
	g.logger.DebugContext(ctx, "remember-me rejected", "error", err)
}

func (g *Gate) processLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		g.logger.InfoContext(ctx, "login failed", "reason", "unreadable form")
		g.failure.Handle(w, r, domainauth.Failure(domainauth.ErrAuthenticationFailed))
		return
	}

	username := strings.TrimSpace(r.PostFormValue(FormUsername))
	res, err := g.auth.Login(ctx, service.LoginInput{
		Username:          username,
		Password:          r.PostFormValue(FormPassword),
		RememberMe:        isChecked(r.PostFormValue(FormRememberMe)),
		PreviousSessionID: cookieValue(r, SessionCookieName),
	})
	if errors.Is(err, domainauth.ErrStoreUnavailable) {
		g.storeFailure(w, r, err)
		return
	}
	if err != nil {
		g.logger.InfoContext(ctx, "login failed", "username", username)
		g.failure.Handle(w, r, domainauth.Failure(err))
		return
	}

	g.cookies.SetSession(w, r, res.Session)
	if res.RememberMe != nil {
		g.cookies.SetRememberMe(w, r, res.RememberMe.CookieValue, res.RememberMe.ExpiresAt)
	}
	g.logger.InfoContext(ctx, "login succeeded",
		"username", res.Principal.Username,
		"roles", res.Principal.Roles,
		"method", domainauth.AuthMethodForm,
		"remember_me", res.RememberMe != nil,
	)
	redirectTo := safeRedirectPath(r.PostFormValue(FormRedirectURI))
	g.success.Handle(w, r, domainauth.Success(res.Principal, domainauth.AuthMethodForm, redirectTo))
}

func (g *Gate) processLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, err := g.auth.Logout(ctx, cookieValue(r, SessionCookieName), cookieValue(r, RememberMeCookieName))

	// Cookies go regardless of what the stores said.
	g.cookies.ClearAuth(w, r)

	if err != nil {
		g.storeFailure(w, r, err)
		return
	}
	if p != nil {
		g.logger.InfoContext(ctx, "logout", "username", p.Username)
	}
	g.logout.Handle(w, r, domainauth.LoggedOut(p))
}

// challenge sends anonymous callers to the login page, or answers 401 to API clients.
func (g *Gate) challenge(w http.ResponseWriter, r *http.Request) {
	if !IsBrowserRequest(r) {
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "authentication_required",
			Message: "authentication required",
		})
		return
	}
	requested := ""
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		requested = r.URL.RequestURI()
	}
	http.Redirect(w, r, loginURLWithRedirect(g.loginPath, requested), http.StatusSeeOther)
}

func (g *Gate) deny(w http.ResponseWriter, r *http.Request, p domainauth.Principal, required domainauth.Requirement) {
	g.logger.WarnContext(r.Context(), "access denied",
		"username", p.Username,
		"path", r.URL.Path,
		"required", required.String(),
	)
	metrics.EmitAuth(g.metrics, metrics.AuthEvent{
		Name:   metrics.MetricDenied,
		Result: metrics.ResultFailure,
		Err:    domainauth.ErrAccessDenied,
	})
	g.denied.Handle(w, r, domainauth.Denied(p, required, r.URL.Path))
}

// storeFailure answers 500 without detail; the cause is logged.
func (g *Gate) storeFailure(w http.ResponseWriter, r *http.Request, err error) {
	g.logger.ErrorContext(r.Context(), "credential store unavailable",
		"path", r.URL.Path,
		"error", err,
	)
	if !IsBrowserRequest(r) {
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "internal_error"})
		return
	}
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

func isChecked(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "true", "1", "yes":
		return true
	default:
		return false
	}
}
