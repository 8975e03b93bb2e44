package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	domainauth "github.com/target/noticeboard/internal/domain/auth"
	"github.com/target/noticeboard/internal/observability/statsd"
)

// RouterServices holds everything the HTTP router needs.
type RouterServices struct {
	Auth  AuthServiceInterface // Required
	Rules *domainauth.RuleSet  // Required
	// Notices backs the notice pages; nil starts an empty board.
	Notices *NoticeBoard

	Cookies           CookieConfig
	CSRFEnabled       bool
	DefaultSuccessURL string

	// Outcome handler overrides; nil uses the defaults.
	Success OutcomeHandler
	Failure OutcomeHandler
	Denied  OutcomeHandler
	Logout  OutcomeHandler

	Logger  *slog.Logger
	Metrics statsd.Sink
}

// NewRouter wires pages, the auth gate and the ambient middleware:
// Recover, then Logging, then CSRF (when enabled), then the gate.
func NewRouter(services RouterServices) (http.Handler, error) {
	if services.Auth == nil || services.Rules == nil {
		return nil, errors.New("auth service and rule set are required")
	}
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tr, err := NewTemplateRenderer(TemplateRendererConfig{Logger: logger})
	if err != nil {
		return nil, err
	}
	notices := services.Notices
	if notices == nil {
		notices = NewNoticeBoard()
	}
	ui := &UIHandlers{T: tr, Notices: notices, Logger: logger}

	mux := http.NewServeMux()
	registerRoutes(mux, ui)

	// The denial handler forwards back through the gate; the forward marker
	// makes the rule lookup treat the error page as public.
	var root http.Handler
	forward := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { root.ServeHTTP(w, r) })

	denied := services.Denied
	if denied == nil {
		denied = AccessDeniedHandler{ErrorPath: DefaultAccessErrorPath, Forward: forward}
	}
	success := services.Success
	if success == nil {
		success = LoginSuccessHandler{DefaultURL: services.DefaultSuccessURL}
	}

	gate, err := NewGate(GateOptions{
		Auth:    services.Auth,
		Rules:   services.Rules,
		Cookies: services.Cookies,
		Success: success,
		Failure: services.Failure,
		Denied:  denied,
		Logout:  services.Logout,
		Logger:  logger,
		Metrics: services.Metrics,
	})
	if err != nil {
		return nil, err
	}
	root = gate.Middleware(mux)

	mws := []func(http.Handler) http.Handler{Recover(logger), Logging(logger)}
	if services.CSRFEnabled {
		mws = append(mws, CSRFProtection(CSRFConfig{Cookies: services.Cookies, Logger: logger}))
	} else {
		logger.Warn("CSRF protection disabled")
	}
	return Chain(root, mws...), nil
}

func registerRoutes(mux *http.ServeMux, ui *UIHandlers) {
	mux.HandleFunc("GET /login", ui.LoginPage)
	mux.HandleFunc("GET /{$}", ui.Home)
	mux.HandleFunc("GET /notice/list", ui.NoticeList)
	mux.HandleFunc("GET /notice/register", ui.NoticeRegisterForm)
	mux.HandleFunc("POST /notice/register", ui.NoticeRegister)
	mux.HandleFunc("GET /accessError", ui.AccessError)
	mux.HandleFunc("GET /auth/status", AuthStatus)
	mux.HandleFunc("GET /healthz", healthHandler)
	mux.HandleFunc("HEAD /healthz", healthHandler)
}
