package httpx

import (
	"net/http"

	domainauth "github.com/target/noticeboard/internal/domain/auth"
)

// OutcomeHandler maps a terminal pipeline outcome to a client response.
// Implementations hold no business logic and can be swapped independently.
type OutcomeHandler interface {
	Handle(w http.ResponseWriter, r *http.Request, o domainauth.Outcome)
}

// OutcomeHandlerFunc adapts a function to OutcomeHandler.
type OutcomeHandlerFunc func(w http.ResponseWriter, r *http.Request, o domainauth.Outcome)

// Handle calls f(w, r, o).
func (f OutcomeHandlerFunc) Handle(w http.ResponseWriter, r *http.Request, o domainauth.Outcome) {
	f(w, r, o)
}

// Login flash indicators carried in the query string of the login page.
const (
	FlashError  = "error"
	FlashLogout = "logout"
)

// LoginSuccessHandler redirects to the saved destination or DefaultURL.
type LoginSuccessHandler struct {
	DefaultURL string
}

func (h LoginSuccessHandler) Handle(w http.ResponseWriter, r *http.Request, o domainauth.Outcome) {
	target := safeRedirectPath(o.RedirectTo)
	if target == "" {
		target = safeRedirectPath(h.DefaultURL)
	}
	if target == "" {
		target = "/"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// LoginFailureHandler redirects back to the login page with the error flag.
type LoginFailureHandler struct {
	LoginPath string
}

func (h LoginFailureHandler) Handle(w http.ResponseWriter, r *http.Request, _ domainauth.Outcome) {
	http.Redirect(w, r, pathOr(h.LoginPath, "/login")+"?"+FlashError, http.StatusSeeOther)
}

// LogoutSuccessHandler redirects to the login page with the logout flag.
// Cookies are already cleared by the gate.
type LogoutSuccessHandler struct {
	LoginPath string
}

func (h LogoutSuccessHandler) Handle(w http.ResponseWriter, r *http.Request, _ domainauth.Outcome) {
	http.Redirect(w, r, pathOr(h.LoginPath, "/login")+"?"+FlashLogout, http.StatusSeeOther)
}

// AccessDeniedHandler answers 403. Browser requests are forwarded in-process
// to ErrorPath through Forward (no redirect, so the URL bar keeps the denied
// path); API clients get a JSON body. Neither names the missing role.
type AccessDeniedHandler struct {
	ErrorPath string
	// Forward serves the error page; nil writes a plain 403.
	Forward http.Handler
}

func (h AccessDeniedHandler) Handle(w http.ResponseWriter, r *http.Request, o domainauth.Outcome) {
	if !IsBrowserRequest(r) {
		WriteError(w, ErrorParams{Code: http.StatusForbidden, ErrCode: "access_denied", Message: "access denied"})
		return
	}
	if h.Forward == nil {
		http.Error(w, "Access Denied", http.StatusForbidden)
		return
	}

	ctx := domainauth.WithForward(r.Context())
	if o.Principal != nil {
		ctx = WithPrincipal(ctx, *o.Principal)
	}
	fwd := r.Clone(ctx)
	fwd.Method = http.MethodGet
	fwd.URL.Path = pathOr(h.ErrorPath, "/accessError")
	fwd.URL.RawPath = ""
	fwd.URL.RawQuery = ""
	fwd.RequestURI = fwd.URL.RequestURI()

	h.Forward.ServeHTTP(&fixedStatusWriter{ResponseWriter: w, status: http.StatusForbidden}, fwd)
}

// fixedStatusWriter pins the response status regardless of what the
// forwarded handler asks for.
type fixedStatusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *fixedStatusWriter) WriteHeader(int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(w.status)
}

func (w *fixedStatusWriter) Write(b []byte) (int, error) {
	w.WriteHeader(w.status)
	return w.ResponseWriter.Write(b)
}

func pathOr(p, fallback string) string {
	if p == "" {
		return fallback
	}
	return p
}
