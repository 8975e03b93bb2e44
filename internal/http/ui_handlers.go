package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	domainauth "github.com/target/noticeboard/internal/domain/auth"
)

// Login page flash messages.
const (
	MsgLoginFailed = "Invalid username or password."
	MsgLoggedOut   = "You have been signed out."
)

// PageData is the view model shared by every page.
type PageData struct {
	Title       string
	Principal   *domainauth.Principal
	IsAdmin     bool
	CSRFToken   string
	Flash       string
	FlashKind   string
	RedirectURI string
	Notices     []Notice
}

// UIHandlers serves the HTML pages behind the gate.
type UIHandlers struct {
	T       *TemplateRenderer
	Notices *NoticeBoard
	Logger  *slog.Logger
}

func (h *UIHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func basePageData(r *http.Request, title string) PageData {
	data := PageData{Title: title, CSRFToken: CSRFTokenFromContext(r.Context())}
	if p, ok := PrincipalFromContext(r.Context()); ok {
		data.Principal = p
		data.IsAdmin = p.HasRole(domainauth.RoleAdmin)
	}
	return data
}

func (h *UIHandlers) render(w http.ResponseWriter, r *http.Request, status int, page string, data PageData) {
	if err := h.T.Render(w, status, page, data); err != nil {
		h.logger().ErrorContext(r.Context(), "render page failed", "page", page, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// LoginPage renders the sign-in form.
// GET /login[?error|?logout][&redirect_uri=/path].
func (h *UIHandlers) LoginPage(w http.ResponseWriter, r *http.Request) {
	data := basePageData(r, "Sign in")
	q := r.URL.Query()
	switch {
	case q.Has(FlashError):
		data.Flash, data.FlashKind = MsgLoginFailed, "error"
	case q.Has(FlashLogout):
		data.Flash, data.FlashKind = MsgLoggedOut, "info"
	}
	data.RedirectURI = safeRedirectPath(q.Get(FormRedirectURI))
	h.render(w, r, http.StatusOK, PageLogin, data)
}

// Home greets the signed-in user.
// GET /.
func (h *UIHandlers) Home(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, PageHome, basePageData(r, "Home"))
}

// NoticeList shows every notice. Public.
// GET /notice/list.
func (h *UIHandlers) NoticeList(w http.ResponseWriter, r *http.Request) {
	data := basePageData(r, "Notices")
	if h.Notices != nil {
		data.Notices = h.Notices.List()
	}
	h.render(w, r, http.StatusOK, PageNoticeList, data)
}

// NoticeRegisterForm renders the posting form. Admin only.
// GET /notice/register.
func (h *UIHandlers) NoticeRegisterForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, PageNoticeRegister, basePageData(r, "Post a notice"))
}

// NoticeRegister posts a notice. Admin only.
// POST /notice/register.
func (h *UIHandlers) NoticeRegister(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok || h.Notices == nil {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	n, err := h.Notices.Post(r.PostFormValue("title"), r.PostFormValue("body"), p.Username)
	if errors.Is(err, ErrInvalidNotice) {
		data := basePageData(r, "Post a notice")
		data.Flash, data.FlashKind = "A notice needs a title of at most 200 characters.", "error"
		h.render(w, r, http.StatusUnprocessableEntity, PageNoticeRegister, data)
		return
	}
	h.logger().InfoContext(r.Context(), "notice posted", "author", n.Author, "title", n.Title)
	http.Redirect(w, r, "/notice/list", http.StatusSeeOther)
}

// AccessError is the denial landing page. The gate forwards here with 403.
// GET /accessError.
func (h *UIHandlers) AccessError(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	if domainauth.IsForward(r.Context()) {
		status = http.StatusForbidden
	}
	h.render(w, r, status, PageAccessError, basePageData(r, "Access denied"))
}

// AuthStatus reports the signed-in user as JSON.
// GET /auth/status.
func AuthStatus(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r.Context())
	if !ok {
		WriteJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user": map[string]any{
			"username": sess.Username,
			"roles":    sess.Roles,
		},
		"auth_method": sess.AuthMethod,
		"expires_at":  sess.ExpiresAt,
	})
}
