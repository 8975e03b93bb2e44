package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/target/noticeboard/internal/domain/auth"
)

func TestLoginSuccessHandler(t *testing.T) {
	p := domainauth.Principal{Username: "alice"}
	tests := []struct {
		name       string
		defaultURL string
		redirectTo string
		want       string
	}{
		{name: "saved destination", defaultURL: "/", redirectTo: "/notice/list?page=2", want: "/notice/list?page=2"},
		{name: "default url", defaultURL: "/notice/list", want: "/notice/list"},
		{name: "offsite destination falls back", defaultURL: "/home", redirectTo: "https://evil.example", want: "/home"},
		{name: "offsite default falls back to root", defaultURL: "//evil.example", want: "/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			LoginSuccessHandler{DefaultURL: tt.defaultURL}.Handle(rec,
				httptest.NewRequest(http.MethodPost, "/login", nil),
				domainauth.Success(p, domainauth.AuthMethodForm, tt.redirectTo))

			assert.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, tt.want, rec.Header().Get("Location"))
		})
	}
}

func TestLoginFailureAndLogoutHandlers(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/login", nil)

	rec := httptest.NewRecorder()
	LoginFailureHandler{}.Handle(rec, req, domainauth.Failure(domainauth.ErrAuthenticationFailed))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?error", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	LogoutSuccessHandler{LoginPath: "/signin"}.Handle(rec, req, domainauth.LoggedOut(nil))
	assert.Equal(t, "/signin?logout", rec.Header().Get("Location"))
}

func TestAccessDeniedHandler_APIClient(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/notice/register", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()

	AccessDeniedHandler{}.Handle(rec, req, domainauth.Denied(domainauth.Principal{Username: "alice"},
		domainauth.HasRole(domainauth.RoleAdmin), "/notice/register"))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"access_denied","message":"access denied"}`, rec.Body.String())
}

func TestAccessDeniedHandler_NoForward(t *testing.T) {
	rec := httptest.NewRecorder()
	AccessDeniedHandler{}.Handle(rec, httptest.NewRequest(http.MethodGet, "/x", nil), domainauth.Outcome{Kind: domainauth.OutcomeDenied})

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAccessDeniedHandler_Forward(t *testing.T) {
	var (
		gotMethod    string
		gotPath      string
		gotForward   bool
		gotPrincipal *domainauth.Principal
	)
	forward := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotForward = domainauth.IsForward(r.Context())
		gotPrincipal, _ = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK) // pinned to 403
		_, _ = w.Write([]byte("error page"))
	})

	req := httptest.NewRequest(http.MethodPost, "/notice/register?x=1", nil)
	rec := httptest.NewRecorder()
	AccessDeniedHandler{ErrorPath: "/accessError", Forward: forward}.Handle(rec, req,
		domainauth.Denied(domainauth.Principal{Username: "alice", CredentialHash: "$2a$..."},
			domainauth.HasRole(domainauth.RoleAdmin), "/notice/register"))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "error page", rec.Body.String())
	assert.Empty(t, rec.Header().Get("Location"))
	assert.Equal(t, http.MethodGet, gotMethod)
	assert.Equal(t, "/accessError", gotPath)
	assert.True(t, gotForward)
	require.NotNil(t, gotPrincipal)
	assert.Equal(t, "alice", gotPrincipal.Username)
	assert.Empty(t, gotPrincipal.CredentialHash)
	assert.Equal(t, "/notice/register", req.URL.Path, "original request is untouched")
}

func TestOutcomeHandlerFunc(t *testing.T) {
	var got domainauth.OutcomeKind
	h := OutcomeHandlerFunc(func(_ http.ResponseWriter, _ *http.Request, o domainauth.Outcome) { got = o.Kind })

	h.Handle(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), domainauth.LoggedOut(nil))
	assert.Equal(t, domainauth.OutcomeLogout, got)
}
