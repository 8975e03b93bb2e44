package httpx

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/target/noticeboard/internal/adapters/credentials"
	"github.com/target/noticeboard/internal/data"
	domainauth "github.com/target/noticeboard/internal/domain/auth"
	mocks "github.com/target/noticeboard/internal/mocks/auth"
	"github.com/target/noticeboard/internal/observability/statsd"
	"github.com/target/noticeboard/internal/service"
	"golang.org/x/crypto/bcrypt"
)

var defaultTestRules = []string{
	"/login=public",
	"/accessError=public",
	"/healthz=public",
	"/notice/list=public",
	"/notice/register=role:ADMIN",
}

type testEnv struct {
	handler  http.Handler
	users    *mocks.StaticUserDirectory
	sessions *mocks.MemorySessionStore
	tokens   *mocks.MemoryTokenStore
	clock    *data.FixedTimeProvider
	metrics  *statsd.Recorder
}

type envOption func(*RouterServices)

func withCSRF() envOption { return func(s *RouterServices) { s.CSRFEnabled = true } }

func withRuleSet(rs *domainauth.RuleSet) envOption {
	return func(s *RouterServices) { s.Rules = rs }
}

func mustRuleSet(t *testing.T, entries ...string) *domainauth.RuleSet {
	t.Helper()
	rules, err := domainauth.ParseRules(entries)
	require.NoError(t, err)
	return domainauth.NewRuleSet(rules...)
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	hasher := credentials.BcryptVerifier{Cost: bcrypt.MinCost}
	hash := func(pw string) string {
		h, err := hasher.Hash(pw)
		require.NoError(t, err)
		return h
	}

	env := &testEnv{
		users: mocks.NewStaticUserDirectory(
			domainauth.Principal{Username: "admin", Roles: []domainauth.Role{domainauth.RoleAdmin}, CredentialHash: hash("admin-pw")},
			domainauth.Principal{Username: "alice", Roles: []domainauth.Role{domainauth.RoleMember}, CredentialHash: hash("alice-pw")},
		),
		sessions: mocks.NewMemorySessionStore(),
		tokens:   mocks.NewMemoryTokenStore(),
		clock:    data.NewFixedTimeProvider(time.Now()),
		metrics:  &statsd.Recorder{},
	}

	rm, err := service.NewRememberMeService(service.RememberMeServiceOptions{
		Tokens:       env.tokens,
		Users:        env.users,
		Key:          []byte("httpx-test-key"),
		Validity:     24 * time.Hour,
		TimeProvider: env.clock,
	})
	require.NoError(t, err)

	auth, err := service.NewAuthService(service.AuthServiceOptions{
		Users:        env.users,
		Verifier:     hasher,
		Sessions:     env.sessions,
		RememberMe:   rm,
		DummyHash:    hash("dummy"),
		TimeProvider: env.clock,
		Metrics:      env.metrics,
	})
	require.NoError(t, err)

	services := RouterServices{
		Auth:              auth,
		Rules:             mustRuleSet(t, defaultTestRules...),
		Notices:           NewNoticeBoard(Notice{Title: "Welcome", Body: "First notice", Author: "admin", PostedAt: time.Now()}),
		DefaultSuccessURL: "/",
		Metrics:           env.metrics,
	}
	for _, opt := range opts {
		opt(&services)
	}

	h, err := NewRouter(services)
	require.NoError(t, err)
	env.handler = h
	return env
}

// do sends a browser-style request. A non-nil form makes it a form POST.
func (e *testEnv) do(method, target string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	for _, c := range cookies {
		if c != nil {
			req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
		}
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) login(t *testing.T, username, password string, rememberMe bool) *httptest.ResponseRecorder {
	t.Helper()
	form := url.Values{FormUsername: {username}, FormPassword: {password}}
	if rememberMe {
		form.Set(FormRememberMe, "on")
	}
	return e.do(http.MethodPost, "/login", form)
}

// findCookie returns the last Set-Cookie for name, which is the one a browser keeps.
func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	var found *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			found = c
		}
	}
	return found
}

func requireCleared(t *testing.T, rec *httptest.ResponseRecorder, name string) {
	t.Helper()
	c := findCookie(rec, name)
	require.NotNil(t, c, "expected %s cookie to be cleared", name)
	require.Empty(t, c.Value)
	require.Negative(t, c.MaxAge)
}
