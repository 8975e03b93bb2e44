package httpx

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/target/noticeboard/internal/domain/auth"
)

func TestCookieConfig_SetSession(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	CookieConfig{Domain: "example.com"}.SetSession(rec, req, domainauth.Session{ID: "abc", ExpiresAt: time.Now().Add(time.Hour)})

	c := findCookie(rec, SessionCookieName)
	require.NotNil(t, c)
	assert.Equal(t, "abc", c.Value)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, "example.com", c.Domain)
	assert.True(t, c.HttpOnly)
	assert.False(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.InDelta(t, 3600, c.MaxAge, 5)
}

func TestCookieConfig_Secure(t *testing.T) {
	tests := []struct {
		name string
		cfg  CookieConfig
		req  func() *http.Request
		want bool
	}{
		{name: "plain http", req: func() *http.Request { return httptest.NewRequest(http.MethodGet, "/", nil) }},
		{name: "forced", cfg: CookieConfig{Secure: true}, req: func() *http.Request { return httptest.NewRequest(http.MethodGet, "/", nil) }, want: true},
		{name: "tls", req: func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.TLS = &tls.ConnectionState{}
			return r
		}, want: true},
		{name: "behind proxy", req: func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Header.Set("X-Forwarded-Proto", "https")
			return r
		}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.cfg.SetRememberMe(rec, tt.req(), "v", time.Now().Add(time.Hour))
			c := findCookie(rec, RememberMeCookieName)
			require.NotNil(t, c)
			assert.Equal(t, tt.want, c.Secure)
		})
	}
}

func TestCookieConfig_ClearAuth(t *testing.T) {
	rec := httptest.NewRecorder()
	CookieConfig{}.ClearAuth(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	requireCleared(t, rec, SessionCookieName)
	requireCleared(t, rec, RememberMeCookieName)
}

func TestCookieConfig_PastExpiryDeletes(t *testing.T) {
	rec := httptest.NewRecorder()
	CookieConfig{}.SetRememberMe(rec, httptest.NewRequest(http.MethodGet, "/", nil), "v", time.Now().Add(-time.Minute))

	c := findCookie(rec, RememberMeCookieName)
	require.NotNil(t, c)
	assert.Negative(t, c.MaxAge)
}
