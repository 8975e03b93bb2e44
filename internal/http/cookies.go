package httpx

import (
	"net/http"
	"strings"
	"time"

	domainauth "github.com/target/noticeboard/internal/domain/auth"
)

// Cookie names.
const (
	SessionCookieName    = "session_id"
	RememberMeCookieName = "remember-me"
)

// CookieConfig controls attributes shared by every auth cookie.
type CookieConfig struct {
	// Domain for cookies; empty uses the request host.
	Domain string
	// Secure forces the Secure attribute even on plain-HTTP requests.
	Secure bool
}

func (c CookieConfig) secure(r *http.Request) bool {
	return c.Secure || r.TLS != nil || isForwardedHTTPS(r)
}

func (c CookieConfig) set(w http.ResponseWriter, r *http.Request, name, value string, expires time.Time) {
	maxAge := int(time.Until(expires).Seconds())
	if maxAge <= 0 {
		maxAge = -1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: true,
		Secure:   c.secure(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

// SetSession writes the session cookie for s.
func (c CookieConfig) SetSession(w http.ResponseWriter, r *http.Request, s domainauth.Session) {
	c.set(w, r, SessionCookieName, s.ID, s.ExpiresAt)
}

// SetRememberMe writes a signed remember-me cookie value.
func (c CookieConfig) SetRememberMe(w http.ResponseWriter, r *http.Request, value string, expires time.Time) {
	c.set(w, r, RememberMeCookieName, value, expires)
}

// Clear expires a cookie, mirroring the attributes used to set it so every
// browser drops it.
func (c CookieConfig) Clear(w http.ResponseWriter, r *http.Request, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: true,
		Secure:   c.secure(r),
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearAuth expires both the session and remember-me cookies.
func (c CookieConfig) ClearAuth(w http.ResponseWriter, r *http.Request) {
	c.Clear(w, r, SessionCookieName)
	c.Clear(w, r, RememberMeCookieName)
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

// isForwardedHTTPS checks if the request was forwarded over HTTPS.
// Handles comma-separated values in X-Forwarded-Proto header.
func isForwardedHTTPS(r *http.Request) bool {
	xfProto := r.Header.Get("X-Forwarded-Proto")
	if xfProto == "" {
		return false
	}
	for _, proto := range strings.Split(xfProto, ",") {
		if strings.EqualFold(strings.TrimSpace(proto), "https") {
			return true
		}
	}
	return false
}
