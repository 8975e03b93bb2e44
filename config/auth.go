package config

import (
	"fmt"
	"strings"
	"time"
)

// VerifierMode selects how presented passwords are checked against stored hashes.
type VerifierMode string

const (
	// VerifierModeStrict compares bcrypt hashes.
	VerifierModeStrict VerifierMode = "strict"
	// VerifierModeAcceptAll accepts any password for a known user. Test environments only.
	VerifierModeAcceptAll VerifierMode = "accept-all"
)

// UnmarshalText implements encoding.TextUnmarshaler for VerifierMode.
func (m *VerifierMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "strict", "accept-all":
		*m = VerifierMode(v)
		return nil
	default:
		return fmt.Errorf("invalid VerifierMode: %q (valid options: strict, accept-all)", v)
	}
}

// DefaultRules is the access rule table used when AUTH_RULES is unset.
// Anything not listed falls through to the implicit authenticated catch-all.
var DefaultRules = []string{
	"/login=public",
	"/accessError=public",
	"/healthz=public",
	"/notice/list=public",
	"/notice/register=role:ADMIN",
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Verifier determines how credentials are checked.
	Verifier VerifierMode `env:"AUTH_VERIFIER" envDefault:"strict"`

	// RememberMeKey signs remember-me cookies. A random key is generated at
	// startup when empty, which invalidates cookies on every restart.
	RememberMeKey string `env:"AUTH_REMEMBER_ME_KEY"`

	// RememberMeValidity is how long an unused remember-me series stays valid.
	RememberMeValidity time.Duration `env:"AUTH_REMEMBER_ME_VALIDITY" envDefault:"24h"`

	// CSRFEnabled turns on double-submit cookie protection for state-changing requests.
	CSRFEnabled bool `env:"AUTH_CSRF_ENABLED" envDefault:"true"`

	// SessionTTL is the absolute lifetime of a server-side session.
	SessionTTL time.Duration `env:"AUTH_SESSION_TTL" envDefault:"30m"`

	// DefaultSuccessURL is where a login lands when no safe redirect_uri was saved.
	DefaultSuccessURL string `env:"AUTH_DEFAULT_SUCCESS_URL" envDefault:"/"`

	// Rules is the ordered access rule table, "pattern=requirement" entries
	// separated by ';'. Requirements: public, authenticated, role:NAME.
	Rules []string `env:"AUTH_RULES" envSeparator:";"`
}

// Sanitize applies guardrails to authentication configuration values.
func (a *AuthConfig) Sanitize() {
	if a.Verifier == "" {
		a.Verifier = VerifierModeStrict
	}
	if a.RememberMeValidity <= 0 {
		a.RememberMeValidity = 24 * time.Hour
	}
	if a.SessionTTL <= 0 {
		a.SessionTTL = 30 * time.Minute
	}
	a.RememberMeKey = strings.TrimSpace(a.RememberMeKey)

	// Only local absolute paths are accepted as the landing page.
	a.DefaultSuccessURL = strings.TrimSpace(a.DefaultSuccessURL)
	if !strings.HasPrefix(a.DefaultSuccessURL, "/") || strings.HasPrefix(a.DefaultSuccessURL, "//") {
		a.DefaultSuccessURL = "/"
	}

	rules := make([]string, 0, len(a.Rules))
	for _, r := range a.Rules {
		if r = strings.TrimSpace(r); r != "" {
			rules = append(rules, r)
		}
	}
	if len(rules) == 0 {
		rules = append(rules, DefaultRules...)
	}
	a.Rules = rules
}
