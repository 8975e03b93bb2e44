package httpx

import (
	"net/url"
	"strings"
)

// safeRedirectPath returns candidate when it is a same-origin relative path
// starting with a single "/", and "" otherwise.
func safeRedirectPath(candidate string) string {
	if candidate == "" {
		return ""
	}
	if strings.HasPrefix(candidate, "//") || strings.Contains(candidate, `\`) {
		return ""
	}
	u, err := url.Parse(candidate)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") {
		return ""
	}
	return candidate
}

// loginURLWithRedirect builds the login entry point preserving the requested path.
func loginURLWithRedirect(loginPath, requested string) string {
	requested = safeRedirectPath(requested)
	if requested == "" || requested == loginPath {
		return loginPath
	}
	q := url.Values{}
	q.Set("redirect_uri", requested)
	return loginPath + "?" + q.Encode()
}
