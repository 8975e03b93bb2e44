package httpx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeRedirectPath(t *testing.T) {
	tests := map[string]string{
		"":                     "",
		"/":                    "/",
		"/notice/list?page=2":  "/notice/list?page=2",
		"notice/list":          "",
		"//evil.example/x":     "",
		`/\evil.example`:       "",
		"https://evil.example": "",
		"javascript:alert(1)":  "",
		"/%zz":                 "",
	}
	for in, want := range tests {
		assert.Equal(t, want, safeRedirectPath(in), in)
	}
}

func TestLoginURLWithRedirect(t *testing.T) {
	assert.Equal(t, "/login", loginURLWithRedirect("/login", ""))
	assert.Equal(t, "/login", loginURLWithRedirect("/login", "/login"))
	assert.Equal(t, "/login", loginURLWithRedirect("/login", "https://evil.example"))
	assert.Equal(t, "/login?redirect_uri=%2Fnotice%2Fregister", loginURLWithRedirect("/login", "/notice/register"))
}
