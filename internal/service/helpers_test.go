package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/target/noticeboard/internal/adapters/credentials"
	"github.com/target/noticeboard/internal/data"
	domainauth "github.com/target/noticeboard/internal/domain/auth"
	mocks "github.com/target/noticeboard/internal/mocks/auth"
	"github.com/target/noticeboard/internal/observability/statsd"
	"golang.org/x/crypto/bcrypt"
)

var testKey = []byte("test-remember-me-key")

type authFixture struct {
	svc      *AuthService
	rm       *RememberMeService
	users    *mocks.StaticUserDirectory
	sessions *mocks.MemorySessionStore
	tokens   *mocks.MemoryTokenStore
	clock    *data.FixedTimeProvider
	metrics  *statsd.Recorder
}

// hashPassword hashes at the minimum cost so tests stay fast.
func hashPassword(t *testing.T, password string) string {
	t.Helper()
	h, err := credentials.BcryptVerifier{Cost: bcrypt.MinCost}.Hash(password)
	require.NoError(t, err)
	return h
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	f := &authFixture{
		users: mocks.NewStaticUserDirectory(
			domainauth.Principal{
				Username:       "alice",
				Roles:          []domainauth.Role{domainauth.RoleMember},
				CredentialHash: hashPassword(t, "wonderland"),
			},
			domainauth.Principal{
				Username:       "admin",
				Roles:          []domainauth.Role{domainauth.RoleAdmin, domainauth.RoleMember},
				CredentialHash: hashPassword(t, "s3cret"),
			},
		),
		sessions: mocks.NewMemorySessionStore(),
		tokens:   mocks.NewMemoryTokenStore(),
		clock:    data.NewFixedTimeProvider(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
		metrics:  &statsd.Recorder{},
	}

	rm, err := NewRememberMeService(RememberMeServiceOptions{
		Tokens:       f.tokens,
		Users:        f.users,
		Key:          testKey,
		Validity:     24 * time.Hour,
		TimeProvider: f.clock,
	})
	require.NoError(t, err)
	f.rm = rm

	svc, err := NewAuthService(AuthServiceOptions{
		Users:        f.users,
		Verifier:     credentials.BcryptVerifier{},
		Sessions:     f.sessions,
		RememberMe:   rm,
		SessionTTL:   30 * time.Minute,
		DummyHash:    hashPassword(t, "dummy"),
		TimeProvider: f.clock,
		Metrics:      f.metrics,
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}
