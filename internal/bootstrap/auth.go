package bootstrap

import (
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/target/noticeboard/config"
	"github.com/target/noticeboard/internal/adapters/credentials"
	redisadapter "github.com/target/noticeboard/internal/adapters/redis"
	"github.com/target/noticeboard/internal/data"
	domainauth "github.com/target/noticeboard/internal/domain/auth"
	"github.com/target/noticeboard/internal/observability/statsd"
	"github.com/target/noticeboard/internal/ports"
	"github.com/target/noticeboard/internal/service"
)

// SessionKeyPrefix namespaces session keys in Redis.
const SessionKeyPrefix = "session:"

const generatedKeyBytes = 32

// AuthConfig contains dependencies for the auth stack.
type AuthConfig struct {
	Auth        config.AuthConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Metrics     statsd.Sink
	Logger      *slog.Logger
}

// AuthComponents is the wired auth stack.
type AuthComponents struct {
	Service  *service.AuthService
	Rules    *domainauth.RuleSet
	Users    *data.UserRepo
	Tokens   *data.TokenRepo
	Sessions *redisadapter.SessionStore
}

// BuildAuth wires the user directory, token and session stores, verifier,
// remember-me service and rule set.
func BuildAuth(cfg AuthConfig) (*AuthComponents, error) {
	if cfg.DB == nil {
		return nil, errors.New("credential store is required")
	}
	if cfg.RedisClient == nil {
		return nil, errors.New("session store is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	rules, err := BuildRuleSet(cfg.Auth.Rules, logger)
	if err != nil {
		return nil, err
	}
	verifier, err := BuildVerifier(cfg.Auth.Verifier, logger)
	if err != nil {
		return nil, err
	}
	dummyHash, err := newDummyHash()
	if err != nil {
		return nil, err
	}

	users := data.NewUserRepo(cfg.DB, nil)
	tokens := data.NewTokenRepo(cfg.DB)
	sessions := redisadapter.NewSessionStoreWithPrefix(cfg.RedisClient, SessionKeyPrefix)

	rm, err := service.NewRememberMeService(service.RememberMeServiceOptions{
		Tokens:   tokens,
		Users:    users,
		Key:      RememberMeKey(cfg.Auth.RememberMeKey, logger),
		Validity: cfg.Auth.RememberMeValidity,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("remember-me service: %w", err)
	}

	svc, err := service.NewAuthService(service.AuthServiceOptions{
		Users:      users,
		Verifier:   verifier,
		Sessions:   sessions,
		RememberMe: rm,
		SessionTTL: cfg.Auth.SessionTTL,
		DummyHash:  dummyHash,
		Logger:     logger,
		Metrics:    cfg.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("auth service: %w", err)
	}

	return &AuthComponents{
		Service:  svc,
		Rules:    rules,
		Users:    users,
		Tokens:   tokens,
		Sessions: sessions,
	}, nil
}

// BuildRuleSet parses configured rule entries and logs the effective order.
func BuildRuleSet(entries []string, logger *slog.Logger) (*domainauth.RuleSet, error) {
	rules, err := domainauth.ParseRules(entries)
	if err != nil {
		return nil, fmt.Errorf("parse access rules: %w", err)
	}
	rs := domainauth.NewRuleSet(rules...)
	if logger != nil {
		effective := make([]string, 0, len(rs.Rules()))
		for _, r := range rs.Rules() {
			effective = append(effective, r.String())
		}
		logger.Info("access rules loaded", "rules", effective)
	}
	return rs, nil
}

// BuildVerifier returns the credential verifier for mode.
//
//nolint:ireturn // the mode picks the implementation.
func BuildVerifier(mode config.VerifierMode, logger *slog.Logger) (ports.CredentialVerifier, error) {
	v, err := credentials.New(string(mode))
	if err != nil {
		return nil, err
	}
	if mode == config.VerifierModeAcceptAll && logger != nil {
		logger.Warn("credential verifier accepts any password; do not use outside development")
	}
	return v, nil
}

// RememberMeKey returns the configured signing key, or a random one when
// unset. A random key invalidates every remember-me cookie on restart.
func RememberMeKey(configured string, logger *slog.Logger) []byte {
	if configured != "" {
		return []byte(configured)
	}
	if logger != nil {
		logger.Warn("AUTH_REMEMBER_ME_KEY is empty; using a random key for this process")
	}
	key := make([]byte, generatedKeyBytes)
	// crypto/rand.Read never returns an error on supported platforms.
	_, _ = rand.Read(key)
	return key
}

// newDummyHash hashes a random password so unknown users cost one bcrypt
// comparison like known ones.
func newDummyHash() (string, error) {
	pw := make([]byte, 18)
	_, _ = rand.Read(pw)
	hash, err := credentials.BcryptVerifier{}.Hash(fmt.Sprintf("%x", pw))
	if err != nil {
		return "", fmt.Errorf("dummy credential hash: %w", err)
	}
	return hash, nil
}
