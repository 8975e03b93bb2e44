// Package credentials provides the password verification policies.
package credentials

import (
	"errors"
	"fmt"
	"strings"

	"github.com/target/noticeboard/internal/ports"
	"golang.org/x/crypto/bcrypt"
)

// Verifier policy names accepted by New.
const (
	ModeStrict    = "strict"
	ModeAcceptAll = "accept-all"
)

var (
	_ ports.CredentialVerifier = BcryptVerifier{}
	_ ports.PasswordHasher     = BcryptVerifier{}
	_ ports.CredentialVerifier = AcceptAllVerifier{}
)

// BcryptVerifier compares presented passwords against bcrypt hashes.
type BcryptVerifier struct {
	// Cost used by Hash; zero means bcrypt.DefaultCost.
	Cost int
}

// Verify reports whether presented matches storedHash. Malformed hashes never match.
func (v BcryptVerifier) Verify(presented, storedHash string) bool {
	if storedHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(presented)) == nil
}

// Hash returns a bcrypt hash of password.
func (v BcryptVerifier) Hash(password string) (string, error) {
	if password == "" {
		return "", errors.New("password is empty")
	}
	cost := v.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// AcceptAllVerifier accepts any password for a known user.
// It exists for local development and test fixtures only.
type AcceptAllVerifier struct{}

func (AcceptAllVerifier) Verify(string, string) bool { return true }

// New returns the verifier for mode. An empty mode selects strict.
func New(mode string) (ports.CredentialVerifier, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", ModeStrict:
		return BcryptVerifier{}, nil
	case ModeAcceptAll:
		return AcceptAllVerifier{}, nil
	default:
		return nil, fmt.Errorf("unknown verifier mode %q (valid options: %s, %s)", mode, ModeStrict, ModeAcceptAll)
	}
}
