package auth

import (
	"errors"
	"time"

	"github.com/example/pod-storefront/internal/apperr"
)

// ErrBadCredentials is returned for a wrong admin password.
var ErrBadCredentials = errors.New("invalid credentials")

// Admin authenticates the single storefront operator against a bcrypt hash
// from configuration.
type Admin struct {
	tokens       *JWTService
	passwordHash string
}

// NewAdmin fails when a password hash is configured but unusable. An empty
// hash leaves admin login disabled.
func NewAdmin(tokens *JWTService, passwordHash string) (*Admin, error) {
	if passwordHash != "" {
		if err := CheckPasswordHash(passwordHash); err != nil {
			return nil, err
		}
	}
	return &Admin{tokens: tokens, passwordHash: passwordHash}, nil
}

// Login checks password and issues an admin token.
func (a *Admin) Login(password string) (string, time.Time, error) {
	if a.passwordHash == "" || !a.tokens.Configured() {
		return "", time.Time{}, apperr.NotConfigured("admin login")
	}
	if !passwordMatches(password, a.passwordHash) {
		return "", time.Time{}, ErrBadCredentials
	}
	return a.tokens.GenerateToken("admin", RoleAdmin)
}

// Tokens exposes the token service for request authentication.
func (a *Admin) Tokens() *JWTService {
	return a.tokens
}
