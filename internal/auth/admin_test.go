package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/pod-storefront/internal/apperr"
)

const adminPassword = "correct-horse-battery"

func newTestAdmin(t *testing.T) *Admin {
	t.Helper()
	hash, err := HashAdminPassword(adminPassword)
	require.NoError(t, err)
	admin, err := NewAdmin(newTestJWTService(), hash)
	require.NoError(t, err)
	return admin
}

func TestAdmin_Login(t *testing.T) {
	admin := newTestAdmin(t)

	t.Run("issues a token for the right password", func(t *testing.T) {
		token, expiresAt, err := admin.Login(adminPassword)
		require.NoError(t, err)
		assert.True(t, expiresAt.After(time.Now()))

		claims, err := admin.Tokens().ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, RoleAdmin, claims.Role)
		assert.Equal(t, "admin", claims.Subject)
	})

	tests := []struct {
		name     string
		password string
	}{
		{"wrong password", "battery-staple-horse"},
		{"different case", "Correct-Horse-Battery"},
		{"empty", ""},
		{"prefix of the password", "correct-horse"},
	}
	for _, tt := range tests {
		t.Run("rejects "+tt.name, func(t *testing.T) {
			token, _, err := admin.Login(tt.password)
			assert.ErrorIs(t, err, ErrBadCredentials)
			assert.Empty(t, token)
		})
	}
}

func TestAdmin_Login_NotConfigured(t *testing.T) {
	t.Run("no password hash", func(t *testing.T) {
		admin, err := NewAdmin(newTestJWTService(), "")
		require.NoError(t, err)
		_, _, err = admin.Login("anything")
		assert.ErrorIs(t, err, apperr.ErrNotConfigured)
	})

	t.Run("no signing secret", func(t *testing.T) {
		hash, err := HashAdminPassword(adminPassword)
		require.NoError(t, err)
		admin, err := NewAdmin(NewJWTService("", time.Hour), hash)
		require.NoError(t, err)
		_, _, err = admin.Login(adminPassword)
		assert.ErrorIs(t, err, apperr.ErrNotConfigured)
	})
}

func TestNewAdmin_RejectsUnusableHash(t *testing.T) {
	weak, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.MinCost)
	require.NoError(t, err)

	for name, hash := range map[string]string{
		"plain text password": adminPassword,
		"truncated hash":      "$2a$12$abc",
		"low cost hash":       string(weak),
	} {
		t.Run(name, func(t *testing.T) {
			admin, err := NewAdmin(newTestJWTService(), hash)
			assert.Nil(t, admin)
			assert.ErrorIs(t, err, ErrInvalidPasswordHash)
		})
	}
}
