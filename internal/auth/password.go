package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrWeakPassword        = errors.New("admin password must be at least 12 characters")
	ErrInvalidPasswordHash = errors.New("admin password hash is not a usable bcrypt hash")
)

const (
	adminHashCost          = 12
	minAdminHashCost       = bcrypt.DefaultCost
	minAdminPasswordLength = 12
)

// HashAdminPassword produces the value for auth.admin_password_hash.
func HashAdminPassword(password string) (string, error) {
	if len(password) < minAdminPasswordLength {
		return "", ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), adminHashCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPasswordHash rejects a configured hash that bcrypt cannot use or that
// was generated below the default cost.
func CheckPasswordHash(hash string) error {
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPasswordHash, err)
	}
	if cost < minAdminHashCost {
		return fmt.Errorf("%w: cost %d is below %d", ErrInvalidPasswordHash, cost, minAdminHashCost)
	}
	return nil
}

func passwordMatches(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
