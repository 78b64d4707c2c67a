package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// SessionTokenBytes is the entropy of a session token before encoding.
const SessionTokenBytes = 32

// GenerateToken returns length random bytes encoded as URL-safe base64.
func GenerateToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}

// HashPassword hashes with bcrypt; the per-password salt lives inside the hash.
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	return string(bytes), err
}

// DummyPasswordHash returns a hash to compare against when the user does not
// exist, so unknown usernames take as long as wrong passwords.
func DummyPasswordHash(cost int) string {
	hash, err := HashPassword("autonomeal-dummy-password", cost)
	if err != nil {
		return ""
	}
	return hash
}
