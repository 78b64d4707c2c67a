package utils

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

const (
	UsernameMinLength = 3
	UsernameMaxLength = 32
	EmailMaxLength    = 254
	PasswordMinLength = 8
	// bcrypt ignores everything past 72 bytes
	PasswordMaxBytes = 72
)

var (
	validate = validator.New()

	usernamePattern = regexp.MustCompile(`^[a-z0-9_]+$`)

	uppercase   = regexp.MustCompile(`[A-Z]`)
	lowercase   = regexp.MustCompile(`[a-z]`)
	digit       = regexp.MustCompile(`\d`)
	specialChar = regexp.MustCompile(`[!@#$%^&*()_+\-=\[\]{};':"\\|,.<>\/?~` + "`" + `]`)
)

// Validator returns the shared struct validator.
func Validator() *validator.Validate {
	return validate
}

// NormalizeIdentifier trims and lowercases a username or email.
func NormalizeIdentifier(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidateUsername returns the normalized username or the first rule it breaks.
func ValidateUsername(username string) (string, error) {
	username = NormalizeIdentifier(username)
	if username == "" {
		return "", errors.New("username is required")
	}
	if len(username) < UsernameMinLength || len(username) > UsernameMaxLength {
		return "", fmt.Errorf("username must be between %d and %d characters", UsernameMinLength, UsernameMaxLength)
	}
	if !usernamePattern.MatchString(username) {
		return "", errors.New("username may only contain letters, digits and underscores")
	}
	return username, nil
}

// ValidateEmail returns the normalized email or the first rule it breaks.
func ValidateEmail(email string) (string, error) {
	email = NormalizeIdentifier(email)
	if email == "" {
		return "", errors.New("email is required")
	}
	if len(email) > EmailMaxLength {
		return "", errors.New("email address is too long")
	}
	if err := validate.Var(email, "email"); err != nil {
		return "", errors.New("invalid email address")
	}
	return email, nil
}

// ValidatePassword returns the trimmed password or the first rule it breaks.
func ValidatePassword(password string) (string, error) {
	password = strings.TrimSpace(password)
	if len(password) < PasswordMinLength {
		return "", fmt.Errorf("password must be at least %d characters long", PasswordMinLength)
	}
	if len(password) > PasswordMaxBytes {
		return "", fmt.Errorf("password must be at most %d bytes long", PasswordMaxBytes)
	}
	if !uppercase.MatchString(password) {
		return "", errors.New("password must contain at least one uppercase letter")
	}
	if !lowercase.MatchString(password) {
		return "", errors.New("password must contain at least one lowercase letter")
	}
	if !digit.MatchString(password) {
		return "", errors.New("password must contain at least one digit")
	}
	if !specialChar.MatchString(password) {
		return "", errors.New("password must contain at least one special character")
	}
	return password, nil
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
