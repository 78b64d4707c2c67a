package utils_test

import (
	"autonomeal/utils"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestCheckPasswordHash(t *testing.T) {
	password := "SecurePass123!"

	// Generate a hash for testing
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to generate password hash: %v", err)
	}

	tests := []struct {
		name     string
		password string
		hash     string
		want     bool
	}{
		{
			name:     "Valid password should match hash",
			password: password,
			hash:     string(hash),
			want:     true,
		},
		{
			name:     "Invalid password should not match hash",
			password: "WrongPassword123!",
			hash:     string(hash),
			want:     false,
		},
		{
			name:     "Empty password should not match hash",
			password: "",
			hash:     string(hash),
			want:     false,
		},
		{
			name:     "Malformed hash should not match",
			password: password,
			hash:     "not-a-bcrypt-hash",
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := utils.CheckPasswordHash(tt.password, tt.hash); got != tt.want {
				t.Errorf("CheckPasswordHash() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		want     string
		errMsg   string
	}{
		{
			name:     "Valid username passes unchanged",
			username: "ann",
			want:     "ann",
		},
		{
			name:     "Username is trimmed and lowercased",
			username: "  Chef_Ann42 ",
			want:     "chef_ann42",
		},
		{
			name:     "Blank username should fail validation",
			username: "   ",
			errMsg:   "username is required",
		},
		{
			name:     "Too short username should fail validation",
			username: "an",
			errMsg:   "username must be between 3 and 32 characters",
		},
		{
			name:     "Too long username should fail validation",
			username: strings.Repeat("a", 33),
			errMsg:   "username must be between 3 and 32 characters",
		},
		{
			name:     "Username with punctuation should fail validation",
			username: "ann.smith",
			errMsg:   "username may only contain letters, digits and underscores",
		},
		{
			name:     "Username with inner space should fail validation",
			username: "ann smith",
			errMsg:   "username may only contain letters, digits and underscores",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := utils.ValidateUsername(tt.username)
			if tt.errMsg != "" {
				if err == nil || err.Error() != tt.errMsg {
					t.Errorf("ValidateUsername() error = %v, want %v", err, tt.errMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidateUsername() unexpected error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ValidateUsername() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
		want  string
		ok    bool
	}{
		{
			name:  "Valid email should pass validation",
			email: "user@example.com",
			want:  "user@example.com",
			ok:    true,
		},
		{
			name:  "Email is trimmed and lowercased",
			email: " User@Example.COM ",
			want:  "user@example.com",
			ok:    true,
		},
		{
			name:  "Valid email with plus addressing should pass validation",
			email: "user+tag@example.com",
			want:  "user+tag@example.com",
			ok:    true,
		},
		{
			name:  "Email missing @ symbol should fail validation",
			email: "userexample.com",
		},
		{
			name:  "Email missing domain should fail validation",
			email: "user@",
		},
		{
			name:  "Email with invalid characters should fail validation",
			email: "user name@example.com",
		},
		{
			name:  "Empty email should fail validation",
			email: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := utils.ValidateEmail(tt.email)
			if (err == nil) != tt.ok {
				t.Fatalf("ValidateEmail() error = %v, wantOK = %v", err, tt.ok)
			}
			if tt.ok && got != tt.want {
				t.Errorf("ValidateEmail() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
		errMsg   string
	}{
		{
			name:     "Valid password should pass validation",
			password: "Secret1!",
			wantErr:  false,
		},
		{
			name:     "Surrounding whitespace is ignored",
			password: "  SecureP@ss123  ",
			wantErr:  false,
		},
		{
			name:     "Password too short should fail validation",
			password: "Abc1!",
			wantErr:  true,
			errMsg:   "password must be at least 8 characters long",
		},
		{
			name:     "Password too long for bcrypt should fail validation",
			password: "Aa1!" + strings.Repeat("x", 69),
			wantErr:  true,
			errMsg:   "password must be at most 72 bytes long",
		},
		{
			name:     "Password without uppercase should fail validation",
			password: "securepass123!",
			wantErr:  true,
			errMsg:   "password must contain at least one uppercase letter",
		},
		{
			name:     "Password without lowercase should fail validation",
			password: "SECUREPASS123!",
			wantErr:  true,
			errMsg:   "password must contain at least one lowercase letter",
		},
		{
			name:     "Password without digits should fail validation",
			password: "SecurePass!",
			wantErr:  true,
			errMsg:   "password must contain at least one digit",
		},
		{
			name:     "Password without special characters should fail validation",
			password: "SecurePass123",
			wantErr:  true,
			errMsg:   "password must contain at least one special character",
		},
		{
			name:     "Empty password should fail validation",
			password: "",
			wantErr:  true,
			errMsg:   "password must be at least 8 characters long",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := utils.ValidatePassword(tt.password)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePassword() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr && err.Error() != tt.errMsg {
				t.Errorf("ValidatePassword() error message = %v, want %v", err.Error(), tt.errMsg)
			}
		})
	}
}
