package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// Credential limits
const (
	UsernameMinLength = 4
	UsernameMaxLength = 20
	PasswordMinLength = 8
)

var emailPattern = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)

// User owns subscriptions. The password hash never leaves the service.
type User struct {
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"isAdmin"`
}

// CanAccess reports whether the user may act on resources owned by ownerID
func (u *User) CanAccess(ownerID string) bool {
	return u.IsAdmin || u.ID == ownerID
}

// NormalizeUsername trims and lower-cases a username, then checks its length
func NormalizeUsername(s string) (string, error) {
	username := strings.ToLower(strings.TrimSpace(s))
	if n := utf8.RuneCountInString(username); n < UsernameMinLength || n > UsernameMaxLength {
		return "", NewValidationError("username", fmt.Sprintf("username must be between %d and %d characters", UsernameMinLength, UsernameMaxLength))
	}
	return username, nil
}

// NormalizeEmail trims and lower-cases an email, then checks its shape
func NormalizeEmail(s string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(s))
	if email == "" {
		return "", NewValidationError("email", "email is required")
	}
	if !emailPattern.MatchString(email) {
		return "", NewValidationError("email", "please add a valid email")
	}
	return email, nil
}

// ValidatePassword checks the plaintext password before it is hashed
func ValidatePassword(s string) error {
	if utf8.RuneCountInString(s) < PasswordMinLength {
		return NewValidationError("password", fmt.Sprintf("password must be at least %d characters", PasswordMinLength))
	}
	return nil
}
