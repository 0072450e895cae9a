package auth

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// emailPattern is a deliberately loose format check: one @, no whitespace,
// something after the dot. Deliverability is the mail server's problem.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// maxEmailLength is the maximum allowed email address length.
const maxEmailLength = 254

// NormalizeEmail lowercases and trims an email address so that lookups
// and the uniqueness constraint are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsValidEmail checks if an email address meets format requirements.
// Call after NormalizeEmail.
func IsValidEmail(email string) bool {
	return len(email) <= maxEmailLength && emailPattern.MatchString(email)
}

// RoleLevel is a numeric authorisation tier. Every account holds the user
// level; admin is granted on top of it. A gate requiring level N is
// satisfied by any held role >= N, so future tiers slot in between
// without touching existing checks.
type RoleLevel int

const (
	// RoleUser is held by every account from registration onwards.
	RoleUser RoleLevel = 1000

	// RoleAdmin grants access to the admin surface: full user listing
	// and the audit trail.
	RoleAdmin RoleLevel = 3000
)

// HasLevel returns true if any of the held roles meets or exceeds the
// required level.
func HasLevel(roles []RoleLevel, required RoleLevel) bool {
	for _, r := range roles {
		if r >= required {
			return true
		}
	}
	return false
}

// User represents a registered account with its profile and session state.
type User struct {
	ID           string      `json:"id"`
	Email        string      `json:"email"`
	FullName     string      `json:"full_name"`
	Bio          string      `json:"bio,omitempty"`
	Phone        string      `json:"phone"`
	PhotoURL     string      `json:"photo_url,omitempty"`
	PasswordHash string      `json:"-"` // never serialised
	IsPublic     bool        `json:"is_public"`
	Roles        []RoleLevel `json:"roles"`
	RefreshToken string      `json:"-"` // never serialised
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// IsAdmin returns true if the user holds the admin role.
func (u *User) IsAdmin() bool {
	return HasLevel(u.Roles, RoleAdmin)
}

// Sentinel errors for auth operations.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailExists        = errors.New("email already registered")
	ErrTokenExpired       = errors.New("token has expired")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrNoSession          = errors.New("no active session for token")
	ErrForbidden          = errors.New("insufficient permissions")
)
