package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessClaims are the JWT claims carried by access tokens. Role levels
// travel inside the token so per-request authorisation never hits the
// database.
type AccessClaims struct {
	jwt.RegisteredClaims
	Email string      `json:"email"`
	Roles []RoleLevel `json:"roles"`
}

// RefreshClaims are the JWT claims carried by refresh tokens. Only the
// email — roles are re-read from the user record on every refresh, so a
// grant or revocation takes effect at the next access token.
type RefreshClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// TokenService issues and verifies the two token kinds. The secrets are
// independent: a leaked access secret cannot mint refresh tokens and
// vice versa.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewTokenService creates a token service with the given signing secrets
// and lifetimes.
func NewTokenService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// IssueAccessToken creates a signed short-lived access token embedding
// the user's email and role levels.
func (ts *TokenService) IssueAccessToken(email string, roles []RoleLevel) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.accessTTL)),
			ID:        uuid.NewString(),
		},
		Email: email,
		Roles: roles,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ts.accessSecret)
	if err != nil {
		return "", fmt.Errorf("signing access token: %w", err)
	}
	return signed, nil
}

// IssueRefreshToken creates a signed refresh token for the given email.
// The caller is responsible for persisting it on the user record.
func (ts *TokenService) IssueRefreshToken(email string) (string, error) {
	now := time.Now()
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.refreshTTL)),
			ID:        uuid.NewString(),
		},
		Email: email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ts.refreshSecret)
	if err != nil {
		return "", fmt.Errorf("signing refresh token: %w", err)
	}
	return signed, nil
}

// RefreshTTL returns the configured refresh token lifetime. The HTTP
// layer uses it for the cookie Max-Age.
func (ts *TokenService) RefreshTTL() time.Duration {
	return ts.refreshTTL
}

// ParseAccessToken validates and parses an access token. It returns
// ErrTokenExpired for tokens past their expiry and ErrTokenInvalid for
// everything else (bad signature, wrong algorithm, malformed, missing
// email).
func (ts *TokenService) ParseAccessToken(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := ts.parse(tokenString, ts.accessSecret, claims); err != nil {
		return nil, err
	}
	if claims.Email == "" {
		return nil, fmt.Errorf("%w: missing email", ErrTokenInvalid)
	}
	if len(claims.Roles) == 0 {
		return nil, fmt.Errorf("%w: missing roles", ErrTokenInvalid)
	}
	return claims, nil
}

// ParseRefreshToken validates and parses a refresh token, with the same
// error contract as ParseAccessToken.
func (ts *TokenService) ParseRefreshToken(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := ts.parse(tokenString, ts.refreshSecret, claims); err != nil {
		return nil, err
	}
	if claims.Email == "" {
		return nil, fmt.Errorf("%w: missing email", ErrTokenInvalid)
	}
	return claims, nil
}

// parse verifies signature, algorithm, and expiry against the given secret.
func (ts *TokenService) parse(tokenString string, secret []byte, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return ErrTokenInvalid
	}
	return nil
}
