package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// SessionManager owns the login/refresh/logout lifecycle. At most one
// session per user: each login overwrites the persisted refresh token,
// silently ending any previous session.
type SessionManager struct {
	users  UserRepository
	tokens *TokenService
	logger *slog.Logger
}

// NewSessionManager creates a session manager.
func NewSessionManager(users UserRepository, tokens *TokenService, logger *slog.Logger) *SessionManager {
	return &SessionManager{users: users, tokens: tokens, logger: logger}
}

// LoginResult is returned on successful authentication. The refresh
// token goes into the session cookie, everything else into the response
// body.
type LoginResult struct {
	User         *User
	Roles        []RoleLevel
	AccessToken  string
	RefreshToken string
}

// Login verifies credentials and starts a session. Unknown email and
// wrong password both return ErrInvalidCredentials so the response never
// reveals which accounts exist.
func (sm *SessionManager) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = NormalizeEmail(email)

	user, err := sm.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	ok, err := VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verifying password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	accessToken, err := sm.tokens.IssueAccessToken(user.Email, user.Roles)
	if err != nil {
		return nil, err
	}
	refreshToken, err := sm.tokens.IssueRefreshToken(user.Email)
	if err != nil {
		return nil, err
	}

	if err := sm.users.SetRefreshToken(ctx, user.ID, refreshToken); err != nil {
		return nil, fmt.Errorf("persisting refresh token: %w", err)
	}

	sm.logger.Info("user logged in", "user_id", user.ID)

	return &LoginResult{
		User:         user,
		Roles:        user.Roles,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// RefreshResult is returned on successful token refresh.
type RefreshResult struct {
	Roles       []RoleLevel
	AccessToken string
}

// Refresh exchanges a valid refresh token for a new access token. The
// refresh token itself is not rotated and stays valid until expiry or
// the next login.
//
// The token must match a persisted session, carry a valid signature, be
// unexpired, and name the same email as the matched record. A token that
// matches a record but fails verification ends that session: the
// persisted token is cleared so it can never be replayed.
func (sm *SessionManager) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	user, err := sm.users.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("looking up session: %w", err)
	}

	claims, err := sm.tokens.ParseRefreshToken(refreshToken)
	if err != nil {
		sm.endSession(ctx, user, "refresh token failed verification")
		return nil, err
	}

	if claims.Email != user.Email {
		// Signed for a different account than the one holding it.
		sm.endSession(ctx, user, "refresh token email mismatch")
		return nil, fmt.Errorf("%w: subject mismatch", ErrTokenInvalid)
	}

	// Roles come from the current record, not the old token, so grants
	// and revocations apply from the next refresh onwards.
	accessToken, err := sm.tokens.IssueAccessToken(user.Email, user.Roles)
	if err != nil {
		return nil, err
	}

	return &RefreshResult{Roles: user.Roles, AccessToken: accessToken}, nil
}

// Logout ends the session holding the given refresh token. It is
// idempotent: an unknown or already-cleared token reports found=false
// with no error, and the HTTP layer clears the cookie either way.
func (sm *SessionManager) Logout(ctx context.Context, refreshToken string) (found bool, err error) {
	user, err := sm.users.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("looking up session: %w", err)
	}

	if err := sm.users.SetRefreshToken(ctx, user.ID, ""); err != nil {
		return false, fmt.Errorf("clearing refresh token: %w", err)
	}

	sm.logger.Info("user logged out", "user_id", user.ID)
	return true, nil
}

// endSession clears a user's persisted refresh token after a failed
// verification. Best effort: the caller's verification error is the one
// that matters.
func (sm *SessionManager) endSession(ctx context.Context, user *User, reason string) {
	if err := sm.users.SetRefreshToken(ctx, user.ID, ""); err != nil {
		sm.logger.Error("failed to clear refresh token", "user_id", user.ID, "error", err)
		return
	}
	sm.logger.Warn("session ended", "user_id", user.ID, "reason", reason)
}
