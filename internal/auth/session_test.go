package auth

import (
	"database/sql"
	"errors"
	"log/slog"
	"testing"
	"time"
)

// testSessionManager wires a session manager over a fresh test database.
func testSessionManager(t *testing.T) (*SessionManager, *SQLiteUserRepository, *sql.DB) {
	t.Helper()

	db := testDB(t)
	repo := NewUserRepository(db)
	tokens := testTokenService()
	sm := NewSessionManager(repo, tokens, slog.New(slog.DiscardHandler))
	return sm, repo, db
}

func TestLogin_Success(t *testing.T) {
	sm, repo, db := testSessionManager(t)
	user := seedTestUser(t, db, "alice@example.com", false)

	result, err := sm.Login(t.Context(), "alice@example.com", "test-password")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Fatal("Login() should return both tokens")
	}
	if len(result.Roles) != 1 || result.Roles[0] != RoleUser {
		t.Errorf("Roles = %v, want [%d]", result.Roles, RoleUser)
	}

	// The refresh token must be persisted on the user record.
	stored, err := repo.GetByID(t.Context(), user.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stored.RefreshToken != result.RefreshToken {
		t.Error("refresh token should be persisted on login")
	}
}

func TestLogin_NormalisesEmail(t *testing.T) {
	sm, _, db := testSessionManager(t)
	seedTestUser(t, db, "alice@example.com", false)

	if _, err := sm.Login(t.Context(), "  Alice@Example.COM ", "test-password"); err != nil {
		t.Errorf("Login() with unnormalised email error = %v", err)
	}
}

func TestLogin_OpaqueFailures(t *testing.T) {
	sm, _, db := testSessionManager(t)
	seedTestUser(t, db, "alice@example.com", false)

	// Unknown email and wrong password must be indistinguishable.
	if _, err := sm.Login(t.Context(), "nobody@example.com", "test-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email error = %v, want ErrInvalidCredentials", err)
	}
	if _, err := sm.Login(t.Context(), "alice@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v, want ErrInvalidCredentials", err)
	}
}

func TestLogin_OverwritesPreviousSession(t *testing.T) {
	sm, _, db := testSessionManager(t)
	seedTestUser(t, db, "alice@example.com", false)

	first, err := sm.Login(t.Context(), "alice@example.com", "test-password")
	if err != nil {
		t.Fatalf("first Login() error = %v", err)
	}

	// Token IDs are unique, so a second login always produces a new value.
	second, err := sm.Login(t.Context(), "alice@example.com", "test-password")
	if err != nil {
		t.Fatalf("second Login() error = %v", err)
	}
	if first.RefreshToken == second.RefreshToken {
		t.Fatal("each login should issue a distinct refresh token")
	}

	// The first session's token no longer matches any record.
	if _, err := sm.Refresh(t.Context(), first.RefreshToken); !errors.Is(err, ErrNoSession) {
		t.Errorf("old token Refresh() error = %v, want ErrNoSession", err)
	}

	// The second session still works.
	if _, err := sm.Refresh(t.Context(), second.RefreshToken); err != nil {
		t.Errorf("current token Refresh() error = %v", err)
	}
}

func TestRefresh_Success(t *testing.T) {
	sm, repo, db := testSessionManager(t)
	user := seedTestUser(t, db, "alice@example.com", false)

	result, err := sm.Login(t.Context(), "alice@example.com", "test-password")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	refreshed, err := sm.Refresh(t.Context(), result.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if refreshed.AccessToken == "" {
		t.Fatal("Refresh() should return a new access token")
	}
	if len(refreshed.Roles) != 1 || refreshed.Roles[0] != RoleUser {
		t.Errorf("Roles = %v, want [%d]", refreshed.Roles, RoleUser)
	}

	claims, err := testTokenService().ParseAccessToken(refreshed.AccessToken)
	if err != nil {
		t.Fatalf("ParseAccessToken() error = %v", err)
	}
	if claims.Email != "alice@example.com" {
		t.Errorf("refreshed token email = %q, want original email", claims.Email)
	}

	// The refresh token is not rotated: the stored value is unchanged
	// and a second refresh with the same token succeeds.
	stored, err := repo.GetByID(t.Context(), user.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stored.RefreshToken != result.RefreshToken {
		t.Error("refresh should not rotate the stored token")
	}
	if _, err := sm.Refresh(t.Context(), result.RefreshToken); err != nil {
		t.Errorf("second Refresh() error = %v", err)
	}
}

func TestRefresh_ReflectsRoleGrant(t *testing.T) {
	sm, repo, db := testSessionManager(t)
	user := seedTestUser(t, db, "alice@example.com", false)

	result, err := sm.Login(t.Context(), "alice@example.com", "test-password")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	if err := repo.GrantAdmin(t.Context(), user.ID); err != nil {
		t.Fatalf("GrantAdmin() error = %v", err)
	}

	refreshed, err := sm.Refresh(t.Context(), result.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	claims, err := testTokenService().ParseAccessToken(refreshed.AccessToken)
	if err != nil {
		t.Fatalf("ParseAccessToken() error = %v", err)
	}
	if !HasLevel(claims.Roles, RoleAdmin) {
		t.Errorf("refreshed token roles = %v, want admin present", claims.Roles)
	}
}

func TestRefresh_UnknownToken(t *testing.T) {
	sm, _, db := testSessionManager(t)
	seedTestUser(t, db, "alice@example.com", false)

	token, err := testTokenService().IssueRefreshToken("alice@example.com")
	if err != nil {
		t.Fatalf("IssueRefreshToken() error = %v", err)
	}

	// Valid signature but never persisted: no session.
	if _, err := sm.Refresh(t.Context(), token); !errors.Is(err, ErrNoSession) {
		t.Errorf("Refresh() error = %v, want ErrNoSession", err)
	}
}

func TestRefresh_ExpiredTokenEndsSession(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	tokens := NewTokenService(testAccessSecret, testRefreshSecret, time.Minute, -time.Hour)
	sm := NewSessionManager(repo, tokens, slog.New(slog.DiscardHandler))

	user := seedTestUser(t, db, "alice@example.com", false)

	result, err := sm.Login(t.Context(), "alice@example.com", "test-password")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	if _, err := sm.Refresh(t.Context(), result.RefreshToken); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("Refresh() error = %v, want ErrTokenExpired", err)
	}

	// The failed verification ends the session.
	stored, err := repo.GetByID(t.Context(), user.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stored.RefreshToken != "" {
		t.Error("expired token should be cleared from the user record")
	}
}

func TestRefresh_ForeignSignatureEndsSession(t *testing.T) {
	sm, repo, db := testSessionManager(t)
	user := seedTestUser(t, db, "alice@example.com", false)

	// A token signed with a different secret, planted on the record.
	forged, err := NewTokenService(testAccessSecret, "attacker-controlled-secret-32-by", time.Minute, time.Hour).
		IssueRefreshToken("alice@example.com")
	if err != nil {
		t.Fatalf("IssueRefreshToken() error = %v", err)
	}
	if err := repo.SetRefreshToken(t.Context(), user.ID, forged); err != nil {
		t.Fatalf("SetRefreshToken() error = %v", err)
	}

	if _, err := sm.Refresh(t.Context(), forged); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("Refresh() error = %v, want ErrTokenInvalid", err)
	}

	stored, err := repo.GetByID(t.Context(), user.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stored.RefreshToken != "" {
		t.Error("invalid token should be cleared from the user record")
	}
}

func TestRefresh_SubjectMismatchEndsSession(t *testing.T) {
	sm, repo, db := testSessionManager(t)
	alice := seedTestUser(t, db, "alice@example.com", false)

	// A validly signed token for bob, stored on alice's record.
	bobToken, err := testTokenService().IssueRefreshToken("bob@example.com")
	if err != nil {
		t.Fatalf("IssueRefreshToken() error = %v", err)
	}
	if err := repo.SetRefreshToken(t.Context(), alice.ID, bobToken); err != nil {
		t.Fatalf("SetRefreshToken() error = %v", err)
	}

	if _, err := sm.Refresh(t.Context(), bobToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("Refresh() error = %v, want ErrTokenInvalid", err)
	}

	stored, err := repo.GetByID(t.Context(), alice.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stored.RefreshToken != "" {
		t.Error("mismatched token should be cleared from the user record")
	}
}

func TestLogout(t *testing.T) {
	sm, repo, db := testSessionManager(t)
	user := seedTestUser(t, db, "alice@example.com", false)

	result, err := sm.Login(t.Context(), "alice@example.com", "test-password")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	found, err := sm.Logout(t.Context(), result.RefreshToken)
	if err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if !found {
		t.Error("Logout() should find the active session")
	}

	stored, err := repo.GetByID(t.Context(), user.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stored.RefreshToken != "" {
		t.Error("logout should clear the persisted token")
	}

	// Idempotent: a second logout with the same token is a clean no-op.
	found, err = sm.Logout(t.Context(), result.RefreshToken)
	if err != nil {
		t.Fatalf("second Logout() error = %v", err)
	}
	if found {
		t.Error("second Logout() should not find a session")
	}

	// And the token no longer refreshes.
	if _, err := sm.Refresh(t.Context(), result.RefreshToken); !errors.Is(err, ErrNoSession) {
		t.Errorf("Refresh() after logout error = %v, want ErrNoSession", err)
	}
}

func TestLogout_UnknownToken(t *testing.T) {
	sm, _, _ := testSessionManager(t)

	found, err := sm.Logout(t.Context(), "never-issued")
	if err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if found {
		t.Error("Logout() with unknown token should report found=false")
	}
}
