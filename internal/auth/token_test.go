package auth

import (
	"errors"
	"testing"
	"time"
)

const (
	testAccessSecret  = "access-secret-for-tests-32-bytes"
	testRefreshSecret = "refresh-secret-for-tests-32-byte"
)

// testTokenService returns a token service with generous TTLs for
// round-trip tests.
func testTokenService() *TokenService {
	return NewTokenService(testAccessSecret, testRefreshSecret, time.Minute, time.Hour)
}

func TestAccessToken_RoundTrip(t *testing.T) {
	ts := testTokenService()

	token, err := ts.IssueAccessToken("alice@example.com", []RoleLevel{RoleUser, RoleAdmin})
	if err != nil {
		t.Fatalf("IssueAccessToken() error = %v", err)
	}

	claims, err := ts.ParseAccessToken(token)
	if err != nil {
		t.Fatalf("ParseAccessToken() error = %v", err)
	}

	if claims.Email != "alice@example.com" {
		t.Errorf("Email = %q, want %q", claims.Email, "alice@example.com")
	}
	if len(claims.Roles) != 2 || claims.Roles[0] != RoleUser || claims.Roles[1] != RoleAdmin {
		t.Errorf("Roles = %v, want [%d %d]", claims.Roles, RoleUser, RoleAdmin)
	}
	if claims.ID == "" {
		t.Error("token should carry a unique ID")
	}
}

func TestRefreshToken_RoundTrip(t *testing.T) {
	ts := testTokenService()

	token, err := ts.IssueRefreshToken("alice@example.com")
	if err != nil {
		t.Fatalf("IssueRefreshToken() error = %v", err)
	}

	claims, err := ts.ParseRefreshToken(token)
	if err != nil {
		t.Fatalf("ParseRefreshToken() error = %v", err)
	}
	if claims.Email != "alice@example.com" {
		t.Errorf("Email = %q, want %q", claims.Email, "alice@example.com")
	}
}

func TestParseAccessToken_WrongSecret(t *testing.T) {
	ts := testTokenService()

	token, err := ts.IssueAccessToken("alice@example.com", []RoleLevel{RoleUser})
	if err != nil {
		t.Fatalf("IssueAccessToken() error = %v", err)
	}

	other := NewTokenService("a-completely-different-secret-32b", testRefreshSecret, time.Minute, time.Hour)
	if _, err := other.ParseAccessToken(token); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("error = %v, want ErrTokenInvalid", err)
	}
}

func TestParseAccessToken_Expired(t *testing.T) {
	ts := NewTokenService(testAccessSecret, testRefreshSecret, -time.Minute, time.Hour)

	token, err := ts.IssueAccessToken("alice@example.com", []RoleLevel{RoleUser})
	if err != nil {
		t.Fatalf("IssueAccessToken() error = %v", err)
	}

	_, err = ts.ParseAccessToken(token)
	if !errors.Is(err, ErrTokenExpired) {
		t.Errorf("error = %v, want ErrTokenExpired", err)
	}
	if errors.Is(err, ErrTokenInvalid) {
		t.Error("expired token should not also report ErrTokenInvalid")
	}
}

func TestParseRefreshToken_Expired(t *testing.T) {
	ts := NewTokenService(testAccessSecret, testRefreshSecret, time.Minute, -time.Hour)

	token, err := ts.IssueRefreshToken("alice@example.com")
	if err != nil {
		t.Fatalf("IssueRefreshToken() error = %v", err)
	}

	if _, err := ts.ParseRefreshToken(token); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("error = %v, want ErrTokenExpired", err)
	}
}

func TestParseAccessToken_Malformed(t *testing.T) {
	ts := testTokenService()

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := ts.ParseAccessToken(token); !errors.Is(err, ErrTokenInvalid) {
			t.Errorf("ParseAccessToken(%q) error = %v, want ErrTokenInvalid", token, err)
		}
	}
}

func TestTokens_SecretsAreIndependent(t *testing.T) {
	ts := testTokenService()

	// A refresh token must never verify as an access token, even though
	// both are HS256 and the payloads overlap.
	refresh, err := ts.IssueRefreshToken("alice@example.com")
	if err != nil {
		t.Fatalf("IssueRefreshToken() error = %v", err)
	}
	if _, err := ts.ParseAccessToken(refresh); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("refresh token parsed as access token: error = %v, want ErrTokenInvalid", err)
	}

	access, err := ts.IssueAccessToken("alice@example.com", []RoleLevel{RoleUser})
	if err != nil {
		t.Fatalf("IssueAccessToken() error = %v", err)
	}
	if _, err := ts.ParseRefreshToken(access); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("access token parsed as refresh token: error = %v, want ErrTokenInvalid", err)
	}
}

func TestRefreshTTL(t *testing.T) {
	ts := testTokenService()
	if got := ts.RefreshTTL(); got != time.Hour {
		t.Errorf("RefreshTTL() = %v, want %v", got, time.Hour)
	}
}
