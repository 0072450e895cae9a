package auth

import (
	"database/sql"
	"os"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// testDB creates a temporary SQLite database with the users schema applied.
// The database file is cleaned up when the test completes.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	// Use a temp file so WAL mode works (in-memory doesn't support it)
	f, err := os.CreateTemp("", "auth-test-*.db")
	if err != nil {
		t.Fatalf("creating temp db: %v", err)
	}
	dbPath := f.Name()
	f.Close()
	t.Cleanup(func() { os.Remove(dbPath) })

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	migrationSQL := `
		CREATE TABLE users (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE,
			full_name     TEXT NOT NULL,
			bio           TEXT NOT NULL DEFAULT '',
			phone         TEXT NOT NULL,
			photo_url     TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL,
			is_public     INTEGER NOT NULL DEFAULT 0,
			role_user     INTEGER NOT NULL DEFAULT 1000,
			role_admin    INTEGER,
			refresh_token TEXT NOT NULL DEFAULT '',
			created_at    TEXT NOT NULL,
			updated_at    TEXT NOT NULL
		) STRICT;

		CREATE UNIQUE INDEX idx_users_email ON users(email);
		CREATE INDEX idx_users_refresh_token ON users(refresh_token)
			WHERE refresh_token <> '';
	`
	if _, err := db.Exec(migrationSQL); err != nil {
		t.Fatalf("applying users migration: %v", err)
	}

	return db
}

// seedTestUser inserts a test user with password "test-password" and returns it.
func seedTestUser(t *testing.T, db *sql.DB, email string, admin bool) *User {
	t.Helper()

	hash, err := HashPassword("test-password")
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}

	roles := []RoleLevel{RoleUser}
	if admin {
		roles = append(roles, RoleAdmin)
	}

	repo := NewUserRepository(db)
	user := &User{
		Email:        email,
		FullName:     "Test User",
		Phone:        "555-0100",
		PasswordHash: hash,
		Roles:        roles,
	}
	if err := repo.Create(t.Context(), user); err != nil {
		t.Fatalf("creating test user %s: %v", email, err)
	}
	return user
}
