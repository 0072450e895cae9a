package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// userColumns is the select list shared by every user query. Scan order
// must match scanUserFrom.
const userColumns = `id, email, full_name, bio, phone, photo_url, password_hash,
	is_public, role_user, role_admin, refresh_token, created_at, updated_at`

// UserRepository defines the interface for user account persistence.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByRefreshToken(ctx context.Context, token string) (*User, error)
	List(ctx context.Context) ([]User, error)
	ListPublic(ctx context.Context) ([]User, error)
	ListAdmins(ctx context.Context) ([]User, error)
	ListMembers(ctx context.Context) ([]User, error)
	Update(ctx context.Context, user *User) error
	SetRefreshToken(ctx context.Context, id, token string) error
	GrantAdmin(ctx context.Context, id string) error
	SetVisibility(ctx context.Context, id string, public bool) error
	Count(ctx context.Context) (int, error)
}

// SQLiteUserRepository implements UserRepository using SQLite.
type SQLiteUserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new SQLite-backed user repository.
func NewUserRepository(db *sql.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db}
}

// Create inserts a new user account. The ID is generated if empty, and
// every account starts with the user role; admin is granted separately.
func (r *SQLiteUserRepository) Create(ctx context.Context, user *User) error {
	if user.ID == "" {
		user.ID = "usr-" + uuid.NewString()[:8]
	}
	if len(user.Roles) == 0 {
		user.Roles = []RoleLevel{RoleUser}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	user.CreatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled
	user.UpdatedAt = user.CreatedAt

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, full_name, bio, phone, photo_url, password_hash,
		 is_public, role_user, role_admin, refresh_token, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.FullName, user.Bio, user.Phone, user.PhotoURL,
		user.PasswordHash, boolToInt(user.IsPublic),
		int(RoleUser), adminLevel(user.Roles), user.RefreshToken, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("creating user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by their unique ID.
func (r *SQLiteUserRepository) GetByID(ctx context.Context, id string) (*User, error) {
	return r.getUser(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
}

// GetByEmail retrieves a user by their normalised email address.
func (r *SQLiteUserRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getUser(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", email)
}

// GetByRefreshToken retrieves the user holding the given refresh token.
// Only tokens from an active session match; a cleared token is the empty
// string, which is never a valid lookup.
func (r *SQLiteUserRepository) GetByRefreshToken(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, ErrUserNotFound
	}
	return r.getUser(ctx, "SELECT "+userColumns+" FROM users WHERE refresh_token = ?", token)
}

// List returns all users ordered by creation date.
func (r *SQLiteUserRepository) List(ctx context.Context) ([]User, error) {
	return r.listUsers(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at ASC")
}

// ListPublic returns users who opted into the public directory.
func (r *SQLiteUserRepository) ListPublic(ctx context.Context) ([]User, error) {
	return r.listUsers(ctx, "SELECT "+userColumns+" FROM users WHERE is_public = 1 ORDER BY created_at ASC")
}

// ListAdmins returns users holding the admin role.
func (r *SQLiteUserRepository) ListAdmins(ctx context.Context) ([]User, error) {
	return r.listUsers(ctx, "SELECT "+userColumns+" FROM users WHERE role_admin IS NOT NULL ORDER BY created_at ASC")
}

// ListMembers returns users without the admin role.
func (r *SQLiteUserRepository) ListMembers(ctx context.Context) ([]User, error) {
	return r.listUsers(ctx, "SELECT "+userColumns+" FROM users WHERE role_admin IS NULL ORDER BY created_at ASC")
}

// Update persists a user's mutable profile fields: email, full name,
// bio, phone, photo URL, password hash, and visibility.
func (r *SQLiteUserRepository) Update(ctx context.Context, user *User) error {
	now := time.Now().UTC().Format(time.RFC3339)
	user.UpdatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled

	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET email = ?, full_name = ?, bio = ?, phone = ?, photo_url = ?,
		 password_hash = ?, is_public = ?, updated_at = ? WHERE id = ?`,
		user.Email, user.FullName, user.Bio, user.Phone, user.PhotoURL,
		user.PasswordHash, boolToInt(user.IsPublic), now, user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("updating user: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetRefreshToken replaces the persisted refresh token. An empty token
// ends the session.
func (r *SQLiteUserRepository) SetRefreshToken(ctx context.Context, id, token string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE users SET refresh_token = ? WHERE id = ?", token, id)
	if err != nil {
		return fmt.Errorf("setting refresh token: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

// GrantAdmin adds the admin role to a user. Granting twice is a no-op.
func (r *SQLiteUserRepository) GrantAdmin(ctx context.Context, id string) error {
	now := time.Now().UTC().Format(time.RFC3339)

	result, err := r.db.ExecContext(ctx,
		"UPDATE users SET role_admin = ?, updated_at = ? WHERE id = ?",
		int(RoleAdmin), now, id)
	if err != nil {
		return fmt.Errorf("granting admin role: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetVisibility toggles whether a profile appears in the public directory.
func (r *SQLiteUserRepository) SetVisibility(ctx context.Context, id string, public bool) error {
	now := time.Now().UTC().Format(time.RFC3339)

	result, err := r.db.ExecContext(ctx,
		"UPDATE users SET is_public = ?, updated_at = ? WHERE id = ?",
		boolToInt(public), now, id)
	if err != nil {
		return fmt.Errorf("setting visibility: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Count returns the total number of user accounts.
func (r *SQLiteUserRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return count, nil
}

// getUser executes a query and scans a single user result.
func (r *SQLiteUserRepository) getUser(ctx context.Context, query string, args ...any) (*User, error) {
	return scanUserFrom(r.db.QueryRowContext(ctx, query, args...))
}

// listUsers executes a query and scans all user results.
func (r *SQLiteUserRepository) listUsers(ctx context.Context, query string, args ...any) ([]User, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUserFrom(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating users: %w", err)
	}

	if users == nil {
		users = []User{}
	}
	return users, nil
}

// scanner is an interface for sql.Row and sql.Rows Scan methods.
type scanner interface {
	Scan(dest ...any) error
}

// scanUserFrom scans a user from any scanner (Row or Rows).
func scanUserFrom(s scanner) (*User, error) {
	var u User
	var roleUser int
	var roleAdmin sql.NullInt64
	var isPublic int
	var createdAt, updatedAt string

	err := s.Scan(&u.ID, &u.Email, &u.FullName, &u.Bio, &u.Phone, &u.PhotoURL,
		&u.PasswordHash, &isPublic, &roleUser, &roleAdmin,
		&u.RefreshToken, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("scanning user: %w", err)
	}

	u.IsPublic = isPublic != 0
	u.Roles = []RoleLevel{RoleLevel(roleUser)}
	if roleAdmin.Valid {
		u.Roles = append(u.Roles, RoleLevel(roleAdmin.Int64))
	}

	u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	u.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled

	return &u, nil
}

// adminLevel returns the admin role level for persistence, or NULL when
// the user does not hold it.
func adminLevel(roles []RoleLevel) sql.NullInt64 {
	if HasLevel(roles, RoleAdmin) {
		return sql.NullInt64{Int64: int64(RoleAdmin), Valid: true}
	}
	return sql.NullInt64{}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isUniqueViolation checks if a SQLite error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
