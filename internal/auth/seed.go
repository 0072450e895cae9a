package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
)

// seedPasswordBytes is the number of random bytes for the seed admin password.
const seedPasswordBytes = 16

// seedAdminEmail is the login for the first-boot admin account.
const seedAdminEmail = "admin@profilehub.local"

// SeedAdmin creates the initial admin account on first boot if no users
// exist. Without it there is no account that can reach the admin surface
// or grant the role to anyone else. The generated password is logged
// once — it must be changed immediately.
// Returns the generated password (empty string if seeding was skipped).
func SeedAdmin(ctx context.Context, userRepo UserRepository, logger *slog.Logger) (string, error) {
	count, err := userRepo.Count(ctx)
	if err != nil {
		return "", fmt.Errorf("checking user count: %w", err)
	}

	if count > 0 {
		logger.Info("users exist, skipping admin seed")
		return "", nil
	}

	passwordBytes := make([]byte, seedPasswordBytes)
	if _, err := rand.Read(passwordBytes); err != nil { //nolint:govet // shadow: err re-declared in nested scope
		return "", fmt.Errorf("generating seed password: %w", err)
	}
	password := hex.EncodeToString(passwordBytes)

	hash, err := HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hashing seed password: %w", err)
	}

	admin := &User{
		Email:        seedAdminEmail,
		FullName:     "System Administrator",
		Phone:        "n/a",
		PasswordHash: hash,
		Roles:        []RoleLevel{RoleUser, RoleAdmin},
	}

	if err := userRepo.Create(ctx, admin); err != nil {
		return "", fmt.Errorf("creating seed admin: %w", err)
	}

	logger.Warn("seed admin account created",
		"email", seedAdminEmail,
		"password", password,
		"action_required", "change this password immediately",
	)

	return password, nil
}
