// Package auth implements credential-based authentication and session
// management for ProfileHub.
//
// It provides:
//   - Argon2id password hashing (OWASP 2025 recommendation)
//   - Dual-secret JWT tokens: short-lived access tokens carrying the
//     user's email and role levels, and longer-lived refresh tokens
//     carrying the email only
//   - Single-session refresh tracking: the one currently-valid refresh
//     token is persisted on the user record, so a new login invalidates
//     the previous session
//   - A numeric role model (user=1000, admin=3000) where a gate level is
//     satisfied by any role at or above it
package auth
