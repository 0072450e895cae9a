// Package database provides SQLite connection management and schema
// migrations for ProfileHub.
//
// This package manages:
//   - Opening the SQLite database with WAL mode and busy timeout
//   - Embedded SQL migrations (applied in version order, one transaction each)
//   - Health checks for the readiness endpoint
//
// SQLite is a deliberate choice here: the credential store serialises
// per-record updates at the storage layer, which is the only atomicity
// the session model needs (a login overwrites a single user row).
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: "./data/profilehub.db", WALMode: true, BusyTimeout: 5})
//	if err != nil { ... }
//	defer db.Close()
//	if err := db.Migrate(ctx); err != nil { ... }
package database
