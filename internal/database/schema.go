package database

import (
	"context"
	"fmt"
)

// Baseline schema. Owned entirely by this package; created idempotently on
// Open, ahead of any user-registered migrations.
var baseTables = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT UNIQUE NOT NULL,
		email TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		is_active BOOLEAN DEFAULT TRUE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER REFERENCES users(id) ON DELETE CASCADE,
		session_token TEXT UNIQUE NOT NULL,
		expires_at TIMESTAMP NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS app_data (
		key TEXT PRIMARY KEY,
		value TEXT,
		data_type TEXT DEFAULT 'text',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS audit_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		action TEXT NOT NULL,
		user_id INTEGER,
		details TEXT,
		ip_address TEXT,
		user_agent TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_token ON sessions(session_token)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_created ON audit_log(created_at)`,
}

func (db *DB) createBaseTables(ctx context.Context) error {
	for _, stmt := range baseTables {
		if _, err := db.Execute(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create base schema: %w", err)
		}
	}
	return nil
}

// IsFirstRun reports whether any user account exists yet.
func (db *DB) IsFirstRun(ctx context.Context) (bool, error) {
	rec, err := db.FetchOne(ctx, "SELECT COUNT(*) AS n FROM users")
	if err != nil {
		return false, fmt.Errorf("failed to check users: %w", err)
	}
	return rec.Int64("n") == 0, nil
}
