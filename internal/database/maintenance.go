package database

import (
	"context"
	"fmt"
	"time"
)

// DeleteExpiredSessions removes sessions whose expiry has passed and returns
// how many were deleted.
func (db *DB) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	return db.Delete(ctx, "sessions", "expires_at < ?", time.Now())
}

// Optimize runs SQLite's PRAGMA optimize to refresh planner stats.
func (db *DB) Optimize(ctx context.Context) error {
	if _, err := db.Execute(ctx, "PRAGMA optimize"); err != nil {
		return fmt.Errorf("failed to optimize database: %w", err)
	}
	return nil
}

// Vacuum rebuilds the database file to reclaim unused space.
func (db *DB) Vacuum(ctx context.Context) error {
	if _, err := db.Execute(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}
	return nil
}
