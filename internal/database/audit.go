package database

import (
	"context"
	"fmt"
	"time"
)

// AuditEntry is one row of the audit trail.
type AuditEntry struct {
	ID        int64
	Action    string
	UserID    int64 // zero when the action has no associated user
	Details   string
	IPAddress string
	UserAgent string
	CreatedAt time.Time
}

// RecordAudit appends an entry to the audit log. Inserts go through the
// generic Insert path, so free-text details are sanitized like any other
// stored field.
func (db *DB) RecordAudit(ctx context.Context, entry AuditEntry) error {
	data := Record{
		"action":     entry.Action,
		"details":    entry.Details,
		"ip_address": entry.IPAddress,
		"user_agent": entry.UserAgent,
	}
	if entry.UserID != 0 {
		data["user_id"] = entry.UserID
	}

	if _, err := db.Insert(ctx, "audit_log", data); err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}

// RecentAudit returns the newest limit audit entries, newest first.
func (db *DB) RecentAudit(ctx context.Context, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	records, err := db.FetchAll(ctx, `
		SELECT id, action, user_id, details, ip_address, user_agent, created_at
		FROM audit_log ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]AuditEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, AuditEntry{
			ID:        rec.Int64("id"),
			Action:    rec.String("action"),
			UserID:    rec.Int64("user_id"),
			Details:   rec.String("details"),
			IPAddress: rec.String("ip_address"),
			UserAgent: rec.String("user_agent"),
			CreatedAt: rec.Time("created_at"),
		})
	}
	return entries, nil
}

// PurgeAuditBefore removes audit entries older than the cutoff and returns
// how many were deleted. The cutoff is compared in the UTC text form
// CURRENT_TIMESTAMP writes.
func (db *DB) PurgeAuditBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return db.Delete(ctx, "audit_log", "created_at < ?", cutoff.UTC().Format("2006-01-02 15:04:05"))
}
