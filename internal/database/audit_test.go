package database

import (
	"context"
	"testing"
	"time"
)

func TestAuditRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for i, action := range []string{"user.login", "user.logout", "kv.put"} {
		entry := AuditEntry{
			Action:    action,
			Details:   "entry",
			IPAddress: "127.0.0.1",
			UserAgent: "test-agent",
		}
		if i == 0 {
			entry.Details = `details with <markup>`
		}
		if err := db.RecordAudit(ctx, entry); err != nil {
			t.Fatalf("record %s failed: %v", action, err)
		}
	}

	entries, err := db.RecentAudit(ctx, 2)
	if err != nil {
		t.Fatalf("recent failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	// Newest first.
	if entries[0].Action != "kv.put" || entries[1].Action != "user.logout" {
		t.Fatalf("expected newest-first ordering, got %s then %s", entries[0].Action, entries[1].Action)
	}

	all, err := db.RecentAudit(ctx, 0)
	if err != nil {
		t.Fatalf("recent failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 entries with default limit, got %d", len(all))
	}
	if all[2].Details != "details with &lt;markup&gt;" {
		t.Fatalf("expected sanitized details, got %q", all[2].Details)
	}
	if all[2].UserID != 0 {
		t.Fatalf("expected no user id, got %d", all[2].UserID)
	}
}

func TestPurgeAuditBefore(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.RecordAudit(ctx, AuditEntry{Action: "old"}); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	n, err := db.PurgeAuditBefore(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("purge failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected no entries older than an hour, got %d deleted", n)
	}

	n, err = db.PurgeAuditBefore(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("purge failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 entry purged, got %d", n)
	}
}

func TestDeleteExpiredSessions(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	userID, err := db.Insert(ctx, "users", Record{
		"username":      "alice",
		"email":         "alice@example.com",
		"password_hash": "x",
	})
	if err != nil {
		t.Fatalf("insert user failed: %v", err)
	}

	for token, expiresAt := range map[string]time.Time{
		"expired": time.Now().Add(-time.Minute),
		"live":    time.Now().Add(time.Hour),
	} {
		if _, err := db.Insert(ctx, "sessions", Record{
			"user_id":       userID,
			"session_token": token,
			"expires_at":    expiresAt,
		}); err != nil {
			t.Fatalf("insert session %s failed: %v", token, err)
		}
	}

	n, err := db.DeleteExpiredSessions(ctx)
	if err != nil {
		t.Fatalf("delete expired failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 expired session deleted, got %d", n)
	}

	row, err := db.FetchOne(ctx, "SELECT session_token FROM sessions")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if row == nil || row.String("session_token") != "live" {
		t.Fatalf("expected live session to survive, got %v", row)
	}
}
