package config

import (
	"context"
	"testing"
	"time"
)

type fakeSettings map[string]string

func (f fakeSettings) GetAppData(_ context.Context, key string) (string, error) {
	return f[key], nil
}

func TestStringPlainAndJSONQuoted(t *testing.T) {
	l := NewLoader(fakeSettings{
		"plain":  "info",
		"quoted": `"debug"`,
	})
	ctx := context.Background()

	if got := l.String(ctx, "plain", "x"); got != "info" {
		t.Errorf("expected info, got %q", got)
	}
	if got := l.String(ctx, "quoted", "x"); got != "debug" {
		t.Errorf("expected JSON quotes stripped, got %q", got)
	}
	if got := l.String(ctx, "missing", "fallback"); got != "fallback" {
		t.Errorf("expected fallback, got %q", got)
	}
}

func TestInt(t *testing.T) {
	l := NewLoader(fakeSettings{
		"size": "50",
		"bad":  "not-a-number",
	})
	ctx := context.Background()

	if got := l.Int(ctx, "size", 1); got != 50 {
		t.Errorf("expected 50, got %d", got)
	}
	if got := l.Int(ctx, "bad", 7); got != 7 {
		t.Errorf("expected default for malformed value, got %d", got)
	}
	if got := l.Int64(ctx, "size", 1); got != 50 {
		t.Errorf("expected 50, got %d", got)
	}
	if got := l.Int(ctx, "missing", 9); got != 9 {
		t.Errorf("expected default for missing key, got %d", got)
	}
}

func TestBool(t *testing.T) {
	l := NewLoader(fakeSettings{
		"on":  "true",
		"off": "false",
	})
	ctx := context.Background()

	if !l.Bool(ctx, "on", false) {
		t.Error("expected true")
	}
	if l.Bool(ctx, "off", true) {
		t.Error("expected false")
	}
	if !l.Bool(ctx, "missing", true) {
		t.Error("expected default for missing key")
	}
}

func TestDuration(t *testing.T) {
	l := NewLoader(fakeSettings{
		"ttl":  "1h30m",
		"week": `"168h"`,
		"junk": "soon",
	})
	ctx := context.Background()

	if got := l.Duration(ctx, "ttl", time.Minute); got != 90*time.Minute {
		t.Errorf("expected 90m, got %v", got)
	}
	if got := l.Duration(ctx, "week", time.Minute); got != 168*time.Hour {
		t.Errorf("expected 168h, got %v", got)
	}
	if got := l.Duration(ctx, "junk", time.Minute); got != time.Minute {
		t.Errorf("expected default for malformed value, got %v", got)
	}
}
