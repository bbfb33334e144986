// Package config provides typed access to runtime settings stored in the
// app_data table, with defaults for missing or malformed values.
package config

import (
	"context"
	"encoding/json"
	"strconv"
	"time"
)

// SettingsGetter retrieves raw setting values from storage.
type SettingsGetter interface {
	GetAppData(ctx context.Context, key string) (string, error)
}

// Loader provides typed access to settings with default values. Stored
// values may be raw text or JSON-encoded; both forms are accepted.
type Loader struct {
	db SettingsGetter
}

// NewLoader creates a new settings loader.
func NewLoader(db SettingsGetter) *Loader {
	return &Loader{db: db}
}

func (l *Loader) raw(ctx context.Context, key string) string {
	val, _ := l.db.GetAppData(ctx, key)
	// Settings seeded via JSON keep their quotes; strip them for scalar use.
	var s string
	if json.Unmarshal([]byte(val), &s) == nil {
		return s
	}
	return val
}

// String retrieves a string setting, returning defaultVal if not found or
// empty.
func (l *Loader) String(ctx context.Context, key, defaultVal string) string {
	if val := l.raw(ctx, key); val != "" {
		return val
	}
	return defaultVal
}

// Int retrieves an integer setting, returning defaultVal if not found or
// invalid.
func (l *Loader) Int(ctx context.Context, key string, defaultVal int) int {
	if val := l.raw(ctx, key); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			return v
		}
	}
	return defaultVal
}

// Int64 retrieves an int64 setting, returning defaultVal if not found or
// invalid.
func (l *Loader) Int64(ctx context.Context, key string, defaultVal int64) int64 {
	if val := l.raw(ctx, key); val != "" {
		if v, err := strconv.ParseInt(val, 10, 64); err == nil {
			return v
		}
	}
	return defaultVal
}

// Bool retrieves a boolean setting, returning defaultVal if not found.
// Recognizes "true" as true, anything else as false.
func (l *Loader) Bool(ctx context.Context, key string, defaultVal bool) bool {
	if val := l.raw(ctx, key); val != "" {
		return val == "true"
	}
	return defaultVal
}

// Duration retrieves a duration setting in Go duration format (e.g. "1h30m"),
// returning defaultVal if not found or invalid.
func (l *Loader) Duration(ctx context.Context, key string, defaultVal time.Duration) time.Duration {
	if val := l.raw(ctx, key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
