package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Data types recorded in app_data's data_type column.
const (
	DataTypeText = "text"
	DataTypeJSON = "json"
)

// GetAppData retrieves a value from the app_data key-value store. A missing
// key yields "".
func (db *DB) GetAppData(ctx context.Context, key string) (string, error) {
	rec, err := db.FetchOne(ctx, "SELECT value FROM app_data WHERE key = ?", key)
	if err != nil {
		return "", fmt.Errorf("failed to get app data %s: %w", key, err)
	}
	if rec == nil {
		return "", nil
	}
	return rec.String("value"), nil
}

// SetAppData stores a value, creating or replacing the key.
func (db *DB) SetAppData(ctx context.Context, key, value, dataType string) error {
	if dataType == "" {
		dataType = DataTypeText
	}
	_, err := db.Execute(ctx, `
		INSERT INTO app_data (key, value, data_type, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, data_type = excluded.data_type, updated_at = excluded.updated_at
	`, key, value, dataType, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set app data %s: %w", key, err)
	}
	return nil
}

// GetAppDataJSON retrieves a value and unmarshals it from JSON. A missing
// key leaves v untouched.
func (db *DB) GetAppDataJSON(ctx context.Context, key string, v any) error {
	value, err := db.GetAppData(ctx, key)
	if err != nil {
		return err
	}
	if value == "" {
		return nil
	}
	return json.Unmarshal([]byte(value), v)
}

// SetAppDataJSON stores a value as JSON.
func (db *DB) SetAppDataJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal app data %s: %w", key, err)
	}
	return db.SetAppData(ctx, key, string(data), DataTypeJSON)
}

// AllAppData retrieves every key-value pair.
func (db *DB) AllAppData(ctx context.Context) (map[string]string, error) {
	records, err := db.FetchAll(ctx, "SELECT key, value FROM app_data")
	if err != nil {
		return nil, fmt.Errorf("failed to get app data: %w", err)
	}

	data := make(map[string]string, len(records))
	for _, rec := range records {
		data[rec.String("key")] = rec.String("value")
	}
	return data, nil
}

// DeleteAppData removes a key.
func (db *DB) DeleteAppData(ctx context.Context, key string) error {
	if _, err := db.Delete(ctx, "app_data", "key = ?", key); err != nil {
		return fmt.Errorf("failed to delete app data %s: %w", key, err)
	}
	return nil
}

// DefaultSettings seed the runtime settings stored in app_data.
var DefaultSettings = map[string]any{
	"log.level":                      "info",
	"log.max_size_mb":                50,
	"log.max_backups":                5,
	"log.max_age_days":               30,
	"log.compress":                   true,
	"session.duration":               "168h",
	"cache.ttl":                      "1h",
	"maintenance.session_purge_cron": "@every 15m",
	"maintenance.audit_trim_cron":    "@daily",
	"maintenance.audit_retention_days": 90,
	"maintenance.optimize_cron":      "@daily",
}

// InitializeDefaults stores default values for settings that don't exist.
func (db *DB) InitializeDefaults(ctx context.Context) error {
	for key, value := range DefaultSettings {
		existing, err := db.GetAppData(ctx, key)
		if err != nil {
			return err
		}
		if existing == "" {
			if err := db.SetAppDataJSON(ctx, key, value); err != nil {
				return err
			}
		}
	}
	return nil
}
