package database

import (
	"time"
)

// Record is a materialized row, keyed by column name. Duplicate column names
// are disallowed by schema design.
type Record map[string]any

// String returns the named field as a string, converting byte slices.
// Missing or non-string fields yield "".
func (r Record) String(key string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return ""
	}
}

// Int64 returns the named field as an int64. Missing or non-numeric fields
// yield 0.
func (r Record) Int64(key string) int64 {
	switch v := r[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

// Bool interprets the named field the way SQLite stores booleans (integer
// 0/1), falling back to a native bool.
func (r Record) Bool(key string) bool {
	switch v := r[key].(type) {
	case bool:
		return v
	case int64:
		return v != 0
	case int:
		return v != 0
	default:
		return false
	}
}

// Time returns the named field as a time.Time, parsing the textual layouts
// SQLite produces for TIMESTAMP columns. Missing or unparseable fields yield
// the zero time.
func (r Record) Time(key string) time.Time {
	switch v := r[key].(type) {
	case time.Time:
		return v
	case string:
		return parseSQLiteTime(v)
	case []byte:
		return parseSQLiteTime(string(v))
	default:
		return time.Time{}
	}
}

var sqliteTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseSQLiteTime(s string) time.Time {
	for _, layout := range sqliteTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
