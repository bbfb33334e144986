package database

import (
	"testing"
	"time"
)

func TestRecordAccessors(t *testing.T) {
	rec := Record{
		"name":    "alice",
		"blob":    []byte("raw"),
		"count":   int64(42),
		"ratio":   3.9,
		"active":  int64(1),
		"flag":    true,
		"created": "2024-06-01 12:30:00",
	}

	if got := rec.String("name"); got != "alice" {
		t.Errorf("expected alice, got %q", got)
	}
	if got := rec.String("blob"); got != "raw" {
		t.Errorf("expected raw, got %q", got)
	}
	if got := rec.String("missing"); got != "" {
		t.Errorf("expected empty string for missing key, got %q", got)
	}

	if got := rec.Int64("count"); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
	if got := rec.Int64("ratio"); got != 3 {
		t.Errorf("expected truncated 3, got %d", got)
	}
	if got := rec.Int64("missing"); got != 0 {
		t.Errorf("expected 0 for missing key, got %d", got)
	}

	if !rec.Bool("active") || !rec.Bool("flag") {
		t.Error("expected truthy fields to read true")
	}
	if rec.Bool("missing") {
		t.Error("expected false for missing key")
	}

	want := time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)
	if got := rec.Time("created"); !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if !rec.Time("missing").IsZero() {
		t.Error("expected zero time for missing key")
	}
}

func TestParseSQLiteTimeLayouts(t *testing.T) {
	cases := []string{
		"2024-06-01T12:30:00.123456789Z",
		"2024-06-01 12:30:00.123456789+02:00",
		"2024-06-01 12:30:00",
		"2024-06-01",
	}
	for _, s := range cases {
		if parseSQLiteTime(s).IsZero() {
			t.Errorf("expected %q to parse", s)
		}
	}
	if !parseSQLiteTime("not a time").IsZero() {
		t.Error("expected unparseable input to yield zero time")
	}
}
