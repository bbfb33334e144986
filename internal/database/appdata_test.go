package database

import (
	"context"
	"testing"
)

func TestAppDataRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	val, err := db.GetAppData(ctx, "missing")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if val != "" {
		t.Fatalf("expected empty value for missing key, got %q", val)
	}

	if err := db.SetAppData(ctx, "site.name", "GoFusion", DataTypeText); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	val, err = db.GetAppData(ctx, "site.name")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if val != "GoFusion" {
		t.Fatalf("expected GoFusion, got %q", val)
	}

	// Setting again overwrites instead of duplicating.
	if err := db.SetAppData(ctx, "site.name", "Fusion2", DataTypeText); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	val, _ = db.GetAppData(ctx, "site.name")
	if val != "Fusion2" {
		t.Fatalf("expected Fusion2 after overwrite, got %q", val)
	}

	all, err := db.AllAppData(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if all["site.name"] != "Fusion2" {
		t.Fatalf("expected listed value Fusion2, got %q", all["site.name"])
	}

	if err := db.DeleteAppData(ctx, "site.name"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	val, _ = db.GetAppData(ctx, "site.name")
	if val != "" {
		t.Fatalf("expected empty value after delete, got %q", val)
	}
}

func TestAppDataJSON(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	type prefs struct {
		Theme string `json:"theme"`
		Limit int    `json:"limit"`
	}
	in := prefs{Theme: "dark", Limit: 25}
	if err := db.SetAppDataJSON(ctx, "ui.prefs", in); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	var out prefs
	if err := db.GetAppDataJSON(ctx, "ui.prefs", &out); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if out != in {
		t.Fatalf("expected %+v, got %+v", in, out)
	}
}

func TestInitializeDefaultsDoesNotOverwrite(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.SetAppData(ctx, "log.level", "debug", DataTypeText); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := db.InitializeDefaults(ctx); err != nil {
		t.Fatalf("initialize defaults failed: %v", err)
	}

	val, err := db.GetAppData(ctx, "log.level")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if val != "debug" {
		t.Fatalf("expected existing setting to survive defaults, got %q", val)
	}

	// Untouched keys picked up their defaults.
	val, _ = db.GetAppData(ctx, "session.duration")
	if val == "" {
		t.Fatal("expected session.duration default to be seeded")
	}
}

func TestIsFirstRun(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first, err := db.IsFirstRun(ctx)
	if err != nil {
		t.Fatalf("first run check failed: %v", err)
	}
	if !first {
		t.Fatal("expected fresh database to report first run")
	}

	if _, err := db.Insert(ctx, "users", Record{
		"username":      "admin",
		"email":         "admin@example.com",
		"password_hash": "x",
	}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	first, err = db.IsFirstRun(ctx)
	if err != nil {
		t.Fatalf("first run check failed: %v", err)
	}
	if first {
		t.Fatal("expected first run to be false once a user exists")
	}
}
