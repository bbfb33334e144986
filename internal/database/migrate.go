package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Migration is a named, ordered, reversible schema change unit. Versions are
// sortable strings (timestamp-prefixed by convention); ascending version
// order is the apply order. Up and Down run inside the same transaction as
// the bookkeeping row for their version, so a failed step leaves no partial
// record.
type Migration struct {
	Version     string
	Description string
	Up          func(ctx context.Context, tx *sql.Tx) error
	Down        func(ctx context.Context, tx *sql.Tx) error
}

// AppliedMigration is one row of migration history.
type AppliedMigration struct {
	Version     string
	Description string
	AppliedAt   time.Time
}

// Status is a read-only snapshot of migration state.
type Status struct {
	Applied        []string
	Pending        []string
	TotalApplied   int
	TotalPending   int
	CurrentVersion string
}

// Migrator applies and reverts an explicitly registered, ordered list of
// migrations, recording history in the migrations table. Migrate and
// Rollback assume a single invoker; they must not run concurrently.
type Migrator struct {
	db         *DB
	migrations []Migration
}

// NewMigrator registers the given migrations, sorted ascending by version.
// Duplicate versions are rejected.
func NewMigrator(db *DB, migrations ...Migration) (*Migrator, error) {
	seen := make(map[string]bool, len(migrations))
	for _, m := range migrations {
		if m.Version == "" {
			return nil, fmt.Errorf("migration with empty version")
		}
		if seen[m.Version] {
			return nil, fmt.Errorf("duplicate migration version %s", m.Version)
		}
		seen[m.Version] = true
	}

	sorted := slices.Clone(migrations)
	slices.SortFunc(sorted, func(a, b Migration) int {
		return strings.Compare(a.Version, b.Version)
	})

	return &Migrator{db: db, migrations: sorted}, nil
}

func (m *Migrator) ensureTable(ctx context.Context) error {
	_, err := m.db.Execute(ctx, `
		CREATE TABLE IF NOT EXISTS migrations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			version TEXT UNIQUE NOT NULL,
			description TEXT,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

// Applied returns migration history in apply order.
func (m *Migrator) Applied(ctx context.Context) ([]AppliedMigration, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}

	records, err := m.db.FetchAll(ctx, "SELECT version, description, applied_at FROM migrations ORDER BY id")
	if err != nil {
		return nil, err
	}

	applied := make([]AppliedMigration, 0, len(records))
	for _, rec := range records {
		applied = append(applied, AppliedMigration{
			Version:     rec.String("version"),
			Description: rec.String("description"),
			AppliedAt:   rec.Time("applied_at"),
		})
	}
	return applied, nil
}

// Pending returns the registered versions not yet applied, ascending.
func (m *Migrator) Pending(ctx context.Context) ([]string, error) {
	applied, err := m.Applied(ctx)
	if err != nil {
		return nil, err
	}

	appliedSet := make(map[string]bool, len(applied))
	for _, a := range applied {
		appliedSet[a.Version] = true
	}

	var pending []string
	for _, mig := range m.migrations {
		if !appliedSet[mig.Version] {
			pending = append(pending, mig.Version)
		}
	}
	return pending, nil
}

// Migrate applies all pending migrations up to and including target, or all
// of them when target is empty. It stops at the first failure: the failing
// migration is reported via MigrationError and migrations already applied in
// the batch stay applied.
func (m *Migrator) Migrate(ctx context.Context, target string) (int, error) {
	if target != "" && m.byVersion(target) == nil {
		return 0, fmt.Errorf("unknown migration target %s", target)
	}

	pending, err := m.Pending(ctx)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		log.Info().Msg("No pending migrations")
		return 0, nil
	}

	applied := 0
	for _, version := range pending {
		if target != "" && version > target {
			break
		}
		mig := m.byVersion(version)
		if err := m.apply(ctx, *mig); err != nil {
			return applied, err
		}
		applied++
	}

	log.Info().Int("count", applied).Msg("Migrations applied")
	return applied, nil
}

// Rollback reverts the most recently applied steps migrations, newest first.
// Like Migrate it halts at the first failure.
func (m *Migrator) Rollback(ctx context.Context, steps int) (int, error) {
	if steps < 1 {
		return 0, fmt.Errorf("rollback steps must be positive, got %d", steps)
	}

	history, err := m.Applied(ctx)
	if err != nil {
		return 0, err
	}
	if len(history) == 0 {
		log.Info().Msg("No migrations to roll back")
		return 0, nil
	}

	if steps > len(history) {
		steps = len(history)
	}

	reverted := 0
	for i := len(history) - 1; i >= len(history)-steps; i-- {
		if err := m.revert(ctx, history[i].Version); err != nil {
			return reverted, err
		}
		reverted++
	}

	log.Info().Int("count", reverted).Msg("Migrations reverted")
	return reverted, nil
}

// Status reports applied and pending versions. It is a pure read.
func (m *Migrator) Status(ctx context.Context) (*Status, error) {
	history, err := m.Applied(ctx)
	if err != nil {
		return nil, err
	}
	pending, err := m.Pending(ctx)
	if err != nil {
		return nil, err
	}

	st := &Status{
		Applied:      make([]string, 0, len(history)),
		Pending:      pending,
		TotalApplied: len(history),
		TotalPending: len(pending),
	}
	for _, a := range history {
		st.Applied = append(st.Applied, a.Version)
	}
	if len(history) > 0 {
		st.CurrentVersion = history[len(history)-1].Version
	}
	return st, nil
}

func (m *Migrator) byVersion(version string) *Migration {
	for i := range m.migrations {
		if m.migrations[i].Version == version {
			return &m.migrations[i]
		}
	}
	return nil
}

func (m *Migrator) apply(ctx context.Context, mig Migration) error {
	if mig.Up == nil {
		return &MigrationError{Version: mig.Version, Direction: "up", Err: errors.New("no up function")}
	}

	log.Info().Str("version", mig.Version).Str("description", mig.Description).Msg("Applying migration")

	err := m.db.Transaction(ctx, func(tx *sql.Tx) error {
		if err := mig.Up(ctx, tx); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO migrations (version, description) VALUES (?, ?)",
			mig.Version, mig.Description); err != nil {
			return fmt.Errorf("failed to record migration: %w", err)
		}
		return nil
	})
	if err != nil {
		return &MigrationError{Version: mig.Version, Direction: "up", Err: err}
	}
	return nil
}

func (m *Migrator) revert(ctx context.Context, version string) error {
	mig := m.byVersion(version)
	if mig == nil {
		return &MigrationError{Version: version, Direction: "down", Err: errors.New("migration not registered")}
	}
	if mig.Down == nil {
		return &MigrationError{Version: version, Direction: "down", Err: errors.New("no down function")}
	}

	log.Info().Str("version", version).Msg("Reverting migration")

	err := m.db.Transaction(ctx, func(tx *sql.Tx) error {
		if err := mig.Down(ctx, tx); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM migrations WHERE version = ?", version); err != nil {
			return fmt.Errorf("failed to delete migration record: %w", err)
		}
		return nil
	})
	if err != nil {
		return &MigrationError{Version: version, Direction: "down", Err: err}
	}
	return nil
}
