package database

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

const (
	markerUp   = "-- +migrate Up"
	markerDown = "-- +migrate Down"
)

var errMissingUpSection = errors.New("missing or empty Up section")

// SQLMigration builds a Migration whose Up and Down execute the given SQL,
// one statement at a time. An empty downSQL leaves Down unset, so rolling
// the migration back fails explicitly instead of silently doing nothing.
func SQLMigration(version, description, upSQL, downSQL string) Migration {
	mig := Migration{
		Version:     version,
		Description: description,
		Up:          execStatements(upSQL),
	}
	if strings.TrimSpace(downSQL) != "" {
		mig.Down = execStatements(downSQL)
	}
	return mig
}

func execStatements(sqlText string) func(ctx context.Context, tx *sql.Tx) error {
	return func(ctx context.Context, tx *sql.Tx) error {
		for i, stmt := range splitSQLStatements(sqlText) {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("statement %d failed: %w", i+1, err)
			}
		}
		return nil
	}
}

// ParseMigrations reads SQL migration files from an fs.FS. Files must have a
// .sql extension and contain a -- +migrate Up marker; -- +migrate Down is
// optional. The version is the filename without extension, so sortable
// (timestamp-prefixed) filenames define the apply order. The description is
// derived from the filename with any leading timestamp stripped.
func ParseMigrations(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var filenames []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".sql" {
			continue
		}
		filenames = append(filenames, entry.Name())
	}
	slices.Sort(filenames)

	migrations := make([]Migration, 0, len(filenames))
	for _, filename := range filenames {
		mig, err := parseMigrationFile(fsys, filename)
		if err != nil {
			return nil, fmt.Errorf("failed to parse migration %s: %w", filename, err)
		}
		migrations = append(migrations, mig)
	}
	return migrations, nil
}

// LoadDir parses migration files from a directory on disk. A missing
// directory yields no migrations rather than an error.
func LoadDir(dir string) ([]Migration, error) {
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return ParseMigrations(os.DirFS(dir))
}

func parseMigrationFile(fsys fs.FS, filename string) (Migration, error) {
	file, err := fsys.Open(filename)
	if err != nil {
		return Migration{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var upBuilder, downBuilder strings.Builder
	var current *strings.Builder

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		switch strings.TrimSpace(line) {
		case markerUp:
			current = &upBuilder
			continue
		case markerDown:
			current = &downBuilder
			continue
		}
		if current != nil {
			current.WriteString(line)
			current.WriteString("\n")
		}
	}
	if err := scanner.Err(); err != nil {
		return Migration{}, fmt.Errorf("failed to read file: %w", err)
	}

	up := strings.TrimSpace(upBuilder.String())
	if up == "" {
		return Migration{}, errMissingUpSection
	}

	version := strings.TrimSuffix(filename, ".sql")
	return SQLMigration(version, describeVersion(version), up, downBuilder.String()), nil
}

// describeVersion turns "20240101120000_create_widgets" into "create widgets".
func describeVersion(version string) string {
	name := version
	if i := strings.Index(version, "_"); i >= 0 && isDigits(version[:i]) {
		name = version[i+1:]
	}
	return strings.ReplaceAll(name, "_", " ")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// splitSQLStatements splits a SQL string into individual statements,
// skipping blank lines and comment-only lines, so each statement executes
// separately and errors point at the statement that failed.
func splitSQLStatements(sqlText string) []string {
	var statements []string
	var current strings.Builder

	for _, line := range strings.Split(sqlText, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")

		if strings.HasSuffix(trimmed, ";") {
			stmt := strings.TrimSpace(current.String())
			if stmt != "" && stmt != ";" {
				statements = append(statements, stmt)
			}
			current.Reset()
		}
	}

	if remaining := strings.TrimSpace(current.String()); remaining != "" {
		statements = append(statements, remaining)
	}
	return statements
}
