// Package database provides the pooled SQLite persistence core: a fixed-size
// connection pool, a manager exposing parameterized statement helpers over
// it, and an ordered, reversible schema migration runner.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/anshuman365/gofusion/internal/security"
)

// DefaultPath is the database file used when none is configured.
const DefaultPath = "gofusion.db"

// Config controls how the database manager is opened.
type Config struct {
	// Path is the SQLite database file.
	Path string
	// PoolSize bounds concurrent connections. Defaults to DefaultPoolSize.
	PoolSize int
	// AcquireTimeout bounds how long a caller waits for a free connection.
	// Defaults to DefaultAcquireTimeout.
	AcquireTimeout time.Duration
	// DisableSanitize skips HTML-escaping of string fields on Insert/Update
	// and the heuristic injection guard on Execute.
	DisableSanitize bool
}

// DB is the single point of truth for persisted application data. All access
// funnels through its connection pool, so it is safe for concurrent callers.
type DB struct {
	pool     *Pool
	path     string
	sanitize bool
}

// Result reports the outcome of a mutating statement.
type Result struct {
	LastInsertID int64
	RowsAffected int64
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Open creates the pool and applies the baseline schema idempotently.
// Callers own the returned instance; share it by passing it to dependents.
func Open(cfg Config) (*DB, error) {
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}

	pool, err := NewPool(cfg.Path, cfg.PoolSize, cfg.AcquireTimeout)
	if err != nil {
		return nil, err
	}

	db := &DB{
		pool:     pool,
		path:     cfg.Path,
		sanitize: !cfg.DisableSanitize,
	}

	if err := db.createBaseTables(context.Background()); err != nil {
		pool.Close()
		return nil, err
	}

	return db, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Close shuts down the connection pool.
func (db *DB) Close() error {
	return db.pool.Close()
}

// Execute runs a single statement and commits it. When the injection guard
// is enabled, mutating statements that carry arguments but no placeholders
// are rejected with ErrSecurityViolation before execution. The guard is a
// best-effort secondary check, not a substitute for parameterization.
func (db *DB) Execute(ctx context.Context, query string, args ...any) (Result, error) {
	if db.sanitize && len(args) > 0 {
		if kw, ok := security.SuspiciousKeyword(query); ok {
			return Result{}, fmt.Errorf("%w: keyword %s outside parameterized statement", ErrSecurityViolation, kw)
		}
	}

	conn, err := db.pool.Acquire(ctx)
	if err != nil {
		return Result{}, err
	}
	defer db.pool.Release(conn)

	res, err := conn.Exec(ctx, query, args...)
	if err != nil {
		log.Error().Err(err).Str("query", query).Msg("Database error")
		return Result{}, &DatabaseError{Query: query, Err: err}
	}

	out := Result{}
	if id, err := res.LastInsertId(); err == nil {
		out.LastInsertID = id
	}
	if n, err := res.RowsAffected(); err == nil {
		out.RowsAffected = n
	}
	return out, nil
}

// FetchAll runs a query and materializes every row into a Record.
func (db *DB) FetchAll(ctx context.Context, query string, args ...any) ([]Record, error) {
	conn, err := db.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer db.pool.Release(conn)

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		log.Error().Err(err).Str("query", query).Msg("Database error")
		return nil, &DatabaseError{Query: query, Err: err}
	}
	defer rows.Close()

	return materialize(rows, query)
}

// FetchOne runs a query and returns the first row, or nil when the result
// set is empty. An empty result is not an error.
func (db *DB) FetchOne(ctx context.Context, query string, args ...any) (Record, error) {
	records, err := db.FetchAll(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

// Insert builds a parameterized INSERT from the record and returns the new
// row id, or zero when no row was created. String fields (including nested
// maps and slices) are HTML-escaped unless sanitization is disabled.
func (db *DB) Insert(ctx context.Context, table string, data Record) (int64, error) {
	if err := checkIdent(table); err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, fmt.Errorf("insert into %s: no fields given", table)
	}

	cols := make([]string, 0, len(data))
	for col := range data {
		if err := checkIdent(col); err != nil {
			return 0, err
		}
		cols = append(cols, col)
	}
	slices.Sort(cols)

	vals := make([]any, 0, len(cols))
	placeholders := make([]string, 0, len(cols))
	for _, col := range cols {
		val := data[col]
		if db.sanitize {
			val = security.Sanitize(val)
		}
		vals = append(vals, val)
		placeholders = append(placeholders, "?")
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))

	res, err := db.Execute(ctx, query, vals...)
	if err != nil {
		return 0, err
	}
	if res.RowsAffected == 0 {
		return 0, nil
	}
	return res.LastInsertID, nil
}

// Update builds a parameterized SET/WHERE statement and returns the number
// of affected rows.
func (db *DB) Update(ctx context.Context, table string, fields Record, where string, whereArgs ...any) (int64, error) {
	if err := checkIdent(table); err != nil {
		return 0, err
	}
	if len(fields) == 0 {
		return 0, fmt.Errorf("update %s: no fields given", table)
	}

	cols := make([]string, 0, len(fields))
	for col := range fields {
		if err := checkIdent(col); err != nil {
			return 0, err
		}
		cols = append(cols, col)
	}
	slices.Sort(cols)

	args := make([]any, 0, len(cols)+len(whereArgs))
	assignments := make([]string, 0, len(cols))
	for _, col := range cols {
		val := fields[col]
		if db.sanitize {
			val = security.Sanitize(val)
		}
		args = append(args, val)
		assignments = append(assignments, col+" = ?")
	}
	args = append(args, whereArgs...)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s", table, strings.Join(assignments, ", "), where)

	res, err := db.Execute(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected, nil
}

// Delete removes matching rows and returns the number of affected rows.
func (db *DB) Delete(ctx context.Context, table string, where string, args ...any) (int64, error) {
	if err := checkIdent(table); err != nil {
		return 0, err
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE %s", table, where)

	res, err := db.Execute(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected, nil
}

// Transaction runs fn inside a transaction on a pooled connection, rolling
// back when fn returns an error.
func (db *DB) Transaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	conn, err := db.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer db.pool.Release(conn)

	tx, err := conn.Begin(ctx)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		if rbErr := conn.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Msg("Failed to rollback transaction")
		}
		return err
	}

	return conn.Commit()
}

func materialize(rows *sql.Rows, query string) ([]Record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, &DatabaseError{Query: query, Err: err}
	}

	var records []Record
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &DatabaseError{Query: query, Err: err}
		}
		rec := make(Record, len(cols))
		for i, col := range cols {
			rec[col] = values[i]
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &DatabaseError{Query: query, Err: err}
	}
	return records, nil
}

func checkIdent(name string) error {
	if !identPattern.MatchString(name) {
		return fmt.Errorf("%w: invalid identifier %q", ErrSecurityViolation, name)
	}
	return nil
}
