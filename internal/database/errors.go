package database

import (
	"errors"
	"fmt"
)

var (
	// ErrPoolExhausted is returned when no connection becomes available
	// within the acquire timeout. Callers may retry.
	ErrPoolExhausted = errors.New("database: connection pool exhausted")

	// ErrPoolClosed is returned when acquiring from a closed pool.
	ErrPoolClosed = errors.New("database: connection pool closed")

	// ErrSecurityViolation is returned when the injection guard rejects a
	// statement before execution.
	ErrSecurityViolation = errors.New("database: statement rejected by injection guard")

	// ErrDatabase matches any *DatabaseError via errors.Is.
	ErrDatabase = errors.New("database: operation failed")
)

// DatabaseError wraps an error from the underlying store together with the
// statement that caused it. It is never swallowed; every manager method
// surfaces it to the caller.
type DatabaseError struct {
	Query string
	Err   error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("database operation failed: %v (query: %s)", e.Err, e.Query)
}

func (e *DatabaseError) Unwrap() error { return e.Err }

// Is reports ErrDatabase so callers can classify without the concrete type.
func (e *DatabaseError) Is(target error) bool { return target == ErrDatabase }

// MigrationError reports which migration failed and in which direction.
// Batch processing halts at the failing migration; earlier migrations in the
// batch remain applied.
type MigrationError struct {
	Version   string
	Direction string // "up" or "down"
	Err       error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("migration %s failed (%s): %v", e.Version, e.Direction, e.Err)
}

func (e *MigrationError) Unwrap() error { return e.Err }
