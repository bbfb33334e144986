package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

const (
	// DefaultPoolSize is the number of pooled connections when unconfigured.
	DefaultPoolSize = 5
	// DefaultAcquireTimeout is how long Acquire waits for a free slot.
	DefaultAcquireTimeout = 10 * time.Second
)

// Conn is a single pooled connection. It is exclusively owned by the pool
// until acquired, then exclusively by the caller until released; it is never
// shared between two concurrent operations.
type Conn struct {
	sc *sql.Conn
	tx *sql.Tx
}

// Exec runs a statement, inside the open transaction if one was begun on
// this connection.
func (c *Conn) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if c.tx != nil {
		return c.tx.ExecContext(ctx, query, args...)
	}
	return c.sc.ExecContext(ctx, query, args...)
}

// Query runs a query, inside the open transaction if one was begun.
func (c *Conn) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if c.tx != nil {
		return c.tx.QueryContext(ctx, query, args...)
	}
	return c.sc.QueryContext(ctx, query, args...)
}

// Begin starts a transaction on this connection. Only one transaction may be
// open at a time.
func (c *Conn) Begin(ctx context.Context) (*sql.Tx, error) {
	if c.tx != nil {
		return nil, fmt.Errorf("transaction already open on connection")
	}
	tx, err := c.sc.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	c.tx = tx
	return tx, nil
}

// Commit commits the open transaction.
func (c *Conn) Commit() error {
	if c.tx == nil {
		return fmt.Errorf("no open transaction")
	}
	err := c.tx.Commit()
	c.tx = nil
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Rollback aborts the open transaction. Rolling back with no transaction
// open is a no-op.
func (c *Conn) Rollback() error {
	if c.tx == nil {
		return nil
	}
	err := c.tx.Rollback()
	c.tx = nil
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

// Pool is a fixed-size pool of SQLite connections. The total number of
// connections in circulation (queued plus checked out) never exceeds its
// configured size.
type Pool struct {
	db      *sql.DB
	slots   chan *Conn
	size    int
	timeout time.Duration

	mu     sync.Mutex
	closed bool
}

// NewPool opens the database file and populates the pool with size live
// connections, each with foreign-key enforcement enabled.
func NewPool(path string, size int, timeout time.Duration) (*Pool, error) {
	if size <= 0 {
		size = DefaultPoolSize
	}
	if timeout <= 0 {
		timeout = DefaultAcquireTimeout
	}

	// WAL mode supports concurrent reads while writes serialize.
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	db.SetMaxOpenConns(size)
	db.SetMaxIdleConns(size)

	p := &Pool{
		db:      db,
		slots:   make(chan *Conn, size),
		size:    size,
		timeout: timeout,
	}

	for i := 0; i < size; i++ {
		conn, err := p.newConn(context.Background())
		if err != nil {
			p.Close()
			return nil, err
		}
		p.slots <- conn
	}

	log.Debug().Str("path", path).Int("pool_size", size).Msg("Database connection pool established")
	return p, nil
}

func (p *Pool) newConn(ctx context.Context) (*Conn, error) {
	sc, err := p.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}
	if _, err := sc.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		sc.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	return &Conn{sc: sc}, nil
}

// Acquire checks out a connection, blocking up to the pool's acquire timeout
// for a free slot. It fails with ErrPoolExhausted when no slot frees in time
// and ErrPoolClosed after Close.
func (p *Pool) Acquire(ctx context.Context) (*Conn, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, ErrPoolClosed
	}

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case conn, ok := <-p.slots:
		if !ok {
			return nil, ErrPoolClosed
		}
		return conn, nil
	case <-timer.C:
		return nil, ErrPoolExhausted
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns a connection to the pool. Any uncommitted transaction is
// rolled back first so the next acquirer starts with a clean state. If the
// rollback fails the connection is discarded and a freshly created one takes
// its place.
func (p *Pool) Release(conn *Conn) {
	if conn == nil {
		return
	}

	if err := conn.Rollback(); err != nil {
		log.Warn().Err(err).Msg("Discarding connection after failed rollback")
		conn.sc.Close()
		fresh, err := p.newConn(context.Background())
		if err != nil {
			log.Error().Err(err).Msg("Failed to replace broken pool connection")
			return
		}
		conn = fresh
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		conn.sc.Close()
		return
	}
	// Never blocks: slots in circulation are bounded by channel capacity.
	p.slots <- conn
}

// Close drains and closes every pooled connection. Subsequent Acquire calls
// fail with ErrPoolClosed.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.slots)
	p.mu.Unlock()

	for conn := range p.slots {
		if conn.tx != nil {
			conn.tx.Rollback()
		}
		conn.sc.Close()
	}

	if err := p.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
