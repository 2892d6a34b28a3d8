// Package sqlite implements the record-caching engine on an embedded
// SQLite store: dynamic per-table schemas, TTL-based validity,
// cascading invalidation, and batched performance counters.
package sqlite

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/gofrs/flock"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// ErrTableNotCached is returned when an operation needs a local table
// that has never been cached.
var ErrTableNotCached = fmt.Errorf("table is not cached")

// Engine owns the store connection, the in-memory performance counters,
// and the engine configuration. Close is the sole teardown point.
type Engine struct {
	db   *sql.DB
	path string
	lock *flock.Flock
	log  *slog.Logger

	defaultTTL time.Duration

	statsMu       sync.Mutex
	counters      map[string]*counter
	opsSinceFlush int
	lastFlush     time.Time

	now func() time.Time
}

// Option configures an Engine at open time.
type Option func(*Engine)

// WithDefaultTTL overrides the default cache TTL.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		if ttl > 0 {
			e.defaultTTL = ttl
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// withClock fixes the engine clock. Test hook.
func withClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New opens (or creates) the store at path, acquires the process lock,
// runs migrations, and ensures the base schema. The store file is
// restricted to owner read/write.
func New(path string, opts ...Option) (*Engine, error) {
	e := &Engine{
		path:       path,
		defaultTTL: 12 * time.Hour,
		counters:   map[string]*counter{},
		now:        time.Now,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.lastFlush = e.now()

	// The store is single-process; reject concurrent writers up front.
	e.lock = flock.New(path + ".lock")
	locked, err := e.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock store: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("store %s is locked by another process", path)
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)")
	if err != nil {
		e.lock.Unlock()
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	// Single connection serialises writers.
	db.SetMaxOpenConns(1)
	e.db = db

	if err := db.Ping(); err != nil {
		e.close()
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		e.close()
		return nil, fmt.Errorf("failed to restrict store permissions: %w", err)
	}

	// Migrations run before the base schema so legacy tables are
	// renamed rather than shadowed by fresh empty ones.
	if err := runMigrations(db, e.log); err != nil {
		e.close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	if _, err := db.Exec(baseSchema); err != nil {
		e.close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return e, nil
}

// Close flushes pending counters and releases the store. Safe to call
// once; the Engine is unusable afterwards.
func (e *Engine) Close() error {
	e.flushStats()
	return e.close()
}

func (e *Engine) close() error {
	var firstErr error
	if e.db != nil {
		if err := e.db.Close(); err != nil {
			firstErr = err
		}
		e.db = nil
	}
	if e.lock != nil {
		if err := e.lock.Unlock(); err != nil && firstErr == nil {
			firstErr = err
		}
		e.lock = nil
	}
	return firstErr
}

// Path returns the store file path.
func (e *Engine) Path() string {
	return e.path
}

// DB exposes the underlying connection for the CLI and tests.
func (e *Engine) DB() *sql.DB {
	return e.db
}

func (e *Engine) nowUTC() time.Time {
	return e.now().UTC()
}

func (e *Engine) timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}
