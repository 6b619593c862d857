// Package sqlite implements repository.SessionStore on an embedded SQLite file.
//
// WHY SQLITE?
// A single-node deployment needs nothing more than one file next to the
// binary. No separate server, and ":memory:" gives tests a fresh store.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// modernc.org/sqlite is a pure Go translation of SQLite: no CGo, no C
// compiler, cross-compilation just works.
//
// EXPIRATION:
// SQLite has no native TTL. Every row stores its expiry as a Unix timestamp;
// reads ignore rows whose expiry has passed, and expired rows are purged
// when the store is opened and whenever the key is written again.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"

	"github.com/sakif/uploader-auth/internal/repository"
)

// compile-time check that *DB implements repository.SessionStore
var _ repository.SessionStore = (*DB)(nil)

// DB wraps a sql.DB connection pool.
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/sessions.db" → file-based store (persistent)
//   - ":memory:"         → in-memory store (tests)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// ONE WRITER:
	// SQLite serialises writers anyway, and every new connection to
	// ":memory:" would be a separate, empty database. A single connection
	// keeps both cases correct; the callback's two concurrent writes simply
	// queue on it.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	db := &DB{conn: conn, now: time.Now}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	if err := db.purgeExpired(context.Background()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: purging expired entries: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks that the database file is still reachable.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: ping: %w", err)
	}
	return nil
}

// migrate creates the key/value table. CREATE ... IF NOT EXISTS makes it
// safe to run on every start.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			expires_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_kv_expires_at ON kv(expires_at);
	`)
	if err != nil {
		return fmt.Errorf("creating kv table: %w", err)
	}
	return nil
}

func (db *DB) purgeExpired(ctx context.Context) error {
	_, err := db.conn.ExecContext(ctx,
		`DELETE FROM kv WHERE expires_at <= ?`, db.now().Unix(),
	)
	return err
}
