package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/uploader-auth/internal/apperror"
)

// Put stores value under key with the given time-to-live.
//
// UPSERT:
// INSERT ... ON CONFLICT(key) DO UPDATE replaces the value and resets the
// expiry in one statement, so a repeat login simply overwrites its token
// cache entry.
func (db *DB) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("sqlite: put: ttl must be positive, got %s", ttl)
	}

	expiresAt := db.now().Add(ttl).Unix()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO kv (key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: put: %w", err)
	}
	return nil
}

// Get returns the value under key if it has not expired yet.
// Returns apperror.ErrNotFound for missing and expired keys alike.
func (db *DB) Get(ctx context.Context, key string) (string, error) {
	var value string

	err := db.conn.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE key = ? AND expires_at > ?`,
		key, db.now().Unix(),
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", apperror.NotFound("entry")
		}
		return "", fmt.Errorf("sqlite: get: %w", err)
	}

	return value, nil
}

// Delete removes key. A missing key is not an error.
func (db *DB) Delete(ctx context.Context, key string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("sqlite: delete: %w", err)
	}
	return nil
}
