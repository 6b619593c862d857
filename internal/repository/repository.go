// Package repository declares the storage contract of the login flow.
//
// The flow only ever needs a flat key/value store whose entries expire on
// their own. Two backends implement it: sqlite (single node, the default)
// and redis (shared between replicas).
package repository

import (
	"context"
	"time"
)

// SessionStore is durable key/value persistence with per-entry expiration.
//
// Implementations must be safe for concurrent use: the callback writes two
// keys at the same time.
type SessionStore interface {
	// Put stores value under key, replacing any previous value, and makes
	// it expire ttl from now.
	Put(ctx context.Context, key, value string, ttl time.Duration) error

	// Get returns the live value under key. Missing and expired keys both
	// return an error matching apperror.ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	Close() error
}
