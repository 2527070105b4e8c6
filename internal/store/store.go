// Package store persists one opaque record per key.
//
// Records are always read and written whole. [KV.Update] runs a
// read-modify-write cycle under an exclusive per-key lock so that concurrent
// writers, in this process or another, never interleave and readers never
// see a partial record.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// UpdateFunc receives the current record (nil if none exists) and returns the
// replacement. Returning nil content skips the write. Returning an error skips
// the write and is passed through to the caller of Update.
type UpdateFunc func(current []byte) ([]byte, error)

// KV is a key-value store holding whole records.
type KV interface {
	// Load returns the record stored under key, or nil if there is none.
	Load(ctx context.Context, key string) ([]byte, error)

	// Update atomically replaces the record under key with the result of fn.
	Update(ctx context.Context, key string, fn UpdateFunc) error

	// Close releases resources held by the store.
	Close() error
}

// Backend names accepted by [Open].
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// GuestOwner is the owner identity used when no user is signed in.
const GuestOwner = "guest"

const keyPrefix = "grocery_history_"

var (
	// ErrLockTimeout is returned when a record lock cannot be acquired in time.
	ErrLockTimeout = errors.New("lock timeout")

	// ErrUnknownBackend is returned by [Open] for unsupported backend names.
	ErrUnknownBackend = errors.New("unknown store backend")

	errEmptyKey = errors.New("key is empty")
	errClosed   = errors.New("store is closed")
)

// Key returns the record key for an owner's list history.
func Key(owner string) string {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		owner = GuestOwner
	}

	return keyPrefix + owner
}

// Open opens a store for the given backend rooted at dir.
func Open(ctx context.Context, backend, dir string) (KV, error) {
	switch backend {
	case BackendFile, "":
		return OpenFile(dir)
	case BackendSQLite:
		return OpenSQLite(ctx, dir)
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, backend)
	}
}
