package store

import (
	"context"
	"slices"
	"sync"
)

// Memory is an in-process store, used for tests and ephemeral sessions.
type Memory struct {
	mu      sync.Mutex
	records map[string][]byte
	writes  int
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string][]byte)}
}

// Load returns a copy of the record for key.
func (m *Memory) Load(_ context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, errEmptyKey
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	return slices.Clone(m.records[key]), nil
}

// Update runs fn while holding the store mutex.
func (m *Memory) Update(ctx context.Context, key string, fn UpdateFunc) error {
	if key == "" {
		return errEmptyKey
	}

	err := ctx.Err()
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	next, err := fn(slices.Clone(m.records[key]))
	if err != nil {
		return err
	}

	if next == nil {
		return nil
	}

	m.records[key] = slices.Clone(next)
	m.writes++

	return nil
}

// Writes returns how many records have been written.
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.writes
}

// Close is a no-op.
func (*Memory) Close() error {
	return nil
}
