package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/natefinch/atomic"
)

// File stores each record as a JSON file in a directory. Writes go through
// a temp file and rename, so a reader sees either the old or the new record.
type File struct {
	dir         string
	lockTimeout time.Duration
}

// OpenFile opens a file store rooted at dir, creating it if needed.
func OpenFile(dir string) (*File, error) {
	if dir == "" {
		return nil, errors.New("open file store: directory is empty")
	}

	err := os.MkdirAll(dir, dirPerms)
	if err != nil {
		return nil, fmt.Errorf("open file store: %w", err)
	}

	return &File{dir: filepath.Clean(dir), lockTimeout: LockTimeout}, nil
}

// SetLockTimeout changes how long Update waits for a held lock.
func (f *File) SetLockTimeout(d time.Duration) {
	f.lockTimeout = d
}

// Dir returns the store directory.
func (f *File) Dir() string {
	return f.dir
}

// Path returns the file holding the record for key.
func (f *File) Path(key string) string {
	return filepath.Join(f.dir, fileName(key))
}

// Load reads the record for key without locking.
func (f *File) Load(_ context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, errEmptyKey
	}

	data, err := os.ReadFile(f.Path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("read record: %w", err)
	}

	return data, nil
}

// Update holds the record's lock while fn decides on the new content.
func (f *File) Update(ctx context.Context, key string, fn UpdateFunc) error {
	if key == "" {
		return errEmptyKey
	}

	path := f.Path(key)

	lock, err := acquireLock(ctx, path, f.lockTimeout)
	if err != nil {
		return fmt.Errorf("acquiring lock: %w", err)
	}

	defer lock.release()

	current, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read record: %w", err)
	}

	next, err := fn(current)
	if err != nil {
		return err
	}

	if next == nil {
		return nil
	}

	err = atomic.WriteFile(path, bytes.NewReader(next))
	if err != nil {
		return fmt.Errorf("write record: %w", err)
	}

	return nil
}

// Close is a no-op for the file store.
func (*File) Close() error {
	return nil
}

// fileName maps a key to a safe file name. Anything outside [A-Za-z0-9._-]
// becomes an underscore.
func fileName(key string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, key)

	return safe + ".json"
}
