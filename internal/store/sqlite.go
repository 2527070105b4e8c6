package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
)

const (
	sqliteFileName = "grocer.sqlite"
	schemaVersion  = 1
)

// SQLite stores records in a single table keyed by record key.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (and if needed creates) the database in dir.
func OpenSQLite(ctx context.Context, dir string) (*SQLite, error) {
	if ctx == nil {
		return nil, errors.New("open sqlite store: context is nil")
	}

	if dir == "" {
		return nil, errors.New("open sqlite store: directory is empty")
	}

	err := os.MkdirAll(dir, dirPerms)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}

	db, err := openSQLite(ctx, filepath.Join(dir, sqliteFileName))
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}

	err = migrate(ctx, db)
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("open sqlite store: %w", err)
	}

	return &SQLite{db: db}, nil
}

func openSQLite(ctx context.Context, path string) (*sql.DB, error) {
	// _txlock=immediate takes the write lock at BEGIN, so two Updates on
	// the same database serialize instead of failing on upgrade.
	dsn := "file:" + path + "?_txlock=immediate&_busy_timeout=" + fmt.Sprint(LockTimeout.Milliseconds())

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	err = db.PingContext(ctx)
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	err = applyPragmas(ctx, db)
	if err != nil {
		_ = db.Close()

		return nil, err
	}

	return db, nil
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	statements := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = FULL",
		"PRAGMA temp_store = MEMORY",
	}

	for _, stmt := range statements {
		_, err := db.ExecContext(ctx, stmt)
		if err != nil {
			return fmt.Errorf("apply pragma %q: %w", stmt, err)
		}
	}

	return nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	var version int

	err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version)
	if err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	if version == schemaVersion {
		return nil
	}

	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS records (
			key        TEXT PRIMARY KEY,
			value      BLOB NOT NULL,
			updated_ns INTEGER NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("create records table: %w", err)
	}

	_, err = db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion))
	if err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// Load returns the record for key.
func (s *SQLite) Load(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, errEmptyKey
	}

	if s.db == nil {
		return nil, errClosed
	}

	var value []byte

	err := s.db.QueryRowContext(ctx, "SELECT value FROM records WHERE key = ?", key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("load record: %w", err)
	}

	return value, nil
}

// Update runs fn inside an immediate transaction.
func (s *SQLite) Update(ctx context.Context, key string, fn UpdateFunc) error {
	if key == "" {
		return errEmptyKey
	}

	if s.db == nil {
		return errClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update txn: %w", err)
	}

	committed := false

	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var current []byte

	err = tx.QueryRowContext(ctx, "SELECT value FROM records WHERE key = ?", key).Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("load record: %w", err)
	}

	next, err := fn(current)
	if err != nil {
		return err
	}

	if next == nil {
		return nil
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO records (key, value, updated_ns) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_ns = excluded.updated_ns`,
		key, next, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("write record: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("commit update txn: %w", err)
	}

	committed = true

	return nil
}

// Close releases the database handle.
func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}

	err := s.db.Close()
	s.db = nil

	if err != nil {
		return fmt.Errorf("close sqlite: %w", err)
	}

	return nil
}
