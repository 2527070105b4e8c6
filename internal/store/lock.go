package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"
)

// locksDirName is the subdirectory for lock files. Lock files are never
// removed, so an fd that won the flock always guards the current pathname.
const locksDirName = ".locks"

// LockTimeout is the default timeout for acquiring a record lock.
const LockTimeout = 2 * time.Second

const (
	dirPerms  = 0o750
	filePerms = 0o600

	minBackoff = time.Millisecond
	maxBackoff = 25 * time.Millisecond
)

// fileLock is a held exclusive flock.
type fileLock struct {
	file *os.File
}

func (l *fileLock) release() {
	if l.file == nil {
		return
	}

	_ = unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	_ = l.file.Close()
	l.file = nil
}

// acquireLock takes an exclusive lock for the record at path. It polls with a
// non-blocking flock and exponential backoff until the lock is free, timeout
// expires, or ctx is done.
func acquireLock(ctx context.Context, path string, timeout time.Duration) (*fileLock, error) {
	locksDir := filepath.Join(filepath.Dir(path), locksDirName)
	lockPath := filepath.Join(locksDir, filepath.Base(path)+".lock")

	err := os.MkdirAll(locksDir, dirPerms)
	if err != nil {
		return nil, fmt.Errorf("creating locks dir: %w", err)
	}

	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, filePerms)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}

	deadline := time.Now().Add(timeout)
	backoff := minBackoff

	for {
		err = flockRetryEINTR(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			return &fileLock{file: file}, nil
		}

		if !errors.Is(err, unix.EWOULDBLOCK) {
			_ = file.Close()

			return nil, fmt.Errorf("flock: %w", err)
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			_ = file.Close()

			return nil, fmt.Errorf("%w after %s: %s", ErrLockTimeout, timeout, path)
		}

		timer := time.NewTimer(min(backoff, remaining))

		select {
		case <-ctx.Done():
			timer.Stop()

			_ = file.Close()

			return nil, fmt.Errorf("acquiring lock: %w", ctx.Err())
		case <-timer.C:
		}

		backoff = min(backoff*2, maxBackoff)
	}
}

func flockRetryEINTR(fd int, how int) error {
	for {
		err := unix.Flock(fd, how)
		if !errors.Is(err, unix.EINTR) {
			return err
		}
	}
}
