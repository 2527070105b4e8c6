package store

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch calls onChange with the new record each time the record for key is
// replaced, until ctx is done. Records are replaced by rename, so the
// directory is watched rather than the file itself.
//
// onChange runs on the watch goroutine; a slow callback delays later events.
func (f *File) Watch(ctx context.Context, key string, onChange func(record []byte)) error {
	if key == "" {
		return errEmptyKey
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	defer func() { _ = watcher.Close() }()

	err = watcher.Add(f.dir)
	if err != nil {
		return fmt.Errorf("watch %s: %w", f.dir, err)
	}

	target := filepath.Base(f.Path(key))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if filepath.Base(event.Name) != target {
				continue
			}

			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Remove) {
				continue
			}

			record, loadErr := f.Load(ctx, key)
			if loadErr != nil {
				return loadErr
			}

			onChange(record)
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			return fmt.Errorf("watch %s: %w", f.dir, watchErr)
		}
	}
}
