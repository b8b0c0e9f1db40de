package dictionary

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchSettle is how long the watcher waits after the last event before
// reloading, so editors that write in several steps trigger one reload.
const watchSettle = 50 * time.Millisecond

// Watch reloads the backing file whenever it changes on disk and calls
// onChange with the number of words that appeared. Watching stops when ctx
// is cancelled. The parent directory is watched so that atomic renames and
// late file creation are observed.
func (s *Store) Watch(ctx context.Context, onChange func(added int)) error {
	if s.path == "" {
		return errors.New("dictionary has no backing file")
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("watch dictionary: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch dictionary: %w", err)
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return fmt.Errorf("watch dictionary: %w", err)
	}
	go s.watchLoop(ctx, w, onChange)
	return nil
}

func (s *Store) watchLoop(ctx context.Context, w *fsnotify.Watcher, onChange func(added int)) {
	defer w.Close()
	target := filepath.Clean(s.path)

	var settle <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			settle = time.After(watchSettle)
		case <-settle:
			settle = nil
			added, err := s.merge()
			if err != nil || added == 0 {
				continue
			}
			if onChange != nil {
				onChange(added)
			}
		case _, ok := <-w.Errors:
			if !ok {
				return
			}
		}
	}
}
