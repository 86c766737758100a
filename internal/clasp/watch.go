// pattern: Imperative Shell

package clasp

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"gasview/internal/logging"
)

// watchDebounce coalesces the burst of events an editor or clasp produces
// when rewriting the credentials file.
const watchDebounce = 200 * time.Millisecond

// WatchCredentials calls onChange whenever the credentials file at path is
// created, written or replaced, until ctx is done. The parent directory is
// watched so that atomic replacement is seen.
func WatchCredentials(ctx context.Context, path string, logger *logging.ScopedLogger, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create credentials watcher: %w", err)
	}

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	go func() {
		defer watcher.Close()

		var pending <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(path) {
					continue
				}
				if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) || ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Remove) {
					pending = time.After(watchDebounce)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("credentials watcher error", "error", err)
			case <-pending:
				pending = nil
				logger.Info("credentials file changed", "path", path)
				onChange()
			}
		}
	}()

	return nil
}
