package blobstore

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch starts an fsnotify watcher on the object directory and logs any
// object removed or renamed outside the store until ctx is cancelled.
//
// Every File row is expected to have a matching content object; the service
// only promises best-effort cleanup, so out-of-band removals are surfaced
// here as warnings rather than errors.
func (f *FS) Watch(ctx context.Context, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(f.root); err != nil {
		return err
	}

	logger.Info("blobstore: integrity watcher started", slog.String("root", f.root))

	for {
		select {
		case <-ctx.Done():
			logger.Info("blobstore: integrity watcher stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			key := filepath.Base(ev.Name)
			if f.recentlyRemoved(key) {
				continue
			}
			logger.Warn("blobstore: object removed outside the store",
				slog.String("key", key),
				slog.String("op", ev.Op.String()))

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("blobstore: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}
