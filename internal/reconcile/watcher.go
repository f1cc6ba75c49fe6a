package reconcile

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/raido/internal/models"
)

// Watch runs an fsnotify watcher on the backup root until ctx is
// cancelled. The watcher never mutates the store or the directory: each
// created or written .md file is classified dry-run and the predicted
// action is handed to cb, so an operator can trigger the real sync with a
// real user. New directories created at runtime are added to the watch
// list.
func (e *Engine) Watch(ctx context.Context, root string, cb EventFunc) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	e.logger.Info("watcher: started", slog.String("root", root))

	// Writes often arrive in bursts; classify a path only after it has
	// been quiet for a short debounce interval.
	const debounce = 300 * time.Millisecond
	pending := make(map[string]struct{})
	timer := time.NewTimer(debounce)
	timer.Stop()

	flush := func() {
		for abs := range pending {
			delete(pending, abs)
			e.previewPath(ctx, root, abs, cb)
		}
	}

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			e.logger.Info("watcher: stopped")
			return nil

		case <-timer.C:
			flush()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			abs := ev.Name

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(abs); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, abs); addErr != nil {
						e.logger.Warn("watcher: add new dir failed",
							slog.String("path", abs), slog.String("error", addErr.Error()))
					}
					continue
				}
			}

			if !strings.HasSuffix(strings.ToLower(abs), ".md") {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			pending[abs] = struct{}{}
			timer.Reset(debounce)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			e.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func (e *Engine) previewPath(ctx context.Context, root, abs string, cb EventFunc) {
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		// Deleted before the debounce fired.
		return
	}
	res := e.Preview(ctx, models.BackupFileMetadata{
		Path:    rel,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	})
	e.logger.Debug("watcher: classified",
		slog.String("file", res.BackupFile), slog.String("action", string(res.Action)))
	if cb != nil {
		cb(res)
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
