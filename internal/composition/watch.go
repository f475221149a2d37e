package composition

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const presetDebounce = 200 * time.Millisecond

// WatchPresets calls onChange with the re-parsed presets whenever the file at
// path is written, created or renamed into place. Parse errors are logged and
// skipped so a half-saved file never replaces a good preset list.
// It blocks until ctx is done.
func WatchPresets(ctx context.Context, path string, logger *slog.Logger, onChange func([]Preset)) error {
	if logger == nil {
		logger = slog.Default()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("presets watcher: %w", err)
	}
	defer w.Close()

	// Editors often replace the file, so watch the directory.
	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}
	target := filepath.Clean(path)

	var timer *time.Timer
	var timerC <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(presetDebounce)
			} else {
				timer.Reset(presetDebounce)
			}
			timerC = timer.C
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("presets watcher error", "error", err)
		case <-timerC:
			timerC = nil
			presets, err := LoadPresets(path)
			if err != nil {
				logger.Warn("presets reload skipped", "path", path, "error", err)
				continue
			}
			logger.Info("presets reloaded", "path", path, "count", len(presets))
			onChange(presets)
		}
	}
}
