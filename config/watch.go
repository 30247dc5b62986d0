package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 150 * time.Millisecond

// Watch reloads the file at path whenever it changes and hands the validated
// result to onChange. The parent directory is watched so editors that replace
// the file on save are still picked up. Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, logger *slog.Logger, onChange func(*Config)) error {
	if path == "" || onChange == nil {
		return nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	debounce := time.NewTimer(0)
	<-debounce.C
	defer debounce.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			pending = true
			debounce.Reset(reloadDebounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if logger != nil {
				logger.Warn("config watcher", "error", err)
			}
		case <-debounce.C:
			if !pending {
				continue
			}
			pending = false
			cfg, err := Load(abs)
			if err != nil {
				if logger != nil {
					logger.Error("config reload failed", "path", abs, "error", err)
				}
				continue
			}
			if logger != nil {
				logger.Info("config reloaded", "path", abs)
			}
			onChange(cfg)
		}
	}
}
