package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"linux-datamosh/internal/utils"
)

// Watch reloads path whenever it is written or replaced and sends the new
// config on out. Loads that fail are logged and skipped. Watch blocks until
// ctx is done; the directory is watched so editors that save by rename are
// picked up too.
func Watch(ctx context.Context, path string, out chan<- Config) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: watch: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("config: watch: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("config: watch %s: %w", filepath.Dir(abs), err)
	}
	utils.Debug("Config: watching %s", abs)

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
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			cfg, err := Load(abs)
			if err != nil {
				utils.Warn("Config: reload failed, keeping previous preset: %v", err)
				continue
			}
			utils.Info("Config: reloaded %s", abs)
			select {
			case out <- cfg:
			case <-ctx.Done():
				return nil
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			utils.Warn("Config: watcher error: %v", err)
		}
	}
}
