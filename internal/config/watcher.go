package config

import (
	"context"
	"path/filepath"
	"time"

	"wyckoff/internal/logger"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the config whenever the file changes and hands the parsed
// result to onChange. A reload that fails validation is logged and skipped,
// keeping the last good config in force. Blocks until ctx is done.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	// Watch the directory: editors often replace the file, which drops a
	// watch held on the file itself.
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	var debounce *time.Timer
	reload := func() {
		cfg, err := Load(abs)
		if err != nil {
			logger.Warnf("config reload failed, keeping previous: %v", err)
			return
		}
		logger.Infof("config reloaded from %s", abs)
		onChange(cfg)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(200*time.Millisecond, reload)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warnf("config watcher error: %v", err)
		}
	}
}
