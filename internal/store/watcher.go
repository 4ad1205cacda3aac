package store

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const reloadDebounce = 500 * time.Millisecond

// Watch reloads the current profile whenever the store file is changed by
// something other than Save. It blocks until ctx is cancelled.
func (s *ProfileStore) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Editors and Save replace the file, so watch the directory.
	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch store directory: %w", err)
	}

	s.logger.Debug("watching profile store", zap.String("file", s.path))

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != FileName {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, s.reload)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("profile store watcher error", zap.Error(err))
		}
	}
}

func (s *ProfileStore) reload() {
	profile, err := s.read()
	if err != nil {
		s.logger.Warn("ignoring profile store change", zap.Error(err))
		return
	}
	if profile == nil {
		return
	}

	s.mu.Lock()
	changed := s.current == nil || *s.current != *profile
	s.current = profile
	s.mu.Unlock()

	if changed {
		s.logger.Info("profile reloaded from disk", zap.String("address", profile.Address))
	}
}
