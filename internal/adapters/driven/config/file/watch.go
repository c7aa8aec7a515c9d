package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/precis/internal/logger"
)

// Watch reloads the store whenever a template file in its directory changes.
// It blocks until ctx is cancelled.
func (s *PromptStore) Watch(ctx context.Context) error {
	if err := os.MkdirAll(s.promptDir, 0700); err != nil {
		return fmt.Errorf("create prompt directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(s.promptDir); err != nil {
		return fmt.Errorf("watch %s: %w", s.promptDir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Ext(event.Name) != ".txt" {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				logger.Debug("prompts: %s changed, reloading", filepath.Base(event.Name))
				s.Reload()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("prompts: watcher error: %v", err)
		}
	}
}
