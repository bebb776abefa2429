// Package watcher submits CVs dropped into a hot folder.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"jobpilot/internal/errors"

	"github.com/fsnotify/fsnotify"
)

// Handler is called once per new or changed file, never concurrently
type Handler func(ctx context.Context, path string) error

// Filter decides whether a file name is worth handling
type Filter func(name string) bool

// FolderWatcher watches one directory and hands settled files to a Handler
type FolderWatcher struct {
	dir           string
	debounceDelay time.Duration
	handler       Handler
	filter        Filter
	logger        *errors.Logger

	mu      sync.Mutex
	timers  map[string]*time.Timer
	seen    map[string]time.Time
	running bool

	ready chan string
}

// NewFolderWatcher creates a watcher for dir. Files are handled once no
// write has been seen for debounceDelay.
func NewFolderWatcher(dir string, debounceDelay time.Duration, filter Filter, handler Handler, logger *errors.Logger) (*FolderWatcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotFound, fmt.Sprintf("cannot watch %s", dir), err)
	}
	if !info.IsDir() {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, fmt.Sprintf("%s is not a directory", dir), nil)
	}
	if debounceDelay <= 0 {
		debounceDelay = time.Second
	}
	if filter == nil {
		filter = func(string) bool { return true }
	}

	return &FolderWatcher{
		dir:           dir,
		debounceDelay: debounceDelay,
		handler:       handler,
		filter:        filter,
		logger:        logger,
		timers:        make(map[string]*time.Timer),
		seen:          make(map[string]time.Time),
		ready:         make(chan string, 16),
	}, nil
}

// Run watches until ctx is done
func (fw *FolderWatcher) Run(ctx context.Context) error {
	fw.mu.Lock()
	if fw.running {
		fw.mu.Unlock()
		return fmt.Errorf("folder watcher is already running")
	}
	fw.running = true
	fw.mu.Unlock()

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() {
		if err := fsWatcher.Close(); err != nil {
			fw.logger.LogError(err, "Failed to close file system watcher")
		}
		fw.stopTimers()
	}()

	if err := fsWatcher.Add(fw.dir); err != nil {
		return errors.NewIOError(errors.ErrCodeFileNotReadable, fmt.Sprintf("failed to watch directory %s", fw.dir), err)
	}
	fw.logger.Info("Watching folder for CVs", "directory", fw.dir, "debounce_delay", fw.debounceDelay)

	for {
		select {
		case event, ok := <-fsWatcher.Events:
			if !ok {
				return nil
			}
			if fw.shouldProcessEvent(event) {
				fw.schedule(ctx, event.Name)
			}

		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return nil
			}
			fw.logger.LogError(err, "File watcher error")

		case path := <-fw.ready:
			if !fw.hasFileChanged(path) {
				continue
			}
			fw.logger.Info("New file in watched folder", "file", path)
			if err := fw.handler(ctx, path); err != nil {
				fw.logger.LogError(err, "Failed to handle file", "file", path)
			}

		case <-ctx.Done():
			fw.logger.Info("Folder watcher stopped", "directory", fw.dir)
			return nil
		}
	}
}

// shouldProcessEvent keeps writes and creations of candidate files
func (fw *FolderWatcher) shouldProcessEvent(event fsnotify.Event) bool {
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$") {
		return false
	}
	if !fw.filter(name) {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create) != 0
}

// schedule restarts the debounce timer of path
func (fw *FolderWatcher) schedule(ctx context.Context, path string) {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if t, ok := fw.timers[path]; ok {
		t.Stop()
	}
	fw.timers[path] = time.AfterFunc(fw.debounceDelay, func() {
		fw.mu.Lock()
		delete(fw.timers, path)
		fw.mu.Unlock()

		select {
		case fw.ready <- path:
		case <-ctx.Done():
		}
	})
}

// hasFileChanged reports whether path exists and was modified since it was
// last handled
func (fw *FolderWatcher) hasFileChanged(path string) bool {
	stat, err := os.Stat(path)
	if err != nil || stat.IsDir() {
		return false
	}

	fw.mu.Lock()
	defer fw.mu.Unlock()
	lastMod, exists := fw.seen[path]
	if !exists || stat.ModTime().After(lastMod) {
		fw.seen[path] = stat.ModTime()
		return true
	}
	return false
}

func (fw *FolderWatcher) stopTimers() {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	for path, t := range fw.timers {
		t.Stop()
		delete(fw.timers, path)
	}
	fw.running = false
}
