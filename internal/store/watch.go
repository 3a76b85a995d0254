package store

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileWatcher reloads a MemorySource when its backing export changes on disk.
// Editors often write a file in several steps, so reloads are debounced.
type FileWatcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	source   *MemorySource
	path     string
	debounce time.Duration
	onReload func()
	logger   *slog.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
	reloads  int
}

func NewFileWatcher(source *MemorySource, path string, logger *slog.Logger, onReload func()) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		_ = w.Close()
		return nil, err
	}
	return &FileWatcher{
		watcher:  w,
		source:   source,
		path:     abs,
		debounce: 300 * time.Millisecond,
		onReload: onReload,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start watches the file's directory; renames over the file are picked up too.
// It does not block.
func (fw *FileWatcher) Start(ctx context.Context) error {
	fw.mu.Lock()
	if fw.running {
		fw.mu.Unlock()
		return nil
	}
	fw.running = true
	fw.mu.Unlock()

	if err := fw.watcher.Add(filepath.Dir(fw.path)); err != nil {
		fw.mu.Lock()
		fw.running = false
		fw.mu.Unlock()
		_ = fw.watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(fw.path), err)
	}
	fw.logger.Info("watching record file", "path", fw.path)

	go fw.run(ctx)
	return nil
}

// Stop ends the watch loop and waits for it to exit.
func (fw *FileWatcher) Stop() {
	fw.mu.Lock()
	if !fw.running {
		fw.mu.Unlock()
		return
	}
	fw.running = false
	fw.mu.Unlock()

	close(fw.stopCh)
	<-fw.doneCh

	if err := fw.watcher.Close(); err != nil {
		fw.logger.Error("error closing file watcher", "error", err)
	}
}

func (fw *FileWatcher) Reloads() int {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.reloads
}

func (fw *FileWatcher) run(ctx context.Context) {
	defer close(fw.doneCh)

	timer := time.NewTimer(fw.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-fw.stopCh:
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != fw.path {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(fw.debounce)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Error("file watcher error", "error", err)
		case <-timer.C:
			fw.reload(ctx)
		}
	}
}

func (fw *FileWatcher) reload(ctx context.Context) {
	report, err := fw.source.LoadFile(ctx, fw.path)
	if err != nil {
		fw.logger.Warn("record file reload failed", "path", fw.path, "error", err)
		return
	}

	fw.mu.Lock()
	fw.reloads++
	fw.mu.Unlock()

	if fw.onReload != nil {
		fw.onReload()
	}
	fw.logger.Info("record file reloaded",
		"path", fw.path,
		"parsed", report.Parsed,
		"skipped", report.Skipped,
	)
}
