package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileWatcher watches a configuration file for changes and triggers
// reloads. It debounces rapid event bursts (editors often write a file
// several times per save) so each burst produces a single reload.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	path     string
	debounce *Debouncer

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// DefaultDebounceInterval is the quiet period required before a change
// burst triggers a reload.
const DefaultDebounceInterval = 100 * time.Millisecond

// NewFileWatcher creates a watcher for the config file at path. A zero
// debounce interval uses DefaultDebounceInterval; a nil logger uses
// slog.Default().
func NewFileWatcher(path string, debounceInterval time.Duration, logger *slog.Logger) (*FileWatcher, error) {
	if debounceInterval == 0 {
		debounceInterval = DefaultDebounceInterval
	}
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &FileWatcher{
		watcher:  watcher,
		logger:   logger,
		path:     path,
		debounce: NewDebouncer(debounceInterval),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Watch blocks, invoking onReload after each debounced change to the
// watched file, until the context is cancelled or Stop is called. Reload
// errors are logged and watching continues; a config file that fails to
// parse must not take down a running gateway.
func (fw *FileWatcher) Watch(ctx context.Context, onReload func() error) error {
	fw.mu.Lock()
	if fw.running {
		fw.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	fw.running = true
	fw.mu.Unlock()

	defer func() {
		fw.mu.Lock()
		fw.running = false
		fw.mu.Unlock()
		close(fw.doneCh)
	}()

	// Watch the parent directory: editors that replace the file via
	// rename would otherwise detach the watch.
	dir := filepath.Dir(fw.path)
	if err := fw.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %q: %w", dir, err)
	}

	fw.logger.Info("config watcher started",
		"path", fw.path,
		"debounce_ms", fw.debounce.interval.Milliseconds(),
	)

	for {
		select {
		case <-ctx.Done():
			fw.logger.Info("config watcher stopped (context cancelled)")
			return nil

		case <-fw.stopCh:
			fw.logger.Info("config watcher stopped")
			return nil

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !fw.shouldProcessEvent(event) {
				continue
			}

			fw.logger.Debug("config file event",
				"path", event.Name,
				"op", event.Op.String(),
			)

			fw.debounce.Trigger(func() {
				fw.logger.Info("reloading configuration", "path", fw.path)
				if err := onReload(); err != nil {
					fw.logger.Error("config reload failed", "error", err)
				}
			})

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			fw.logger.Error("config watcher error", "error", err)
			// Keep watching despite transient errors.
		}
	}
}

// Stop stops the watcher and waits for Watch to return.
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	if !fw.running {
		fw.mu.Unlock()
		return nil
	}
	fw.mu.Unlock()

	close(fw.stopCh)
	<-fw.doneCh

	fw.debounce.Stop()

	if err := fw.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

// shouldProcessEvent reports whether an fsnotify event concerns the watched
// file and represents a content change.
func (fw *FileWatcher) shouldProcessEvent(event fsnotify.Event) bool {
	if event.Op&fsnotify.Chmod == fsnotify.Chmod {
		return false
	}
	// The directory watch delivers events for sibling files too.
	return filepath.Clean(event.Name) == filepath.Clean(fw.path) ||
		strings.HasSuffix(event.Name, filepath.Base(fw.path))
}

// Debouncer collects rapid events and invokes the callback only after a
// quiet period.
type Debouncer struct {
	interval time.Duration
	timer    *time.Timer
	mu       sync.Mutex
	callback func()
	stopCh   chan struct{}
}

// NewDebouncer creates a debouncer with the given quiet interval.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Trigger registers an event. The callback runs after the quiet interval
// elapses with no further triggers; a new trigger resets the clock.
func (d *Debouncer) Trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.callback = callback

	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = time.AfterFunc(d.interval, func() {
		select {
		case <-d.stopCh:
			return
		default:
			d.mu.Lock()
			cb := d.callback
			d.mu.Unlock()

			if cb != nil {
				cb()
			}
		}
	})
}

// Stop cancels any pending callback.
func (d *Debouncer) Stop() {
	close(d.stopCh)

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.callback = nil
}
