package capability

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/MrSnowNB/project-alice/internal/logging"
)

// Watcher watches the tool directory and hot-registers synthesized
// tool files as the agent writes them. A tool written mid-session
// becomes callable on the next decision turn without a restart.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	manager     *Manager
	dir         string
	debounceMap map[string]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool

	stats WatcherStats
}

// WatcherStats tracks watcher activity for debugging.
type WatcherStats struct {
	Installed int
	Removed   int
	Errors    int
}

// NewWatcher creates a watcher for the manager's tool directory.
func NewWatcher(manager *Manager) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		watcher:     fsw,
		manager:     manager,
		dir:         manager.Dir(),
		debounceMap: make(map[string]time.Time),
		debounceDur: 500 * time.Millisecond, // Debounce rapid saves
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching the tool directory. Non-blocking; the event
// loop runs in a goroutine until Stop or context cancellation.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		logging.CapabilityWarn("Watcher: failed to create tool dir %s: %v (continuing anyway)", w.dir, err)
	}

	if err := w.watcher.Add(w.dir); err != nil {
		logging.CapabilityWarn("Watcher: initial watch failed: %v", err)
	} else {
		logging.Capability("Watcher: watching tool directory: %s", w.dir)
	}

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		logging.CapabilityError("Watcher: error closing watcher: %v", err)
	}
	logging.Capability("Watcher: stopped")
}

// IsWatching returns true if the watcher is currently running.
func (w *Watcher) IsWatching() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// GetStats returns the current watcher statistics.
func (w *Watcher) GetStats() WatcherStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// run is the main event loop for the watcher.
func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	debounceTicker := time.NewTicker(100 * time.Millisecond)
	defer debounceTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.CapabilityDebug("Watcher: context cancelled")
			return

		case <-w.stopCh:
			logging.CapabilityDebug("Watcher: stop signal received")
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				logging.CapabilityDebug("Watcher: event channel closed")
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				logging.CapabilityDebug("Watcher: error channel closed")
				return
			}
			logging.CapabilityError("Watcher error: %v", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-debounceTicker.C:
			w.processDebouncedEvents()
		}
	}
}

// handleEvent processes a single filesystem event.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !strings.HasSuffix(event.Name, ".go") {
		return
	}

	switch {
	case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
		logging.CapabilityDebug("Watcher: change event for %s", event.Name)
		// Debounce: editors and the write_file capability produce
		// several events per save.
		w.mu.Lock()
		w.debounceMap[event.Name] = time.Now()
		w.mu.Unlock()

	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		logging.CapabilityDebug("Watcher: remove event for %s", event.Name)
		w.mu.Lock()
		delete(w.debounceMap, event.Name)
		w.stats.Removed++
		w.mu.Unlock()
		w.manager.UninstallPath(event.Name)
	}
}

// processDebouncedEvents installs files whose events have settled
// past the debounce window.
func (w *Watcher) processDebouncedEvents() {
	w.mu.Lock()
	now := time.Now()
	toProcess := make([]string, 0)

	for path, eventTime := range w.debounceMap {
		if now.Sub(eventTime) >= w.debounceDur {
			toProcess = append(toProcess, path)
			delete(w.debounceMap, path)
		}
	}
	w.mu.Unlock()

	for _, path := range toProcess {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := w.manager.InstallFile(path); err != nil {
			logging.CapabilityWarn("Watcher: failed to install %s: %v", path, err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()
			continue
		}
		w.mu.Lock()
		w.stats.Installed++
		w.mu.Unlock()
	}
}
