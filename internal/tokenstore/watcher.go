package tokenstore

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"nimbus/pkg/logging"
)

// defaultDebounceInterval is how long the watcher waits for further
// filesystem events before reporting a removal. Editors and other processes
// often touch a file several times in quick succession.
const defaultDebounceInterval = 500 * time.Millisecond

// Watcher reports external removal of the persisted refresh token. When
// another process (a second IDE instance, a cleanup script) clears the token
// file, the session owning this store no longer holds a durable identity and
// should log out.
type Watcher struct {
	mu sync.Mutex

	store            *Store
	watcher          *fsnotify.Watcher
	debounceInterval time.Duration
	debounceTimer    *time.Timer
	stopCh           chan struct{}
	running          bool
}

// NewWatcher creates a watcher for the given store's token file.
func NewWatcher(store *Store, debounceInterval time.Duration) *Watcher {
	if debounceInterval == 0 {
		debounceInterval = defaultDebounceInterval
	}

	return &Watcher{
		store:            store,
		debounceInterval: debounceInterval,
		stopCh:           make(chan struct{}),
	}
}

// Start begins watching. onRemoved is invoked (once per removal, debounced)
// when the token file disappears while the watcher is running.
func (w *Watcher) Start(onRemoved func()) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	// Watch the directory: the file itself may not exist yet, and watching
	// the parent also survives atomic replace-by-rename.
	if err := watcher.Add(w.store.storageDir); err != nil {
		watcher.Close()
		return err
	}

	w.watcher = watcher
	w.running = true
	w.stopCh = make(chan struct{})

	go w.loop(onRemoved)

	logging.Debug("TokenStore", "Watching %s for external token removal", w.store.storageDir)
	return nil
}

func (w *Watcher) loop(onRemoved func()) {
	tokenPath := w.store.Path()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(tokenPath) {
				continue
			}
			if event.Op&(fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleRemoval(onRemoved)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Warn("TokenStore", "Token file watcher error: %v", err)

		case <-w.stopCh:
			return
		}
	}
}

// scheduleRemoval debounces removal events and re-checks the file before
// reporting: a save immediately after a remove (the processor's
// clear-then-rewrite discipline) must not look like an external logout.
func (w *Watcher) scheduleRemoval(onRemoved func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}

	w.debounceTimer = time.AfterFunc(w.debounceInterval, func() {
		token, err := w.store.Load()
		if err == nil && token != "" {
			return // File came back; not an external logout.
		}

		w.mu.Lock()
		running := w.running
		w.mu.Unlock()
		if !running {
			return
		}

		logging.Info("TokenStore", "Persisted refresh token removed externally")
		onRemoved()
	})
}

// Stop stops the watcher. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	w.running = false

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
		w.debounceTimer = nil
	}

	close(w.stopCh)
	_ = w.watcher.Close()
}
