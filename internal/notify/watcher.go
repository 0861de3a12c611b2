package notify

import (
	"log"
	"os"

	"github.com/fsnotify/fsnotify"
)

// StateWatcher watches the directories holding the ~/.spc/... state inputs
// and refreshes a StateCache whenever one of them changes, so role/project/
// session updates made by another process are picked up live rather than
// only at the next process restart (§6, §10). Mirrors the drain-existing-
// then-watch shape of the donor enrichment-event watcher, minus the drain:
// state files are read fresh on every change rather than consumed once.
type StateWatcher struct {
	cache   *StateCache
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewStateWatcher creates a watcher that keeps cache current. Call Start to
// begin watching and Stop to clean up.
func NewStateWatcher(cache *StateCache) *StateWatcher {
	return &StateWatcher{cache: cache, done: make(chan struct{})}
}

// Start begins watching ~/.spc and its projects/state subdirectory. Both
// directories are created if missing so the watch can be registered even
// before the external process that owns these files has written anything.
// Returns an error only if the watcher itself cannot be constructed; a
// home-directory lookup failure degrades to a no-op watcher, matching the
// best-effort contract of the state reads themselves.
func (sw *StateWatcher) Start() error {
	home, err := os.UserHomeDir()
	if err != nil {
		close(sw.done)
		return nil
	}
	root := home + "/.spc"
	stateDir := root + "/projects/state"

	if err := os.MkdirAll(stateDir, 0o700); err != nil {
		close(sw.done)
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(root); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Add(stateDir); err != nil {
		_ = w.Close()
		return err
	}
	sw.watcher = w

	go sw.loop()
	log.Printf("notify: watching %s for state changes", root)
	return nil
}

// Stop shuts down the watcher and waits for its goroutine to exit.
func (sw *StateWatcher) Stop() {
	if sw.watcher != nil {
		_ = sw.watcher.Close()
	}
	<-sw.done
}

func (sw *StateWatcher) loop() {
	defer close(sw.done)
	for {
		select {
		case evt, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if evt.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				sw.cache.Refresh()
			}
		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("notify: watcher error: %v", err)
		}
	}
}
