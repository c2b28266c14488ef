package scanner

import (
	"log"
	"path/filepath"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/fsnotify/fsnotify"
)

// Watcher watches one directory for file creation/removal and reports
// changes through Added/Removed channels, so a long-running streamer can
// pick up new images without a full re-scan. Modeled on the teacher pack's
// own WatchFolders idiom, trimmed to directory-membership tracking only —
// no markdown/database side effects belong in this package.
type Watcher struct {
	fsw *fsnotify.Watcher

	Added   chan string
	Removed chan string

	mu      sync.Mutex
	tracked mapset.Set[string]

	closeOnce sync.Once
}

// Watch starts watching dir (non-recursive) for create/remove events.
// Callers must range over Added/Removed (or drain them) and eventually call
// Close.
func Watch(dir string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		fsw:     fsw,
		Added:   make(chan string, 16),
		Removed: make(chan string, 16),
		tracked: mapset.NewSet[string](),
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	defer close(w.Added)
	defer close(w.Removed)
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("scanner: watch error: %v", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	path := filepath.Clean(event.Name)

	switch {
	case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
		w.mu.Lock()
		alreadyTracked := w.tracked.Contains(path)
		w.tracked.Add(path)
		w.mu.Unlock()
		if !alreadyTracked {
			w.Added <- path
		}
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		w.mu.Lock()
		w.tracked.Remove(path)
		w.mu.Unlock()
		w.Removed <- path
	}
}

// Close stops the underlying fsnotify watcher and closes Added/Removed.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.fsw.Close()
	})
	return err
}
