package services

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"webplayer/logger"
)

// LibraryWatcher reports directories below the media root whose contents changed.
// Events are coalesced per directory over a short window.
type LibraryWatcher struct {
	root     string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	onChange func(rel string)

	mu      sync.Mutex
	pending map[string]bool
}

// NewLibraryWatcher watches root and every directory below it
func NewLibraryWatcher(root string, debounce time.Duration, onChange func(rel string)) (*LibraryWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	lw := &LibraryWatcher{
		root:     root,
		debounce: debounce,
		watcher:  w,
		onChange: onChange,
		pending:  make(map[string]bool),
	}
	if err := lw.addTree(root); err != nil {
		w.Close()
		return nil, err
	}
	return lw, nil
}

// addTree adds a watch for dir and all of its subdirectories
func (lw *LibraryWatcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			logger.Warn("library watcher skipped path", logger.String("path", path), logger.ErrorField(err))
			return nil
		}
		if d.IsDir() {
			if err := lw.watcher.Add(path); err != nil {
				logger.Warn("library watcher could not watch directory", logger.String("path", path), logger.ErrorField(err))
			}
		}
		return nil
	})
}

// Run processes filesystem events until ctx is done, then closes the watcher
func (lw *LibraryWatcher) Run(ctx context.Context) {
	defer lw.watcher.Close()

	ticker := time.NewTicker(lw.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-lw.watcher.Events:
			if !ok {
				return
			}
			lw.handle(ev)
		case err, ok := <-lw.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("library watcher error", logger.ErrorField(err))
		case <-ticker.C:
			lw.flush()
		}
	}
}

func (lw *LibraryWatcher) handle(ev fsnotify.Event) {
	if ev.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := lw.addTree(ev.Name); err != nil {
				logger.Warn("library watcher could not watch new directory", logger.String("path", ev.Name), logger.ErrorField(err))
			}
		}
	}
	if !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Remove) && !ev.Op.Has(fsnotify.Rename) {
		return
	}

	rel, err := filepath.Rel(lw.root, filepath.Dir(ev.Name))
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)
	if rel == "." {
		rel = ""
	}

	lw.mu.Lock()
	lw.pending[rel] = true
	lw.mu.Unlock()
}

func (lw *LibraryWatcher) flush() {
	lw.mu.Lock()
	if len(lw.pending) == 0 {
		lw.mu.Unlock()
		return
	}
	dirs := make([]string, 0, len(lw.pending))
	for rel := range lw.pending {
		dirs = append(dirs, rel)
	}
	lw.pending = make(map[string]bool)
	lw.mu.Unlock()

	sort.Strings(dirs)
	for _, rel := range dirs {
		lw.onChange(rel)
	}
}
