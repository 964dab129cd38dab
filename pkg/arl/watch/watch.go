// Package watch re-runs a callback when ARL sources change on disk.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sambeau/arl/pkg/arl/logging"
)

// Extensions lists the file suffixes picked up inside watched directories
var Extensions = []string{".arl", ".arl.gz", ".arl.zst"}

// Event describes a settled change to one file
type Event struct {
	Path    string
	Removed bool // deleted or renamed away
}

// Handler is called once per path after its changes have settled. Calls
// never overlap.
type Handler func(ctx context.Context, ev Event)

// Watcher monitors files and directories for changes
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	handler  Handler
	log      *logging.Logger

	files map[string]bool // explicitly added files
	dirs  map[string]bool // directories watched for any matching file

	mu      sync.Mutex
	pending map[string]*change
	seq     uint64
	running sync.Mutex
	wg      sync.WaitGroup
}

// New creates a watcher that calls handler after debounce of quiet per file
func New(debounce time.Duration, handler Handler, log *logging.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.Null()
	}
	return &Watcher{
		watcher:  fsWatcher,
		debounce: debounce,
		handler:  handler,
		log:      log,
		files:    make(map[string]bool),
		dirs:     make(map[string]bool),
		pending:  make(map[string]*change),
	}, nil
}

// Add watches path. A file is watched through its directory so editors
// that replace files on save are still seen. A directory is watched
// recursively for files with one of Extensions.
func (w *Watcher) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		w.files[abs] = true
		if err := w.watcher.Add(filepath.Dir(abs)); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		w.log.Info("watching", "file", path)
		return nil
	}
	if err := w.watchDirRecursive(abs); err != nil {
		return fmt.Errorf("watching %s: %w", path, err)
	}
	w.log.Info("watching", "dir", path)
	return nil
}

// watchDirRecursive adds a directory and its subdirectories to the watch list
func (w *Watcher) watchDirRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if strings.HasPrefix(info.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			w.dirs[path] = true
			return w.watcher.Add(path)
		}
		return nil
	})
}

// Matches reports whether path is something this watcher reports on
func (w *Watcher) Matches(path string) bool {
	if w.files[path] {
		return true
	}
	if !w.dirs[filepath.Dir(path)] {
		return false
	}
	return HasSourceExt(path)
}

// HasSourceExt reports whether path ends in one of Extensions
func HasSourceExt(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range Extensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// Run processes events until ctx is done. It closes the underlying
// watcher and waits for in-flight handlers before returning.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() {
		w.stopTimers()
		w.wg.Wait()
		w.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				w.log.Warn("watcher overflow, some changes may be missed")
				continue
			}
			w.log.Error("watcher error", "err", err)
		}
	}
}

// Close releases the underlying watcher. It is only needed when Run is
// never called, e.g. after a failed Add.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	path := event.Name

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() && w.dirs[filepath.Dir(path)] {
			if err := w.watchDirRecursive(path); err != nil {
				w.log.Warn("cannot watch new directory", "dir", path, "err", err)
			}
			return
		}
	}

	if !w.Matches(path) {
		return
	}

	removed := event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
	if !removed && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	w.schedule(ctx, path, removed)
}

// change is a path waiting out its quiet period
type change struct {
	timer   *time.Timer
	seq     uint64
	removed bool
}

// schedule (re)starts the quiet-period timer for path
func (w *Watcher) schedule(ctx context.Context, path string, removed bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if c, ok := w.pending[path]; ok && c.timer.Stop() {
		w.wg.Done()
	}
	w.seq++
	seq := w.seq
	c := &change{seq: seq, removed: removed}
	w.wg.Add(1)
	c.timer = time.AfterFunc(w.debounce, func() {
		defer w.wg.Done()
		w.fire(ctx, path, seq)
	})
	w.pending[path] = c
}

func (w *Watcher) fire(ctx context.Context, path string, seq uint64) {
	w.mu.Lock()
	c, ok := w.pending[path]
	if !ok || c.seq != seq {
		// superseded by a later change
		w.mu.Unlock()
		return
	}
	delete(w.pending, path)
	w.mu.Unlock()

	if ctx.Err() != nil {
		return
	}

	w.running.Lock()
	defer w.running.Unlock()
	w.log.Debug("changed", "path", path, "removed", c.removed)
	w.handler(ctx, Event{Path: path, Removed: c.removed})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, c := range w.pending {
		if c.timer.Stop() {
			w.wg.Done()
		}
		delete(w.pending, path)
	}
}
