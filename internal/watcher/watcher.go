// Package watcher delivers batches of changed source files using fsnotify
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/letsbuild/letsbuild/pkg/logger"
	"github.com/letsbuild/letsbuild/pkg/utils"
)

// DefaultSettlingDelay is how long the tree must stay quiet before a batch is emitted
const DefaultSettlingDelay = 200 * time.Millisecond

// FSWatcher watches directories recursively and emits settled batches of
// changed paths, relative to the project root
type FSWatcher struct {
	watcher    *fsnotify.Watcher
	logger     logger.Logger
	root       string
	exclusions *utils.ExclusionMatcher
	settling   time.Duration
	changes    chan []string

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
}

// New creates a watcher for root. exclusions are glob patterns relative to root.
func New(root string, exclusions []string, log logger.Logger) (*FSWatcher, error) {
	if log == nil {
		log = logger.Discard()
	}
	matcher, err := utils.NewExclusionMatcher(exclusions)
	if err != nil {
		return nil, fmt.Errorf("invalid exclusion pattern: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		w.Close()
		return nil, err
	}

	return &FSWatcher{
		watcher:    w,
		logger:     log,
		root:       absRoot,
		exclusions: matcher,
		settling:   DefaultSettlingDelay,
		changes:    make(chan []string, 1),
		pending:    make(map[string]struct{}),
	}, nil
}

// SetSettlingDelay sets the delay for event settling
func (f *FSWatcher) SetSettlingDelay(delay time.Duration) {
	f.mu.Lock()
	f.settling = delay
	f.mu.Unlock()
}

// Changes delivers sorted batches of changed paths
func (f *FSWatcher) Changes() <-chan []string {
	return f.changes
}

// Add watches a directory, relative to root, and everything below it
func (f *FSWatcher) Add(dir string) error {
	path := dir
	if !filepath.IsAbs(path) {
		path = filepath.Join(f.root, dir)
	}
	if err := f.addDirectory(path); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	return nil
}

// Run processes events until ctx is done, then closes the watcher
func (f *FSWatcher) Run(ctx context.Context) error {
	defer f.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			f.mu.Lock()
			if f.timer != nil {
				f.timer.Stop()
			}
			f.mu.Unlock()
			return nil

		case event, ok := <-f.watcher.Events:
			if !ok {
				return nil
			}
			f.handleEvent(event)

		case err, ok := <-f.watcher.Errors:
			if !ok {
				return nil
			}
			f.logger.Error("Watcher error", logger.WithField("error", err))
		}
	}
}

// Close releases the watcher without running it. Closing twice is a no-op.
func (f *FSWatcher) Close() error {
	return f.watcher.Close()
}

// WatchList returns all watched directories
func (f *FSWatcher) WatchList() []string {
	return f.watcher.WatchList()
}

func (f *FSWatcher) handleEvent(event fsnotify.Event) {
	if event.Op == fsnotify.Chmod {
		return
	}

	rel, err := filepath.Rel(f.root, event.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)
	if f.exclusions.IsExcluded(rel) {
		return
	}

	if event.Op&fsnotify.Create == fsnotify.Create {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := f.addDirectory(event.Name); err != nil {
				f.logger.Warn("Failed to watch new directory",
					logger.WithField("path", rel),
					logger.WithField("error", err))
			}
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.pending[rel] = struct{}{}
	if f.timer != nil {
		f.timer.Stop()
	}
	f.timer = time.AfterFunc(f.settling, f.flush)
}

func (f *FSWatcher) flush() {
	f.mu.Lock()
	if len(f.pending) == 0 {
		f.mu.Unlock()
		return
	}
	batch := make([]string, 0, len(f.pending))
	for path := range f.pending {
		batch = append(batch, path)
	}
	f.pending = make(map[string]struct{})
	f.mu.Unlock()

	sort.Strings(batch)

	// A rebuild already queued will see the tree as it is now, so merge
	// rather than block the timer goroutine
	select {
	case f.changes <- batch:
	default:
		select {
		case queued := <-f.changes:
			batch = mergeSorted(queued, batch)
		default:
		}
		select {
		case f.changes <- batch:
		default:
			f.logger.Debug("Dropped change batch", logger.WithField("files", len(batch)))
		}
	}
}

func (f *FSWatcher) addDirectory(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}

		if rel, err := filepath.Rel(f.root, path); err == nil && rel != "." {
			if f.exclusions.IsExcluded(filepath.ToSlash(rel)) {
				return filepath.SkipDir
			}
		}

		if err := f.watcher.Add(path); err != nil {
			f.logger.Warn("Failed to watch directory",
				logger.WithField("path", path),
				logger.WithField("error", err))
			return nil
		}
		f.logger.Debug("Watching directory", logger.WithField("path", path))
		return nil
	})
}

func mergeSorted(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, p := range list {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}
