package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/letsbuild/letsbuild/pkg/logger"
)

// ReloadCallback is called with the new configuration, or the load error
type ReloadCallback func(*File, error)

// ReloadManager reloads the project file when it changes on disk
type ReloadManager struct {
	configPath     string
	logger         logger.Logger
	watcher        *fsnotify.Watcher
	callbacks      []ReloadCallback
	lastModTime    time.Time
	debounceTimer  *time.Timer
	debouncePeriod time.Duration
	mu             sync.RWMutex
	cancel         context.CancelFunc
	isWatching     bool
}

// NewReloadManager creates a reload manager for configPath
func NewReloadManager(configPath string, log logger.Logger) *ReloadManager {
	if log == nil {
		log = logger.Discard()
	}
	return &ReloadManager{
		configPath:     configPath,
		logger:         log,
		debouncePeriod: 300 * time.Millisecond,
	}
}

// AddCallback registers a reload callback
func (rm *ReloadManager) AddCallback(callback ReloadCallback) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.callbacks = append(rm.callbacks, callback)
}

// SetDebouncePeriod sets how long events settle before a reload
func (rm *ReloadManager) SetDebouncePeriod(period time.Duration) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.debouncePeriod = period
}

// StartWatching watches the directory holding the config file until ctx is
// done or StopWatching is called
func (rm *ReloadManager) StartWatching(ctx context.Context) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.isWatching {
		return fmt.Errorf("already watching configuration file")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(rm.configPath)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch config directory: %w", err)
	}

	if stat, err := os.Stat(rm.configPath); err == nil {
		rm.lastModTime = stat.ModTime()
	}

	ctx, rm.cancel = context.WithCancel(ctx)
	rm.watcher = watcher
	rm.isWatching = true
	go rm.watchLoop(ctx, watcher)

	rm.logger.Debug("Watching configuration file", logger.WithField("path", rm.configPath))
	return nil
}

// StopWatching stops the watcher
func (rm *ReloadManager) StopWatching() error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if !rm.isWatching {
		return nil
	}
	rm.cancel()
	if rm.debounceTimer != nil {
		rm.debounceTimer.Stop()
		rm.debounceTimer = nil
	}
	err := rm.watcher.Close()
	rm.watcher = nil
	rm.isWatching = false
	return err
}

// IsWatching returns whether the manager is currently watching
func (rm *ReloadManager) IsWatching() bool {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return rm.isWatching
}

func (rm *ReloadManager) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(rm.configPath) {
				continue
			}
			rm.debounceReload(event.Op&fsnotify.Remove == fsnotify.Remove)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			rm.logger.Error("Configuration watcher error", logger.WithField("error", err))
		}
	}
}

func (rm *ReloadManager) debounceReload(removed bool) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.debounceTimer != nil {
		rm.debounceTimer.Stop()
	}
	rm.debounceTimer = time.AfterFunc(rm.debouncePeriod, func() {
		rm.handleConfigChange(removed)
	})
}

func (rm *ReloadManager) handleConfigChange(removed bool) {
	if removed {
		rm.notifyCallbacks(nil, fmt.Errorf("configuration file was removed: %s", rm.configPath))
		return
	}

	stat, err := os.Stat(rm.configPath)
	if err != nil {
		rm.notifyCallbacks(nil, err)
		return
	}

	rm.mu.Lock()
	if !stat.ModTime().After(rm.lastModTime) {
		rm.mu.Unlock()
		return
	}
	rm.lastModTime = stat.ModTime()
	rm.mu.Unlock()

	cfg, err := LoadFile(rm.configPath)
	if err != nil {
		rm.logger.Error("Failed to reload configuration", logger.WithField("error", err))
		rm.notifyCallbacks(nil, err)
		return
	}

	rm.logger.Info("Configuration reloaded", logger.WithField("path", rm.configPath))
	rm.notifyCallbacks(cfg, nil)
}

func (rm *ReloadManager) notifyCallbacks(cfg *File, err error) {
	rm.mu.RLock()
	callbacks := make([]ReloadCallback, len(rm.callbacks))
	copy(callbacks, rm.callbacks)
	rm.mu.RUnlock()

	for _, callback := range callbacks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					rm.logger.Error("Reload callback panic recovered", logger.WithField("panic", r))
				}
			}()
			callback(cfg, err)
		}()
	}
}
