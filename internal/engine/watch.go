package engine

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/letsbuild/letsbuild/internal/watcher"
	"github.com/letsbuild/letsbuild/pkg/config"
	"github.com/letsbuild/letsbuild/pkg/logger"
	"github.com/letsbuild/letsbuild/pkg/types"
	"github.com/letsbuild/letsbuild/pkg/utils"
)

// WatchOptions configures a Watch
type WatchOptions struct {
	// Dirs are watched recursively; empty means the source directories of
	// the mode's entry points
	Dirs          []string
	Exclusions    []string
	SettlingDelay time.Duration
	// ConfigPath, when set, is reloaded on change and triggers a rebuild
	ConfigPath string
}

// Watch rebuilds the selected mode whenever its sources change
type Watch struct {
	dispatcher *Dispatcher
	opts       WatchOptions
	logger     logger.Logger
}

// NewWatch creates a watch loop around d
func NewWatch(d *Dispatcher, opts WatchOptions, log logger.Logger) *Watch {
	if log == nil {
		log = logger.Discard()
	}
	if opts.Exclusions == nil {
		opts.Exclusions = utils.GetDefaultExclusions()
	}
	if opts.SettlingDelay <= 0 {
		opts.SettlingDelay = watcher.DefaultSettlingDelay
	}
	return &Watch{dispatcher: d, opts: opts, logger: log}
}

// Run builds once, then rebuilds on every settled batch of changes until
// ctx is done. Build failures are logged and do not stop the loop.
func (w *Watch) Run(ctx context.Context) error {
	if w.dispatcher.Options().Mode == types.ModeClean {
		return errors.New("clean cannot be watched")
	}

	root := w.dispatcher.Options().ProjectRoot
	fsw, err := watcher.New(root, w.opts.Exclusions, w.logger)
	if err != nil {
		return err
	}
	fsw.SetSettlingDelay(w.opts.SettlingDelay)

	dirs := w.opts.Dirs
	if len(dirs) == 0 {
		dirs = SourceDirs(w.dispatcher.modeConfig().Tasks)
	}
	for _, dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return err
		}
	}

	reloaded := make(chan struct{}, 1)
	if w.opts.ConfigPath != "" && utils.FileExists(w.opts.ConfigPath) {
		rm := config.NewReloadManager(w.opts.ConfigPath, w.logger)
		rm.AddCallback(func(cfg *config.File, err error) {
			if err != nil {
				return
			}
			w.dispatcher.SetFile(cfg)
			select {
			case reloaded <- struct{}{}:
			default:
			}
		})
		if err := rm.StartWatching(ctx); err != nil {
			w.logger.Warn("Configuration will not be reloaded", logger.WithField("error", err))
		} else {
			defer rm.StopWatching()
		}
	}

	watchDone := make(chan error, 1)
	go func() { watchDone <- fsw.Run(ctx) }()

	w.report(w.dispatcher.Run(ctx))
	w.logger.Info("Watching for changes", logger.WithField("dirs", strings.Join(dirs, ",")))

	for {
		select {
		case <-ctx.Done():
			<-watchDone
			return nil

		case batch := <-fsw.Changes():
			w.logger.Info("Files changed, rebuilding", logger.WithField("files", len(batch)))
			w.report(w.dispatcher.Rebuild(ctx))

		case <-reloaded:
			w.logger.Info("Configuration changed, rebuilding")
			w.report(w.dispatcher.Rebuild(ctx))
		}
	}
}

func (w *Watch) report(err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	w.logger.Error("Build failed", logger.WithField("error", firstLine(err.Error())))
}

// SourceDirs returns the directories holding the entry points of tasks,
// without duplicates or nested entries
func SourceDirs(tasks []types.Task) []string {
	seen := make(map[string]bool)
	for _, task := range tasks {
		for _, entry := range task.Config.EntryPoints {
			dir := utils.StaticPrefix(utils.NormalizePattern(entry))
			if dir == "." || dir == "" {
				continue
			}
			seen[dir] = true
		}
	}

	dirs := make([]string, 0, len(seen))
	for dir := range seen {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	var out []string
next:
	for _, dir := range dirs {
		for _, kept := range out {
			if strings.HasPrefix(dir, kept+"/") {
				continue next
			}
		}
		out = append(out, dir)
	}
	if len(out) == 0 {
		return []string{"."}
	}
	return out
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
