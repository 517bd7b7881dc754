package cli

import (
	"time"

	"github.com/letsbuild/letsbuild/internal/engine"
	"github.com/letsbuild/letsbuild/internal/state"
	"github.com/letsbuild/letsbuild/pkg/config"
	"github.com/letsbuild/letsbuild/pkg/logger"
	"github.com/letsbuild/letsbuild/pkg/types"
	"github.com/spf13/cobra"
)

func (c *CLI) newBuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "build [target]",
		Short:     "Pack the selected target (default command)",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: modeNames(),
		RunE:      c.runBuild,
	}
}

func (c *CLI) newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove build output, keeping the icons",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.dispatch(cmd, string(types.ModeClean))
		},
	}
}

func (c *CLI) newWatchCmd() *cobra.Command {
	var (
		settle   time.Duration
		dirs     []string
		noReload bool
	)

	cmd := &cobra.Command{
		Use:   "watch [target]",
		Short: "Rebuild the selected target whenever its sources change",
		Long: `Build the selected target once, then rebuild it every time a file in its
source directories changes. Changes are batched until the tree has been quiet
for the settling delay. Editing the config file also triggers a rebuild.`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: modeNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, file, err := c.resolve(firstArg(args))
			if err != nil {
				return err
			}
			d := c.newDispatcher(opts, file)

			watchOpts := engine.WatchOptions{Dirs: dirs, SettlingDelay: settle}
			if !noReload {
				watchOpts.ConfigPath = opts.ConfigFile
			}

			c.logger.Info("Watching", logger.WithField("target", opts.Mode))
			return engine.NewWatch(d, watchOpts, c.logger).Run(cmd.Context())
		},
	}

	cmd.Flags().DurationVar(&settle, "settle", 200*time.Millisecond, "quiet period before a batch of changes triggers a rebuild")
	cmd.Flags().StringSliceVar(&dirs, "dir", nil, "directory to watch (repeatable; default: the entry point directories)")
	cmd.Flags().BoolVar(&noReload, "no-config-reload", false, "do not rebuild when the config file changes")
	return cmd
}

func (c *CLI) runBuild(cmd *cobra.Command, args []string) error {
	return c.dispatch(cmd, firstArg(args))
}

func (c *CLI) dispatch(cmd *cobra.Command, mode string) error {
	opts, file, err := c.resolve(mode)
	if err != nil {
		return err
	}
	if err := config.ExportNodeEnv(opts); err != nil {
		return err
	}
	return c.newDispatcher(opts, file).Run(cmd.Context())
}

func (c *CLI) newDispatcher(opts config.Options, file *config.File) *engine.Dispatcher {
	deps := engine.Dependencies{
		Bundler: c.config.Bundler(opts, c.logger),
		Console: logger.NewConsole(c.output, c.errorOut),
		Logger:  c.logger,
		State:   state.NewStateManager(opts.ProjectRoot, c.logger),
	}
	if opts.Notify {
		deps.Notifier = c.config.Notifier(c.logger)
	}
	return engine.NewDispatcher(opts, file, deps)
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
