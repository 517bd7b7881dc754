// Package cli provides the command-line interface for letsbuild
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/letsbuild/letsbuild/pkg/config"
	"github.com/letsbuild/letsbuild/pkg/logger"
	"github.com/letsbuild/letsbuild/pkg/types"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// CLI holds the command tree and everything it writes to, so commands can
// run against buffers in tests
type CLI struct {
	config   *Config
	viper    *viper.Viper
	rootCmd  *cobra.Command
	logger   logger.Logger
	output   io.Writer
	errorOut io.Writer
}

// NewCLI creates a new CLI instance writing to the process streams
func NewCLI(cfg *Config) *CLI {
	return NewCLIWithOutput(cfg, os.Stdout, os.Stderr)
}

// NewCLIWithOutput creates a CLI with custom output writers
func NewCLIWithOutput(cfg *Config, output, errorOut io.Writer) *CLI {
	if cfg == nil {
		cfg = NewConfig()
	}
	cli := &CLI{
		config:   cfg.withDefaults(func() config.Terminal { return config.DetectTerminal(os.Stdout) }),
		viper:    config.NewViper(),
		logger:   logger.Discard(),
		output:   output,
		errorOut: errorOut,
	}
	cli.setupCommands()
	return cli
}

// Execute runs the CLI with the given arguments
func (c *CLI) Execute(args []string) error {
	return c.ExecuteContext(context.Background(), args)
}

// ExecuteContext runs the CLI with context support
func (c *CLI) ExecuteContext(ctx context.Context, args []string) error {
	c.rootCmd.SetArgs(args)
	return c.rootCmd.ExecuteContext(ctx)
}

func (c *CLI) setupCommands() {
	c.rootCmd = &cobra.Command{
		Use:   "letsbuild [target]",
		Short: "Pack an electron-vue application for web, mobile or desktop",
		Long: `letsbuild packs the renderer and main processes of an electron-vue
application with esbuild.

The target is read from BUILD_TARGET (clean, web, mobile; anything else
builds the desktop app) unless given as an argument or with --target.`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgs:         modeNames(),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.initializeConfig,
		RunE:              c.runBuild,
	}
	c.rootCmd.SetOut(c.output)
	c.rootCmd.SetErr(c.errorOut)

	c.setupFlags()

	c.rootCmd.Version = c.config.Version
	c.rootCmd.SetVersionTemplate("letsbuild v{{.Version}}\n")

	c.rootCmd.AddCommand(c.newBuildCmd())
	c.rootCmd.AddCommand(c.newCleanCmd())
	c.rootCmd.AddCommand(c.newWatchCmd())
	c.rootCmd.AddCommand(c.newStatusCmd())
	c.rootCmd.AddCommand(c.newInitCmd())
	c.rootCmd.AddCommand(c.newValidateCmd())
	c.rootCmd.AddCommand(c.newVersionCmd())
}

func (c *CLI) setupFlags() {
	flags := c.rootCmd.PersistentFlags()

	flags.String(config.KeyConfigFile, "", "config file (default: <root>/"+config.FileName+")")
	flags.String(config.KeyRoot, ".", "project root directory")
	flags.StringP(config.KeyVerbosity, "v", "info", "log level (debug, info, warn, error)")
	flags.String(config.KeyTarget, "", "build target (clean, web, mobile, desktop); overrides BUILD_TARGET")
	flags.Bool(config.KeyStrict, false, "exit non-zero when a web or mobile build reports errors")
	flags.Bool(config.KeyNotify, false, "send a desktop notification when a build finishes")
	flags.Duration(config.KeyTimeout, 0, "abort the build after this long (0 disables)")
	flags.String(config.KeyLogFile, "", "also append log lines to this file")

	for _, key := range []string{
		config.KeyConfigFile, config.KeyRoot, config.KeyVerbosity, config.KeyTarget,
		config.KeyStrict, config.KeyNotify, config.KeyTimeout, config.KeyLogFile,
	} {
		_ = c.viper.BindPFlag(key, flags.Lookup(key))
	}
}

func (c *CLI) initializeConfig(cmd *cobra.Command, args []string) error {
	c.logger = logger.CreateLoggerWithOutput(c.viper.GetString(config.KeyLogFile), c.viper.GetString(config.KeyVerbosity), c.errorOut)
	c.logger.Debug("Using project root", logger.WithField("root", c.projectRoot()))
	return nil
}

func (c *CLI) projectRoot() string {
	root := c.viper.GetString(config.KeyRoot)
	if abs, err := filepath.Abs(root); err == nil {
		return abs
	}
	return root
}

func (c *CLI) configPath() string {
	if path := c.viper.GetString(config.KeyConfigFile); path != "" {
		return path
	}
	return filepath.Join(c.projectRoot(), config.FileName)
}

// loadFile reads the project configuration. A missing default file selects
// the built-in configuration; a missing explicit file is an error.
func (c *CLI) loadFile() (*config.File, error) {
	if path := c.viper.GetString(config.KeyConfigFile); path != "" {
		return config.LoadFile(path)
	}
	file, err := config.Load(c.projectRoot())
	if err != nil {
		return nil, err
	}
	return file, nil
}

// resolve loads the project file and resolves the options of this run.
// A non-empty mode argument overrides the environment.
func (c *CLI) resolve(mode string) (config.Options, *config.File, error) {
	file, err := c.loadFile()
	if err != nil {
		return config.Options{}, nil, err
	}

	opts := config.Resolve(c.viper, file, c.config.Terminal())
	if mode != "" {
		parsed, err := parseModeArg(mode)
		if err != nil {
			return config.Options{}, nil, err
		}
		opts.Mode = parsed
		opts.Target = mode
	}
	opts.ProjectRoot = c.projectRoot()
	opts.ConfigFile = c.configPath()
	return opts, file, nil
}

// parseModeArg is stricter than the environment: a typo on the command line
// is an error instead of a desktop build
func parseModeArg(value string) (types.Mode, error) {
	for _, m := range types.Modes() {
		if string(m) == strings.ToLower(value) {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown target %q (expected one of %s)", value, strings.Join(modeNames(), ", "))
}

func modeNames() []string {
	var names []string
	for _, m := range types.Modes() {
		names = append(names, string(m))
	}
	return names
}

// ExecuteWithVersion runs the CLI against the process arguments
func ExecuteWithVersion(ctx context.Context, version string) error {
	cfg := NewConfig()
	cfg.Version = version
	return NewCLI(cfg).ExecuteContext(ctx, os.Args[1:])
}
