package cli

import (
	"github.com/letsbuild/letsbuild/pkg/bundler"
	"github.com/letsbuild/letsbuild/pkg/config"
	"github.com/letsbuild/letsbuild/pkg/logger"
	"github.com/letsbuild/letsbuild/pkg/notifier"
)

// Config holds the process-level collaborators of the CLI. Zero fields are
// replaced with the production implementations.
type Config struct {
	Version string

	// Terminal describes the output terminal
	Terminal func() config.Terminal
	// Bundler creates the bundling engine for the resolved options
	Bundler func(opts config.Options, log logger.Logger) bundler.Bundler
	// Notifier creates the desktop notifier when notifications are enabled
	Notifier func(log logger.Logger) notifier.Notifier
}

// NewConfig creates a CLI configuration with the production defaults
func NewConfig() *Config {
	return &Config{Version: "dev"}
}

func (c *Config) withDefaults(detect func() config.Terminal) *Config {
	out := *c
	if out.Terminal == nil {
		out.Terminal = detect
	}
	if out.Bundler == nil {
		out.Bundler = func(opts config.Options, log logger.Logger) bundler.Bundler {
			return bundler.NewEsbuild(bundler.EsbuildOptions{
				ProjectRoot: opts.ProjectRoot,
				NodeEnv:     opts.NodeEnv,
				Color:       opts.Interactive,
			}, log)
		}
	}
	if out.Notifier == nil {
		out.Notifier = func(log logger.Logger) notifier.Notifier {
			return notifier.New(notifier.Config{Enabled: true, Sound: true}, log)
		}
	}
	return &out
}
