package bundler

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/letsbuild/letsbuild/pkg/logger"
	"github.com/letsbuild/letsbuild/pkg/types"
)

// Esbuild runs passes through esbuild's Go API
type Esbuild struct {
	root    string
	nodeEnv string
	color   bool
	logger  logger.Logger
}

// EsbuildOptions configures an Esbuild bundler
type EsbuildOptions struct {
	// ProjectRoot resolves relative entry points and outputs
	ProjectRoot string
	// NodeEnv is injected as process.env.NODE_ENV
	NodeEnv string
	// Color enables ANSI colors in reports
	Color bool
}

// NewEsbuild creates an esbuild-backed Bundler
func NewEsbuild(opts EsbuildOptions, log logger.Logger) *Esbuild {
	if log == nil {
		log = logger.Discard()
	}
	return &Esbuild{
		root:    opts.ProjectRoot,
		nodeEnv: opts.NodeEnv,
		color:   opts.Color,
		logger:  log,
	}
}

// Bundle implements Bundler. The build is cancelled when ctx is done.
func (e *Esbuild) Bundle(ctx context.Context, cfg types.BundleConfig) (Stats, error) {
	opts, err := BuildOptions(cfg, e.root, e.nodeEnv)
	if err != nil {
		return nil, &Failure{Diagnostics: err.Error()}
	}

	buildCtx, ctxErr := api.Context(opts)
	if ctxErr != nil {
		return nil, &Failure{Diagnostics: formatMessages(ctxErr.Errors, api.ErrorMessage, e.color)}
	}
	defer buildCtx.Dispose()

	done := make(chan api.BuildResult, 1)
	go func() {
		done <- buildCtx.Rebuild()
	}()

	var result api.BuildResult
	select {
	case result = <-done:
	case <-ctx.Done():
		buildCtx.Cancel()
		<-done
		return nil, ctx.Err()
	}

	e.logger.Debug("esbuild pass finished",
		logger.WithField("output", cfg.OutputPath()),
		logger.WithField("errors", len(result.Errors)),
		logger.WithField("warnings", len(result.Warnings)))

	return &esbuildStats{result: result, color: e.color}, nil
}

// BuildOptions maps a BundleConfig onto esbuild options
func BuildOptions(cfg types.BundleConfig, root string, nodeEnv string) (api.BuildOptions, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return api.BuildOptions{}, fmt.Errorf("failed to resolve project root: %w", err)
	}

	opts := api.BuildOptions{
		EntryPoints:       cfg.EntryPoints,
		Outfile:           cfg.Outfile,
		Outdir:            cfg.Outdir,
		AbsWorkingDir:     absRoot,
		Bundle:            true,
		Write:             true,
		Metafile:          true,
		LogLevel:          api.LogLevelSilent,
		External:          cfg.External,
		MinifyWhitespace:  cfg.Minify,
		MinifyIdentifiers: cfg.Minify,
		MinifySyntax:      cfg.Minify,
	}

	if cfg.Sourcemap {
		opts.Sourcemap = api.SourceMapLinked
	}

	switch cfg.Platform {
	case types.PlatformNode:
		opts.Platform = api.PlatformNode
	case types.PlatformNeutral:
		opts.Platform = api.PlatformNeutral
	case types.PlatformBrowser, "":
		opts.Platform = api.PlatformBrowser
	default:
		return api.BuildOptions{}, fmt.Errorf("unknown platform %q", cfg.Platform)
	}

	switch cfg.Format {
	case types.FormatDefault:
		opts.Format = api.FormatDefault
	case types.FormatIIFE:
		opts.Format = api.FormatIIFE
	case types.FormatCommonJS:
		opts.Format = api.FormatCommonJS
	case types.FormatESM:
		opts.Format = api.FormatESModule
	default:
		return api.BuildOptions{}, fmt.Errorf("unknown format %q", cfg.Format)
	}

	if err := applyTarget(&opts, cfg.Target); err != nil {
		return api.BuildOptions{}, err
	}

	opts.Define = make(map[string]string, len(cfg.Define)+1)
	for k, v := range cfg.Define {
		opts.Define[k] = v
	}
	if nodeEnv != "" {
		opts.Define["process.env.NODE_ENV"] = strconv.Quote(nodeEnv)
	}

	if len(cfg.Loader) > 0 {
		opts.Loader = make(map[string]api.Loader, len(cfg.Loader))
		for ext, name := range cfg.Loader {
			loader, ok := loaders[name]
			if !ok {
				return api.BuildOptions{}, fmt.Errorf("unknown loader %q for %s", name, ext)
			}
			opts.Loader[ext] = loader
		}
	}

	return opts, nil
}

var loaders = map[string]api.Loader{
	"js":      api.LoaderJS,
	"jsx":     api.LoaderJSX,
	"ts":      api.LoaderTS,
	"tsx":     api.LoaderTSX,
	"json":    api.LoaderJSON,
	"css":     api.LoaderCSS,
	"text":    api.LoaderText,
	"file":    api.LoaderFile,
	"dataurl": api.LoaderDataURL,
	"base64":  api.LoaderBase64,
	"binary":  api.LoaderBinary,
	"copy":    api.LoaderCopy,
	"empty":   api.LoaderEmpty,
}

var languageTargets = map[string]api.Target{
	"es5":    api.ES5,
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"esnext": api.ESNext,
}

var engines = map[string]api.EngineName{
	"node":    api.EngineNode,
	"chrome":  api.EngineChrome,
	"firefox": api.EngineFirefox,
	"safari":  api.EngineSafari,
	"edge":    api.EngineEdge,
}

// applyTarget accepts either a language level ("es2018") or an engine with
// a version ("node16", "chrome98")
func applyTarget(opts *api.BuildOptions, target string) error {
	target = strings.ToLower(strings.TrimSpace(target))
	if target == "" {
		return nil
	}
	if t, ok := languageTargets[target]; ok {
		opts.Target = t
		return nil
	}
	for name, engine := range engines {
		if version := strings.TrimPrefix(target, name); version != target && version != "" {
			opts.Engines = append(opts.Engines, api.Engine{Name: engine, Version: version})
			return nil
		}
	}
	return fmt.Errorf("unknown target %q", target)
}

type esbuildStats struct {
	result api.BuildResult
	color  bool
}

func (s *esbuildStats) HasErrors() bool {
	return len(s.result.Errors) > 0
}

func (s *esbuildStats) String() string {
	var b strings.Builder

	if s.result.Metafile != "" && !s.HasErrors() {
		b.WriteString(strings.TrimRight(api.AnalyzeMetafile(s.result.Metafile, api.AnalyzeMetafileOptions{
			Color: s.color,
		}), "\n"))
		b.WriteString("\n")
	}
	if len(s.result.Warnings) > 0 {
		b.WriteString(formatMessages(s.result.Warnings, api.WarningMessage, s.color))
	}
	if s.HasErrors() {
		b.WriteString(formatMessages(s.result.Errors, api.ErrorMessage, s.color))
	}

	fmt.Fprintf(&b, "\n%d error(s), %d warning(s)", len(s.result.Errors), len(s.result.Warnings))
	return b.String()
}

func formatMessages(msgs []api.Message, kind api.MessageKind, color bool) string {
	return strings.Join(api.FormatMessages(msgs, api.FormatMessagesOptions{
		Kind:  kind,
		Color: color,
	}), "")
}
