// Package config handles configuration loading and management
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/letsbuild/letsbuild/pkg/types"
	"github.com/letsbuild/letsbuild/pkg/utils"
	"gopkg.in/yaml.v3"
)

// FileName is the project configuration file looked up in the project root
const FileName = "letsbuild.yaml"

// ErrConfigNotFound is returned when an explicitly requested config file is missing
var ErrConfigNotFound = errors.New("config file not found")

// ModeConfig holds the output patterns and tasks of one build mode
type ModeConfig struct {
	// Output lists delete patterns applied before packing. Entries starting
	// with "!" are kept.
	Output []string     `yaml:"output" json:"output"`
	Tasks  []types.Task `yaml:"tasks" json:"tasks"`
}

// File is the on-disk project configuration
type File struct {
	Clean   []string   `yaml:"clean" json:"clean"`
	Web     ModeConfig `yaml:"web" json:"web"`
	Mobile  ModeConfig `yaml:"mobile" json:"mobile"`
	Desktop ModeConfig `yaml:"desktop" json:"desktop"`
	Notify  bool       `yaml:"notify" json:"notify"`
}

// ForMode returns the configuration for a packing mode. Clean has no tasks
// and returns its patterns as Output.
func (f *File) ForMode(mode types.Mode) ModeConfig {
	switch mode {
	case types.ModeClean:
		return ModeConfig{Output: f.Clean}
	case types.ModeWeb:
		return f.Web
	case types.ModeMobile:
		return f.Mobile
	default:
		return f.Desktop
	}
}

// Default returns the configuration of an electron-vue style project
func Default() *File {
	return &File{
		Clean: []string{"build/*", "!build/icons", "!build/icons/icon.*"},
		Web: ModeConfig{
			Output: []string{"dist/web/*", "!.gitkeep"},
			Tasks: []types.Task{
				{Name: "web", Config: browserBundle("src/renderer/main.js", "dist/web")},
			},
		},
		Mobile: ModeConfig{
			Output: []string{"dist/mobile/*", "!.gitkeep"},
			Tasks: []types.Task{
				{Name: "mobile", Config: browserBundle("src/renderer/main.js", "dist/mobile")},
			},
		},
		Desktop: ModeConfig{
			Output: []string{"dist/electron/*", "!.gitkeep"},
			Tasks: []types.Task{
				{
					Name: "main",
					Config: types.BundleConfig{
						EntryPoints: []string{"src/main/index.js"},
						Outfile:     "dist/electron/main.js",
						Platform:    types.PlatformNode,
						Format:      types.FormatCommonJS,
						Target:      "node16",
						External:    []string{"electron"},
						Minify:      true,
					},
				},
				{
					Name: "renderer",
					Config: types.BundleConfig{
						EntryPoints: []string{"src/renderer/main.js"},
						Outfile:     "dist/electron/renderer.js",
						Platform:    types.PlatformBrowser,
						Format:      types.FormatIIFE,
						Target:      "chrome100",
						External:    []string{"electron"},
						Minify:      true,
					},
				},
			},
		},
	}
}

func browserBundle(entry, outdir string) types.BundleConfig {
	return types.BundleConfig{
		EntryPoints: []string{entry},
		Outdir:      outdir,
		Platform:    types.PlatformBrowser,
		Format:      types.FormatIIFE,
		Target:      "es2017",
		Loader: map[string]string{
			".png": "file",
			".svg": "file",
			".css": "css",
		},
		Minify: true,
	}
}

// LoadFile reads a configuration file. Modes missing from the file keep
// their defaults.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	var parsed File
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if parsed.Clean != nil {
		cfg.Clean = parsed.Clean
	}
	mergeMode(&cfg.Web, parsed.Web)
	mergeMode(&cfg.Mobile, parsed.Mobile)
	mergeMode(&cfg.Desktop, parsed.Desktop)
	cfg.Notify = parsed.Notify

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// Load reads letsbuild.yaml from root when present, otherwise the defaults
func Load(root string) (*File, error) {
	path := filepath.Join(root, FileName)
	cfg, err := LoadFile(path)
	if errors.Is(err, ErrConfigNotFound) {
		return Default(), nil
	}
	return cfg, err
}

func mergeMode(dst *ModeConfig, src ModeConfig) {
	if src.Output != nil {
		dst.Output = src.Output
	}
	if src.Tasks != nil {
		dst.Tasks = src.Tasks
	}
}

// Validate checks the structure of a configuration. Whether entry points
// exist on disk is checked before packing, not here.
func Validate(cfg *File) error {
	for _, mode := range []types.Mode{types.ModeWeb, types.ModeMobile, types.ModeDesktop} {
		mc := cfg.ForMode(mode)
		if len(mc.Tasks) == 0 {
			return fmt.Errorf("%s: no tasks defined", mode)
		}
		if mode != types.ModeDesktop && len(mc.Tasks) != 1 {
			return fmt.Errorf("%s: exactly one task is packed, got %d", mode, len(mc.Tasks))
		}

		names := make(map[string]bool)
		for i, task := range mc.Tasks {
			if task.Name == "" {
				return fmt.Errorf("%s: task %d: missing name", mode, i)
			}
			if names[task.Name] {
				return fmt.Errorf("%s: duplicate task name: %s", mode, task.Name)
			}
			names[task.Name] = true
		}
	}
	return nil
}

// WriteDefault writes the default configuration to root. An existing file is
// only replaced when force is set.
func WriteDefault(root string, force bool) (string, error) {
	path := filepath.Join(root, FileName)
	if utils.FileExists(path) && !force {
		return path, fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return path, fmt.Errorf("failed to encode config: %w", err)
	}
	if err := utils.WriteFileAtomic(path, data); err != nil {
		return path, fmt.Errorf("failed to write config: %w", err)
	}
	return path, nil
}
