package config

import (
	"os"
	"strings"
	"time"

	"github.com/letsbuild/letsbuild/pkg/types"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

// Keys of the viper instance built by NewViper
const (
	KeyTarget     = "target"
	KeyCI         = "ci"
	KeyStrict     = "strict"
	KeyNotify     = "notify"
	KeyVerbosity  = "verbosity"
	KeyTimeout    = "timeout"
	KeyRoot       = "root"
	KeyConfigFile = "config"
	KeyLogFile    = "log-file"
)

// EnvPrefix prefixes every letsbuild specific environment variable
const EnvPrefix = "LETSBUILD"

// NodeEnv is the environment every bundle is built for
const NodeEnv = "production"

// Options is the resolved, read-only configuration of one process
type Options struct {
	Mode        types.Mode
	// Target is the value Mode was parsed from, as the user gave it
	Target      string
	CI          bool
	Columns     int
	Interactive bool
	NodeEnv     string
	Strict      bool
	Notify      bool
	ProjectRoot string
	ConfigFile  string
	Verbosity   string
	Timeout     time.Duration
}

// Terminal describes the output terminal
type Terminal struct {
	Columns     int
	Interactive bool
}

// NewViper returns a viper instance with defaults and environment bindings.
// BUILD_TARGET and CI are read unprefixed, everything else as LETSBUILD_*.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault(KeyRoot, ".")
	v.SetDefault(KeyVerbosity, "info")
	v.SetDefault(KeyTimeout, time.Duration(0))

	_ = v.BindEnv(KeyTarget, "BUILD_TARGET")
	_ = v.BindEnv(KeyCI, "CI")
	for _, key := range []string{KeyStrict, KeyNotify, KeyVerbosity, KeyTimeout, KeyRoot, KeyConfigFile, KeyLogFile} {
		_ = v.BindEnv(key)
	}
	return v
}

// Resolve builds Options from viper values, the project file and the terminal
func Resolve(v *viper.Viper, file *File, t Terminal) Options {
	notify := file != nil && file.Notify
	if v.IsSet(KeyNotify) {
		notify = v.GetBool(KeyNotify)
	}

	return Options{
		Mode:        types.ParseMode(v.GetString(KeyTarget)),
		Target:      strings.TrimSpace(v.GetString(KeyTarget)),
		CI:          IsCI(v.GetString(KeyCI)),
		Columns:     t.Columns,
		Interactive: t.Interactive,
		NodeEnv:     NodeEnv,
		Strict:      v.GetBool(KeyStrict),
		Notify:      notify,
		ProjectRoot: v.GetString(KeyRoot),
		ConfigFile:  v.GetString(KeyConfigFile),
		Verbosity:   v.GetString(KeyVerbosity),
		Timeout:     v.GetDuration(KeyTimeout),
	}
}

// IsCI reports whether the CI variable is set. Any non-empty value counts,
// including "0" and "false".
func IsCI(value string) bool {
	return strings.TrimSpace(value) != ""
}

// DetectTerminal inspects stdout. Columns is 0 when stdout is not a terminal.
func DetectTerminal(f *os.File) Terminal {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return Terminal{}
	}
	width, _, err := term.GetSize(fd)
	if err != nil {
		return Terminal{Interactive: true}
	}
	return Terminal{Columns: width, Interactive: true}
}

// ExportNodeEnv sets NODE_ENV for child tooling that reads it
func ExportNodeEnv(opts Options) error {
	return os.Setenv("NODE_ENV", opts.NodeEnv)
}
