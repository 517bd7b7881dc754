// Package types provides the core types shared by the letsbuild packages
package types

import (
	"fmt"
	"strings"
	"time"
)

// Mode represents the selected build target
type Mode string

const (
	ModeClean   Mode = "clean"
	ModeWeb     Mode = "web"
	ModeMobile  Mode = "mobile"
	ModeDesktop Mode = "desktop"
)

// ParseMode maps a BUILD_TARGET value to a Mode. Anything other than
// clean, web or mobile selects the desktop build.
func ParseMode(value string) Mode {
	switch Mode(strings.TrimSpace(value)) {
	case ModeClean:
		return ModeClean
	case ModeWeb:
		return ModeWeb
	case ModeMobile:
		return ModeMobile
	default:
		return ModeDesktop
	}
}

// DisplayName returns the human readable name of the mode
func (m Mode) DisplayName() string {
	switch m {
	case ModeClean:
		return "Clean"
	case ModeWeb:
		return "Web"
	case ModeMobile:
		return "Mobile"
	default:
		return "Desktop"
	}
}

// Modes returns every mode in dispatch order
func Modes() []Mode {
	return []Mode{ModeClean, ModeWeb, ModeMobile, ModeDesktop}
}

// TaskStatus represents the outcome of a single bundler invocation
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusSuccess   TaskStatus = "success"
	TaskStatusError     TaskStatus = "error"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// IsFinal reports whether the status will not change again
func (s TaskStatus) IsFinal() bool {
	return s != TaskStatusPending
}

// Platform selects the runtime a bundle is built for
type Platform string

const (
	PlatformNode    Platform = "node"
	PlatformBrowser Platform = "browser"
	PlatformNeutral Platform = "neutral"
)

// Format selects the module format of the output
type Format string

const (
	FormatDefault  Format = ""
	FormatIIFE     Format = "iife"
	FormatCommonJS Format = "cjs"
	FormatESM      Format = "esm"
)

// BundleConfig describes one bundler invocation
type BundleConfig struct {
	EntryPoints []string          `json:"entryPoints" yaml:"entryPoints" mapstructure:"entryPoints"`
	Outfile     string            `json:"outfile,omitempty" yaml:"outfile,omitempty" mapstructure:"outfile"`
	Outdir      string            `json:"outdir,omitempty" yaml:"outdir,omitempty" mapstructure:"outdir"`
	Platform    Platform          `json:"platform,omitempty" yaml:"platform,omitempty" mapstructure:"platform"`
	Format      Format            `json:"format,omitempty" yaml:"format,omitempty" mapstructure:"format"`
	Target      string            `json:"target,omitempty" yaml:"target,omitempty" mapstructure:"target"`
	External    []string          `json:"external,omitempty" yaml:"external,omitempty" mapstructure:"external"`
	Define      map[string]string `json:"define,omitempty" yaml:"define,omitempty" mapstructure:"define"`
	Loader      map[string]string `json:"loader,omitempty" yaml:"loader,omitempty" mapstructure:"loader"`
	Minify      bool              `json:"minify,omitempty" yaml:"minify,omitempty" mapstructure:"minify"`
	Sourcemap   bool              `json:"sourcemap,omitempty" yaml:"sourcemap,omitempty" mapstructure:"sourcemap"`
}

// OutputPath returns the configured outfile or outdir
func (c BundleConfig) OutputPath() string {
	if c.Outfile != "" {
		return c.Outfile
	}
	return c.Outdir
}

// Task identifies one named bundler invocation within a mode
type Task struct {
	Name   string       `json:"name" yaml:"name" mapstructure:"name"`
	Config BundleConfig `json:"config" yaml:"config" mapstructure:"config"`
}

// Label returns the task name as shown in progress output
func (t Task) Label() string {
	return fmt.Sprintf("%s process", t.Name)
}

// TaskResult holds the outcome of one task after a run
type TaskResult struct {
	Name     string        `json:"name"`
	Status   TaskStatus    `json:"status"`
	Report   string        `json:"-"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// AggregateReport concatenates the reports of successful tasks in the order
// the results are given, which is task registration order.
func AggregateReport(results []TaskResult) string {
	var b strings.Builder
	for _, r := range results {
		if r.Status != TaskStatusSuccess {
			continue
		}
		b.WriteString(r.Report)
		b.WriteString("\n\n")
	}
	return b.String()
}
