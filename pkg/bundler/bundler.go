// Package bundler wraps the bundling engine behind a small contract and
// normalizes its two failure channels into a single error.
package bundler

//go:generate mockgen -destination=../mocks/bundler_mock.go -package=mocks github.com/letsbuild/letsbuild/pkg/bundler Bundler,Stats

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/letsbuild/letsbuild/pkg/types"
)

// Stats is the outcome of a completed bundler pass
type Stats interface {
	// HasErrors reports whether the pass produced compilation errors
	HasErrors() bool
	// String renders the human-readable report, including any errors
	String() string
}

// Bundler runs one bundling pass. A non-nil error means the engine could not
// be invoked at all; compilation problems are reported through Stats.
type Bundler interface {
	Bundle(ctx context.Context, cfg types.BundleConfig) (Stats, error)
}

// Failure is the normalized rejection of a pass
type Failure struct {
	// Stack is set when the engine crashed
	Stack string
	// Diagnostics holds the formatted compiler output
	Diagnostics string
}

// Error prefers the stack trace, else the diagnostics
func (f *Failure) Error() string {
	if f.Stack != "" {
		return f.Stack
	}
	return f.Diagnostics
}

// Pack runs one pass and resolves with the textual report, or rejects with a
// *Failure. Cancellation of ctx is returned as ctx.Err().
func Pack(ctx context.Context, b Bundler, cfg types.BundleConfig) (report string, err error) {
	defer func() {
		if r := recover(); r != nil {
			report = ""
			err = &Failure{Stack: fmt.Sprintf("panic: %v\n\n%s", r, debug.Stack())}
		}
	}()

	stats, err := b.Bundle(ctx, cfg)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	if err != nil {
		var failure *Failure
		if errors.As(err, &failure) {
			return "", failure
		}
		return "", &Failure{Diagnostics: err.Error()}
	}
	if stats == nil {
		return "", &Failure{Diagnostics: "bundler returned no stats"}
	}

	if stats.HasErrors() {
		var diag strings.Builder
		for _, line := range splitLines(stats.String()) {
			diag.WriteString(line)
			diag.WriteString("\n")
		}
		return "", &Failure{Diagnostics: diag.String()}
	}

	return stats.String(), nil
}

func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.Split(s, "\n")
}
