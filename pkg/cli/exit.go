package cli

import (
	"errors"

	"github.com/letsbuild/letsbuild/internal/engine"
)

// ExitCode maps the error returned by Execute to a process exit status
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}

// Reported reports whether err has already been printed by the build, so
// the caller should not print it again
func Reported(err error) bool {
	return errors.Is(err, engine.ErrTaskFailed) || errors.Is(err, engine.ErrBuildFailed)
}
