package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/letsbuild/letsbuild/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// ErrPanic is wrapped by the error a SafeGroup returns for a panicking goroutine
var ErrPanic = errors.New("goroutine panic")

// SafeGroup wraps errgroup.Group so a panicking task fails the group, and
// cancels its siblings, instead of crashing the process
type SafeGroup struct {
	group  *errgroup.Group
	logger logger.Logger
}

// NewSafeGroup creates a SafeGroup whose context is cancelled on the first error
func NewSafeGroup(ctx context.Context, log logger.Logger) (*SafeGroup, context.Context) {
	if log == nil {
		log = logger.Discard()
	}
	g, ctx := errgroup.WithContext(ctx)
	return &SafeGroup{
		group:  g,
		logger: log,
	}, ctx
}

// Go runs fn in a new goroutine. A panic becomes an error wrapping ErrPanic.
func (sg *SafeGroup) Go(fn func() error) {
	sg.group.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				sg.logger.Error("Goroutine panic recovered",
					logger.WithField("panic", r),
					logger.WithField("stack_trace", stack))
				err = fmt.Errorf("%w: %v\n\n%s", ErrPanic, r, stack)
			}
		}()
		return fn()
	})
}

// SetLimit sets the maximum number of concurrent goroutines
func (sg *SafeGroup) SetLimit(n int) {
	sg.group.SetLimit(n)
}

// Wait blocks until all goroutines have returned and reports the first error
func (sg *SafeGroup) Wait() error {
	return sg.group.Wait()
}
