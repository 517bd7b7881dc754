// Package engine dispatches a build mode to the bundler
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/letsbuild/letsbuild/internal/state"
	"github.com/letsbuild/letsbuild/pkg/banner"
	"github.com/letsbuild/letsbuild/pkg/bundler"
	"github.com/letsbuild/letsbuild/pkg/config"
	lbcontext "github.com/letsbuild/letsbuild/pkg/context"
	"github.com/letsbuild/letsbuild/pkg/logger"
	"github.com/letsbuild/letsbuild/pkg/notifier"
	"github.com/letsbuild/letsbuild/pkg/progress"
	"github.com/letsbuild/letsbuild/pkg/types"
	"github.com/letsbuild/letsbuild/pkg/utils"
	"github.com/letsbuild/letsbuild/pkg/validation"
)

var (
	// ErrTaskFailed is returned when a desktop task fails
	ErrTaskFailed = errors.New("build task failed")
	// ErrBuildFailed is returned in strict mode when a web or mobile pass
	// reports errors
	ErrBuildFailed = errors.New("build reported errors")
)

// clearScreen erases the terminal and homes the cursor
const clearScreen = "\x1b[2J\x1b[0f"

// DeleteFunc removes files matching del-style patterns
type DeleteFunc func(patterns []string, opts utils.DeleteOptions) ([]string, error)

// Dependencies are the collaborators of a Dispatcher. Notifier and State
// are optional.
type Dependencies struct {
	Bundler  bundler.Bundler
	Console  *logger.Console
	Logger   logger.Logger
	Notifier notifier.Notifier
	State    state.Store
	Delete   DeleteFunc
}

// Dispatcher runs the build for the mode selected in its options
type Dispatcher struct {
	opts      config.Options
	bundler   bundler.Bundler
	console   *logger.Console
	logger    logger.Logger
	notifier  notifier.Notifier
	state     state.Store
	delete    DeleteFunc
	validator *validation.TaskValidator

	mu   sync.RWMutex
	file *config.File
}

// NewDispatcher creates a dispatcher. A nil file selects the defaults.
func NewDispatcher(opts config.Options, file *config.File, deps Dependencies) *Dispatcher {
	if file == nil {
		file = config.Default()
	}
	if deps.Logger == nil {
		deps.Logger = logger.Discard()
	}
	if deps.Delete == nil {
		deps.Delete = utils.DeletePatterns
	}
	return &Dispatcher{
		opts:      opts,
		file:      file,
		bundler:   deps.Bundler,
		console:   deps.Console,
		logger:    deps.Logger,
		notifier:  deps.Notifier,
		state:     deps.State,
		delete:    deps.Delete,
		validator: validation.NewTaskValidator(opts.ProjectRoot),
	}
}

// Options returns the options the dispatcher was created with
func (d *Dispatcher) Options() config.Options {
	return d.opts
}

// SetFile swaps the project configuration used by later runs
func (d *Dispatcher) SetFile(file *config.File) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.file = file
}

func (d *Dispatcher) modeConfig() config.ModeConfig {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.file.ForMode(d.opts.Mode)
}

// Run prints the target line and runs the selected mode. The line echoes
// the target as given, or the mode name when none was.
func (d *Dispatcher) Run(ctx context.Context) error {
	target := d.opts.Target
	if target == "" {
		target = d.opts.Mode.DisplayName()
	}
	d.console.Println("Build Target - " + target)
	return d.dispatch(ctx, true)
}

// Rebuild runs the selected mode again without the greeting
func (d *Dispatcher) Rebuild(ctx context.Context) error {
	return d.dispatch(ctx, false)
}

func (d *Dispatcher) dispatch(ctx context.Context, greet bool) error {
	ctx = lbcontext.EnrichContext(ctx)
	ctx = lbcontext.WithMode(ctx, string(d.opts.Mode))
	ctx = lbcontext.WithOperation(ctx, "dispatch")

	if d.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opts.Timeout)
		defer cancel()
	}

	switch d.opts.Mode {
	case types.ModeClean:
		return d.clean(ctx)
	case types.ModeWeb, types.ModeMobile:
		return d.single(ctx, greet)
	default:
		return d.desktop(ctx, greet)
	}
}

func (d *Dispatcher) clean(ctx context.Context) error {
	log := logger.WithContext(ctx, d.logger)
	d.console.Println("Cleaning Build.")

	deleted, err := d.delete(d.modeConfig().Output, utils.DeleteOptions{Root: d.opts.ProjectRoot})
	if err != nil {
		d.record(ctx, state.BuildStatusFailed, nil, err)
		return fmt.Errorf("failed to clean build: %w", err)
	}
	log.Debug("Removed build output", logger.WithField("paths", len(deleted)))

	d.console.Done()
	d.record(ctx, state.BuildStatusSucceeded, nil, nil)
	return nil
}

// prepare prints the packing header and the greeting, then removes the
// previous output of the mode
func (d *Dispatcher) prepare(ctx context.Context, greet bool) error {
	if greet {
		d.console.Println("Starting to pack for " + d.opts.Mode.DisplayName())
		banner.Greet(d.console, banner.Options{Columns: d.opts.Columns, CI: d.opts.CI})
	}

	deleted, err := d.delete(d.modeConfig().Output, utils.DeleteOptions{Root: d.opts.ProjectRoot})
	if err != nil {
		return fmt.Errorf("failed to remove previous output: %w", err)
	}
	logger.WithContext(ctx, d.logger).Debug("Removed previous output", logger.WithField("paths", len(deleted)))
	return nil
}

// pack validates a task and runs one bundler pass for it
func (d *Dispatcher) pack(ctx context.Context, task types.Task) (string, error) {
	if err := d.validator.Validate(task).Err(); err != nil {
		return "", &bundler.Failure{Diagnostics: err.Error()}
	}
	return bundler.Pack(ctx, d.bundler, task.Config)
}

// single packs web and mobile. Bundler errors are printed, and only fail the
// run in strict mode.
func (d *Dispatcher) single(ctx context.Context, greet bool) error {
	if err := d.prepare(ctx, greet); err != nil {
		d.record(ctx, state.BuildStatusFailed, nil, err)
		return err
	}

	tasks := d.modeConfig().Tasks
	if len(tasks) == 0 {
		return fmt.Errorf("no %s task configured", d.opts.Mode)
	}
	task := tasks[0]
	log := logger.WithContext(ctx, d.logger).WithTarget(task.Name)

	started := time.Now()
	report, err := d.pack(ctx, task)
	result := types.TaskResult{Name: task.Name, Duration: time.Since(started)}

	if err != nil {
		result.Status = types.TaskStatusError
		result.Error = err.Error()
		d.console.Println(err.Error())
	} else {
		result.Status = types.TaskStatusSuccess
		result.Report = report
		d.console.Println(report)
	}
	results := []types.TaskResult{result}

	if ctxErr := ctx.Err(); ctxErr != nil {
		d.record(ctx, state.BuildStatusFailed, results, ctxErr)
		return fmt.Errorf("%s build interrupted: %w", d.opts.Mode, ctxErr)
	}

	if err != nil {
		log.Debug("Bundler reported errors", logger.WithField("strict", d.opts.Strict))
		if d.opts.Strict {
			d.record(ctx, state.BuildStatusFailed, results, err)
			return fmt.Errorf("%w: %s", ErrBuildFailed, d.opts.Mode)
		}
		d.record(ctx, state.BuildStatusReported, results, err)
		return nil
	}

	log.Debug("Packed", logger.WithField("duration", result.Duration))
	d.record(ctx, state.BuildStatusSucceeded, results, nil)
	return nil
}

// desktop packs every task concurrently. The first failure cancels the
// others; a task finishing after that is neither reported nor printed.
func (d *Dispatcher) desktop(ctx context.Context, greet bool) error {
	if err := d.prepare(ctx, greet); err != nil {
		d.record(ctx, state.BuildStatusFailed, nil, err)
		return err
	}

	tasks := d.modeConfig().Tasks
	if len(tasks) == 0 {
		return fmt.Errorf("no %s tasks configured", d.opts.Mode)
	}
	names := make([]string, len(tasks))
	for i, task := range tasks {
		names[i] = task.Name
	}

	spinner := progress.New(d.console, names, progress.Options{
		PreText:     "building",
		PostText:    "process",
		Interactive: d.opts.Interactive,
	})
	spinner.Start()

	results := make([]types.TaskResult, len(tasks))
	var (
		mu     sync.Mutex
		failed bool
	)

	g, gctx := NewSafeGroup(ctx, d.logger)
	for i, task := range tasks {
		i, task := i, task
		results[i] = types.TaskResult{Name: task.Name, Status: types.TaskStatusPending}

		g.Go(func() error {
			log := logger.WithContext(gctx, d.logger).WithTarget(task.Name)
			started := time.Now()
			report, err := d.pack(gctx, task)

			mu.Lock()
			defer mu.Unlock()

			results[i].Duration = time.Since(started)
			if failed {
				results[i].Status = types.TaskStatusCancelled
				spinner.Cancel(task.Name)
				log.Debug("Discarded result after sibling failure")
				return nil
			}

			if err != nil {
				failed = true
				results[i].Status = types.TaskStatusError
				results[i].Error = err.Error()
				spinner.Error(task.Name)
				d.console.Failure(fmt.Sprintf("failed to build %s", task.Label()), err.Error())
				return fmt.Errorf("%w: %s: %w", ErrTaskFailed, task.Label(), err)
			}

			results[i].Status = types.TaskStatusSuccess
			results[i].Report = report
			spinner.Success(task.Name)
			log.Debug("Packed", logger.WithField("duration", results[i].Duration))
			return nil
		})
	}

	err := g.Wait()
	spinner.Stop()

	if err != nil {
		if errors.Is(err, ErrPanic) {
			err = fmt.Errorf("%w: %w", ErrTaskFailed, err)
		}
		d.record(ctx, state.BuildStatusFailed, results, err)
		return err
	}

	select {
	case <-spinner.Done():
	default:
		err := fmt.Errorf("%w: not every task reported success", ErrTaskFailed)
		d.record(ctx, state.BuildStatusFailed, results, err)
		return err
	}

	if d.opts.Interactive {
		d.console.Printf("%s", clearScreen)
	}
	d.console.Printf("\n\n%s", types.AggregateReport(results))
	d.console.Println()
	d.console.Okay("take it away " + color.YellowString("`electron-builder`"))

	d.record(ctx, state.BuildStatusSucceeded, results, nil)
	return nil
}

// record persists the outcome and sends the notification. Failures here
// are logged and never change the result of the run.
func (d *Dispatcher) record(ctx context.Context, status state.BuildStatus, results []types.TaskResult, runErr error) {
	log := logger.WithContext(ctx, d.logger)
	duration := lbcontext.GetDuration(ctx)

	if d.state != nil {
		record := state.BuildRecord{
			Mode:      d.opts.Mode,
			RunID:     lbcontext.GetRunID(ctx),
			Status:    status,
			StartedAt: lbcontext.GetStartTime(ctx),
			Duration:  duration,
			Tasks:     results,
		}
		if runErr != nil {
			record.LastError = runErr.Error()
		}
		if err := d.state.Record(record); err != nil {
			log.Warn("Failed to record build state", logger.WithField("error", err))
		}
	}

	if d.notifier == nil || d.opts.Mode == types.ModeClean {
		return
	}
	target := d.opts.Mode.DisplayName()
	if status == state.BuildStatusSucceeded {
		d.notifier.NotifyBuildSuccess(target, duration)
	} else {
		if runErr == nil {
			runErr = errors.New("bundler reported errors")
		}
		d.notifier.NotifyBuildFailure(target, runErr)
	}
}
