// Package progress renders per-task build progress
package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/fatih/color"
	"github.com/letsbuild/letsbuild/pkg/types"
)

// Options configures a Multispinner
type Options struct {
	PreText  string
	PostText string
	// Interactive redraws animated frames in place. When false every state
	// change is printed as its own line, which suits CI logs.
	Interactive bool
	// Spinner supplies the animation frames; spinner.Dot when empty
	Spinner spinner.Spinner
	// Interval overrides the frame rate of Spinner
	Interval time.Duration
}

// Multispinner tracks a fixed set of tasks, each pending until marked
// success, error or cancelled
type Multispinner struct {
	out   io.Writer
	opts  Options
	order []string

	mu      sync.Mutex
	states  map[string]types.TaskStatus
	frame   int
	drawn   bool
	started bool
	stopped bool

	done     chan struct{}
	doneOnce sync.Once
	stop     chan struct{}
	wg       sync.WaitGroup
}

// New creates a spinner for tasks, kept in the given order
func New(out io.Writer, tasks []string, opts Options) *Multispinner {
	if len(opts.Spinner.Frames) == 0 {
		opts.Spinner = spinner.Dot
	}
	if opts.Interval <= 0 {
		opts.Interval = opts.Spinner.FPS
	}
	if opts.Interval <= 0 {
		opts.Interval = spinner.Dot.FPS
	}
	states := make(map[string]types.TaskStatus, len(tasks))
	for _, t := range tasks {
		states[t] = types.TaskStatusPending
	}
	return &Multispinner{
		out:    out,
		opts:   opts,
		order:  append([]string(nil), tasks...),
		states: states,
		done:   make(chan struct{}),
		stop:   make(chan struct{}),
	}
}

// Start draws the initial state and, when interactive, begins animating
func (m *Multispinner) Start() {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true

	if !m.opts.Interactive {
		for _, name := range m.order {
			fmt.Fprintln(m.out, m.line(name))
		}
		m.mu.Unlock()
		return
	}
	m.redraw()
	m.mu.Unlock()

	m.wg.Add(1)
	go m.animate()
}

func (m *Multispinner) animate() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.mu.Lock()
			m.frame = (m.frame + 1) % len(m.opts.Spinner.Frames)
			m.redraw()
			m.mu.Unlock()
		}
	}
}

// Success marks a task as succeeded
func (m *Multispinner) Success(name string) {
	m.set(name, types.TaskStatusSuccess)
}

// Error marks a task as failed
func (m *Multispinner) Error(name string) {
	m.set(name, types.TaskStatusError)
}

// Cancel marks a task as abandoned because a sibling failed
func (m *Multispinner) Cancel(name string) {
	m.set(name, types.TaskStatusCancelled)
}

// Status returns the current status of a task
func (m *Multispinner) Status(name string) types.TaskStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[name]
}

// Done is closed once every task has succeeded
func (m *Multispinner) Done() <-chan struct{} {
	return m.done
}

// Stop ends the animation, leaving the last frame on screen
func (m *Multispinner) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	interactive := m.started && m.opts.Interactive
	m.mu.Unlock()

	if interactive {
		close(m.stop)
		m.wg.Wait()
	}
}

func (m *Multispinner) set(name string, status types.TaskStatus) {
	m.mu.Lock()
	current, ok := m.states[name]
	if !ok || current.IsFinal() {
		m.mu.Unlock()
		return
	}
	m.states[name] = status

	if m.started && !m.stopped {
		if m.opts.Interactive {
			m.redraw()
		} else {
			fmt.Fprintln(m.out, m.line(name))
		}
	}

	allSucceeded := true
	for _, s := range m.states {
		if s != types.TaskStatusSuccess {
			allSucceeded = false
			break
		}
	}
	m.mu.Unlock()

	if allSucceeded {
		m.doneOnce.Do(func() { close(m.done) })
	}
}

// redraw repaints every task line in place; callers hold mu
func (m *Multispinner) redraw() {
	var b strings.Builder
	if m.drawn {
		fmt.Fprintf(&b, "\x1b[%dA", len(m.order))
	}
	for _, name := range m.order {
		b.WriteString("\r\x1b[K")
		b.WriteString(m.line(name))
		b.WriteString("\n")
	}
	m.drawn = true
	io.WriteString(m.out, b.String())
}

// line renders one task; callers hold mu
func (m *Multispinner) line(name string) string {
	var symbol string
	switch m.states[name] {
	case types.TaskStatusSuccess:
		symbol = color.GreenString("✔")
	case types.TaskStatusError:
		symbol = color.RedString("✖")
	case types.TaskStatusCancelled:
		symbol = color.New(color.Faint).Sprint("-")
	default:
		if m.opts.Interactive {
			symbol = color.CyanString(strings.TrimSpace(m.opts.Spinner.Frames[m.frame]))
		} else {
			symbol = "…"
		}
	}

	parts := []string{symbol}
	if m.opts.PreText != "" {
		parts = append(parts, m.opts.PreText)
	}
	parts = append(parts, name)
	if m.opts.PostText != "" {
		parts = append(parts, m.opts.PostText)
	}
	return "  " + strings.Join(parts, " ")
}
