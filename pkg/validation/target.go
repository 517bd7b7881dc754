// Package validation checks bundle tasks before they are packed
package validation

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/letsbuild/letsbuild/pkg/types"
	"github.com/letsbuild/letsbuild/pkg/utils"
)

// ErrInvalidTask is wrapped by every error returned from ValidationResult.Err
var ErrInvalidTask = errors.New("invalid task")

// TaskValidator validates bundle tasks against a project root
type TaskValidator struct {
	projectRoot string
}

// NewTaskValidator creates a new task validator
func NewTaskValidator(projectRoot string) *TaskValidator {
	return &TaskValidator{
		projectRoot: projectRoot,
	}
}

// ValidationError represents a validation error
type ValidationError struct {
	Task    string
	Field   string
	Message string
	Level   ValidationLevel
}

// ValidationLevel represents error severity
type ValidationLevel string

const (
	ValidationLevelError   ValidationLevel = "error"
	ValidationLevelWarning ValidationLevel = "warning"
)

func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s.%s: %s", e.Level, e.Task, e.Field, e.Message)
}

// ValidationResult contains validation results
type ValidationResult struct {
	Valid  bool
	Errors []ValidationError
}

// AddError adds an issue to the validation result
func (r *ValidationResult) AddError(task, field, message string, level ValidationLevel) {
	r.Errors = append(r.Errors, ValidationError{
		Task:    task,
		Field:   field,
		Message: message,
		Level:   level,
	})
	if level == ValidationLevelError {
		r.Valid = false
	}
}

// Err returns nil for a valid result, otherwise an error wrapping
// ErrInvalidTask that lists every error level issue
func (r *ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	var lines []string
	for i := range r.Errors {
		if r.Errors[i].Level == ValidationLevelError {
			lines = append(lines, r.Errors[i].Error())
		}
	}
	return fmt.Errorf("%w:\n%s", ErrInvalidTask, strings.Join(lines, "\n"))
}

// Validate validates one task
func (v *TaskValidator) Validate(task types.Task) *ValidationResult {
	result := &ValidationResult{Valid: true}

	v.validateName(task, result)
	v.validateEntryPoints(task, result)
	v.validateOutput(task, result)

	return result
}

// ValidateMultiple validates the tasks of one mode
func (v *TaskValidator) ValidateMultiple(tasks []types.Task) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if len(tasks) == 0 {
		result.AddError("mode", "tasks", "no tasks defined", ValidationLevelError)
		return result
	}

	names := make(map[string]bool)
	for _, task := range tasks {
		if names[task.Name] {
			result.AddError(task.Name, "name", "duplicate task name", ValidationLevelError)
		}
		names[task.Name] = true

		taskResult := v.Validate(task)
		result.Errors = append(result.Errors, taskResult.Errors...)
		if !taskResult.Valid {
			result.Valid = false
		}
	}

	return result
}

func (v *TaskValidator) validateName(task types.Task, result *ValidationResult) {
	if task.Name == "" {
		result.AddError("", "name", "task name is required", ValidationLevelError)
		return
	}
	if strings.ContainsAny(task.Name, " \t") {
		result.AddError(task.Name, "name", "task name cannot contain spaces", ValidationLevelError)
	}
}

func (v *TaskValidator) validateEntryPoints(task types.Task, result *ValidationResult) {
	entries := task.Config.EntryPoints
	if len(entries) == 0 {
		result.AddError(task.Name, "entryPoints", "at least one entry point is required", ValidationLevelError)
		return
	}

	for _, entry := range entries {
		if entry == "" {
			result.AddError(task.Name, "entryPoints", "empty entry point", ValidationLevelError)
			continue
		}
		if utils.IsGlobPattern(entry) {
			continue
		}

		path := entry
		if !filepath.IsAbs(path) {
			path = filepath.Join(v.projectRoot, entry)
		} else {
			result.AddError(task.Name, "entryPoints", fmt.Sprintf("entry point should be relative: %s", entry), ValidationLevelWarning)
		}
		if _, err := os.Stat(path); err != nil {
			result.AddError(task.Name, "entryPoints", fmt.Sprintf("entry point does not exist: %s", entry), ValidationLevelError)
		}
	}
}

func (v *TaskValidator) validateOutput(task types.Task, result *ValidationResult) {
	cfg := task.Config
	switch {
	case cfg.Outfile == "" && cfg.Outdir == "":
		result.AddError(task.Name, "output", "outfile or outdir is required", ValidationLevelError)
		return
	case cfg.Outfile != "" && cfg.Outdir != "":
		result.AddError(task.Name, "output", "outfile and outdir are mutually exclusive", ValidationLevelError)
		return
	}

	if cfg.Outfile != "" && len(cfg.EntryPoints) > 1 {
		result.AddError(task.Name, "outfile", "outfile requires a single entry point, use outdir", ValidationLevelError)
	}

	output := cfg.OutputPath()
	if filepath.IsAbs(output) {
		result.AddError(task.Name, "output", "output path should be relative to project root", ValidationLevelWarning)
		return
	}
	clean := filepath.ToSlash(filepath.Clean(output))
	if clean == ".." || strings.HasPrefix(clean, "../") {
		result.AddError(task.Name, "output", fmt.Sprintf("output path escapes project root: %s", output), ValidationLevelError)
	}
}
