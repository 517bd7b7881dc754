// Package context carries build run metadata on a context.Context
package context

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ctxKey int

const (
	runIDKey ctxKey = iota
	operationKey
	modeKey
	startTimeKey
)

const (
	unknownRun       = "unknown-run"
	unknownOperation = "unknown-operation"
)

// WithRunID adds a build run ID to the context, generating one when empty
func WithRunID(parent context.Context, runID string) context.Context {
	if runID == "" {
		runID = GenerateRunID()
	}
	return context.WithValue(parent, runIDKey, runID)
}

// GetRunID retrieves the run ID from context
func GetRunID(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey).(string); ok && id != "" {
		return id
	}
	return unknownRun
}

// HasRunID reports whether a run ID has been attached
func HasRunID(ctx context.Context) bool {
	return GetRunID(ctx) != unknownRun
}

// WithOperation adds an operation name to the context
func WithOperation(parent context.Context, operation string) context.Context {
	return context.WithValue(parent, operationKey, operation)
}

// GetOperation retrieves the operation name from context
func GetOperation(ctx context.Context) string {
	if op, ok := ctx.Value(operationKey).(string); ok && op != "" {
		return op
	}
	return unknownOperation
}

// WithMode records the build mode on the context
func WithMode(parent context.Context, mode string) context.Context {
	return context.WithValue(parent, modeKey, mode)
}

// GetMode retrieves the build mode, or "" when unset
func GetMode(ctx context.Context) string {
	if m, ok := ctx.Value(modeKey).(string); ok {
		return m
	}
	return ""
}

// WithStartTime adds the run start time to the context
func WithStartTime(parent context.Context, startTime time.Time) context.Context {
	return context.WithValue(parent, startTimeKey, startTime)
}

// GetStartTime retrieves the start time, or the zero time when unset
func GetStartTime(ctx context.Context) time.Time {
	if t, ok := ctx.Value(startTimeKey).(time.Time); ok {
		return t
	}
	return time.Time{}
}

// GetDuration returns the time elapsed since the start time, or 0 when unset
func GetDuration(ctx context.Context) time.Duration {
	start := GetStartTime(ctx)
	if start.IsZero() {
		return 0
	}
	return time.Since(start)
}

// GenerateRunID creates a new unique run ID
func GenerateRunID() string {
	return "run_" + uuid.New().String()
}

// EnrichContext adds a run ID when missing and stamps the start time
func EnrichContext(parent context.Context) context.Context {
	ctx := parent
	if !HasRunID(ctx) {
		ctx = WithRunID(ctx, "")
	}
	return WithStartTime(ctx, time.Now())
}
