package logger

import (
	"context"

	lbcontext "github.com/letsbuild/letsbuild/pkg/context"
)

// LoggerContext extends Logger with context-aware methods that attach the
// run metadata carried by the context.
type LoggerContext interface {
	Logger
	InfoContext(ctx context.Context, message string, fields ...Field)
	ErrorContext(ctx context.Context, message string, fields ...Field)
	WarnContext(ctx context.Context, message string, fields ...Field)
	DebugContext(ctx context.Context, message string, fields ...Field)
	SuccessContext(ctx context.Context, message string, fields ...Field)
}

var _ LoggerContext = (*TargetLogger)(nil)

// InfoContext logs an info message with run fields
func (l *TargetLogger) InfoContext(ctx context.Context, message string, fields ...Field) {
	l.Info(message, append(ContextFields(ctx), fields...)...)
}

// ErrorContext logs an error message with run fields
func (l *TargetLogger) ErrorContext(ctx context.Context, message string, fields ...Field) {
	l.Error(message, append(ContextFields(ctx), fields...)...)
}

// WarnContext logs a warning message with run fields
func (l *TargetLogger) WarnContext(ctx context.Context, message string, fields ...Field) {
	l.Warn(message, append(ContextFields(ctx), fields...)...)
}

// DebugContext logs a debug message with run fields
func (l *TargetLogger) DebugContext(ctx context.Context, message string, fields ...Field) {
	l.Debug(message, append(ContextFields(ctx), fields...)...)
}

// SuccessContext logs a success message with run fields
func (l *TargetLogger) SuccessContext(ctx context.Context, message string, fields ...Field) {
	l.Success(message, append(ContextFields(ctx), fields...)...)
}

// ContextFields extracts the run fields present on ctx
func ContextFields(ctx context.Context) []Field {
	if ctx == nil {
		return nil
	}

	var fields []Field
	if lbcontext.HasRunID(ctx) {
		fields = append(fields, WithField("run_id", lbcontext.GetRunID(ctx)))
	}
	if mode := lbcontext.GetMode(ctx); mode != "" {
		fields = append(fields, WithField("mode", mode))
	}
	if op := lbcontext.GetOperation(ctx); op != "unknown-operation" {
		fields = append(fields, WithField("operation", op))
	}
	if d := lbcontext.GetDuration(ctx); d > 0 {
		fields = append(fields, WithField("elapsed_ms", d.Milliseconds()))
	}
	return fields
}

// WithContext creates a logger that automatically includes context fields
func WithContext(ctx context.Context, logger Logger) Logger {
	if ctx == nil {
		return logger
	}
	return &contextualLogger{ctx: ctx, logger: logger}
}

type contextualLogger struct {
	ctx    context.Context
	logger Logger
}

func (cl *contextualLogger) Info(message string, fields ...Field) {
	if lc, ok := cl.logger.(LoggerContext); ok {
		lc.InfoContext(cl.ctx, message, fields...)
	} else {
		cl.logger.Info(message, fields...)
	}
}

func (cl *contextualLogger) Error(message string, fields ...Field) {
	if lc, ok := cl.logger.(LoggerContext); ok {
		lc.ErrorContext(cl.ctx, message, fields...)
	} else {
		cl.logger.Error(message, fields...)
	}
}

func (cl *contextualLogger) Warn(message string, fields ...Field) {
	if lc, ok := cl.logger.(LoggerContext); ok {
		lc.WarnContext(cl.ctx, message, fields...)
	} else {
		cl.logger.Warn(message, fields...)
	}
}

func (cl *contextualLogger) Debug(message string, fields ...Field) {
	if lc, ok := cl.logger.(LoggerContext); ok {
		lc.DebugContext(cl.ctx, message, fields...)
	} else {
		cl.logger.Debug(message, fields...)
	}
}

func (cl *contextualLogger) Success(message string, fields ...Field) {
	if lc, ok := cl.logger.(LoggerContext); ok {
		lc.SuccessContext(cl.ctx, message, fields...)
	} else {
		cl.logger.Success(message, fields...)
	}
}

func (cl *contextualLogger) WithTarget(target string) Logger {
	return &contextualLogger{
		ctx:    cl.ctx,
		logger: cl.logger.WithTarget(target),
	}
}
