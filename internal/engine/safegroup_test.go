package engine

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/letsbuild/letsbuild/pkg/logger"
)

func TestSafeGroupPanicRecovery(t *testing.T) {
	tests := []struct {
		name          string
		operations    []func() error
		expectPanic   bool
		errorContains string
	}{
		{
			name: "successful operations",
			operations: []func() error{
				func() error { return nil },
				func() error { return nil },
			},
		},
		{
			name: "one operation returns error",
			operations: []func() error{
				func() error { return nil },
				func() error { return errors.New("operation failed") },
			},
			errorContains: "operation failed",
		},
		{
			name: "one operation panics",
			operations: []func() error{
				func() error { return nil },
				func() error { panic("test panic") },
			},
			expectPanic:   true,
			errorContains: "test panic",
		},
		{
			name: "both operations panic",
			operations: []func() error{
				func() error { panic("panic 1") },
				func() error { panic("panic 2") },
			},
			expectPanic:   true,
			errorContains: "panic",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, _ := NewSafeGroup(context.Background(), logger.CreateLoggerWithOutput("", "debug", io.Discard))
			g.SetLimit(2)

			for _, op := range tt.operations {
				op := op
				g.Go(op)
			}
			err := g.Wait()

			if tt.errorContains == "" {
				if err != nil {
					t.Errorf("Unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Expected error but got none")
			}
			if !strings.Contains(err.Error(), tt.errorContains) {
				t.Errorf("Expected error containing %q, got: %v", tt.errorContains, err)
			}
			if errors.Is(err, ErrPanic) != tt.expectPanic {
				t.Errorf("errors.Is(err, ErrPanic) = %v, want %v", !tt.expectPanic, tt.expectPanic)
			}
		})
	}
}

func TestSafeGroupCancelsSiblings(t *testing.T) {
	g, ctx := NewSafeGroup(context.Background(), nil)

	var cancelled atomic.Bool
	g.Go(func() error {
		<-ctx.Done()
		cancelled.Store(true)
		return nil
	})
	g.Go(func() error { panic("boom") })

	if err := g.Wait(); !errors.Is(err, ErrPanic) {
		t.Fatalf("expected ErrPanic, got %v", err)
	}
	if !cancelled.Load() {
		t.Error("sibling should observe cancellation")
	}
}
