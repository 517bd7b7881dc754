package types_test

import (
	"testing"

	"github.com/letsbuild/letsbuild/pkg/types"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		value string
		want  types.Mode
	}{
		{"clean", types.ModeClean},
		{"web", types.ModeWeb},
		{"mobile", types.ModeMobile},
		{" web ", types.ModeWeb},
		{"", types.ModeDesktop},
		{"desktop", types.ModeDesktop},
		{"electron", types.ModeDesktop},
		{"WEB", types.ModeDesktop},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			if got := types.ParseMode(tt.value); got != tt.want {
				t.Errorf("ParseMode(%q) = %s, want %s", tt.value, got, tt.want)
			}
		})
	}
}

func TestMode_DisplayName(t *testing.T) {
	if got := types.ModeDesktop.DisplayName(); got != "Desktop" {
		t.Errorf("expected Desktop, got %s", got)
	}
	if got := types.ModeWeb.DisplayName(); got != "Web" {
		t.Errorf("expected Web, got %s", got)
	}
}

func TestTaskStatus_IsFinal(t *testing.T) {
	if types.TaskStatusPending.IsFinal() {
		t.Error("pending should not be final")
	}
	for _, s := range []types.TaskStatus{types.TaskStatusSuccess, types.TaskStatusError, types.TaskStatusCancelled} {
		if !s.IsFinal() {
			t.Errorf("%s should be final", s)
		}
	}
}

func TestBundleConfig_OutputPath(t *testing.T) {
	cfg := types.BundleConfig{Outdir: "dist/web"}
	if cfg.OutputPath() != "dist/web" {
		t.Errorf("expected outdir, got %s", cfg.OutputPath())
	}

	cfg.Outfile = "dist/web/app.js"
	if cfg.OutputPath() != "dist/web/app.js" {
		t.Errorf("expected outfile to win, got %s", cfg.OutputPath())
	}
}

func TestAggregateReport_KeepsOrderAndSkipsFailures(t *testing.T) {
	results := []types.TaskResult{
		{Name: "main", Status: types.TaskStatusSuccess, Report: "main report"},
		{Name: "broken", Status: types.TaskStatusError, Report: "ignored"},
		{Name: "renderer", Status: types.TaskStatusSuccess, Report: "renderer report"},
	}

	got := types.AggregateReport(results)
	want := "main report\n\nrenderer report\n\n"
	if got != want {
		t.Errorf("AggregateReport() = %q, want %q", got, want)
	}
}
