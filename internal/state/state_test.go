package state_test

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/letsbuild/letsbuild/internal/state"
	"github.com/letsbuild/letsbuild/pkg/types"
)

func TestStateManager_Record(t *testing.T) {
	tmpDir := t.TempDir()
	sm := state.NewStateManager(tmpDir, nil)

	err := sm.Record(state.BuildRecord{
		Mode:      types.ModeDesktop,
		RunID:     "run_1",
		Status:    state.BuildStatusSucceeded,
		StartedAt: time.Now(),
		Duration:  2 * time.Second,
		Tasks: []types.TaskResult{
			{Name: "main", Status: types.TaskStatusSuccess, Report: "not persisted"},
			{Name: "renderer", Status: types.TaskStatusSuccess},
		},
	})
	if err != nil {
		t.Fatalf("failed to record state: %v", err)
	}

	stateFile := filepath.Join(tmpDir, ".letsbuild", "state", "desktop.json")
	if _, err := os.Stat(stateFile); err != nil {
		t.Fatalf("state file was not created: %v", err)
	}

	s, err := sm.ReadState(types.ModeDesktop)
	if err != nil {
		t.Fatalf("failed to read state: %v", err)
	}
	if s.RunID != "run_1" || s.Status != state.BuildStatusSucceeded {
		t.Errorf("unexpected record %+v", s)
	}
	if s.ProcessID != os.Getpid() {
		t.Errorf("expected current PID, got %d", s.ProcessID)
	}
	if len(s.Tasks) != 2 || s.Tasks[0].Report != "" {
		t.Errorf("tasks should be stored without reports: %+v", s.Tasks)
	}
	if s.BuildCount != 1 || s.FailureCount != 0 {
		t.Errorf("counts = %d/%d", s.BuildCount, s.FailureCount)
	}
}

func TestStateManager_CountsCarryForward(t *testing.T) {
	sm := state.NewStateManager(t.TempDir(), nil)

	for _, status := range []state.BuildStatus{state.BuildStatusFailed, state.BuildStatusSucceeded, state.BuildStatusFailed} {
		if err := sm.Record(state.BuildRecord{Mode: types.ModeWeb, Status: status}); err != nil {
			t.Fatal(err)
		}
	}

	s, err := sm.ReadState(types.ModeWeb)
	if err != nil {
		t.Fatal(err)
	}
	if s.BuildCount != 3 || s.FailureCount != 2 {
		t.Errorf("expected 3 builds and 2 failures, got %d/%d", s.BuildCount, s.FailureCount)
	}
}

func TestStateManager_ReadMissing(t *testing.T) {
	sm := state.NewStateManager(t.TempDir(), nil)

	_, err := sm.ReadState(types.ModeMobile)
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}

	records, err := sm.ListStates()
	if err != nil || len(records) != 0 {
		t.Errorf("expected no records, got %v, %v", records, err)
	}
}

func TestStateManager_ListAndRemove(t *testing.T) {
	tmpDir := t.TempDir()
	sm := state.NewStateManager(tmpDir, nil)

	for _, mode := range []types.Mode{types.ModeWeb, types.ModeDesktop, types.ModeClean} {
		if err := sm.Record(state.BuildRecord{Mode: mode, Status: state.BuildStatusSucceeded}); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(tmpDir, ".letsbuild", "state", "broken.json"), []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}

	records, err := sm.ListStates()
	if err != nil {
		t.Fatalf("ListStates() error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if records[0].Mode != types.ModeClean || records[2].Mode != types.ModeWeb {
		t.Errorf("records should be ordered by mode: %s..%s", records[0].Mode, records[2].Mode)
	}

	if err := sm.RemoveState(types.ModeWeb); err != nil {
		t.Fatal(err)
	}
	if err := sm.RemoveState(types.ModeWeb); err != nil {
		t.Errorf("removing twice should be a no-op: %v", err)
	}
	if _, err := sm.ReadState(types.ModeWeb); err == nil {
		t.Error("expected web state to be gone")
	}
}

func TestStateManager_ConcurrentRecords(t *testing.T) {
	sm := state.NewStateManager(t.TempDir(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sm.Record(state.BuildRecord{Mode: types.ModeDesktop, Status: state.BuildStatusSucceeded}); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	s, err := sm.ReadState(types.ModeDesktop)
	if err != nil {
		t.Fatal(err)
	}
	if s.BuildCount != 10 {
		t.Errorf("expected 10 builds, got %d", s.BuildCount)
	}
}
