// Package state persists the outcome of the last build of each mode
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/letsbuild/letsbuild/pkg/logger"
	"github.com/letsbuild/letsbuild/pkg/types"
	"github.com/letsbuild/letsbuild/pkg/utils"
)

// Dir is the state directory relative to the project root
const Dir = ".letsbuild/state"

// BuildStatus is the overall outcome of one dispatch
type BuildStatus string

const (
	BuildStatusSucceeded BuildStatus = "succeeded"
	BuildStatusFailed    BuildStatus = "failed"
	// BuildStatusReported is a web or mobile build whose bundler reported
	// errors that did not fail the process
	BuildStatusReported BuildStatus = "reported"
)

// BuildRecord is the persisted record of the last build of a mode
type BuildRecord struct {
	Mode         types.Mode         `json:"mode"`
	RunID        string             `json:"runId"`
	Status       BuildStatus        `json:"status"`
	StartedAt    time.Time          `json:"startedAt"`
	Duration     time.Duration      `json:"duration"`
	Tasks        []types.TaskResult `json:"tasks,omitempty"`
	LastError    string             `json:"lastError,omitempty"`
	ProcessID    int                `json:"processId"`
	BuildCount   int                `json:"buildCount"`
	FailureCount int                `json:"failureCount"`
}

// Store records builds; the dispatcher only writes through it
type Store interface {
	Record(record BuildRecord) error
}

// StateManager keeps one JSON file per mode under the state directory
type StateManager struct {
	stateDir string
	logger   logger.Logger
	mu       sync.Mutex
}

// NewStateManager creates a new state manager rooted at projectRoot
func NewStateManager(projectRoot string, log logger.Logger) *StateManager {
	if log == nil {
		log = logger.Discard()
	}
	return &StateManager{
		stateDir: filepath.Join(projectRoot, filepath.FromSlash(Dir)),
		logger:   log,
	}
}

// Record stores a build, carrying build and failure counts forward
func (sm *StateManager) Record(record BuildRecord) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	record.ProcessID = os.Getpid()
	if previous, err := sm.loadStateFile(record.Mode); err == nil {
		record.BuildCount = previous.BuildCount
		record.FailureCount = previous.FailureCount
	}
	record.BuildCount++
	if record.Status == BuildStatusFailed {
		record.FailureCount++
	}

	if err := sm.saveStateFile(&record); err != nil {
		return fmt.Errorf("failed to save state for %s: %w", record.Mode, err)
	}

	sm.logger.Debug("Recorded build state",
		logger.WithField("mode", record.Mode),
		logger.WithField("status", record.Status))
	return nil
}

// ReadState reads the record of a mode. The error wraps os.ErrNotExist when
// the mode has never been built.
func (sm *StateManager) ReadState(mode types.Mode) (*BuildRecord, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.loadStateFile(mode)
}

// ListStates returns the records of every built mode, ordered by mode name
func (sm *StateManager) ListStates() ([]*BuildRecord, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	entries, err := os.ReadDir(sm.stateDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state directory: %w", err)
	}

	var records []*BuildRecord
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		mode := types.Mode(strings.TrimSuffix(entry.Name(), ".json"))
		record, err := sm.loadStateFile(mode)
		if err != nil {
			sm.logger.Warn("Skipping unreadable state file",
				logger.WithField("file", entry.Name()),
				logger.WithField("error", err))
			continue
		}
		records = append(records, record)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Mode < records[j].Mode })
	return records, nil
}

// RemoveState deletes the record of a mode
func (sm *StateManager) RemoveState(mode types.Mode) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if err := os.Remove(sm.stateFilePath(mode)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (sm *StateManager) stateFilePath(mode types.Mode) string {
	return filepath.Join(sm.stateDir, string(mode)+".json")
}

func (sm *StateManager) loadStateFile(mode types.Mode) (*BuildRecord, error) {
	data, err := os.ReadFile(sm.stateFilePath(mode))
	if err != nil {
		return nil, err
	}

	var record BuildRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}
	return &record, nil
}

func (sm *StateManager) saveStateFile(record *BuildRecord) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}
	return utils.WriteFileAtomic(sm.stateFilePath(record.Mode), data)
}
