package memory

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/jplfaria/cogniscient-runtime/core"
)

// maxStorageFraction is the fraction of max_storage_gb that triggers
// rejection of new writes, per spec.md §4.7.2 step 1.
const maxStorageFraction = 0.8

func (s *store) checkStorageBudgetLocked() error {
	if s.cfg.MaxStorageGB <= 0 {
		return nil
	}
	used, err := s.diskUsageBytes()
	if err != nil {
		return fmt.Errorf("memory: disk usage: %w", err)
	}
	limit := int64(s.cfg.MaxStorageGB * maxStorageFraction * (1 << 30))
	if used >= limit {
		return fmt.Errorf("memory: storage budget exceeded (%d >= %d bytes)", used, limit)
	}
	return nil
}

// uniquePath builds "<dir>/<prefix>_<UTCmicros>.json", appending "_k" with
// increasing k until the name is unused, per spec.md §4.7.2 step 3.
func uniquePath(dir, prefix string) string {
	ts := now().Format("20060102T150405.000000")
	base := fmt.Sprintf("%s_%s", prefix, ts)
	path := filepath.Join(dir, base+".json")
	for k := 1; ; k++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path
		}
		path = filepath.Join(dir, fmt.Sprintf("%s_%d.json", base, k))
	}
}

// StoreStateUpdate implements spec.md §4.7.2.
func (s *store) StoreStateUpdate(u core.StateUpdate) core.StorageResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkStorageBudgetLocked(); err != nil {
		return core.StorageResult{Success: false, Error: err.Error()}
	}

	dir := s.currentIterationDirLocked()
	path := uniquePath(dir, "system_state")

	u.Version = 1
	if u.WriterID == "" {
		u.WriterID = uuid.NewString()
	}
	if u.Timestamp.IsZero() {
		u.Timestamp = now()
	}

	if err := writeJSONAtomic(path, u); err != nil {
		return core.StorageResult{Success: false, Error: err.Error()}
	}

	sessionID := ""
	if v, ok := u.OrchestrationState["session_id"]; ok {
		if str, ok := v.(string); ok {
			sessionID = str
		}
	}
	s.index = append(s.index, stateIndexEntry{timestamp: u.Timestamp, writerID: u.WriterID, sessionID: sessionID, path: path})

	return core.StorageResult{Success: true, StoragePath: path}
}

// StoreAgentOutput implements spec.md §4.7.2.
func (s *store) StoreAgentOutput(o core.AgentOutput) core.StorageResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkStorageBudgetLocked(); err != nil {
		return core.StorageResult{Success: false, Error: err.Error()}
	}

	var dir string
	if s.activeIteration != 0 {
		dir = s.agentOutputsDir(s.activeIteration)
	} else {
		dir = filepath.Join(s.root, dirIterations, "current", "agent_outputs")
	}
	prefix := fmt.Sprintf("%s_%s", o.AgentType, o.TaskID)
	path := uniquePath(dir, prefix)

	o.Version = 1
	if o.WriterID == "" {
		o.WriterID = uuid.NewString()
	}
	if o.Timestamp.IsZero() {
		o.Timestamp = now()
	}

	if err := writeJSONAtomic(path, o); err != nil {
		return core.StorageResult{Success: false, Error: err.Error()}
	}
	return core.StorageResult{Success: true, StoragePath: path}
}

// currentIterationDirLocked resolves the destination directory for a state
// update: the active iteration, or a "current" fallback when none is
// active, per spec.md §4.7.2 step 2.
func (s *store) currentIterationDirLocked() string {
	if s.activeIteration != 0 {
		return s.iterationDir(s.activeIteration)
	}
	return filepath.Join(s.root, dirIterations, "current")
}
