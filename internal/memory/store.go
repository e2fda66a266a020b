// Package memory implements core.ContextMemory: a file-backed, causally
// consistent store for iterations, state updates, agent outputs,
// checkpoints, aggregates, and a key-value store, per spec.md §4.7. The
// teacher has no direct filesystem-store equivalent, so this package is
// grounded on the teacher's general conventions (mutex-guarded structs,
// encoding/json, init()-time factory registration) plus
// github.com/google/uuid (already a teacher dependency) for checkpoint/writer
// ids and github.com/gofrs/flock (taken from elsewhere in the retrieval pack,
// not a teacher dependency) for the checkpoint lock.
package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/jplfaria/cogniscient-runtime/core"
)

func init() {
	core.RegisterContextMemoryFactory(New)
}

// stateIndexEntry is the in-memory temporal index entry backing the
// total-order/read-your-writes/monotonic-read/snapshot-as-of guarantees of
// spec.md §4.7.6. Rebuilt from disk on startup.
type stateIndexEntry struct {
	timestamp time.Time
	writerID  string
	sessionID string
	path      string
}

type store struct {
	mu   sync.Mutex
	cfg  core.ContextMemoryConfig
	root string

	activeIteration int // 0 means none active
	index           []stateIndexEntry

	kvCache map[string]any
	kvDirty map[string]bool

	cleanupBatchSize int
	perfHistory      []perfRecord
}

type perfRecord struct {
	Timestamp    time.Time `json:"timestamp"`
	Duration     time.Duration `json:"duration"`
	ItemsCleaned int       `json:"items_cleaned"`
	BytesFreed   int64     `json:"bytes_freed"`
}

const (
	dirIterations     = "iterations"
	dirCheckpoints    = "checkpoints"
	dirAggregates     = "aggregates"
	dirKV             = "kv_store"
	dirConfiguration  = "configuration"
	dirArchive        = "archive"
	metadataFile      = "metadata.json"
	checkpointLockFile = ".checkpoint.lock"
)

// New constructs a file-backed ContextMemory rooted at cfg.RootDir,
// creating the on-disk layout of spec.md §4.7 if it does not exist, and
// rebuilding the in-memory temporal index from any existing iterations.
func New(cfg core.ContextMemoryConfig) (core.ContextMemory, error) {
	if cfg.RootDir == "" {
		cfg.RootDir = core.DefaultContextMemoryConfig().RootDir
	}
	if cfg.CleanupBatchSize <= 0 {
		cfg.CleanupBatchSize = core.DefaultContextMemoryConfig().CleanupBatchSize
	}
	s := &store{
		cfg:              cfg,
		root:             cfg.RootDir,
		kvCache:          map[string]any{},
		kvDirty:          map[string]bool{},
		cleanupBatchSize: cfg.CleanupBatchSize,
	}
	for _, d := range []string{dirIterations, dirCheckpoints, dirAggregates, dirKV, dirConfiguration, dirArchive} {
		if err := os.MkdirAll(filepath.Join(s.root, d), 0o755); err != nil {
			return nil, fmt.Errorf("memory: create %s: %w", d, err)
		}
	}
	if err := s.rebuildIndex(); err != nil {
		return nil, err
	}
	if err := s.loadKV(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *store) iterationDir(n int) string {
	return filepath.Join(s.root, dirIterations, fmt.Sprintf("iteration_%03d", n))
}

func (s *store) agentOutputsDir(n int) string {
	return filepath.Join(s.iterationDir(n), "agent_outputs")
}

func (s *store) tournamentDir(n int) string {
	return filepath.Join(s.iterationDir(n), "tournament_data")
}

// writeJSONAtomic writes v as JSON to path via a temp-file-then-rename, so
// a reader never observes a partially written file.
func writeJSONAtomic(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write temp: %w", err)
	}
	return os.Rename(tmp, path)
}

func readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// diskUsageBytes walks the root tree and sums file sizes.
func (s *store) diskUsageBytes() (int64, error) {
	var total int64
	err := filepath.Walk(s.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total, err
}

// rebuildIndex scans iterations/*/system_state_*.json files to restore the
// temporal index after a restart; it also recovers activeIteration.
func (s *store) rebuildIndex() error {
	entries, err := os.ReadDir(filepath.Join(s.root, dirIterations))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		var n int
		if _, err := fmt.Sscanf(e.Name(), "iteration_%d", &n); err != nil && e.Name() != "current" {
			continue
		}
		meta, err := s.readIterationMetadata(n)
		if err == nil && meta.Status == core.IterationActive {
			s.activeIteration = n
		}
		dir := filepath.Join(s.root, dirIterations, e.Name())
		files, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, f := range files {
			if f.IsDir() || filepath.Ext(f.Name()) != ".json" || f.Name() == metadataFile || f.Name() == "meta_review.json" {
				continue
			}
			path := filepath.Join(dir, f.Name())
			var u core.StateUpdate
			if err := readJSON(path, &u); err != nil {
				continue
			}
			sessionID := ""
			if v, ok := u.OrchestrationState["session_id"]; ok {
				if str, ok := v.(string); ok {
					sessionID = str
				}
			}
			s.index = append(s.index, stateIndexEntry{timestamp: u.Timestamp, writerID: u.WriterID, sessionID: sessionID, path: path})
		}
	}
	sort.Slice(s.index, func(i, j int) bool { return s.index[i].timestamp.Before(s.index[j].timestamp) })
	return nil
}

func (s *store) readIterationMetadata(n int) (core.Iteration, error) {
	var meta core.Iteration
	err := readJSON(filepath.Join(s.iterationDir(n), metadataFile), &meta)
	return meta, err
}

func (s *store) writeIterationMetadata(n int, meta core.Iteration) error {
	return writeJSONAtomic(filepath.Join(s.iterationDir(n), metadataFile), meta)
}
