package core

import "time"

// IterationStatus enumerates the two states of spec.md §3's Iteration.
type IterationStatus string

const (
	IterationActive    IterationStatus = "active"
	IterationCompleted IterationStatus = "completed"
)

// Iteration is the scope within which updates/outputs are organized,
// per spec.md §3.
type Iteration struct {
	Number       int             `json:"number"`
	StartedAt    time.Time       `json:"started_at"`
	Status       IterationStatus `json:"status"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
	Summary      map[string]any  `json:"summary,omitempty"`
	DurationSecs *float64        `json:"duration_seconds,omitempty"`
	Checkpoints  []string        `json:"checkpoints"`
}

// UpdateType enumerates spec.md §3's StateUpdate.update_type values.
type UpdateType string

const (
	UpdatePeriodic   UpdateType = "periodic"
	UpdateCheckpoint UpdateType = "checkpoint"
	UpdateCritical   UpdateType = "critical"
)

// StateUpdate is a timestamped, immutable record of orchestration state,
// per spec.md §3.
type StateUpdate struct {
	Timestamp          time.Time      `json:"timestamp"`
	UpdateType         UpdateType     `json:"update_type"`
	SystemStatistics   map[string]any `json:"system_statistics"`
	OrchestrationState map[string]any `json:"orchestration_state"`
	CheckpointData     map[string]any `json:"checkpoint_data,omitempty"`
	Version            int            `json:"version"`
	WriterID           string         `json:"writer_id"`
}

// AgentOutput is an immutable record of one agent invocation's results,
// per spec.md §3.
type AgentOutput struct {
	AgentType AgentType      `json:"agent_type"`
	TaskID    string         `json:"task_id"`
	Timestamp time.Time      `json:"timestamp"`
	Results   map[string]any `json:"results"`
	StateData map[string]any `json:"state_data,omitempty"`
	Version   int            `json:"version"`
	WriterID  string         `json:"writer_id"`
}

// Checkpoint is a globally-serialized, resumable snapshot, per spec.md §3.
type Checkpoint struct {
	CheckpointID       string         `json:"checkpoint_id"`
	Timestamp          time.Time      `json:"timestamp"`
	SystemStatistics   map[string]any `json:"system_statistics"`
	OrchestrationState map[string]any `json:"orchestration_state"`
	CheckpointData     map[string]any `json:"checkpoint_data"`
	CreatedAt          time.Time      `json:"created_at"`
	Version            int            `json:"version"`
	WriterID           string         `json:"writer_id"`
}

// RecoveryState is synthesized from a Checkpoint by recover_from_checkpoint,
// per spec.md §4.7.3.
type RecoveryState struct {
	CheckpointTimestamp time.Time      `json:"checkpoint_timestamp"`
	SystemConfiguration map[string]any `json:"system_configuration"`
	ActiveTasks         []any          `json:"active_tasks"`
	CompletedWork       map[string]any `json:"completed_work"`
	ResumePoints        []any          `json:"resume_points"`
	DataIntegrityValid  bool           `json:"data_integrity_valid"`
}

// AggregateEntry is one timestamped entry in an Aggregate, per spec.md §3.
type AggregateEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data"`
}

// Aggregate is an append-only, timestamp-sorted log of a single logical
// metric, per spec.md §3/§4.4.
type Aggregate struct {
	Type    string           `json:"type"`
	Entries []AggregateEntry `json:"entries"`
}

// MergeStrategy enumerates spec.md §4.4's update_aggregate strategies.
type MergeStrategy string

const (
	StrategyReplace    MergeStrategy = "replace"
	StrategyMerge      MergeStrategy = "merge"
	StrategyAccumulate MergeStrategy = "accumulate"
)

// AggregateStatistics is the result of compute_aggregate_statistics,
// per spec.md §4.4.
type AggregateStatistics struct {
	Count   int     `json:"count"`
	Average float64 `json:"average"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

// StorageResult is the structured outcome of a persisted operation,
// per spec.md §7: callers decide whether to retry.
type StorageResult struct {
	Success     bool   `json:"success"`
	StoragePath string `json:"storage_path,omitempty"`
	Error       string `json:"error,omitempty"`
}

// WriteReservation is the advisory write-window hint of spec.md §4.7.6.
type WriteReservation struct {
	AgentID   string    `json:"agent_id"`
	StartedAt time.Time `json:"started_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IterationStatistics summarizes one iteration's contents,
// per spec.md §4.7.1.
type IterationStatistics struct {
	Number           int            `json:"number"`
	StateUpdateCount int            `json:"state_update_count"`
	OutputsByAgent   map[string]int `json:"outputs_by_agent"`
	HasMetaReview    bool           `json:"has_meta_review"`
	TotalBytes       int64          `json:"total_bytes"`
}

// GCResult is the outcome of collect_garbage, per spec.md §4.7.7.
type GCResult struct {
	OrphanedFiles       int      `json:"orphaned_files"`
	OrphanedDirectories int      `json:"orphaned_directories"`
	BytesFreed          int64    `json:"bytes_freed"`
	Errors              []string `json:"errors"`
}

// ContextMemoryConfig configures the on-disk layout and retention policy of
// the Context Memory, per spec.md §4.7 and §6.
type ContextMemoryConfig struct {
	RootDir          string  `toml:"root_dir"`
	MaxStorageGB     float64 `toml:"max_storage_gb"`
	RetentionDays    int     `toml:"retention_days"`
	CleanupBatchSize int     `toml:"cleanup_batch_size"`
}

// DefaultContextMemoryConfig returns sensible defaults.
func DefaultContextMemoryConfig() ContextMemoryConfig {
	return ContextMemoryConfig{
		RootDir:          "./data",
		MaxStorageGB:     10,
		RetentionDays:    30,
		CleanupBatchSize: 5,
	}
}

// ContextMemory is the durable, causally-consistent store described in
// spec.md §4.7: iterations, state updates, agent outputs, checkpoints,
// aggregates, a key-value store, temporal guarantees, and retention/GC.
type ContextMemory interface {
	// Iteration lifecycle (§4.7.1)
	StartNewIteration() (int, error)
	CompleteIteration(number int, summary map[string]any) (bool, error)
	ActiveIteration() (int, bool)
	ListIterations() ([]Iteration, error)
	IterationInfo(number int) (Iteration, error)
	IterationStats(number int) (IterationStatistics, error)

	// Writes and versioning (§4.7.2)
	StoreStateUpdate(u StateUpdate) StorageResult
	StoreAgentOutput(o AgentOutput) StorageResult

	// Checkpoints (§4.7.3)
	CreateCheckpoint(u StateUpdate) (string, error)
	RecoverFromCheckpoint(id string) (RecoveryState, error)
	ValidateCheckpoint(id string) error

	// Aggregates (§4.7.4)
	StoreAggregate(typ string, data map[string]any, ts time.Time) error
	UpdateAggregate(typ string, data map[string]any, strategy MergeStrategy) error
	LatestAggregate(typ string) (map[string]any, bool, error)
	AggregateTimeRange(typ string, start, end time.Time) ([]map[string]any, error)
	CleanupAggregateEntries(typ string) (int, error)
	ComputeAggregateStatistics(agent AgentType, metric string) (AggregateStatistics, error)

	// Key-value store (§4.7.5)
	Set(key string, value any) error
	Get(key string) (any, bool, error)
	Delete(key string) error
	Exists(key string) bool
	ListKeys(prefix string) ([]string, error)
	BatchSet(entries map[string]any) error
	BatchGet(keys []string) (map[string]any, error)
	ClearKV() error
	KVStorageSize() (int64, error)

	// Temporal guarantees (§4.7.6)
	RetrieveStateForAgent(agentID string) (StateUpdate, bool, error)
	RetrieveStateAsOf(t time.Time) (StateUpdate, bool, error)
	SessionHistory(sessionID string) ([]StateUpdate, error)
	ReserveWriteWindow(agentID string, duration time.Duration) (WriteReservation, error)

	// Retention, archival, garbage collection (§4.7.7)
	CleanupOldIterations() (int, error)
	CleanupOldCheckpoints() (int, error)
	ArchiveOldData(iterationNumber int) (string, error)
	CheckGarbageCollectionNeeded() (bool, error)
	RunGarbageCollection() (int64, error)
	RotateArchives() error
	CollectGarbage() (GCResult, error)
	SetCleanupBatchSize(n int)
	CleanupBatch() (int, error)
}

// ContextMemoryFactory constructs a ContextMemory. Registered by
// internal/memory at init() time.
type ContextMemoryFactory func(cfg ContextMemoryConfig) (ContextMemory, error)

var contextMemoryFactory ContextMemoryFactory

func RegisterContextMemoryFactory(f ContextMemoryFactory) {
	contextMemoryFactory = f
}

func NewContextMemory(cfg ContextMemoryConfig) (ContextMemory, error) {
	if contextMemoryFactory == nil {
		panic("core: no context memory factory registered (import internal/memory)")
	}
	return contextMemoryFactory(cfg)
}
