package core

import "context"

// TaskStatus enumerates a scheduled task's lifecycle.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// ScheduledTask is one unit of dispatched agent work, per spec.md §2 (L6).
type ScheduledTask struct {
	ID        string     `json:"id"`
	AgentType AgentType  `json:"agent_type"`
	Payload   map[string]any `json:"payload"`
	Status    TaskStatus `json:"status"`
	Result    *AgentResult `json:"result,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// SchedulerConfig bounds the cooperative dispatch loop, per spec.md §5.
type SchedulerConfig struct {
	MaxConcurrentTasks int    `toml:"max_concurrent_tasks"`
	QueueCapacity      int    `toml:"queue_capacity"`
	LogRootDir         string `toml:"log_root_dir"`
}

// DefaultSchedulerConfig returns sensible defaults.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{MaxConcurrentTasks: 4, QueueCapacity: 256, LogRootDir: "."}
}

// Scheduler coordinates iteration lifecycle and agent dispatch across the
// six specialized agents, per spec.md §2 (L6) and §5's cooperative
// goroutine/channel model.
type Scheduler interface {
	// Start launches the worker goroutines that drain the task queue and
	// returns without waiting for them. It does not start the health
	// monitor or the Gateway's queue processor. Stop via ctx cancellation.
	Start(ctx context.Context) error
	// Submit enqueues a task for dispatch and returns its assigned ID.
	Submit(agentType AgentType, payload map[string]any) (string, error)
	// Task reports a previously submitted task's current state.
	Task(id string) (ScheduledTask, bool)
	// StartIteration begins a new Context Memory iteration; it is an error
	// to call this while one is already active.
	StartIteration() (int, error)
	// CompleteIteration closes the active iteration with a summary.
	CompleteIteration(summary map[string]any) error
	// Shutdown drains in-flight tasks and stops background loops.
	Shutdown()
}

// SchedulerFactory constructs a Scheduler from its collaborators.
// Registered by internal/scheduler at init() time, mirroring the teacher's
// RegisterOrchestratorFactory idiom.
type SchedulerFactory func(cfg SchedulerConfig, mem ContextMemory, agents AgentEnvelopeFactories, gw Gateway) Scheduler

var schedulerFactory SchedulerFactory

func RegisterSchedulerFactory(f SchedulerFactory) {
	schedulerFactory = f
}

func NewScheduler(cfg SchedulerConfig, mem ContextMemory, agents AgentEnvelopeFactories, gw Gateway) Scheduler {
	if schedulerFactory == nil {
		panic("core: no scheduler factory registered (import internal/scheduler)")
	}
	return schedulerFactory(cfg, mem, agents, gw)
}
