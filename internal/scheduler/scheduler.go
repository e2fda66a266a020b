// Package scheduler implements core.Scheduler: the cooperative task queue
// that coordinates Context Memory iteration lifecycle with dispatch across
// the six specialized agents, per spec.md §2 (L6) and §5's goroutine/channel
// concurrency model. Grounded on the teacher's internal/orchestrator route
// and loop orchestrators (mutex-guarded handler maps, Dispatch/Stop shape)
// and on internal/health.monitor's context-cancellation ticker-loop idiom
// for background task lifecycle.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jplfaria/cogniscient-runtime/core"
	"github.com/jplfaria/cogniscient-runtime/internal/agent"
	"github.com/jplfaria/cogniscient-runtime/internal/obslog"
)

func init() {
	core.RegisterSchedulerFactory(newScheduler)
}

type scheduler struct {
	cfg core.SchedulerConfig
	mem core.ContextMemory
	gw  core.Gateway

	generation core.GenerationAgent
	reflection core.ReflectionAgent
	ranking    core.RankingAgent
	evolution  core.EvolutionAgent
	proximity  core.ProximityAgent
	metaReview core.MetaReviewAgent
	safety     core.SafetyLogger

	logs *obslog.Loggers

	queue chan string

	mu    sync.Mutex
	tasks map[string]*core.ScheduledTask

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newScheduler(cfg core.SchedulerConfig, mem core.ContextMemory, agents core.AgentEnvelopeFactories, gw core.Gateway) core.Scheduler {
	if cfg.MaxConcurrentTasks <= 0 {
		cfg.MaxConcurrentTasks = core.DefaultSchedulerConfig().MaxConcurrentTasks
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = core.DefaultSchedulerConfig().QueueCapacity
	}

	envCfg := core.DefaultAgentEnvelopeConfig()
	safety := agent.NewSafetyLogger()

	s := &scheduler{
		cfg:        cfg,
		mem:        mem,
		gw:         gw,
		generation: agents.Generation(gw, mem, envCfg, safety),
		reflection: agents.Reflection(gw, mem, envCfg, safety),
		ranking:    agents.Ranking(gw, mem, envCfg),
		evolution:  agents.Evolution(gw, mem, envCfg),
		proximity:  agents.Proximity(gw, mem, envCfg),
		metaReview: agents.MetaReview(gw, mem, envCfg),
		safety:     safety,
		logs:       obslog.NewLoggers(cfg.LogRootDir),
		queue:      make(chan string, cfg.QueueCapacity),
		tasks:      make(map[string]*core.ScheduledTask),
	}
	return s
}

func (s *scheduler) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for i := 0; i < s.cfg.MaxConcurrentTasks; i++ {
		s.wg.Add(1)
		go s.worker(ctx)
	}
	return nil
}

func (s *scheduler) worker(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case id, ok := <-s.queue:
			if !ok {
				return
			}
			s.run(ctx, id)
		}
	}
}

func (s *scheduler) Submit(agentType core.AgentType, payload map[string]any) (string, error) {
	task := &core.ScheduledTask{
		ID:        uuid.NewString(),
		AgentType: agentType,
		Payload:   payload,
		Status:    core.TaskPending,
	}

	s.mu.Lock()
	s.tasks[task.ID] = task
	s.mu.Unlock()

	select {
	case s.queue <- task.ID:
	default:
		s.mu.Lock()
		task.Status = core.TaskFailed
		task.Error = "scheduler queue is full"
		s.mu.Unlock()
		return task.ID, fmt.Errorf("scheduler: queue at capacity (%d)", s.cfg.QueueCapacity)
	}
	return task.ID, nil
}

func (s *scheduler) Task(id string) (core.ScheduledTask, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return core.ScheduledTask{}, false
	}
	return *t, true
}

func (s *scheduler) run(ctx context.Context, id string) {
	s.mu.Lock()
	task, ok := s.tasks[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	task.Status = core.TaskRunning
	s.mu.Unlock()

	s.logs.Operations.Info().Str("task_id", id).Str("agent_type", string(task.AgentType)).Msg("task started")
	started := time.Now()
	result, err := s.dispatch(ctx, task.AgentType, task.Payload)
	elapsed := time.Since(started)

	s.mu.Lock()
	if err != nil {
		task.Status = core.TaskFailed
		task.Error = err.Error()
		s.logs.Errors.Error().Str("task_id", id).Str("agent_type", string(task.AgentType)).Err(err).Msg("task failed")
	} else {
		task.Status = core.TaskCompleted
		task.Result = &result
	}
	s.mu.Unlock()

	s.logs.Performance.Info().Str("task_id", id).Dur("elapsed", elapsed).Bool("success", err == nil).Msg("task finished")
}

// dispatch routes a task's payload to a method of its agent type: the
// "method" key picks the Generation strategy, the "operation" key picks
// among the Reflection, Proximity and Meta-review methods, and Ranking and
// Evolution have one method each, per spec.md §2 (L6)'s agent-envelope
// contract.
func (s *scheduler) dispatch(ctx context.Context, agentType core.AgentType, payload map[string]any) (core.AgentResult, error) {
	switch agentType {
	case core.AgentGeneration:
		return s.dispatchGeneration(ctx, payload)
	case core.AgentReflection:
		return s.dispatchReflection(ctx, payload)
	case core.AgentRanking:
		hypA, _ := payload["hypothesis_a"].(string)
		hypB, _ := payload["hypothesis_b"].(string)
		return s.ranking.CompareHypotheses(ctx, hypA, hypB)
	case core.AgentEvolution:
		id, _ := payload["hypothesis_id"].(string)
		return s.evolution.EnhanceHypothesis(ctx, id)
	case core.AgentProximity:
		return s.dispatchProximity(ctx, payload)
	case core.AgentMetaReview:
		return s.dispatchMetaReview(ctx, payload)
	default:
		return core.AgentResult{}, fmt.Errorf("scheduler: unknown agent type %q", agentType)
	}
}

func (s *scheduler) dispatchGeneration(ctx context.Context, payload map[string]any) (core.AgentResult, error) {
	method, _ := payload["method"].(string)
	goal, _ := payload["research_goal"].(string)
	switch core.GenerationMethod(method) {
	case core.MethodDebate:
		return s.generation.GenerateDebate(ctx, goal)
	case core.MethodAssumptions:
		return s.generation.GenerateFromAssumptions(ctx, goal)
	case core.MethodExpansion:
		parentID, _ := payload["parent_hypothesis_id"].(string)
		return s.generation.GenerateExpansion(ctx, parentID)
	default:
		return s.generation.GenerateLiteratureBased(ctx, goal)
	}
}

func (s *scheduler) dispatchReflection(ctx context.Context, payload map[string]any) (core.AgentResult, error) {
	id, _ := payload["hypothesis_id"].(string)
	if op, _ := payload["operation"].(string); op == "safety_check" {
		return s.reflection.PerformSafetyCheck(ctx, id)
	}
	return s.reflection.EvaluateHypothesis(ctx, id)
}

func (s *scheduler) dispatchProximity(ctx context.Context, payload map[string]any) (core.AgentResult, error) {
	if op, _ := payload["operation"].(string); op == "patterns" {
		ids, _ := payload["hypothesis_ids"].([]string)
		return s.proximity.ExtractResearchPatterns(ctx, ids)
	}
	hypA, _ := payload["hypothesis_a"].(string)
	hypB, _ := payload["hypothesis_b"].(string)
	return s.proximity.CalculateSimilarity(ctx, hypA, hypB)
}

func (s *scheduler) dispatchMetaReview(ctx context.Context, payload map[string]any) (core.AgentResult, error) {
	if op, _ := payload["operation"].(string); op == "parse_goal" {
		goalText, _ := payload["goal_text"].(string)
		return s.metaReview.ParseResearchGoal(ctx, goalText)
	}
	iteration, _ := payload["iteration"].(int)
	return s.metaReview.Synthesize(ctx, iteration)
}

func (s *scheduler) StartIteration() (int, error) {
	return s.mem.StartNewIteration()
}

func (s *scheduler) CompleteIteration(summary map[string]any) error {
	number, active := s.mem.ActiveIteration()
	if !active {
		return fmt.Errorf("scheduler: no active iteration to complete")
	}
	_, err := s.mem.CompleteIteration(number, summary)
	return err
}

func (s *scheduler) Shutdown() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.gw.Shutdown()
}
