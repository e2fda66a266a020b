package memory

import (
	"testing"

	"github.com/jplfaria/cogniscient-runtime/core"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *store {
	t.Helper()
	cfg := core.ContextMemoryConfig{RootDir: t.TempDir(), MaxStorageGB: 1, RetentionDays: 30, CleanupBatchSize: 5}
	cm, err := New(cfg)
	require.NoError(t, err)
	return cm.(*store)
}

func TestStartNewIterationRejectsWhileActive(t *testing.T) {
	s := newTestStore(t)

	n, err := s.StartNewIteration()
	require.NoError(t, err)
	require.Equal(t, 1, n)

	_, err = s.StartNewIteration()
	require.Error(t, err)
}

func TestCompleteIterationRequiresActive(t *testing.T) {
	s := newTestStore(t)
	n, err := s.StartNewIteration()
	require.NoError(t, err)

	ok, err := s.CompleteIteration(n, map[string]any{"hypotheses": 3})
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.CompleteIteration(n, nil)
	require.NoError(t, err)
	require.False(t, ok)

	_, active := s.ActiveIteration()
	require.False(t, active)
}

func TestStoreStateUpdateAndAgentOutputUnderIteration(t *testing.T) {
	s := newTestStore(t)
	n, err := s.StartNewIteration()
	require.NoError(t, err)

	res := s.StoreStateUpdate(core.StateUpdate{
		UpdateType:         core.UpdatePeriodic,
		OrchestrationState: map[string]any{"session_id": "sess-1"},
		SystemStatistics:   map[string]any{"active_agents": 2},
	})
	require.True(t, res.Success)
	require.NotEmpty(t, res.StoragePath)

	outRes := s.StoreAgentOutput(core.AgentOutput{
		AgentType: core.AgentGeneration,
		TaskID:    "task-1",
		Results:   map[string]any{"novelty_score": 0.8},
	})
	require.True(t, outRes.Success)

	stats, err := s.IterationStats(n)
	require.NoError(t, err)
	require.Equal(t, 1, stats.StateUpdateCount)
	require.Equal(t, 1, stats.OutputsByAgent[string(core.AgentGeneration)])
}

func TestUniqueFilenameAvoidsCollision(t *testing.T) {
	dir := t.TempDir()
	p1 := uniquePath(dir, "system_state")
	require.NoError(t, writeJSONAtomic(p1, map[string]any{"x": 1}))
	p2 := uniquePath(dir, "system_state")
	require.NotEqual(t, p1, p2)
}

func TestIndexRebuildsOnRestart(t *testing.T) {
	cfg := core.ContextMemoryConfig{RootDir: t.TempDir(), RetentionDays: 30, CleanupBatchSize: 5}
	cm1, err := New(cfg)
	require.NoError(t, err)
	s1 := cm1.(*store)

	_, err = s1.StartNewIteration()
	require.NoError(t, err)
	res := s1.StoreStateUpdate(core.StateUpdate{
		WriterID:           "agent-x",
		OrchestrationState: map[string]any{"session_id": "sess-2"},
	})
	require.True(t, res.Success)

	cm2, err := New(cfg)
	require.NoError(t, err)
	s2 := cm2.(*store)
	require.Len(t, s2.index, 1)

	u, ok, err := s2.RetrieveStateForAgent("agent-x")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "agent-x", u.WriterID)
}
