package memory

import (
	"testing"
	"time"

	"github.com/jplfaria/cogniscient-runtime/core"
	"github.com/stretchr/testify/require"
)

func TestAggregateReplaceAppendsEntry(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.StoreAggregate("usage", map[string]any{"cost": 1.0}, time.Now().UTC()))
	require.NoError(t, s.UpdateAggregate("usage", map[string]any{"cost": 2.0}, core.StrategyReplace))

	latest, ok, err := s.LatestAggregate("usage")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 2.0, latest["cost"])
}

func TestAggregateMergeDeepMerges(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.StoreAggregate("status", map[string]any{"counts": map[string]any{"a": 1.0}}, time.Now().UTC()))
	require.NoError(t, s.UpdateAggregate("status", map[string]any{"counts": map[string]any{"b": 2.0}}, core.StrategyMerge))

	latest, _, err := s.LatestAggregate("status")
	require.NoError(t, err)
	counts := latest["counts"].(map[string]any)
	require.Equal(t, 1.0, counts["a"])
	require.Equal(t, 2.0, counts["b"])
}

func TestAggregateAccumulateAddsNumerics(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.StoreAggregate("tokens", map[string]any{"total": 100.0}, time.Now().UTC()))
	require.NoError(t, s.UpdateAggregate("tokens", map[string]any{"total": 50.0}, core.StrategyAccumulate))

	latest, _, err := s.LatestAggregate("tokens")
	require.NoError(t, err)
	require.Equal(t, 150.0, latest["total"])
}

func TestAggregateTimeRangeFiltersByWindow(t *testing.T) {
	s := newTestStore(t)
	base := time.Now().UTC()
	require.NoError(t, s.StoreAggregate("metric", map[string]any{"v": 1.0}, base.Add(-time.Hour)))
	require.NoError(t, s.StoreAggregate("metric", map[string]any{"v": 2.0}, base))
	require.NoError(t, s.StoreAggregate("metric", map[string]any{"v": 3.0}, base.Add(time.Hour)))

	out, err := s.AggregateTimeRange("metric", base.Add(-time.Minute), base.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, out, 2)
}

func TestComputeAggregateStatisticsFromAgentOutputs(t *testing.T) {
	s := newTestStore(t)
	_, err := s.StartNewIteration()
	require.NoError(t, err)

	for _, score := range []float64{0.2, 0.6, 1.0} {
		res := s.StoreAgentOutput(core.AgentOutput{
			AgentType: core.AgentReflection,
			TaskID:    "t",
			Results:   map[string]any{"novelty_score": score},
		})
		require.True(t, res.Success)
	}

	stats, err := s.ComputeAggregateStatistics(core.AgentReflection, "novelty_score")
	require.NoError(t, err)
	require.Equal(t, 3, stats.Count)
	require.InDelta(t, 0.6, stats.Average, 0.01)
	require.Equal(t, 0.2, stats.Min)
	require.Equal(t, 1.0, stats.Max)
}
