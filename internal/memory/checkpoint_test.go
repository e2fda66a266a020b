package memory

import (
	"testing"
	"time"

	"github.com/jplfaria/cogniscient-runtime/core"
	"github.com/stretchr/testify/require"
)

func TestCheckpointCreateRecoverValidate(t *testing.T) {
	s := newTestStore(t)
	_, err := s.StartNewIteration()
	require.NoError(t, err)

	id, err := s.CreateCheckpoint(core.StateUpdate{
		Timestamp:          time.Now().UTC(),
		OrchestrationState: map[string]any{"strategic_focus": "x"},
		CheckpointData:     map[string]any{"in_flight_tasks": []any{map[string]any{"task_id": "t1"}}},
		SystemStatistics:   map[string]any{"total_hypotheses": 42},
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.NoError(t, s.ValidateCheckpoint(id))

	recovered, err := s.RecoverFromCheckpoint(id)
	require.NoError(t, err)
	require.True(t, recovered.DataIntegrityValid)
	require.Equal(t, []any{map[string]any{"task_id": "t1"}}, recovered.ActiveTasks)
	require.Equal(t, float64(42), recovered.CompletedWork["hypotheses"])
	require.Equal(t, map[string]any{"strategic_focus": "x"}, recovered.SystemConfiguration)

	meta, err := s.readIterationMetadata(1)
	require.NoError(t, err)
	require.Contains(t, meta.Checkpoints, id)
}

func TestValidateCheckpointRejectsMismatchedID(t *testing.T) {
	s := newTestStore(t)
	id, err := s.CreateCheckpoint(core.StateUpdate{
		Timestamp:          time.Now().UTC(),
		OrchestrationState: map[string]any{},
		CheckpointData:     map[string]any{},
		SystemStatistics:   map[string]any{},
	})
	require.NoError(t, err)

	var cf checkpointFile
	require.NoError(t, readJSON(s.checkpointPath(id), &cf))
	cf.CheckpointID = "ckpt_bogus"
	require.NoError(t, writeJSONAtomic(s.checkpointPath(id), cf))

	err = s.ValidateCheckpoint(id)
	require.Error(t, err)
}
