package memory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jplfaria/cogniscient-runtime/core"
	"github.com/stretchr/testify/require"
)

func TestArchiveOldDataProducesTarball(t *testing.T) {
	s := newTestStore(t)
	n, err := s.StartNewIteration()
	require.NoError(t, err)
	res := s.StoreStateUpdate(core.StateUpdate{OrchestrationState: map[string]any{"session_id": "s"}})
	require.True(t, res.Success)
	_, err = s.CompleteIteration(n, nil)
	require.NoError(t, err)

	path, err := s.ArchiveOldData(n)
	require.NoError(t, err)
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))

	var entries []archiveMetadataEntry
	require.NoError(t, readJSON(filepath.Join(s.root, dirArchive, "archive_metadata.json"), &entries))
	require.Len(t, entries, 1)
}

func TestCollectGarbageSweepsOrphans(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Join(s.root, dirIterations, "not_an_iteration"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(s.root, dirKV, "stray.tmp"), []byte("x"), 0o644))

	result, err := s.CollectGarbage()
	require.NoError(t, err)
	require.Equal(t, 1, result.OrphanedDirectories)
	require.Equal(t, 1, result.OrphanedFiles)
	require.Empty(t, result.Errors)
}

func TestSetCleanupBatchSizeLimitsCleanupBatch(t *testing.T) {
	s := newTestStore(t)
	s.cfg.RetentionDays = 0
	for i := 0; i < 3; i++ {
		n, err := s.StartNewIteration()
		require.NoError(t, err)
		_, err = s.CompleteIteration(n, nil)
		require.NoError(t, err)
	}
	s.SetCleanupBatchSize(2)

	processed, err := s.CleanupBatch()
	require.NoError(t, err)
	require.LessOrEqual(t, processed, 2)
}
