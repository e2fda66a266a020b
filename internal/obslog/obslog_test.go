package obslog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewLoggersWritesUnderLogsBaml(t *testing.T) {
	root := t.TempDir()
	logs := NewLoggers(root)

	logs.Operations.Info().Str("task_id", "t-1").Msg("task started")
	logs.Performance.Info().Str("task_id", "t-1").Msg("task finished")
	logs.Errors.Error().Str("task_id", "t-1").Msg("task failed")

	for _, name := range []string{"operations.log", "performance.log", "errors.log"} {
		path := filepath.Join(root, "logs", "baml", name)
		info, err := os.Stat(path)
		require.NoError(t, err, "expected %s to exist", path)
		require.Greater(t, info.Size(), int64(0))
	}
}

func TestRedactFieldsMasksSensitiveKeys(t *testing.T) {
	fields := map[string]any{
		"api_key":  "sk-abc123",
		"endpoint": "https://example.test/v1",
	}

	redacted := RedactFields(fields)

	require.Equal(t, "***redacted***", redacted["api_key"])
	require.Equal(t, "https://example.test/v1", redacted["endpoint"])
}
