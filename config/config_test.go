package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWithDefaults(t *testing.T) {
	c := OrchestratorConfig{MaxTurns: 20}.WithDefaults()
	require.Equal(t, 20, c.MaxTurns)
	require.Equal(t, 3, c.StallThreshold)
	require.Equal(t, 2, c.MaxReplans)
	require.Equal(t, 60*time.Second, c.DefaultStepTimeout)
	require.Equal(t, 1, c.DefaultStepRetries)
	require.Equal(t, 50, c.MaxSteps)
}

func TestLoadOrchestratorConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "orchestrator.yaml")
	require.NoError(t, os.WriteFile(path, []byte("maxTurns: 30\nstallThreshold: 5\n"), 0o600))

	c, err := LoadOrchestratorConfig(path)
	require.NoError(t, err)
	require.Equal(t, 30, c.MaxTurns)
	require.Equal(t, 5, c.StallThreshold)
	require.Equal(t, 2, c.MaxReplans, "unset fields still get spec defaults")
}

func TestLoadOrchestratorConfigMissingFile(t *testing.T) {
	_, err := LoadOrchestratorConfig("/nonexistent/path.yaml")
	require.Error(t, err)
}
