package ops

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBeatWritesHeartbeatFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Beat(dir, "feedd"))
	data, err := os.ReadFile(filepath.Join(dir, "feedd.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "ts")
}

func TestKillSwitchActive(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, KillSwitchActive(dir))
	require.NoError(t, os.MkdirAll(filepath.Dir(KillSwitchPath(dir)), 0o755))
	require.NoError(t, os.WriteFile(KillSwitchPath(dir), []byte("1"), 0o644))
	assert.True(t, KillSwitchActive(dir))
}
