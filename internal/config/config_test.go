package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsInvalidWithoutRoot(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.Validate())
	cfg.System.Root = "/tmp/workspace"
	assert.NoError(t, cfg.Validate())
}

func TestValidateRequiresPositiveDebounce(t *testing.T) {
	cfg := DefaultConfig()
	cfg.System.Root = "/tmp/workspace"
	cfg.Watcher.DebounceMs = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateRequiresDefaultModel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.System.Root = "/tmp/workspace"
	cfg.Agents.DefaultModel = ""
	assert.Error(t, cfg.Validate())
}

func TestValidateRequiresDefaultAgent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.System.Root = "/tmp/workspace"
	cfg.Agents.DefaultAgent = ""
	assert.Error(t, cfg.Validate())
}

func TestPathHelpersResolveUnderRoot(t *testing.T) {
	cfg := DefaultConfig()
	cfg.System.Root = "/workspace"
	assert.Equal(t, "/workspace/Inbox/Requests", cfg.InboxRequestsDir())
	assert.Equal(t, "/workspace/Inbox/Plans", cfg.InboxPlansDir())
	assert.Equal(t, "/workspace/System/Active", cfg.ActivePlansDir())
	assert.Equal(t, "/workspace/Blueprints", cfg.BlueprintsDir())
	assert.Equal(t, "/workspace/journal.db", cfg.JournalPath())
}

func TestLoaderMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "orchd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
system:
  root: `+dir+`
  log_level: debug
watcher:
  debounce_ms: 500
agents:
  default_model: anthropic:claude-opus
`), 0o644))

	cfg, err := NewLoader(nil).Load(path)
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.System.Root)
	assert.Equal(t, "debug", cfg.System.LogLevel)
	assert.Equal(t, 500, cfg.Watcher.DebounceMs)
	assert.Equal(t, "anthropic:claude-opus", cfg.Agents.DefaultModel)
	assert.True(t, cfg.Watcher.StabilityCheck) // default preserved, file didn't set it
}

func TestLoaderMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := NewLoader(nil).Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err) // defaults alone have no system.root
	assert.Nil(t, cfg)
}

func TestLoaderEnvOverridesRoot(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(RootEnvVar, dir)

	cfg, err := NewLoader(nil).Load("")
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.System.Root)
}
