package blueprint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleBlueprint = `---
agent_id: senior-coder
name: Senior Coder
model: anthropic:claude-sonnet
capabilities:
  - code-review
  - refactoring
version: 1.2.0
---
You are a senior software engineer.
`

func writeBlueprint(t *testing.T, dir, agentID, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, agentID+".md"), []byte(content), 0o644))
}

func TestLoadParsesAndCaches(t *testing.T) {
	dir := t.TempDir()
	writeBlueprint(t, dir, "senior-coder", sampleBlueprint)

	l := New(dir, "anthropic:claude-haiku")
	bp, err := l.Load("senior-coder")
	require.NoError(t, err)
	assert.Equal(t, "Senior Coder", bp.Name)
	assert.Equal(t, "anthropic:claude-sonnet", bp.Model)

	// Remove the file; cached result should still be served.
	require.NoError(t, os.Remove(filepath.Join(dir, "senior-coder.md")))
	again, err := l.Load("senior-coder")
	require.NoError(t, err)
	assert.Same(t, bp, again)
}

func TestInvalidateForcesReload(t *testing.T) {
	dir := t.TempDir()
	writeBlueprint(t, dir, "senior-coder", sampleBlueprint)

	l := New(dir, "anthropic:claude-haiku")
	_, err := l.Load("senior-coder")
	require.NoError(t, err)

	l.Invalidate("senior-coder")
	require.NoError(t, os.Remove(filepath.Join(dir, "senior-coder.md")))

	_, err = l.Load("senior-coder")
	assert.Error(t, err)
}

func TestListEnumeratesBlueprints(t *testing.T) {
	dir := t.TempDir()
	writeBlueprint(t, dir, "senior-coder", sampleBlueprint)
	writeBlueprint(t, dir, "reviewer", sampleBlueprint)

	l := New(dir, "anthropic:claude-haiku")
	ids, err := l.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"senior-coder", "reviewer"}, ids)
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	writeBlueprint(t, dir, "senior-coder", sampleBlueprint)

	l := New(dir, "anthropic:claude-haiku")
	assert.True(t, l.Exists("senior-coder"))
	assert.False(t, l.Exists("missing-agent"))
}

func TestClearCache(t *testing.T) {
	dir := t.TempDir()
	writeBlueprint(t, dir, "senior-coder", sampleBlueprint)

	l := New(dir, "anthropic:claude-haiku")
	first, err := l.Load("senior-coder")
	require.NoError(t, err)

	l.ClearCache()
	require.NoError(t, os.Remove(filepath.Join(dir, "senior-coder.md")))
	_, err = l.Load("senior-coder")
	assert.Error(t, err)
	_ = first
}
