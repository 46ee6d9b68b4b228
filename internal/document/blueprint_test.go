package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validBlueprint = `---
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

func TestParseBlueprintValid(t *testing.T) {
	bp, err := ParseBlueprint("senior-coder", validBlueprint, "anthropic:claude-haiku")
	require.NoError(t, err)
	assert.Equal(t, "senior-coder", bp.AgentID)
	assert.Equal(t, "Senior Coder", bp.Name)
	assert.Equal(t, "anthropic:claude-sonnet", bp.Model)
	assert.Contains(t, bp.SystemPrompt, "senior software engineer")
}

func TestParseBlueprintDerivesName(t *testing.T) {
	content := "---\nagent_id: code-reviewer\nmodel: anthropic:claude-sonnet\n---\nPrompt.\n"
	bp, err := ParseBlueprint("code-reviewer", content, "anthropic:claude-haiku")
	require.NoError(t, err)
	assert.Equal(t, "Code Reviewer", bp.Name)
}

func TestParseBlueprintDefaultsModel(t *testing.T) {
	content := "---\nagent_id: planner\n---\nPrompt.\n"
	bp, err := ParseBlueprint("planner", content, "anthropic:claude-haiku")
	require.NoError(t, err)
	assert.Equal(t, "anthropic:claude-haiku", bp.Model)
}

func TestParseBlueprintNoFrontmatter(t *testing.T) {
	bp, err := ParseBlueprint("legacy-agent", "Just a system prompt.\n", "anthropic:claude-haiku")
	require.NoError(t, err)
	assert.Equal(t, "Legacy Agent", bp.Name)
	assert.Equal(t, "Just a system prompt.\n", bp.SystemPrompt)
}

func TestParseBlueprintInvalidID(t *testing.T) {
	content := "---\nagent_id: Bad_ID\nmodel: anthropic:claude-sonnet\n---\nprompt"
	_, err := ParseBlueprint("Bad_ID", content, "anthropic:claude-haiku")
	assert.ErrorIs(t, err, ErrBlueprintInvalidID)
}

func TestParseBlueprintInvalidModel(t *testing.T) {
	content := "---\nagent_id: x\nmodel: nocolon\n---\nprompt"
	_, err := ParseBlueprint("x", content, "")
	assert.ErrorIs(t, err, ErrBlueprintInvalidModel)
}
