package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFlowYAML = `
id: code-review
name: Code Review
maxParallelism: 2
failFast: true
output:
  from: aggregate-step
  format: markdown
steps:
  - id: analyze
    name: Analyze
    agent: senior-coder
    input:
      source: request
  - id: lint
    name: Lint
    agent: linter
    dependsOn: [analyze]
    input:
      source: "step:analyze"
      transform: extract-diagnostics
    retry:
      maxAttempts: 3
      backoffMs: 100
    timeoutMs: 5000
  - id: aggregate-step
    name: Aggregate
    agent: summarizer
    dependsOn: [analyze, lint]
    input:
      source: aggregate
`

func TestLoadParsesFlowDocument(t *testing.T) {
	f, err := Load([]byte(sampleFlowYAML))
	require.NoError(t, err)

	assert.Equal(t, "code-review", f.ID)
	assert.Equal(t, 2, f.MaxParallelism)
	assert.True(t, f.FailFast)
	assert.Equal(t, OutputMarkdown, f.Output.Format)
	require.Len(t, f.Steps, 3)

	lint := f.Steps[1]
	assert.Equal(t, InputStep, lint.Input.Source)
	assert.Equal(t, "analyze", lint.Input.StepID)
	assert.Equal(t, "extract-diagnostics", lint.Input.Transform)
	require.NotNil(t, lint.Retry)
	assert.Equal(t, 3, lint.Retry.MaxAttempts)
}

func TestLoadRejectsMissingID(t *testing.T) {
	_, err := Load([]byte("steps:\n  - id: a\n"))
	assert.ErrorIs(t, err, ErrMissingID)
}

func TestLoadRejectsDuplicateStepID(t *testing.T) {
	_, err := Load([]byte(`
id: dup
steps:
  - id: a
  - id: a
`))
	assert.ErrorIs(t, err, ErrDuplicateStep)
}

func TestLoadRejectsUnknownDependency(t *testing.T) {
	_, err := Load([]byte(`
id: bad-dep
steps:
  - id: a
    dependsOn: [ghost]
`))
	assert.ErrorIs(t, err, ErrUnknownDependency)
}

func TestLoadDefaultsMaxParallelismAndOutputFormat(t *testing.T) {
	f, err := Load([]byte(`
id: defaults
steps:
  - id: a
`))
	require.NoError(t, err)
	assert.Equal(t, 1, f.MaxParallelism)
	assert.Equal(t, OutputRaw, f.Output.Format)
}
