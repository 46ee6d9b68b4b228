package flow

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedRunner struct {
	results map[string]any
	errs    map[string]error
	calls   atomic.Int64
}

func (r *scriptedRunner) Run(ctx context.Context, agentID string, input any) (any, error) {
	r.calls.Add(1)
	if err, ok := r.errs[agentID]; ok {
		return nil, err
	}
	return r.results[agentID], nil
}

func TestRunSequentialDiamond(t *testing.T) {
	runner := &scriptedRunner{results: map[string]any{
		"a-agent": "a-out", "b-agent": "b-out", "c-agent": "c-out", "d-agent": "d-out",
	}}
	f := &Flow{
		MaxParallelism: 2,
		Steps: []Step{
			{ID: "a", Agent: "a-agent", Input: StepInput{Source: InputRequest}},
			{ID: "b", Agent: "b-agent", DependsOn: []string{"a"}, Input: StepInput{Source: InputStep, StepID: "a"}},
			{ID: "c", Agent: "c-agent", DependsOn: []string{"a"}, Input: StepInput{Source: InputStep, StepID: "a"}},
			{ID: "d", Agent: "d-agent", DependsOn: []string{"b", "c"}, Input: StepInput{Source: InputAggregate}},
		},
		Output: FlowOutput{From: "d", Format: OutputRaw},
	}

	e := NewEngine(runner, NewDefaultTransformRegistry())
	result, err := e.Run(context.Background(), f, "request-payload")
	require.NoError(t, err)
	assert.Equal(t, RunCompleted, result.Status)
	assert.Equal(t, "d-out", result.FinalOutput)
	require.Len(t, result.StepResults, 4)
	for _, r := range result.StepResults {
		assert.Equal(t, StepCompleted, r.Status)
	}
}

func TestRunSkipsDownstreamOfFailure(t *testing.T) {
	runner := &scriptedRunner{
		results: map[string]any{"a-agent": "ok"},
		errs:    map[string]error{"b-agent": errors.New("boom")},
	}
	f := &Flow{
		MaxParallelism: 1,
		Steps: []Step{
			{ID: "a", Agent: "a-agent", Input: StepInput{Source: InputRequest}},
			{ID: "b", Agent: "b-agent", DependsOn: []string{"a"}, Input: StepInput{Source: InputStep, StepID: "a"}},
			{ID: "c", Agent: "c-agent", DependsOn: []string{"b"}, Input: StepInput{Source: InputStep, StepID: "b"}},
		},
	}

	e := NewEngine(runner, NewDefaultTransformRegistry())
	result, err := e.Run(context.Background(), f, "req")
	require.NoError(t, err)
	assert.Equal(t, RunFailed, result.Status)

	statuses := map[string]StepStatus{}
	for _, r := range result.StepResults {
		statuses[r.StepID] = r.Status
	}
	assert.Equal(t, StepCompleted, statuses["a"])
	assert.Equal(t, StepFailed, statuses["b"])
	assert.Equal(t, StepSkipped, statuses["c"])
}

func TestRunFailFastSkipsLaterLayers(t *testing.T) {
	runner := &scriptedRunner{
		errs:    map[string]error{"a-agent": errors.New("boom")},
		results: map[string]any{"c-agent": "unreachable"},
	}
	f := &Flow{
		MaxParallelism: 1,
		FailFast:       true,
		Steps: []Step{
			{ID: "a", Agent: "a-agent", Input: StepInput{Source: InputRequest}},
			{ID: "c", Agent: "c-agent", DependsOn: []string{"a"}, Input: StepInput{Source: InputStep, StepID: "a"}},
		},
	}
	e := NewEngine(runner, NewDefaultTransformRegistry())
	result, err := e.Run(context.Background(), f, "req")
	require.NoError(t, err)
	assert.Equal(t, RunFailed, result.Status)

	statuses := map[string]StepStatus{}
	for _, r := range result.StepResults {
		statuses[r.StepID] = r.Status
	}
	assert.Equal(t, StepFailed, statuses["a"])
	assert.Equal(t, StepSkipped, statuses["c"])
	assert.Equal(t, int64(1), runner.calls.Load())
}

func TestRunRetriesUpToMaxAttempts(t *testing.T) {
	var calls atomic.Int64
	runner := &countingFailThenSucceedRunner{failures: 2, calls: &calls}
	f := &Flow{
		MaxParallelism: 1,
		Steps: []Step{
			{ID: "a", Agent: "a-agent", Input: StepInput{Source: InputRequest},
				Retry: &StepRetry{MaxAttempts: 3, BackoffMs: 1}},
		},
	}

	e := NewEngine(runner, NewDefaultTransformRegistry())
	result, err := e.Run(context.Background(), f, "req")
	require.NoError(t, err)
	assert.Equal(t, RunCompleted, result.Status)
	assert.Equal(t, int64(3), calls.Load())
}

type countingFailThenSucceedRunner struct {
	failures int
	calls    *atomic.Int64
}

func (r *countingFailThenSucceedRunner) Run(ctx context.Context, agentID string, input any) (any, error) {
	n := r.calls.Add(1)
	if int(n) <= r.failures {
		return nil, errors.New("transient")
	}
	return "ok", nil
}

func TestRunExhaustsRetriesWithOneMoreCallThanMaxAttempts(t *testing.T) {
	var calls atomic.Int64
	runner := &alwaysFailRunner{calls: &calls}
	f := &Flow{
		MaxParallelism: 1,
		Steps: []Step{
			{ID: "a", Agent: "a-agent", Input: StepInput{Source: InputRequest},
				Retry: &StepRetry{MaxAttempts: 2, BackoffMs: 1}},
		},
	}

	e := NewEngine(runner, NewDefaultTransformRegistry())
	result, err := e.Run(context.Background(), f, "req")
	require.NoError(t, err)
	assert.Equal(t, RunFailed, result.Status)
	assert.Equal(t, StepFailed, result.StepResults[0].Status)
	assert.Equal(t, int64(3), calls.Load())
}

type alwaysFailRunner struct {
	calls *atomic.Int64
}

func (r *alwaysFailRunner) Run(ctx context.Context, agentID string, input any) (any, error) {
	r.calls.Add(1)
	return nil, errors.New("http 429")
}

func TestRunRespectsConditionSkip(t *testing.T) {
	runner := &scriptedRunner{results: map[string]any{"a-agent": "ok", "b-agent": "ok"}}
	f := &Flow{
		MaxParallelism: 1,
		Steps: []Step{
			{ID: "a", Agent: "a-agent", Input: StepInput{Source: InputRequest}},
			{ID: "b", Agent: "b-agent", DependsOn: []string{"a"}, Input: StepInput{Source: InputStep, StepID: "a"},
				Condition: `results[a].status == "failed"`},
		},
	}
	e := NewEngine(runner, NewDefaultTransformRegistry())
	result, err := e.Run(context.Background(), f, "req")
	require.NoError(t, err)

	statuses := map[string]StepStatus{}
	for _, r := range result.StepResults {
		statuses[r.StepID] = r.Status
	}
	assert.Equal(t, StepCompleted, statuses["a"])
	assert.Equal(t, StepSkipped, statuses["b"])
}

func TestRunStepTimeoutCancelsCall(t *testing.T) {
	f := &Flow{
		MaxParallelism: 1,
		Steps: []Step{
			{ID: "a", Agent: "slow-agent", Input: StepInput{Source: InputRequest}, Timeout: 20 * time.Millisecond},
		},
	}
	e := NewEngine(blockingRunner{}, NewDefaultTransformRegistry())
	result, err := e.Run(context.Background(), f, "req")
	require.NoError(t, err)
	assert.Equal(t, RunFailed, result.Status)
	assert.Equal(t, StepFailed, result.StepResults[0].Status)
}

type blockingRunner struct{}

func (blockingRunner) Run(ctx context.Context, agentID string, input any) (any, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(time.Second):
		return "too slow", nil
	}
}

func TestRunRendersMarkdownOutput(t *testing.T) {
	runner := &scriptedRunner{results: map[string]any{
		"a-agent": map[string]any{"summary": "all good", "files": []any{"a.go", "b.go"}},
	}}
	f := &Flow{
		MaxParallelism: 1,
		Steps: []Step{
			{ID: "a", Agent: "a-agent", Input: StepInput{Source: InputRequest}},
		},
		Output: FlowOutput{From: "a", Format: OutputMarkdown},
	}
	e := NewEngine(runner, NewDefaultTransformRegistry())
	result, err := e.Run(context.Background(), f, "req")
	require.NoError(t, err)
	assert.Contains(t, result.FinalOutput, "# Summary")
	assert.Contains(t, result.FinalOutput, "all good")
}
