package flow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// AgentRunner invokes a blueprint's agent with a rendered input and returns
// its raw output. Steps declare retry/timeout around this call; the runner
// itself is the one collaborator the engine trusts to honor context
// cancellation, so a step timeout cancels the underlying call rather than
// merely marking it failed after the fact.
type AgentRunner interface {
	Run(ctx context.Context, agentID string, input any) (any, error)
}

// Logger is the narrow logging seam FlowEngine needs; satisfied by
// *slog.Logger.
type Logger interface {
	Warn(msg string, args ...any)
}

// Engine executes a Flow's DAG of steps with bounded parallelism.
type Engine struct {
	resolver   *DependencyResolver
	runner     AgentRunner
	transforms *TransformRegistry
	logger     Logger
	metrics    *Metrics
	isRetryable func(error) bool
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(l Logger) Option { return func(e *Engine) { e.logger = l } }

// WithMetrics attaches Prometheus metrics.
func WithMetrics(m *Metrics) Option { return func(e *Engine) { e.metrics = m } }

// WithRetryableClassifier overrides which errors are worth retrying; the
// default retries every error a step's retry policy surfaces.
func WithRetryableClassifier(f func(error) bool) Option {
	return func(e *Engine) { e.isRetryable = f }
}

// NewEngine creates a FlowEngine over the given agent runner and transform
// registry.
func NewEngine(runner AgentRunner, transforms *TransformRegistry, opts ...Option) *Engine {
	e := &Engine{
		resolver:    NewDependencyResolver(),
		runner:      runner,
		transforms:  transforms,
		isRetryable: func(error) bool { return true },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// runState tracks per-run step bookkeeping guarded by a mutex, since steps
// within a layer execute concurrently.
type runState struct {
	mu      sync.Mutex
	results map[string]StepResult
	failed  bool
}

func (s *runState) get(id string) (StepResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.results[id]
	return r, ok
}

func (s *runState) set(r StepResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[r.StepID] = r
	if r.Status == StepFailed {
		s.failed = true
	}
}

func (s *runState) snapshotAll() map[string]StepResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]StepResult, len(s.results))
	for k, v := range s.results {
		out[k] = v
	}
	return out
}

func (s *runState) anyFailed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failed
}

// Run executes f's DAG against requestPayload and returns the aggregated
// result.
func (e *Engine) Run(ctx context.Context, f *Flow, requestPayload any) (RunResult, error) {
	layers, err := e.resolver.Resolve(f)
	if err != nil {
		return RunResult{}, err
	}

	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	byID := make(map[string]Step, len(f.Steps))
	for _, s := range f.Steps {
		byID[s.ID] = s
	}

	state := &runState{results: make(map[string]StepResult, len(f.Steps))}
	sem := semaphore.NewWeighted(int64(f.MaxParallelism))

	for _, layer := range layers {
		if f.FailFast && state.anyFailed() {
			for _, id := range layer {
				state.set(StepResult{StepID: id, Status: StepSkipped})
			}
			continue
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, id := range layer {
			id := id
			step := byID[id]
			g.Go(func() error {
				if err := sem.Acquire(gctx, 1); err != nil {
					state.set(StepResult{StepID: id, Status: StepSkipped})
					return nil
				}
				defer sem.Release(1)
				e.runStep(gctx, step, requestPayload, state)
				return nil
			})
		}
		_ = g.Wait()
	}

	status := RunCompleted
	if state.anyFailed() {
		status = RunFailed
	}

	ordered := make([]StepResult, 0, len(f.Steps))
	snapshot := state.snapshotAll()
	for _, s := range f.Steps {
		ordered = append(ordered, snapshot[s.ID])
	}

	finalOutput := ""
	if f.Output.From != "" {
		if res, ok := snapshot[f.Output.From]; ok {
			rendered, err := renderOutput(res.Output, f.Output.Format)
			if err != nil {
				return RunResult{}, err
			}
			finalOutput = rendered
		}
	}

	return RunResult{Status: status, StepResults: ordered, FinalOutput: finalOutput}, nil
}

// runStep evaluates the skip rule, condition, input sourcing, transform,
// and retry/timeout wrapper for a single step, writing its terminal
// StepResult into state.
func (e *Engine) runStep(ctx context.Context, step Step, requestPayload any, state *runState) {
	for _, dep := range step.DependsOn {
		depResult, ok := state.get(dep)
		if !ok || depResult.Status != StepCompleted {
			state.set(StepResult{StepID: step.ID, Status: StepSkipped})
			return
		}
	}

	if step.Condition != "" {
		ok, err := EvaluateCondition(step.Condition, state.snapshotAll())
		if err != nil {
			state.set(StepResult{StepID: step.ID, Status: StepFailed, Error: err.Error()})
			return
		}
		if !ok {
			state.set(StepResult{StepID: step.ID, Status: StepSkipped})
			return
		}
	}

	input, err := e.resolveInput(step, requestPayload, state)
	if err != nil {
		state.set(StepResult{StepID: step.ID, Status: StepFailed, Error: err.Error()})
		return
	}

	start := time.Now()
	output, err := e.invokeWithRetry(ctx, step, input)
	duration := time.Since(start).Milliseconds()

	if e.metrics != nil {
		e.metrics.ObserveStep(step.ID, err == nil, duration)
	}

	if err != nil {
		state.set(StepResult{StepID: step.ID, Status: StepFailed, Error: err.Error(), DurationMs: duration})
		return
	}
	state.set(StepResult{StepID: step.ID, Status: StepCompleted, Output: output, DurationMs: duration})
}

func (e *Engine) resolveInput(step Step, requestPayload any, state *runState) (any, error) {
	transform, err := e.transforms.Lookup(step.Input.Transform)
	if err != nil {
		return nil, err
	}

	var raw any
	switch step.Input.Source {
	case InputRequest, "":
		raw = requestPayload
	case InputStep:
		dep, ok := state.get(step.Input.StepID)
		if !ok {
			return nil, fmt.Errorf("flow: step %q references unexecuted step %q", step.ID, step.Input.StepID)
		}
		raw = dep.Output
	case InputAggregate:
		agg := make(map[string]any)
		for _, dep := range step.DependsOn {
			if r, ok := state.get(dep); ok {
				agg[dep] = r.Output
			}
		}
		raw = agg
	default:
		return nil, fmt.Errorf("flow: unknown input source %q for step %q", step.Input.Source, step.ID)
	}

	return transform(raw)
}

// invokeWithRetry races the agent call against the step's timeout (if any)
// and retries up to step.Retry.MaxAttempts additional times on failure
// (MaxAttempts=2 means 3 executions total), sleeping step.Retry.BackoffMs
// between attempts.
func (e *Engine) invokeWithRetry(ctx context.Context, step Step, input any) (any, error) {
	attempts := 1
	var backoff time.Duration
	if step.Retry != nil {
		attempts = step.Retry.MaxAttempts + 1
		backoff = time.Duration(step.Retry.BackoffMs) * time.Millisecond
	}
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		callCtx := ctx
		var cancel context.CancelFunc
		if step.Timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, step.Timeout)
		}
		output, err := e.runner.Run(callCtx, step.Agent, input)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			return output, nil
		}
		lastErr = err
		if !e.isRetryable(err) || attempt == attempts {
			break
		}
		if backoff > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		if e.logger != nil {
			e.logger.Warn("flow.step_retry", "step", step.ID, "attempt", attempt, "error", err.Error())
		}
	}
	return nil, lastErr
}
