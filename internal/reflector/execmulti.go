package reflector

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// MultiResult pairs a ToolCall id with its reflection Result, or an error
// if the call could not be scheduled or executed.
type MultiResult struct {
	CallID string
	Result Result
	Err    error
}

// ExecuteMultiple runs calls subject to the partial order induced by each
// call's Dependencies: independent calls run concurrently, and a call only
// starts once every call it depends on has finished. When parallel is
// false, calls run strictly sequentially in layer order.
func (r *Reflector) ExecuteMultiple(ctx context.Context, calls []ToolCall, executor Executor, parallel bool) ([]MultiResult, error) {
	layers, err := layerByDependency(calls)
	if err != nil {
		return nil, err
	}

	results := make(map[string]MultiResult, len(calls))
	byID := make(map[string]ToolCall, len(calls))
	for _, c := range calls {
		byID[c.ID] = c
	}

	for _, layer := range layers {
		if !parallel {
			for _, id := range layer {
				results[id] = runOne(ctx, r, byID[id], executor)
			}
			continue
		}

		g, gctx := errgroup.WithContext(ctx)
		layerResults := make([]MultiResult, len(layer))
		for i, id := range layer {
			i, id := i, id
			g.Go(func() error {
				layerResults[i] = runOne(gctx, r, byID[id], executor)
				return nil
			})
		}
		_ = g.Wait() // runOne never returns an error from g.Go; errors live in MultiResult
		for _, mr := range layerResults {
			results[mr.CallID] = mr
		}
	}

	ordered := make([]MultiResult, 0, len(calls))
	for _, c := range calls {
		ordered = append(ordered, results[c.ID])
	}
	return ordered, nil
}

func runOne(ctx context.Context, r *Reflector, call ToolCall, executor Executor) MultiResult {
	res, err := r.Execute(ctx, call, executor)
	return MultiResult{CallID: call.ID, Result: res, Err: err}
}

// layerByDependency groups calls into dependency layers using the same
// Kahn's-algorithm approach as the flow DAG resolver (internal/flow), here
// parameterized over ToolCall instead of a flow step.
func layerByDependency(calls []ToolCall) ([][]string, error) {
	indegree := make(map[string]int, len(calls))
	dependents := make(map[string][]string)
	known := make(map[string]bool, len(calls))

	for _, c := range calls {
		known[c.ID] = true
	}
	for _, c := range calls {
		for _, dep := range c.Dependencies {
			if !known[dep] {
				return nil, fmt.Errorf("reflector: call %q depends on unknown call %q", c.ID, dep)
			}
			indegree[c.ID]++
			dependents[dep] = append(dependents[dep], c.ID)
		}
	}

	var layers [][]string
	remaining := len(calls)
	var frontier []string
	for _, c := range calls {
		if indegree[c.ID] == 0 {
			frontier = append(frontier, c.ID)
		}
	}

	for len(frontier) > 0 {
		layers = append(layers, frontier)
		remaining -= len(frontier)

		var next []string
		for _, id := range frontier {
			for _, dependent := range dependents[id] {
				indegree[dependent]--
				if indegree[dependent] == 0 {
					next = append(next, dependent)
				}
			}
		}
		frontier = next
	}

	if remaining > 0 {
		return nil, fmt.Errorf("reflector: cyclic dependencies among %d tool calls", remaining)
	}
	return layers, nil
}
