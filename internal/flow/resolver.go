package flow

import "fmt"

// DependencyResolver computes execution layers from a Flow's step
// dependency graph.
type DependencyResolver struct{}

// NewDependencyResolver creates a resolver. It holds no state; it exists as
// a type so callers can depend on an interface/value rather than a bare
// function if they want to swap resolution strategies in tests.
func NewDependencyResolver() *DependencyResolver {
	return &DependencyResolver{}
}

// Resolve computes a topological order via Kahn's algorithm and groups
// steps into layers by earliest-possible-start: layer 0 contains every step
// with no dependencies, layer 1 every step whose dependencies are all in
// layer 0, and so on. A non-empty remainder after the algorithm terminates
// indicates a cycle, reported by step id.
func (r *DependencyResolver) Resolve(f *Flow) ([][]string, error) {
	indegree := make(map[string]int, len(f.Steps))
	dependents := make(map[string][]string)
	byID := make(map[string]Step, len(f.Steps))

	for _, step := range f.Steps {
		byID[step.ID] = step
		indegree[step.ID] = len(step.DependsOn)
	}
	for _, step := range f.Steps {
		for _, dep := range step.DependsOn {
			dependents[dep] = append(dependents[dep], step.ID)
		}
	}

	var layers [][]string
	var frontier []string
	for _, step := range f.Steps {
		if indegree[step.ID] == 0 {
			frontier = append(frontier, step.ID)
		}
	}

	visited := 0
	for len(frontier) > 0 {
		layers = append(layers, frontier)
		visited += len(frontier)

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

	if visited != len(f.Steps) {
		var remaining []string
		for id, deg := range indegree {
			if deg > 0 {
				remaining = append(remaining, id)
			}
		}
		return nil, fmt.Errorf("%w: steps %v have unresolved dependencies", ErrCycle, remaining)
	}

	return layers, nil
}
