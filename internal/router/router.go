// Package router implements the RequestRouter: given a parsed Request,
// decide whether it dispatches to the FlowEngine or to a single agent
// runner, validating both paths before committing to either.
package router

import (
	"context"
	"fmt"

	"github.com/c360studio/orchd/internal/blueprint"
	"github.com/c360studio/orchd/internal/document"
	"github.com/c360studio/orchd/internal/flow"
	"github.com/c360studio/orchd/internal/journal"
)

// actor is the journal actor name for every decision this package logs.
const actor = "router"

// Decision records the outcome of routing one request, mirroring the
// journal's action_type vocabulary.
type Decision struct {
	Routed     bool
	ActionType string
	Reason     string
}

const (
	ActionRoutedFlow    = "request.routed.flow"
	ActionRoutedAgent   = "request.routed.agent"
	ActionRoutedInvalid = "request.routed.invalid"
)

// FlowLoader resolves a named flow document, e.g. internal/flow's file
// loader bound to a flows directory.
type FlowLoader interface {
	LoadFlow(name string) (*flow.Flow, error)
}

// FlowEngine is the capability invoked once a flow has been validated and
// loaded.
type FlowEngine interface {
	Run(ctx context.Context, f *flow.Flow, requestPayload any) (flow.RunResult, error)
}

// AgentRunner is the capability invoked for a single-agent (non-flow)
// dispatch.
type AgentRunner interface {
	Run(ctx context.Context, agentID string, input any) (any, error)
}

// BlueprintLoader is the subset of blueprint.Loader the router needs to
// confirm an agent exists before invoking it.
type BlueprintLoader interface {
	Exists(agentID string) bool
}

// Router implements the flow-vs-agent routing decision.
type Router struct {
	flows        FlowLoader
	engine       FlowEngine
	blueprints   BlueprintLoader
	runner       AgentRunner
	journal      *journal.Journal
	defaultAgent string
}

// New creates a Router. defaultAgent is used when a request omits agent_id
// and has no flow.
func New(flows FlowLoader, engine FlowEngine, blueprints BlueprintLoader, runner AgentRunner, j *journal.Journal, defaultAgent string) *Router {
	return &Router{
		flows:        flows,
		engine:       engine,
		blueprints:   blueprints,
		runner:       runner,
		journal:      j,
		defaultAgent: defaultAgent,
	}
}

// FlowValidator resolves the flow's DAG and confirms every step's agent has
// a blueprint. A flow that fails either check is not dispatched.
func (r *Router) FlowValidator(f *flow.Flow) error {
	resolver := flow.NewDependencyResolver()
	if _, err := resolver.Resolve(f); err != nil {
		return fmt.Errorf("router: flow %q: %w", f.ID, err)
	}
	for _, step := range f.Steps {
		if !r.blueprints.Exists(step.Agent) {
			return fmt.Errorf("router: flow %q: step %q references unknown agent %q", f.ID, step.ID, step.Agent)
		}
	}
	return nil
}

// Route decides flow-vs-agent, validates, and dispatches. requestPayload is
// handed to whichever engine ends up running the request (the Flow's
// requestPayload input, or the AgentRunner's input).
func (r *Router) Route(ctx context.Context, req *document.Request, requestPayload any) (Decision, error) {
	if req.HasFlow() {
		return r.routeFlow(ctx, req, requestPayload)
	}
	return r.routeAgent(ctx, req, requestPayload)
}

func (r *Router) routeFlow(ctx context.Context, req *document.Request, requestPayload any) (Decision, error) {
	f, err := r.flows.LoadFlow(req.Flow)
	if err != nil {
		return r.invalid(req, fmt.Sprintf("load flow %q: %v", req.Flow, err)), nil
	}
	if err := r.FlowValidator(f); err != nil {
		return r.invalid(req, err.Error()), nil
	}

	r.log(req, ActionRoutedFlow, map[string]any{"flow": req.Flow})

	if _, err := r.engine.Run(ctx, f, requestPayload); err != nil {
		return Decision{Routed: true, ActionType: ActionRoutedFlow, Reason: ""}, fmt.Errorf("router: run flow %q: %w", req.Flow, err)
	}
	return Decision{Routed: true, ActionType: ActionRoutedFlow}, nil
}

func (r *Router) routeAgent(ctx context.Context, req *document.Request, requestPayload any) (Decision, error) {
	agentID := req.AgentID
	if agentID == "" {
		agentID = r.defaultAgent
	}
	if agentID == "" {
		return r.invalid(req, "no agent_id on request and no default agent configured"), nil
	}
	if !r.blueprints.Exists(agentID) {
		return r.invalid(req, fmt.Sprintf("unknown agent_id %q", agentID)), nil
	}

	r.log(req, ActionRoutedAgent, map[string]any{"agent_id": agentID})

	if _, err := r.runner.Run(ctx, agentID, requestPayload); err != nil {
		return Decision{Routed: true, ActionType: ActionRoutedAgent}, fmt.Errorf("router: run agent %q: %w", agentID, err)
	}
	return Decision{Routed: true, ActionType: ActionRoutedAgent}, nil
}

func (r *Router) invalid(req *document.Request, reason string) Decision {
	r.log(req, ActionRoutedInvalid, map[string]any{"reason": reason})
	return Decision{Routed: false, ActionType: ActionRoutedInvalid, Reason: reason}
}

func (r *Router) log(req *document.Request, actionType string, payload map[string]any) {
	if r.journal == nil {
		return
	}
	r.journal.Log(actor, actionType, req.TraceID, payload, req.TraceID)
}
