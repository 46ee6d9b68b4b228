// Package planexec implements the PlanExecutor: parse an approved Plan
// document and execute its steps through the Router, then hand off to an
// external changeset registrar.
package planexec

import (
	"context"
	"fmt"
	"time"

	"github.com/c360studio/orchd/internal/changeset"
	"github.com/c360studio/orchd/internal/document"
	"github.com/c360studio/orchd/internal/journal"
	"github.com/c360studio/orchd/internal/router"
)

const actor = "plan-executor"

const (
	ActionParsingFailed      = "plan.parsing_failed"
	ActionNonSequentialSteps = "plan.non_sequential_steps"
	ActionStepRouted         = "plan.step_routed"
	ActionCompleted          = "plan.completed"
)

// Router is the subset of internal/router.Router the executor needs: route
// one synthetic request and report whether it was accepted.
type Router interface {
	Route(ctx context.Context, req *document.Request, requestPayload any) (router.Decision, error)
}

// ChangesetRegistrar is the external collaborator that commits the result
// of a successfully executed plan and returns a content hash; Git/changeset
// mechanics are treated as a black-box side effect here. It is exactly
// changeset.Registrar, named locally so this package documents its own
// narrow dependency rather than forcing callers to read changeset.go.
type ChangesetRegistrar = changeset.Registrar

// NotificationSink is the external collaborator notified of plan-level
// failures, consumed only as a sink.
type NotificationSink interface {
	Notify(n journal.Notification) (string, error)
}

// Executor runs an approved Plan's steps through the Router and hands off
// the result to a changeset registrar.
type Executor struct {
	router       Router
	journal      *journal.Journal
	registrar    ChangesetRegistrar
	sink         NotificationSink
	defaultAgent string
}

// New creates an Executor.
func New(router Router, j *journal.Journal, registrar ChangesetRegistrar, sink NotificationSink, defaultAgent string) *Executor {
	return &Executor{router: router, journal: j, registrar: registrar, sink: sink, defaultAgent: defaultAgent}
}

// Result is what Execute returns on success.
type Result struct {
	CommitSHA string
	Steps     int
}

// Execute parses planContent and runs its steps. A parse failure is
// journaled as plan.parsing_failed and returns an error without executing
// anything.
func (e *Executor) Execute(ctx context.Context, planContent string) (Result, error) {
	plan, err := document.ParsePlan(planContent)
	if err != nil {
		e.journalPlan(ActionParsingFailed, "", map[string]any{"reason": err.Error()})
		return Result{}, fmt.Errorf("planexec: parse plan: %w", err)
	}

	if plan.NonSequential {
		e.journalPlan(ActionNonSequentialSteps, plan.TraceID, map[string]any{
			"trace_id": plan.TraceID,
		})
	}

	agentID := plan.Agent
	if agentID == "" {
		agentID = e.defaultAgent
	}

	for _, step := range plan.Steps {
		req := &document.Request{
			TraceID: plan.TraceID,
			AgentID: agentID,
			Status:  document.RequestPending,
			Flow:    plan.Flow,
			Model:   plan.Model,
			Body:    step.Content,
		}

		decision, err := e.router.Route(ctx, req, step.Content)
		if err != nil {
			e.notifyFailure(plan.TraceID, fmt.Sprintf("step %d (%s): %v", step.Number, step.Title, err))
			return Result{}, fmt.Errorf("planexec: execute step %d (%s): %w", step.Number, step.Title, err)
		}
		if !decision.Routed {
			e.notifyFailure(plan.TraceID, fmt.Sprintf("step %d (%s): routing rejected: %s", step.Number, step.Title, decision.Reason))
			return Result{}, fmt.Errorf("planexec: step %d (%s) not routed: %s", step.Number, step.Title, decision.Reason)
		}

		e.journalPlan(ActionStepRouted, plan.TraceID, map[string]any{
			"step_number": step.Number,
			"title":       step.Title,
		})

		// A plan that opts into flow execution dispatches its whole body as
		// one flow run; iterating further per-step synthetic requests would
		// double-dispatch the same steps the flow's own DAG already covers.
		if plan.Flow != "" {
			break
		}
	}

	commitSHA, err := e.registrar.Register(ctx, changeset.Changeset{
		TraceID:     plan.TraceID,
		Branch:      plan.TraceID,
		Status:      changeset.StatusApproved,
		Description: fmt.Sprintf("plan %s", plan.TraceID),
		Created:     time.Now().UTC(),
		CreatedBy:   actor,
	})
	if err != nil {
		e.notifyFailure(plan.TraceID, fmt.Sprintf("changeset registration failed: %v", err))
		return Result{}, fmt.Errorf("planexec: register changeset: %w", err)
	}

	e.journalPlan(ActionCompleted, plan.TraceID, map[string]any{"changeset_sha": commitSHA})

	return Result{CommitSHA: commitSHA, Steps: len(plan.Steps)}, nil
}

func (e *Executor) journalPlan(actionType, traceID string, payload map[string]any) {
	if e.journal == nil {
		return
	}
	e.journal.Log(actor, actionType, traceID, payload, traceID)
}

func (e *Executor) notifyFailure(traceID, message string) {
	if e.sink == nil {
		return
	}
	_, _ = e.sink.Notify(journal.Notification{
		Type:    journal.NotificationError,
		Message: message,
		TraceID: traceID,
	})
}
