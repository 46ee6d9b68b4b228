// Package reflector wraps tool execution with an LLM-driven success
// judgment and bounded alternative-parameter retry.
package reflector

import (
	"context"
	"fmt"
	"time"
)

// ToolCall describes a single tool invocation to be executed and judged.
type ToolCall struct {
	ID           string
	Name         string
	Parameters   map[string]any
	Purpose      string
	Dependencies []string
}

// Outcome is the raw result of running a tool, before judgment.
type Outcome struct {
	Success    bool
	Output     string
	Error      string
	DurationMs int64
}

// IssueType classifies a problem a Judge found with an Outcome.
type IssueType string

const (
	IssueError       IssueType = "error"
	IssueIncomplete  IssueType = "incomplete"
	IssueUnexpected  IssueType = "unexpected"
	IssueWarning     IssueType = "warning"
)

// Severity grades how serious an Issue is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityMajor    Severity = "major"
	SeverityMinor    Severity = "minor"
)

// Issue is one problem identified by a Judge.
type Issue struct {
	Type        IssueType
	Description string
	Severity    Severity
}

// Verdict is the structured judgment a Judge returns for a ToolCall
// execution.
type Verdict struct {
	Success               bool
	Confidence            int // 0..100
	AchievedPurpose       bool
	Issues                []Issue
	RetrySuggested        bool
	RetryReason           string
	AlternativeParameters map[string]any
	Insights              string
}

// hasCritical reports whether any issue in the verdict is critical. A
// critical issue forces Success = false regardless of confidence.
func (v Verdict) hasCritical() bool {
	for _, issue := range v.Issues {
		if issue.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// Judge renders a structured success judgment for a completed tool call.
// The core never talks to a concrete LLM wire format directly — Judge is
// the seam an LLM-backed implementation sits behind.
type Judge interface {
	Evaluate(ctx context.Context, call ToolCall, outcome Outcome) (Verdict, error)
}

// Executor runs a tool call's parameters and returns the raw outcome.
type Executor func(ctx context.Context, params map[string]any) Outcome

// Result is the outcome of reflecting on one ToolCall, including every
// attempt made.
type Result struct {
	Call         ToolCall
	FinalOutcome Outcome
	FinalVerdict Verdict
	Attempts     int
}

// Config bounds reflection retries.
type Config struct {
	MaxRetries int
}

// DefaultConfig mirrors the RetryPolicy default attempt budget.
var DefaultConfig = Config{MaxRetries: 3}

// Reflector wraps tool execution with judgment-driven retry.
type Reflector struct {
	judge   Judge
	cfg     Config
	metrics *Metrics
}

// New creates a Reflector. metrics may be nil.
func New(judge Judge, cfg Config, metrics *Metrics) *Reflector {
	return &Reflector{judge: judge, cfg: cfg, metrics: metrics}
}

// Execute runs call via executor, judges the outcome, and — while
// RetrySuggested and attempts remain — re-executes with
// AlternativeParameters merged over the originals.
func (r *Reflector) Execute(ctx context.Context, call ToolCall, executor Executor) (Result, error) {
	params := cloneParams(call.Parameters)
	var (
		outcome Outcome
		verdict Verdict
	)

	for attempt := 1; attempt <= r.cfg.MaxRetries+1; attempt++ {
		start := time.Now()
		outcome = executor(ctx, params)
		if outcome.DurationMs == 0 {
			outcome.DurationMs = time.Since(start).Milliseconds()
		}

		v, err := r.judge.Evaluate(ctx, call, outcome)
		if err != nil {
			return Result{Call: call, FinalOutcome: outcome, Attempts: attempt}, fmt.Errorf("reflector: judge: %w", err)
		}
		verdict = v
		if verdict.hasCritical() {
			verdict.Success = false
		}

		if r.metrics != nil {
			r.metrics.Observe(call.Name, verdict, attempt > 1)
		}

		if verdict.RetrySuggested && attempt <= r.cfg.MaxRetries {
			params = mergeParams(params, verdict.AlternativeParameters)
			continue
		}
		return Result{Call: call, FinalOutcome: outcome, FinalVerdict: verdict, Attempts: attempt}, nil
	}

	return Result{Call: call, FinalOutcome: outcome, FinalVerdict: verdict, Attempts: r.cfg.MaxRetries + 1}, nil
}

func cloneParams(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func mergeParams(base, overrides map[string]any) map[string]any {
	out := cloneParams(base)
	for k, v := range overrides {
		out[k] = v
	}
	return out
}
