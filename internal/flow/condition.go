package flow

import (
	"fmt"
	"regexp"
	"strings"
)

// conditionPattern matches a single comparison: results[stepId].status ==
// "completed" (or !=, and any of completed/failed/skipped). This is a
// deliberately fixed comparison language rather than a general expression
// evaluator.
var conditionPattern = regexp.MustCompile(
	`results\[([a-zA-Z0-9_-]+)\]\.status\s*(==|!=)\s*"(completed|failed|skipped)"`,
)

// EvaluateCondition evaluates a condition expression against the results
// produced so far in a flow run. An empty expression is always true. The
// grammar supports comparisons joined with && and ||; the expression is
// split on || first, so && binds tighter than ||. Parentheses are not
// supported.
func EvaluateCondition(expr string, results map[string]StepResult) (bool, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return true, nil
	}

	if strings.Contains(expr, "||") {
		for _, part := range strings.Split(expr, "||") {
			ok, err := EvaluateCondition(part, results)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}

	if strings.Contains(expr, "&&") {
		for _, part := range strings.Split(expr, "&&") {
			ok, err := EvaluateCondition(part, results)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	}

	match := conditionPattern.FindStringSubmatch(strings.TrimSpace(expr))
	if match == nil {
		return false, fmt.Errorf("flow: unrecognized condition expression %q", expr)
	}
	stepID, op, want := match[1], match[2], match[3]

	result, ok := results[stepID]
	got := ""
	if ok {
		got = string(result.Status)
	}

	switch op {
	case "==":
		return got == want, nil
	case "!=":
		return got != want, nil
	default:
		return false, fmt.Errorf("flow: unsupported operator %q", op)
	}
}
