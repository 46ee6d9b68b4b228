package document

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Sentinel errors for Plan parsing.
var (
	ErrPlanMissingTraceID   = errors.New("document: plan missing trace_id")
	ErrPlanNoSteps          = errors.New("document: plan has no steps")
	ErrPlanEmptyTitle       = errors.New("document: plan step has an empty title")
	ErrPlanDuplicateStep    = errors.New("document: plan has a duplicate step number")
	ErrPlanNonSequential    = errors.New("document: plan steps are non-sequential")
)

// stepHeadingPattern matches "## Step N: <title>" headings.
var stepHeadingPattern = regexp.MustCompile(`(?m)^## Step (\d+): (.+)$`)

// PlanStep is one numbered step in a Plan's body.
type PlanStep struct {
	Number  int
	Title   string
	Content string
}

// Plan is a parsed Plan document: frontmatter plus "## Step N: <title>"
// sections.
type Plan struct {
	TraceID     string
	RequestID   string
	Agent       string
	Model       string
	Flow        string
	Steps       []PlanStep
	Frontmatter map[string]any

	// NonSequential is set when step numbers have a gap but are otherwise
	// well-formed: callers should warn and proceed rather than reject.
	NonSequential bool
}

// ParsePlan parses a Plan document, splitting its body on "## Step N: <title>"
// headings. Step numbers must form 1..K with no gaps to be considered fully
// sequential; a gap produces NonSequential=true rather than an error, but an
// empty title anywhere is always a parse error.
func ParsePlan(content string) (*Plan, error) {
	parsed, err := ExtractFrontmatter(content)
	if err != nil {
		return nil, fmt.Errorf("document: parse plan: %w", err)
	}

	plan := &Plan{
		TraceID:     StringField(parsed.Frontmatter, "trace_id"),
		RequestID:   StringField(parsed.Frontmatter, "request_id"),
		Agent:       StringField(parsed.Frontmatter, "agent"),
		Model:       StringField(parsed.Frontmatter, "model"),
		Flow:        StringField(parsed.Frontmatter, "flow"),
		Frontmatter: parsed.Frontmatter,
	}

	if plan.TraceID == "" {
		return nil, ErrPlanMissingTraceID
	}

	steps, err := parseSteps(parsed.Body)
	if err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		return nil, ErrPlanNoSteps
	}
	plan.Steps = steps

	seen := map[int]bool{}
	maxNum := 0
	for _, s := range steps {
		if seen[s.Number] {
			return nil, fmt.Errorf("%w: %d", ErrPlanDuplicateStep, s.Number)
		}
		seen[s.Number] = true
		if s.Number > maxNum {
			maxNum = s.Number
		}
	}
	for n := 1; n <= maxNum; n++ {
		if !seen[n] {
			plan.NonSequential = true
			break
		}
	}

	return plan, nil
}

// parseSteps splits a plan body on step headings and validates titles.
func parseSteps(body string) ([]PlanStep, error) {
	locs := stepHeadingPattern.FindAllStringSubmatchIndex(body, -1)
	if len(locs) == 0 {
		return nil, nil
	}

	matches := stepHeadingPattern.FindAllStringSubmatch(body, -1)

	steps := make([]PlanStep, 0, len(locs))
	for i, loc := range locs {
		numStr := matches[i][1]
		title := strings.TrimSpace(matches[i][2])
		if title == "" {
			return nil, fmt.Errorf("%w: step %s", ErrPlanEmptyTitle, numStr)
		}

		num, err := strconv.Atoi(numStr)
		if err != nil {
			return nil, fmt.Errorf("document: invalid step number %q: %w", numStr, err)
		}

		contentStart := loc[1]
		contentEnd := len(body)
		if i+1 < len(locs) {
			contentEnd = locs[i+1][0]
		}
		content := strings.TrimSpace(body[contentStart:contentEnd])

		steps = append(steps, PlanStep{Number: num, Title: title, Content: content})
	}

	return steps, nil
}
