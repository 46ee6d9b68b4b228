// Package requestproc implements the RequestProcessor: turn a Request into
// a Plan document by calling an LLM, retrying on malformed output.
package requestproc

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/orchd/internal/document"
	"github.com/c360studio/orchd/internal/llmprovider"
	"github.com/c360studio/orchd/internal/retrypolicy"
)

// maxFormatRetries bounds how many times a malformed LLM response is fed
// back as a correction before the processor gives up.
const maxFormatRetries = 5

// baseTemperature is the sampling temperature for the first attempt; each
// format-correction retry escalates it via retrypolicy.Config.NextTemperature.
const baseTemperature = 0.7

// PlanStepDraft is one step an LLM proposes for a Plan.
type PlanStepDraft struct {
	Title   string `yaml:"title"`
	Content string `yaml:"content"`
}

// planDraft is the structure the LLM is asked to emit as JSON/YAML: the
// processor marshals it into a Plan document's frontmatter + "## Step N:"
// body rather than passing the LLM's raw text through.
type planDraft struct {
	Agent string          `yaml:"agent"`
	Model string          `yaml:"model"`
	Flow  string          `yaml:"flow"`
	Steps []PlanStepDraft `yaml:"steps"`
}

// Processor generates Plan documents from Requests.
type Processor struct {
	providers   *llmprovider.Registry
	temperature retrypolicy.Config
}

// New creates a Processor. The temperature escalation schedule reuses
// retrypolicy.Config's NextTemperature so format-correction retries sample
// at escalating temperatures the same way transient-error retries do.
func New(providers *llmprovider.Registry, escalation retrypolicy.Config) *Processor {
	return &Processor{providers: providers, temperature: escalation}
}

// ErrFormat wraps the final parse error once all format-correction retries
// are exhausted.
type ErrFormat struct {
	Attempts int
	Err      error
}

func (e *ErrFormat) Error() string {
	return fmt.Sprintf("requestproc: could not parse a valid plan after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ErrFormat) Unwrap() error { return e.Err }

// Generate produces a Plan document's markdown content (frontmatter + step
// sections) for req, by calling the LLM behind providerModel and retrying
// with a correction prompt on malformed output.
func (p *Processor) Generate(ctx context.Context, req *document.Request, providerModel string) (string, error) {
	prompt := planPrompt(req)
	temperature := baseTemperature

	var lastErr error
	for attempt := 1; attempt <= maxFormatRetries; attempt++ {
		raw, err := p.providers.Generate(ctx, providerModel, prompt, llmprovider.Options{Temperature: temperature})
		if err != nil {
			return "", fmt.Errorf("requestproc: generate: %w", err)
		}

		draft, parseErr := parseDraft(raw)
		if parseErr == nil {
			return renderPlan(req, draft), nil
		}

		lastErr = parseErr
		if attempt == maxFormatRetries {
			break
		}
		prompt = correctionPrompt(req, raw, parseErr)
		temperature = p.temperature.NextTemperature(temperature)
	}

	return "", &ErrFormat{Attempts: maxFormatRetries, Err: lastErr}
}

func planPrompt(req *document.Request) string {
	var sb strings.Builder
	sb.WriteString("Produce a plan as YAML with fields agent, model, flow, and steps ")
	sb.WriteString("(each step has title and content). Respond with ONLY the YAML document.\n\n")
	sb.WriteString("Request:\n")
	sb.WriteString(req.Body)
	return sb.String()
}

func correctionPrompt(req *document.Request, prior string, parseErr error) string {
	return fmt.Sprintf(
		"Your previous response could not be parsed as a plan. Error: %s\n\n"+
			"Previous response:\n%s\n\n"+
			"Respond again with ONLY a YAML document of the form:\n"+
			"agent: <agent id>\nmodel: <provider:model>\nsteps:\n  - title: <title>\n    content: <content>\n",
		parseErr.Error(), prior,
	)
}

// parseDraft extracts a planDraft from the LLM's raw text, tolerating a
// ```yaml fenced block around the document.
func parseDraft(raw string) (*planDraft, error) {
	body := stripFence(raw)

	var draft planDraft
	if err := yaml.Unmarshal([]byte(body), &draft); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if len(draft.Steps) == 0 {
		return nil, fmt.Errorf("plan has no steps")
	}
	for i, s := range draft.Steps {
		if strings.TrimSpace(s.Title) == "" {
			return nil, fmt.Errorf("step %d has an empty title", i+1)
		}
	}
	return &draft, nil
}

func stripFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) < 2 {
		return s
	}
	lines = lines[1:]
	if len(lines) > 0 && strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), "```") {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

// renderPlan emits a Plan document: YAML frontmatter between `---` fences,
// then "## Step N: <title>" sections.
func renderPlan(req *document.Request, draft *planDraft) string {
	frontmatter := map[string]any{
		"trace_id":   req.TraceID,
		"request_id": req.TraceID,
	}
	if draft.Agent != "" {
		frontmatter["agent"] = draft.Agent
	}
	if draft.Model != "" {
		frontmatter["model"] = draft.Model
	}
	if draft.Flow != "" {
		frontmatter["flow"] = draft.Flow
	}

	fm, err := yaml.Marshal(frontmatter)
	if err != nil {
		// frontmatter is built entirely from known-marshalable fields above.
		fm = []byte{}
	}

	var sb strings.Builder
	sb.WriteString("---\n")
	sb.Write(fm)
	sb.WriteString("---\n\n")
	for i, step := range draft.Steps {
		fmt.Fprintf(&sb, "## Step %d: %s\n\n%s\n\n", i+1, step.Title, step.Content)
	}
	return sb.String()
}
