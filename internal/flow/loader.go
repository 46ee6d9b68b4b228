package flow

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// yamlFlow mirrors the on-disk YAML shape; Flow itself uses Go-native
// duration and enum types, so loading goes through this intermediate.
type yamlFlow struct {
	ID             string        `yaml:"id"`
	Name           string        `yaml:"name"`
	MaxParallelism int           `yaml:"maxParallelism"`
	FailFast       bool          `yaml:"failFast"`
	TimeoutMs      int           `yaml:"timeoutMs"`
	Output         yamlOutput    `yaml:"output"`
	Steps          []yamlStep    `yaml:"steps"`
}

type yamlOutput struct {
	From   string `yaml:"from"`
	Format string `yaml:"format"`
}

type yamlStep struct {
	ID        string       `yaml:"id"`
	Name      string       `yaml:"name"`
	Agent     string       `yaml:"agent"`
	DependsOn []string     `yaml:"dependsOn"`
	Input     yamlInput    `yaml:"input"`
	Retry     *yamlRetry   `yaml:"retry"`
	TimeoutMs int          `yaml:"timeoutMs"`
	Condition string       `yaml:"condition"`
}

type yamlInput struct {
	Source    string `yaml:"source"`
	Transform string `yaml:"transform"`
}

type yamlRetry struct {
	MaxAttempts int `yaml:"maxAttempts"`
	BackoffMs   int `yaml:"backoffMs"`
}

// LoadFile reads and parses a Flow document from a YAML file. Flow
// documents are a pure structured definition, not markdown+frontmatter.
func LoadFile(path string) (*Flow, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("flow: read %s: %w", path, err)
	}
	return Load(content)
}

// Load parses raw YAML bytes into a Flow.
func Load(content []byte) (*Flow, error) {
	var yf yamlFlow
	if err := yaml.Unmarshal(content, &yf); err != nil {
		return nil, fmt.Errorf("flow: parse yaml: %w", err)
	}

	if yf.ID == "" {
		return nil, fmt.Errorf("flow: %w", ErrMissingID)
	}
	if len(yf.Steps) == 0 {
		return nil, fmt.Errorf("flow: %w", ErrNoSteps)
	}

	f := &Flow{
		ID:             yf.ID,
		Name:           yf.Name,
		MaxParallelism: yf.MaxParallelism,
		FailFast:       yf.FailFast,
		Output: FlowOutput{
			From:   yf.Output.From,
			Format: OutputFormat(yf.Output.Format),
		},
	}
	if f.MaxParallelism <= 0 {
		f.MaxParallelism = 1
	}
	if f.Output.Format == "" {
		f.Output.Format = OutputRaw
	}
	if yf.TimeoutMs > 0 {
		f.Timeout = time.Duration(yf.TimeoutMs) * time.Millisecond
	}

	seen := make(map[string]bool, len(yf.Steps))
	for _, ys := range yf.Steps {
		if ys.ID == "" {
			return nil, fmt.Errorf("flow: %w", ErrStepMissingID)
		}
		if seen[ys.ID] {
			return nil, fmt.Errorf("flow: %w: %q", ErrDuplicateStep, ys.ID)
		}
		seen[ys.ID] = true

		step := Step{
			ID:        ys.ID,
			Name:      ys.Name,
			Agent:     ys.Agent,
			DependsOn: ys.DependsOn,
			Input: StepInput{
				Transform: ys.Input.Transform,
			},
			Condition: ys.Condition,
		}
		step.Input.StepID, step.Input.Source = parseStepSource(ys.Input.Source)
		if ys.Retry != nil {
			step.Retry = &StepRetry{MaxAttempts: ys.Retry.MaxAttempts, BackoffMs: ys.Retry.BackoffMs}
		}
		if ys.TimeoutMs > 0 {
			step.Timeout = time.Duration(ys.TimeoutMs) * time.Millisecond
		}
		f.Steps = append(f.Steps, step)
	}

	for _, step := range f.Steps {
		for _, dep := range step.DependsOn {
			if !seen[dep] {
				return nil, fmt.Errorf("flow: step %q depends on unknown step %q: %w", step.ID, dep, ErrUnknownDependency)
			}
		}
	}

	return f, nil
}

// parseStepSource interprets the source directive ("request", "aggregate",
// or "step:<id>").
func parseStepSource(raw string) (stepID string, source InputSource) {
	const stepPrefix = "step:"
	if len(raw) > len(stepPrefix) && raw[:len(stepPrefix)] == stepPrefix {
		return raw[len(stepPrefix):], InputStep
	}
	return "", InputSource(raw)
}
