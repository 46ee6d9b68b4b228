package document

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Sentinel errors for Blueprint parsing/validation.
var (
	ErrBlueprintMissingID      = errors.New("document: blueprint agent_id is required")
	ErrBlueprintInvalidID      = errors.New("document: blueprint agent_id must be lowercase alphanumeric and hyphens")
	ErrBlueprintMissingModel   = errors.New("document: blueprint model is required")
	ErrBlueprintInvalidModel   = errors.New("document: blueprint model must be provider:model")
	ErrBlueprintInvalidVersion = errors.New("document: blueprint version is not valid semver")
)

var (
	agentIDPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
	semverPattern  = regexp.MustCompile(`^\d+\.\d+\.\d+(-[0-9A-Za-z-.]+)?(\+[0-9A-Za-z-.]+)?$`)
)

// Blueprint is a parsed agent definition document.
type Blueprint struct {
	AgentID                string
	Name                   string
	Model                  string
	Capabilities           []string
	Version                string
	DefaultSkills          []string
	Reflexive              bool
	MaxReflexionIterations int
	ConfidenceRequired     float64
	MemoryEnabled          bool
	SystemPrompt           string
	Frontmatter            map[string]any
}

// ParseBlueprint parses a Blueprint document. Documents without frontmatter
// are accepted for back-compat: the whole content becomes the system prompt
// and AgentID/Model must be supplied by the caller (derived from the file
// name and loader defaults respectively).
func ParseBlueprint(agentID, content string, defaultModel string) (*Blueprint, error) {
	parsed, err := ExtractFrontmatter(content)
	if err != nil {
		if !errors.Is(err, ErrNoFrontmatter) {
			return nil, fmt.Errorf("document: parse blueprint: %w", err)
		}
		// Back-compat: no frontmatter at all.
		bp := &Blueprint{
			AgentID:      agentID,
			Name:         deriveName(agentID),
			Model:        defaultModel,
			SystemPrompt: content,
			Frontmatter:  map[string]any{},
		}
		if err := bp.Validate(); err != nil {
			return nil, err
		}
		return bp, nil
	}

	bp := &Blueprint{
		AgentID:                StringField(parsed.Frontmatter, "agent_id"),
		Name:                   StringField(parsed.Frontmatter, "name"),
		Model:                  StringField(parsed.Frontmatter, "model"),
		Capabilities:           StringSliceField(parsed.Frontmatter, "capabilities"),
		Version:                StringField(parsed.Frontmatter, "version"),
		DefaultSkills:          StringSliceField(parsed.Frontmatter, "default_skills"),
		SystemPrompt:           parsed.Body,
		Frontmatter:            parsed.Frontmatter,
		MaxReflexionIterations: IntField(parsed.Frontmatter, "max_reflexion_iterations", 0),
	}
	if reflexive, ok := parsed.Frontmatter["reflexive"].(bool); ok {
		bp.Reflexive = reflexive
	}
	if memEnabled, ok := parsed.Frontmatter["memory_enabled"].(bool); ok {
		bp.MemoryEnabled = memEnabled
	}
	if conf, ok := parsed.Frontmatter["confidence_required"].(float64); ok {
		bp.ConfidenceRequired = conf
	}

	if bp.AgentID == "" {
		bp.AgentID = agentID
	}
	if bp.Name == "" {
		bp.Name = deriveName(bp.AgentID)
	}
	if bp.Model == "" {
		bp.Model = defaultModel
	}

	if err := bp.Validate(); err != nil {
		return nil, err
	}

	return bp, nil
}

// Validate checks Blueprint invariants.
func (b *Blueprint) Validate() error {
	if b.AgentID == "" {
		return ErrBlueprintMissingID
	}
	if !agentIDPattern.MatchString(b.AgentID) {
		return fmt.Errorf("%w: %q", ErrBlueprintInvalidID, b.AgentID)
	}
	if b.Model == "" {
		return ErrBlueprintMissingModel
	}
	if !strings.Contains(b.Model, ":") {
		return fmt.Errorf("%w: %q", ErrBlueprintInvalidModel, b.Model)
	}
	if b.Version != "" && !semverPattern.MatchString(b.Version) {
		return fmt.Errorf("%w: %q", ErrBlueprintInvalidVersion, b.Version)
	}
	return nil
}

// deriveName converts a kebab-case agent id into a title-case display name,
// e.g. "senior-coder" -> "Senior Coder".
func deriveName(agentID string) string {
	parts := strings.Split(agentID, "-")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}
