package daemon

import (
	"context"
	"fmt"

	"github.com/c360studio/orchd/internal/blueprint"
	"github.com/c360studio/orchd/internal/llmprovider"
)

// BlueprintRunner is the AgentRunner (router.AgentRunner / flow.AgentRunner
// share this exact shape) that invokes a blueprint's system prompt against
// its configured model. It is the one place a "blueprint" and a "model
// call" actually meet; everything upstream only deals in agent ids.
type BlueprintRunner struct {
	blueprints *blueprint.Loader
	providers  *llmprovider.Registry
}

// NewBlueprintRunner creates a BlueprintRunner.
func NewBlueprintRunner(blueprints *blueprint.Loader, providers *llmprovider.Registry) *BlueprintRunner {
	return &BlueprintRunner{blueprints: blueprints, providers: providers}
}

// Run loads agentID's blueprint and generates a completion for input
// appended to the blueprint's system prompt.
func (r *BlueprintRunner) Run(ctx context.Context, agentID string, input any) (any, error) {
	bp, err := r.blueprints.Load(agentID)
	if err != nil {
		return nil, fmt.Errorf("daemon: load blueprint %q: %w", agentID, err)
	}

	prompt := fmt.Sprintf("%s\n\n%v", bp.SystemPrompt, input)
	out, err := r.providers.Generate(ctx, bp.Model, prompt, llmprovider.Options{})
	if err != nil {
		return nil, fmt.Errorf("daemon: generate for agent %q: %w", agentID, err)
	}
	return out, nil
}
