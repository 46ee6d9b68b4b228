// Package llmprovider defines the narrow LLM generation interface the core
// consumes: an id and a generate(prompt, {temperature}) -> text call.
// Concrete provider wire formats are explicitly out of scope; this package
// only provides the interface, a name-keyed registry, and an in-memory test
// double.
package llmprovider

import (
	"context"
	"fmt"
	"sync"
)

// Options parameterizes a single generate call.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// Provider is a single named LLM backend, addressed by a "provider:model"
// string at the call site.
type Provider interface {
	// ID returns the provider identifier, e.g. "anthropic".
	ID() string
	// Generate produces text for prompt under the given model and options.
	Generate(ctx context.Context, model, prompt string, opts Options) (string, error)
}

// Registry resolves "provider:model" identifiers to a registered Provider.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds p under its own ID, replacing any existing registration.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.ID()] = p
}

// Get resolves providerID to a registered Provider.
func (r *Registry) Get(providerID string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[providerID]
	if !ok {
		return nil, fmt.Errorf("llmprovider: no provider registered for %q", providerID)
	}
	return p, nil
}

// Generate resolves "provider:model" and invokes the resolved provider.
func (r *Registry) Generate(ctx context.Context, providerModel, prompt string, opts Options) (string, error) {
	providerID, model, err := SplitProviderModel(providerModel)
	if err != nil {
		return "", err
	}
	p, err := r.Get(providerID)
	if err != nil {
		return "", err
	}
	return p.Generate(ctx, model, prompt, opts)
}

// SplitProviderModel splits a "provider:model" identifier.
func SplitProviderModel(s string) (provider, model string, err error) {
	for i := 0; i < len(s); i++ {
		if s[i] == ':' {
			return s[:i], s[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("llmprovider: %q is not a provider:model identifier", s)
}
