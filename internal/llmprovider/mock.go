package llmprovider

import (
	"context"
	"sync"
)

// MockProvider is a thread-safe test double returning scripted responses in
// sequence, or a configured error.
type MockProvider struct {
	mu            sync.Mutex
	Name          string
	Responses     []string
	Err           error
	callCount     int
	responseIndex int
	capturedModel string
	capturedPrompt string
}

// NewMockProvider creates a MockProvider identified by name, returning
// responses in order on successive Generate calls.
func NewMockProvider(name string, responses ...string) *MockProvider {
	return &MockProvider{Name: name, Responses: responses}
}

// ID implements Provider.
func (m *MockProvider) ID() string { return m.Name }

// Generate implements Provider.
func (m *MockProvider) Generate(_ context.Context, model, prompt string, _ Options) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.callCount++
	m.capturedModel = model
	m.capturedPrompt = prompt

	if m.Err != nil {
		return "", m.Err
	}
	if m.responseIndex < len(m.Responses) {
		resp := m.Responses[m.responseIndex]
		m.responseIndex++
		return resp, nil
	}
	return "", nil
}

// CallCount returns the number of Generate calls made so far.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// LastPrompt returns the prompt passed to the most recent Generate call.
func (m *MockProvider) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.capturedPrompt
}

// Reset clears call count and replays responses from the start.
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.responseIndex = 0
}
