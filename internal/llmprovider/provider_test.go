package llmprovider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitProviderModel(t *testing.T) {
	provider, model, err := SplitProviderModel("anthropic:claude-sonnet")
	require.NoError(t, err)
	assert.Equal(t, "anthropic", provider)
	assert.Equal(t, "claude-sonnet", model)

	_, _, err = SplitProviderModel("no-colon-here")
	assert.Error(t, err)
}

func TestRegistryGenerateResolvesAndInvokes(t *testing.T) {
	reg := NewRegistry()
	mock := NewMockProvider("anthropic", "hello world")
	reg.Register(mock)

	out, err := reg.Generate(context.Background(), "anthropic:claude-sonnet", "say hi", Options{Temperature: 0.5})
	require.NoError(t, err)
	assert.Equal(t, "hello world", out)
	assert.Equal(t, 1, mock.CallCount())
	assert.Equal(t, "say hi", mock.LastPrompt())
}

func TestRegistryGenerateUnknownProvider(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Generate(context.Background(), "nope:model", "x", Options{})
	assert.Error(t, err)
}

func TestMockProviderReturnsConfiguredError(t *testing.T) {
	mock := NewMockProvider("anthropic")
	mock.Err = errors.New("connection failed")

	_, err := mock.Generate(context.Background(), "claude-sonnet", "x", Options{})
	assert.ErrorIs(t, err, mock.Err)
}

func TestMockProviderSequentialResponses(t *testing.T) {
	mock := NewMockProvider("anthropic", "first", "second")
	out1, err := mock.Generate(context.Background(), "m", "p", Options{})
	require.NoError(t, err)
	out2, err := mock.Generate(context.Background(), "m", "p", Options{})
	require.NoError(t, err)

	assert.Equal(t, "first", out1)
	assert.Equal(t, "second", out2)
}
