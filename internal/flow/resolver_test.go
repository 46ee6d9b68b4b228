package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveLayersDiamond(t *testing.T) {
	f := &Flow{Steps: []Step{
		{ID: "a"},
		{ID: "b", DependsOn: []string{"a"}},
		{ID: "c", DependsOn: []string{"a"}},
		{ID: "d", DependsOn: []string{"b", "c"}},
	}}

	r := NewDependencyResolver()
	layers, err := r.Resolve(f)
	require.NoError(t, err)
	require.Len(t, layers, 3)
	assert.ElementsMatch(t, []string{"a"}, layers[0])
	assert.ElementsMatch(t, []string{"b", "c"}, layers[1])
	assert.ElementsMatch(t, []string{"d"}, layers[2])
}

func TestResolveDetectsCycle(t *testing.T) {
	f := &Flow{Steps: []Step{
		{ID: "a", DependsOn: []string{"b"}},
		{ID: "b", DependsOn: []string{"a"}},
	}}

	r := NewDependencyResolver()
	_, err := r.Resolve(f)
	assert.ErrorIs(t, err, ErrCycle)
	assert.Contains(t, err.Error(), "dependencies")
}

func TestResolveSingleStep(t *testing.T) {
	f := &Flow{Steps: []Step{{ID: "only"}}}
	r := NewDependencyResolver()
	layers, err := r.Resolve(f)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"only"}}, layers)
}
