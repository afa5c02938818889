package simulation_test

import (
	"testing"

	"ars-backend/internal/simulation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryLifecycle(t *testing.T) {
	registry := simulation.NewRegistry()
	engine := simulation.NewEngine(greetingGraph())

	id := registry.Add(engine)
	require.NotEmpty(t, id)
	assert.Equal(t, 1, registry.Count())

	got, ok := registry.Get(id)
	require.True(t, ok)
	assert.Same(t, engine, got)

	assert.True(t, registry.Remove(id))
	assert.False(t, registry.Remove(id))
	assert.Equal(t, 0, registry.Count())

	_, ok = registry.Get(id)
	assert.False(t, ok)
}

func TestRegistryIDsAreUnique(t *testing.T) {
	registry := simulation.NewRegistry()

	a := registry.Add(simulation.NewEngine(greetingGraph()))
	b := registry.Add(simulation.NewEngine(greetingGraph()))

	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, registry.Count())
}
