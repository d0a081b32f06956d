package leads

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sleuth/internal/types"
)

func entity(name string, p types.Priority, iter int) types.Entity {
	return types.Entity{Name: name, Priority: p, DiscoveredAtIteration: iter}
}

func none(string) bool { return false }

func investigatedSet(names ...string) func(string) bool {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[normalize(n)] = struct{}{}
	}
	return func(name string) bool {
		_, ok := set[normalize(name)]
		return ok
	}
}

func TestPending_OrdersByPriorityThenDiscovery(t *testing.T) {
	discovered := []types.Entity{
		entity("low lead", types.PriorityLow, 0),
		entity("late high", types.PriorityHigh, 2),
		entity("early high", types.PriorityHigh, 1),
		entity("medium lead", types.PriorityMedium, 0),
	}

	pending := Pending(discovered, none)
	require.Len(t, pending, 4)
	assert.Equal(t, "early high", pending[0].Name)
	assert.Equal(t, "late high", pending[1].Name)
	assert.Equal(t, "medium lead", pending[2].Name)
	assert.Equal(t, "low lead", pending[3].Name)
}

func TestPending_SkipsInvestigatedAndEmpty(t *testing.T) {
	discovered := []types.Entity{
		entity("Jack Altman", types.PriorityHigh, 0),
		entity("  ", types.PriorityHigh, 0),
		entity("Jane Doe", types.PriorityMedium, 0),
	}

	pending := Pending(discovered, investigatedSet("jack altman"))
	require.Len(t, pending, 1)
	assert.Equal(t, "Jane Doe", pending[0].Name)
}

func TestHighPriorityPending_ExcludesThisRoundsTargets(t *testing.T) {
	discovered := []types.Entity{
		entity("a", types.PriorityHigh, 0),
		entity("b", types.PriorityHigh, 1),
		entity("c", types.PriorityMedium, 0),
	}

	high := HighPriorityPending(discovered, investigatedSet("a"), []string{" B "})
	assert.Empty(t, high)

	high = HighPriorityPending(discovered, none, nil)
	require.Len(t, high, 2)
	assert.Equal(t, "a", high[0].Name)
}

func TestTop_CapsCount(t *testing.T) {
	discovered := []types.Entity{
		entity("a", types.PriorityHigh, 0),
		entity("b", types.PriorityMedium, 0),
		entity("c", types.PriorityLow, 0),
	}

	top := Top(discovered, none, 2)
	require.Len(t, top, 2)
	assert.Equal(t, "a", top[0].Name)
	assert.Equal(t, "b", top[1].Name)
}
