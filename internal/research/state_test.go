package research

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sleuth/internal/types"
)

func TestApply_AppendFields(t *testing.T) {
	s := NewState("Jane Doe", "", 5)

	s.Apply(&Update{
		ExecutedQueries: []string{"q1"},
		ContentItems:    []types.ContentItem{{ID: "a", URL: "https://example.com/a"}},
		Facts:           []types.Fact{{Claim: "claim one"}},
		Risks:           []types.Risk{{Description: "risk one"}},
		Connections:     []types.Connection{{TargetEntity: "Acme"}},
	})
	s.Apply(&Update{
		ExecutedQueries: []string{"q2"},
		Facts:           []types.Fact{{Claim: "claim two"}},
	})

	assert.Equal(t, []string{"q1", "q2"}, s.ExecutedQueries)
	assert.Len(t, s.Facts, 2)
	assert.Len(t, s.Risks, 1)
	assert.Len(t, s.Connections, 1)
	assert.Len(t, s.ContentItems, 1)
}

func TestApply_ValidatedFactsReplace(t *testing.T) {
	s := NewState("Jane Doe", "", 5)
	s.Apply(&Update{Facts: []types.Fact{{Claim: "a"}, {Claim: "b"}}})

	s.Apply(&Update{ValidatedFacts: []types.Fact{
		{Claim: "a", Confidence: 0.9},
		{Claim: "b", Confidence: 0.35},
	}})

	require.Len(t, s.Facts, 2)
	assert.Equal(t, 0.9, s.Facts[0].Confidence)
	assert.Equal(t, 0.35, s.Facts[1].Confidence)
}

func TestApply_PendingQueueReplaceSemantics(t *testing.T) {
	s := NewState("Jane Doe", "", 5)

	s.Apply(&Update{SetPending: []string{"q1", "q2"}, HasSetPending: true})
	assert.Equal(t, []string{"q1", "q2"}, s.PendingQueries)

	// No-change update leaves the queue alone
	s.Apply(&Update{})
	assert.Equal(t, []string{"q1", "q2"}, s.PendingQueries)

	// Explicit empty replacement clears it
	s.Apply(&Update{SetPending: []string{}, HasSetPending: true})
	assert.Empty(t, s.PendingQueries)
}

func TestApply_EntityTypeSetOnce(t *testing.T) {
	s := NewState("Jane Doe", "", 5)

	s.Apply(&Update{EntityType: "not-a-type"})
	assert.Empty(t, string(s.EntityType))

	s.Apply(&Update{EntityType: types.EntityTechExecutive})
	s.Apply(&Update{EntityType: types.EntityCelebrity})
	assert.Equal(t, types.EntityTechExecutive, s.EntityType)
}

func TestApply_DiscoveredEntityMerge(t *testing.T) {
	s := NewState("Jane Doe", "", 5)

	s.Apply(&Update{Entities: []types.Entity{
		{Name: "Jack Altman", Priority: types.PriorityMedium, Relationship: "mentioned"},
	}})
	s.Apply(&Update{Entities: []types.Entity{
		{Name: " jack altman", Priority: types.PriorityHigh, Relationship: "brother", DiscoveredAtIteration: 2},
		{Name: "Acme Corp", Priority: types.PriorityLow},
	}})

	require.Len(t, s.Discovered, 2)
	assert.Equal(t, types.PriorityHigh, s.Discovered[0].Priority)
	assert.Equal(t, "brother", s.Discovered[0].Relationship)

	// Lower priority never displaces
	s.Apply(&Update{Entities: []types.Entity{
		{Name: "JACK ALTMAN", Priority: types.PriorityLow},
	}})
	assert.Equal(t, types.PriorityHigh, s.Discovered[0].Priority)
}

func TestApply_InvestigatedNormalizedAndDeduped(t *testing.T) {
	s := NewState("Jane Doe", "", 5)

	s.Apply(&Update{Investigated: []string{"Jack Altman", " jack altman ", ""}})
	assert.Equal(t, []string{"jack altman"}, s.Investigated)
	assert.True(t, s.IsInvestigated("JACK ALTMAN"))
	assert.False(t, s.IsInvestigated("Jane Doe"))
}

func TestApply_ScalarPointers(t *testing.T) {
	s := NewState("Jane Doe", "", 5)
	require.True(t, s.ShouldContinue)

	conf := 0.42
	stop := false
	s.Apply(&Update{OverallConfidence: &conf, ShouldContinue: &stop})
	assert.Equal(t, 0.42, s.OverallConfidence)
	assert.False(t, s.ShouldContinue)

	// Nil pointers leave values untouched
	s.Apply(&Update{})
	assert.Equal(t, 0.42, s.OverallConfidence)
	assert.False(t, s.ShouldContinue)
}

func TestApply_NilUpdate(t *testing.T) {
	s := NewState("Jane Doe", "", 5)
	s.Apply(nil)
	assert.True(t, s.ShouldContinue)
}

func TestUniqueSourceCount(t *testing.T) {
	s := NewState("Jane Doe", "", 5)
	s.Apply(&Update{ContentItems: []types.ContentItem{
		{ID: "a", URL: "https://example.com/x"},
		{ID: "b", URL: "https://example.com/x"},
		{ID: "c", URL: "https://example.com/y"},
		{ID: "d"},
	}})
	assert.Equal(t, 2, s.UniqueSourceCount())
}
