package report

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sleuth/internal/research"
	"sleuth/internal/types"
)

func TestBuildSnapshot_CountsAndSets(t *testing.T) {
	g := newTestGenerator(t)
	snap := g.BuildSnapshot(testState())

	assert.Equal(t, "Jane Doe", snap.Entity)
	assert.Equal(t, "tech_executive", snap.EntityType)
	assert.Equal(t, 2, snap.Metadata.IterationCount)
	assert.Equal(t, 5, snap.Metadata.MaxDepth)
	assert.Equal(t, 0.63, snap.Metadata.OverallConfidence)

	assert.Equal(t, 2, snap.Counts.TotalFacts)
	assert.Equal(t, 2, snap.Counts.TotalConnections)
	assert.Equal(t, 2, snap.Counts.TotalRisks)
	assert.Equal(t, 2, snap.Counts.TotalSources) // duplicate URL collapsed
	assert.Equal(t, 2, snap.Counts.TotalQueries)
	assert.Equal(t, 1, snap.Counts.EntitiesDiscovered)
	assert.Equal(t, 1, snap.Counts.EntitiesInvestigated)

	assert.Equal(t, []string{"acme corp"}, snap.Entities.Investigated)
	assert.Equal(t, []string{"early career"}, snap.Data.InformationGaps)
}

func TestBuildSnapshot_EmptyCollectionsNotNull(t *testing.T) {
	g := newTestGenerator(t)
	snap := g.BuildSnapshot(research.NewState("Nobody", "", 3))

	data, err := json.Marshal(snap)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "null")
}

func TestSaveSnapshot_RoundTrips(t *testing.T) {
	g := newTestGenerator(t)
	path, err := g.SaveSnapshot(testState())
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded Snapshot
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "Jane Doe", decoded.Entity)
	assert.Len(t, decoded.Data.FactsDiscovered, 2)
	assert.Contains(t, path, "_state_")
}

func TestAuditSummary_GroupsByNode(t *testing.T) {
	summary := AuditSummary(testState().AuditTrail)

	assert.Contains(t, summary, "## Plan (1 calls)")
	assert.Contains(t, summary, "## Search (2 calls)")
	assert.Contains(t, summary, "### Call 2 (Iteration 1)")
	assert.Contains(t, summary, "- **initial_queries**: 2 items")
	assert.Contains(t, summary, "- **results_count**: 3")
}

func TestSaveAuditTrail_WritesEnvelope(t *testing.T) {
	g := newTestGenerator(t)
	path, err := g.SaveAuditTrail(testState())
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var envelope struct {
		Entity     string             `json:"entity"`
		TotalSteps int                `json:"total_steps"`
		Trail      []types.AuditEntry `json:"trail"`
	}
	require.NoError(t, json.Unmarshal(raw, &envelope))
	assert.Equal(t, "Jane Doe", envelope.Entity)
	assert.Equal(t, 3, envelope.TotalSteps)
	assert.Len(t, envelope.Trail, 3)
}

func TestSaveAuditSummary_WritesFile(t *testing.T) {
	g := newTestGenerator(t)
	path, err := g.SaveAuditSummary(testState())
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "# Audit Trail Summary")
}
