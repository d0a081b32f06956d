package report

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sleuth/internal/ai"
	"sleuth/internal/research"
	"sleuth/internal/types"
)

func testState() *research.State {
	s := research.NewState("Jane Doe", types.EntityTechExecutive, 5)
	s.Apply(&research.Update{
		ExecutedQueries: []string{"jane doe overview", "jane doe investments"},
		ContentItems: []types.ContentItem{
			{ID: "a", URL: "https://www.reuters.com/a"},
			{ID: "b", URL: "https://www.reuters.com/a"},
			{ID: "c", URL: "https://techcrunch.com/b"},
		},
		Facts: []types.Fact{
			{Category: types.FactProfessional, Claim: "Jane Doe is CEO of Acme", Confidence: 0.9, SourceURL: "https://www.reuters.com/a"},
			{Category: types.FactBiographical, Claim: "Jane Doe grew up in Ohio", Confidence: 0.35, SourceURL: "https://techcrunch.com/b"},
		},
		Connections: []types.Connection{
			{TargetEntity: "Acme Corp", RelationType: "employment"},
			{TargetEntity: "Jack O'Doe", RelationType: "personal"},
		},
		Risks: []types.Risk{
			{Category: "legal", Description: "pending lawsuit", Severity: types.SeverityHigh, Confidence: 0.8},
			{Category: "financial", Description: "late filings", Severity: types.SeverityLow, Confidence: 0.4},
		},
		Entities: []types.Entity{
			{Name: "Jack O'Doe", Priority: types.PriorityHigh, Relationship: "brother"},
		},
		Investigated:    []string{"acme corp"},
		InformationGaps: []string{"early career"},
		Audit: []types.AuditEntry{
			{Node: "plan", Iteration: 0, Payload: map[string]any{"initial_queries": []string{"q1", "q2"}}},
			{Node: "search", Iteration: 0, Payload: map[string]any{"results_count": 3}},
			{Node: "search", Iteration: 1, Payload: map[string]any{"results_count": 1}},
		},
	})
	conf := 0.63
	s.Apply(&research.Update{OverallConfidence: &conf, IterationDelta: 2})
	return s
}

func newTestGenerator(t *testing.T) *Generator {
	t.Helper()
	g, err := NewGenerator(t.TempDir())
	require.NoError(t, err)
	g.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return g
}

func TestRender_ContainsAllSections(t *testing.T) {
	g := newTestGenerator(t)
	content := g.Render(context.Background(), testState())

	assert.Contains(t, content, "# Research Report: Jane Doe")
	assert.Contains(t, content, "## Executive Summary")
	assert.Contains(t, content, "### Professional")
	assert.Contains(t, content, "### Biographical")
	assert.Contains(t, content, "```mermaid")
	assert.Contains(t, content, "### High Severity")
	assert.Contains(t, content, "**[LEGAL]** pending lawsuit")
	assert.Contains(t, content, "- **Queries Executed**: 2")
	assert.Contains(t, content, "## Discovered Entities")
	assert.Contains(t, content, "| Jack O'Doe | high | brother | no |")
	// Duplicate URLs collapse in the source list
	assert.Contains(t, content, "- **Sources Consulted**: 2")
	assert.Contains(t, content, "1. https://www.reuters.com/a")
}

func TestRender_EmptyState(t *testing.T) {
	g := newTestGenerator(t)
	content := g.Render(context.Background(), research.NewState("Nobody", "", 3))

	assert.Contains(t, content, "_No significant connections identified_")
	assert.Contains(t, content, "_No significant risks identified_")
	assert.Contains(t, content, "**Total Facts Discovered**: 0")
}

func TestFactsTable_FiltersAndFormats(t *testing.T) {
	facts := []types.Fact{
		{Category: types.FactFinancial, Claim: "invested in X", Confidence: 0.7, SourceURL: "https://www.wsj.com/x"},
		{Category: types.FactEvents, Claim: "unrelated", Confidence: 0.5},
	}
	table := FactsTable(facts, types.FactFinancial)
	assert.Contains(t, table, "| invested in X | 70% | www.wsj.com |")
	assert.NotContains(t, table, "unrelated")

	assert.Empty(t, FactsTable(facts, types.FactBiographical))
}

func TestConnectionDiagram_CapsAndSanitizes(t *testing.T) {
	var connections []types.Connection
	for i := 0; i < 20; i++ {
		connections = append(connections, types.Connection{TargetEntity: "Jack O'Doe", RelationType: "personal"})
	}
	diagram := ConnectionDiagram(connections)

	assert.Equal(t, maxDiagramConnections, strings.Count(diagram, "TARGET -->"))
	assert.Contains(t, diagram, "|personal| Jack_ODoe")
	assert.Empty(t, ConnectionDiagram(nil))
}

func TestSaveReport_WritesFile(t *testing.T) {
	g := newTestGenerator(t)
	path, err := g.SaveReport(context.Background(), testState())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "entity: Jane Doe")
	assert.True(t, strings.HasSuffix(path, ".md"))
	assert.Contains(t, path, "jane_doe_20250601_120000")
}

type synthClient struct {
	response string
	err      error
}

func (s *synthClient) Complete(ctx context.Context, role ai.Role, prompt string) (string, error) {
	return s.response, s.err
}

func TestExecutiveSummary_UsesSynthesizer(t *testing.T) {
	g := newTestGenerator(t).WithSynthesizer(&synthClient{
		response: "```markdown\nJane Doe leads Acme Corp.\n```",
	})
	content := g.Render(context.Background(), testState())
	assert.Contains(t, content, "Jane Doe leads Acme Corp.")
	assert.NotContains(t, content, "```markdown")
}

func TestExecutiveSummary_FallsBackOnError(t *testing.T) {
	g := newTestGenerator(t).WithSynthesizer(&synthClient{err: errors.New("provider down")})
	content := g.Render(context.Background(), testState())
	assert.Contains(t, content, "Investigation completed with 2 research iterations.")
}

func TestStripMarkdownFence(t *testing.T) {
	assert.Equal(t, "body", stripMarkdownFence("```markdown\nbody\n```"))
	assert.Equal(t, "body", stripMarkdownFence("```\nbody\n```"))
	assert.Equal(t, "plain", stripMarkdownFence("plain"))
}
