package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"sleuth/internal/research"
	"sleuth/internal/types"
)

// Snapshot is the persisted-state contract consumed by external
// evaluation tooling. Field names and structure are load-bearing; do not
// rename tags.
type Snapshot struct {
	Entity      string           `json:"entity"`
	EntityType  string           `json:"entity_type"`
	GeneratedAt time.Time        `json:"generated_at"`
	Metadata    SnapshotMetadata `json:"metadata"`
	Queries     SnapshotQueries  `json:"queries"`
	Entities    SnapshotEntities `json:"entities"`
	Data        SnapshotData     `json:"data"`
	Counts      SnapshotCounts   `json:"counts"`
}

type SnapshotMetadata struct {
	IterationCount    int     `json:"iteration_count"`
	ResearchDepth     int     `json:"research_depth"`
	MaxDepth          int     `json:"max_depth"`
	OverallConfidence float64 `json:"overall_confidence"`
	ShouldContinue    bool    `json:"should_continue"`
}

type SnapshotQueries struct {
	Executed []string `json:"executed"`
	Next     []string `json:"next"`
}

type SnapshotEntities struct {
	ToInvestigate []types.Entity `json:"to_investigate"`
	Investigated  []string       `json:"investigated"`
}

type SnapshotData struct {
	FactsDiscovered []types.Fact       `json:"facts_discovered"`
	Connections     []types.Connection `json:"connections"`
	RisksIdentified []types.Risk       `json:"risks_identified"`
	Sources         []string           `json:"sources"`
	InformationGaps []string           `json:"information_gaps"`
}

type SnapshotCounts struct {
	TotalFacts           int `json:"total_facts"`
	TotalConnections     int `json:"total_connections"`
	TotalRisks           int `json:"total_risks"`
	TotalSources         int `json:"total_sources"`
	TotalQueries         int `json:"total_queries"`
	EntitiesDiscovered   int `json:"entities_discovered"`
	EntitiesInvestigated int `json:"entities_investigated"`
}

// BuildSnapshot converts a terminal state into the snapshot contract.
func (g *Generator) BuildSnapshot(state *research.State) Snapshot {
	sources := uniqueSources(state)

	return Snapshot{
		Entity:      state.Entity,
		EntityType:  string(state.EntityType),
		GeneratedAt: g.now().UTC(),
		Metadata: SnapshotMetadata{
			IterationCount:    state.Iteration,
			ResearchDepth:     state.PlanningDepth,
			MaxDepth:          state.MaxDepth,
			OverallConfidence: state.OverallConfidence,
			ShouldContinue:    state.ShouldContinue,
		},
		Queries: SnapshotQueries{
			Executed: emptyNotNil(state.ExecutedQueries),
			Next:     emptyNotNil(state.PendingQueries),
		},
		Entities: SnapshotEntities{
			ToInvestigate: emptyNotNil(state.Discovered),
			Investigated:  emptyNotNil(state.Investigated),
		},
		Data: SnapshotData{
			FactsDiscovered: emptyNotNil(state.Facts),
			Connections:     emptyNotNil(state.Connections),
			RisksIdentified: emptyNotNil(state.Risks),
			Sources:         emptyNotNil(sources),
			InformationGaps: emptyNotNil(state.InformationGaps),
		},
		Counts: SnapshotCounts{
			TotalFacts:           len(state.Facts),
			TotalConnections:     len(state.Connections),
			TotalRisks:           len(state.Risks),
			TotalSources:         len(sources),
			TotalQueries:         len(state.ExecutedQueries),
			EntitiesDiscovered:   len(state.Discovered),
			EntitiesInvestigated: len(state.Investigated),
		},
	}
}

// SaveSnapshot writes the JSON snapshot next to the report, returning the
// file path.
func (g *Generator) SaveSnapshot(state *research.State) (string, error) {
	snapshot := g.BuildSnapshot(state)
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding snapshot: %w", err)
	}

	path := filepath.Join(g.outputDir, g.filename(state.Entity, "state", "json"))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing snapshot: %w", err)
	}
	fmt.Printf("report: state snapshot saved to %s\n", path)
	return path, nil
}

// emptyNotNil keeps snapshot collections as [] rather than null so
// downstream JSON consumers can index unconditionally.
func emptyNotNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
