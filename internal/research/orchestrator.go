package research

import (
	"context"
	"fmt"
	"os"
	"time"

	"sleuth/internal/ai"
	"sleuth/internal/analyze"
	"sleuth/internal/config"
	"sleuth/internal/extract"
	"sleuth/internal/scrape"
	"sleuth/internal/search"
	"sleuth/internal/types"
	"sleuth/internal/validate"
)

// node identifies one state in the investigation machine.
type node string

const (
	nodePlan     node = "plan"
	nodeSearch   node = "search"
	nodeExtract  node = "extract"
	nodeAnalyze  node = "analyze"
	nodeValidate node = "validate"
	nodeRefine   node = "refine"
	nodeReport   node = "report"
	nodeDone     node = "done"
)

// AuditSink receives audit entries as they are produced, so a crash
// mid-run still leaves a persisted trail. A nil sink disables streaming.
type AuditSink interface {
	AppendAuditEntries(ctx context.Context, runID string, entries []types.AuditEntry) error
}

// Orchestrator wires the pipeline components into the investigation loop.
// All dependencies are injected; it holds no global state.
type Orchestrator struct {
	cfg       config.Config
	client    ai.Client
	searcher  search.Searcher
	fetcher   scrape.Fetcher
	extractor *extract.Extractor
	analyzer  *analyze.Analyzer

	runID string
	sink  AuditSink

	// budget is the hard step ceiling, set from config at construction.
	budget int
}

// New creates an orchestrator from its components.
func New(cfg config.Config, client ai.Client, searcher search.Searcher, fetcher scrape.Fetcher) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		client:    client,
		searcher:  searcher,
		fetcher:   fetcher,
		extractor: extract.New(client, cfg.MaxParallelExtractions),
		analyzer:  analyze.New(client),
		budget:    cfg.StepBudget(),
	}
}

// WithAuditSink streams every node's audit entries to sink under runID.
func (o *Orchestrator) WithAuditSink(runID string, sink AuditSink) *Orchestrator {
	o.runID = runID
	o.sink = sink
	return o
}

// Run executes a full investigation and returns the terminal state. The
// loop halts when refine decides to stop, when the query queue empties,
// or when the step budget is exhausted, whichever comes first; the budget
// is authoritative over every other signal.
func (o *Orchestrator) Run(ctx context.Context, entity string, entityType types.EntityType) (*State, error) {
	if entity == "" {
		return nil, fmt.Errorf("research: entity must not be empty")
	}

	state := NewState(entity, entityType, o.cfg.MaxDepth)

	current := nodePlan
	for steps := 0; current != nodeDone; steps++ {
		if steps >= o.budget && current != nodeReport {
			fmt.Fprintf(os.Stderr, "research: step budget %d exhausted, forcing report\n", o.budget)
			current = nodeReport
		}

		update, next := o.step(ctx, current, state)
		state.Apply(update)
		o.streamAudit(ctx, update)

		if err := ctx.Err(); err != nil {
			return state, fmt.Errorf("research: investigation interrupted: %w", err)
		}
		current = next
	}

	return state, nil
}

// step dispatches one node and names its successor. The refine→search
// back-edge is the machine's only cycle.
func (o *Orchestrator) step(ctx context.Context, current node, state *State) (*Update, node) {
	switch current {
	case nodePlan:
		return o.planNode(ctx, state), nodeSearch
	case nodeSearch:
		return o.searchNode(ctx, state), nodeExtract
	case nodeExtract:
		return o.extractNode(ctx, state), nodeAnalyze
	case nodeAnalyze:
		return o.analyzeNode(ctx, state), nodeValidate
	case nodeValidate:
		return o.validateNode(ctx, state), nodeRefine
	case nodeRefine:
		update := o.refineNode(ctx, state)
		if update.ShouldContinue != nil && *update.ShouldContinue {
			return update, nodeSearch
		}
		return update, nodeReport
	case nodeReport:
		return o.reportNode(state), nodeDone
	default:
		return nil, nodeDone
	}
}

// extractNode fans extraction out over the content corpus and merges the
// per-item results.
func (o *Orchestrator) extractNode(ctx context.Context, state *State) *Update {
	result := o.extractor.Run(ctx, state.Entity, state.ContentItems, state.Iteration)

	return &Update{
		Facts:    result.Facts,
		Entities: result.Entities,
		Audit: []types.AuditEntry{newAuditEntry("extract", state.Iteration, map[string]any{
			"items_processed":     result.ItemsProcessed,
			"items_failed":        result.ItemsFailed,
			"facts_extracted":     len(result.Facts),
			"entities_discovered": len(result.Entities),
		})},
	}
}

// analyzeNode appends this round's risk and connection findings.
func (o *Orchestrator) analyzeNode(ctx context.Context, state *State) *Update {
	result := o.analyzer.Run(ctx, state.Entity, state.Facts)

	return &Update{
		Risks:       result.Risks,
		Connections: result.Connections,
		Audit: []types.AuditEntry{newAuditEntry("analyze", state.Iteration, map[string]any{
			"risks_found":       len(result.Risks),
			"connections_found": len(result.Connections),
		})},
	}
}

// validateNode replaces the fact list with corroboration-scored versions
// and recomputes overall confidence. Validation is deterministic, so this
// node never fails.
func (o *Orchestrator) validateNode(_ context.Context, state *State) *Update {
	validated, summary := validate.Batch(state.Facts, state.ContentItems)
	overall := validate.OverallConfidence(validated)

	if validated == nil {
		validated = []types.Fact{}
	}
	return &Update{
		ValidatedFacts:    validated,
		OverallConfidence: &overall,
		Audit: []types.AuditEntry{newAuditEntry("validate", state.Iteration, map[string]any{
			"total_facts":           summary.TotalFacts,
			"avg_confidence":        summary.AvgConfidence,
			"high_confidence_count": summary.HighConfidenceCount,
			"overall_confidence":    overall,
		})},
	}
}

// reportNode closes the loop: it pins shouldContinue false and records the
// final tallies. Actual report rendering happens outside the machine, on
// the frozen terminal state.
func (o *Orchestrator) reportNode(state *State) *Update {
	stop := false
	return &Update{
		ShouldContinue: &stop,
		Audit: []types.AuditEntry{newAuditEntry("report", state.Iteration, map[string]any{
			"facts":              len(state.Facts),
			"connections":        len(state.Connections),
			"risks":              len(state.Risks),
			"iterations":         state.Iteration,
			"overall_confidence": state.OverallConfidence,
		})},
	}
}

func (o *Orchestrator) streamAudit(ctx context.Context, update *Update) {
	if o.sink == nil || update == nil || len(update.Audit) == 0 {
		return
	}
	if err := o.sink.AppendAuditEntries(ctx, o.runID, update.Audit); err != nil {
		fmt.Fprintf(os.Stderr, "research: persisting audit entries: %v\n", err)
	}
}

func newAuditEntry(name string, iteration int, payload map[string]any) types.AuditEntry {
	return types.AuditEntry{
		Node:      name,
		Iteration: iteration,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}
