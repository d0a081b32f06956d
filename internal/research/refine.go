package research

import (
	"context"
	"fmt"
	"strings"

	"sleuth/internal/ai"
	"sleuth/internal/leads"
	"sleuth/internal/types"
)

// Refinement prompt bounds.
const (
	maxRecentClaimsInPrompt = 10
	maxLeadsInPrompt        = 10
)

// refinePayload mirrors the planner's refinement JSON output.
type refinePayload struct {
	Reasoning        string   `json:"reasoning"`
	NextQueries      []string `json:"next_queries"`
	EntitiesTargeted []string `json:"entities_to_investigate_this_round"`
}

// refineNode is the sole decision point of the loop and the only place
// the iteration counter moves. It asks the planner for the next round of
// queries, marks the entities those queries target as investigated, and
// computes the continuation predicate:
//
//	shouldContinue = iteration < maxDepth
//	              AND newQueries non-empty
//	              AND (overallConfidence < threshold OR high-priority leads remain)
//
// The high-priority override is deliberate: confidence alone never
// short-circuits second-order investigation while unexplored high-value
// leads (family, co-founders) exist.
func (o *Orchestrator) refineNode(ctx context.Context, state *State) *Update {
	fmt.Println("research: refining search strategy")

	iteration := state.Iteration + 1
	update := &Update{IterationDelta: 1, HasSetPending: true, SetPending: []string{}}

	var newQueries []string
	var targeted []string

	response, err := o.client.Complete(ctx, ai.RolePlanner, o.buildRefinementPrompt(state))
	if err != nil {
		fmt.Printf("research: refinement failed, ending investigation: %v\n", err)
	} else if parsed := ai.Parse[refinePayload](response); parsed.Success {
		newQueries = parsed.Data.NextQueries
		targeted = parsed.Data.EntitiesTargeted
	} else {
		fmt.Printf("research: malformed refinement response, ending investigation\n")
	}

	update.SetPending = newQueries
	update.Investigated = targeted

	remaining := leads.HighPriorityPending(state.Discovered, state.IsInvestigated, targeted)
	if len(remaining) > 0 {
		fmt.Printf("research: %d uninvestigated high-priority leads remain\n", len(remaining))
	}

	shouldContinue := iteration < state.MaxDepth &&
		len(newQueries) > 0 &&
		(state.OverallConfidence < o.cfg.ConfidenceThreshold || len(remaining) > 0)
	update.ShouldContinue = &shouldContinue

	update.Audit = []types.AuditEntry{newAuditEntry("refine", iteration, map[string]any{
		"new_queries":         newQueries,
		"entities_targeted":   targeted,
		"high_priority_leads": len(remaining),
		"overall_confidence":  state.OverallConfidence,
		"should_continue":     shouldContinue,
	})}
	return update
}

func (o *Orchestrator) buildRefinementPrompt(state *State) string {
	recent := state.Facts
	if len(recent) > maxRecentClaimsInPrompt {
		recent = recent[len(recent)-maxRecentClaimsInPrompt:]
	}
	var claims strings.Builder
	for _, f := range recent {
		fmt.Fprintf(&claims, "- %s\n", f.Claim)
	}

	findings := fmt.Sprintf(`Facts discovered: %d
Connections mapped: %d
Risks identified: %d

Recent facts:
%s`, len(state.Facts), len(state.Connections), len(state.Risks), claims.String())

	gaps := "- (none recorded)"
	if len(state.InformationGaps) > 0 {
		gaps = "- " + strings.Join(state.InformationGaps, "\n- ")
	}

	pending := leads.Top(state.Discovered, state.IsInvestigated, maxLeadsInPrompt)
	entitiesText := "NONE YET"
	if len(pending) > 0 {
		var b strings.Builder
		for _, e := range pending {
			fmt.Fprintf(&b, "- %s: %s (Priority: %s)\n", e.Name, e.Relationship, e.Priority)
		}
		entitiesText = b.String()
	}

	return fmt.Sprintf(`You are refining your investigation of: %s

=== PREVIOUS FINDINGS ===
%s

=== REMAINING INFORMATION GAPS ===
%s

=== DISCOVERED ENTITIES REQUIRING INVESTIGATION ===
%s

=== YOUR TASK ===

Generate the NEXT ROUND of search queries using a TWO-TRACK APPROACH:

TRACK 1: FILL INFORMATION GAPS (30-40%% of queries)
- Address specific missing information
- Verify uncertain facts

TRACK 2: INVESTIGATE DISCOVERED ENTITIES (60-70%% of queries) **CRITICAL**
- For each uninvestigated entity, generate 1-2 targeted queries
- Focus on their relationship to the main entity
- Uncover their background and significance

This is the KEY to finding hidden facts!

=== EXAMPLES ===

IF you discovered: "Jack Altman (brother, CEO)"
GENERATE queries like:
- "Jack Altman Lattice CEO founder"
- "Jack Altman career background"

IF you discovered: "Hydrazine Capital (investment firm)"
GENERATE queries like:
- "Hydrazine Capital founders partners"
- "Hydrazine Capital investment portfolio"

=== CRITICAL RULES ===
- Make queries SPECIFIC using discovered names and organizations
- Investigate HIGH PRIORITY entities first (family, co-founders)
- DO NOT repeat queries from previous rounds
- DO NOT use generic queries ("[entity] information")

=== OUTPUT FORMAT (JSON) ===

{
  "reasoning": "Which entities you're investigating and why, plus which gaps you're filling",
  "next_queries": ["query 1", "query 2", "query 3"],
  "entities_to_investigate_this_round": ["entity names targeted by these queries"]
}

Generate 5-7 queries. Provide your response as valid JSON only.`,
		state.Entity, findings, gaps, entitiesText)
}
