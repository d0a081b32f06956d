package research

import (
	"context"
	"fmt"
	"strings"

	"sleuth/internal/ai"
	"sleuth/internal/types"
)

// Keyword heuristics for entity classification, checked before spending a
// completion call.
var (
	orgIndicators = []string{
		"inc", "corp", "llc", "ltd", "foundation", "organization", "company",
		"university", "institute", "association", "group", "ventures",
	}
	politicalTitles = []string{
		"president", "senator", "governor", "congressman", "mayor", "minister",
	}
	techSurnames = []string{
		"altman", "musk", "zuckerberg", "bezos", "cook", "nadella", "pichai",
		"buterin", "dorsey", "kalanick", "chesky", "systrom", "holmes",
	}
	academicTitles = []string{"dr.", "prof.", "phd"}
)

// DetectEntityType classifies the target with cheap keyword heuristics
// first and one completion call for anything unrecognized. Classification
// failure falls back to individual; it never blocks the run.
func DetectEntityType(ctx context.Context, client ai.Client, entity string) types.EntityType {
	lower := strings.ToLower(entity)

	for _, ind := range orgIndicators {
		if strings.Contains(lower, ind) {
			return types.EntityOrganization
		}
	}
	for _, title := range politicalTitles {
		if strings.Contains(lower, title) {
			return types.EntityPolitician
		}
	}
	for _, name := range techSurnames {
		if strings.Contains(lower, name) {
			return types.EntityTechExecutive
		}
	}
	for _, term := range academicTitles {
		if strings.Contains(lower, term) {
			return types.EntityScientist
		}
	}

	if client == nil {
		return types.EntityIndividual
	}
	response, err := client.Complete(ctx, ai.RolePlanner, buildClassificationPrompt(entity))
	if err != nil {
		return types.EntityIndividual
	}
	detected := strings.ToLower(strings.TrimSpace(strings.ReplaceAll(response, ":", "")))
	if types.ValidEntityType(detected) {
		return types.EntityType(detected)
	}
	return types.EntityIndividual
}

func buildClassificationPrompt(entity string) string {
	return fmt.Sprintf(`Classify this entity into ONE category.

Entity: %s

Categories:
- tech_executive: Technology company executives, founders, CTOs
- politician: Government officials, elected representatives, political figures
- entrepreneur: Business founders, startup CEOs (non-tech sectors)
- celebrity: Actors, musicians, athletes, entertainers, public figures
- scientist: Researchers, academics, Nobel laureates, professors
- organization: Companies, institutions, funds, nonprofits
- individual: Any other person (default)

IMPORTANT: Respond with ONLY the category name (one word), nothing else.

Category:`, entity)
}

// planPayload mirrors the planner's JSON output.
type planPayload struct {
	EntityType      string   `json:"entity_type"`
	Strategy        string   `json:"strategy"`
	InitialQueries  []string `json:"initial_queries"`
	InformationGaps []string `json:"information_gaps"`
	RiskHypotheses  []string `json:"risk_hypotheses"`
}

// planNode runs exactly once per investigation: it classifies the target,
// asks the planner for an opening strategy, and seeds the query queue. A
// failed or malformed planning call degrades to an empty update; with no
// queries the run ends after one empty iteration rather than halting here.
func (o *Orchestrator) planNode(ctx context.Context, state *State) *Update {
	fmt.Printf("research: planning investigation of %q\n", state.Entity)

	entityType := state.EntityType
	if entityType == "" {
		entityType = DetectEntityType(ctx, o.client, state.Entity)
	}

	update := &Update{EntityType: entityType, PlanningDepthDelta: 1}

	response, err := o.client.Complete(ctx, ai.RolePlanner, buildPlannerPrompt(state.Entity, entityType))
	if err != nil {
		update.Audit = []types.AuditEntry{newAuditEntry("plan", state.Iteration, map[string]any{
			"error": err.Error(),
		})}
		return update
	}

	parsed := ai.Parse[planPayload](response)
	if !parsed.Success {
		update.Audit = []types.AuditEntry{newAuditEntry("plan", state.Iteration, map[string]any{
			"error": "malformed planning response: " + parsed.Error,
		})}
		return update
	}

	if types.ValidEntityType(parsed.Data.EntityType) {
		update.EntityType = types.EntityType(parsed.Data.EntityType)
	}
	update.SetPending = parsed.Data.InitialQueries
	update.HasSetPending = true
	update.InformationGaps = parsed.Data.InformationGaps

	update.Audit = []types.AuditEntry{newAuditEntry("plan", state.Iteration, map[string]any{
		"entity_type":     string(update.EntityType),
		"strategy":        parsed.Data.Strategy,
		"initial_queries": parsed.Data.InitialQueries,
	})}
	return update
}

// fewShotQueryExamples returns query guidance tuned to the entity type.
func fewShotQueryExamples(entityType types.EntityType) string {
	switch entityType {
	case types.EntityTechExecutive:
		return `FEW-SHOT QUERY EXAMPLES:
GOOD: "[entity] Hydrazine Capital investment" (targets lesser-known ventures)
GOOD: "[entity] Reddit interim CEO 2014" (brief roles with dates)
GOOD: "[entity] family brother sister connections" (personal networks)
BAD: "[entity] information" or "[entity] news" (too generic)
TARGET PATTERNS: Investment firms, family members, brief roles, early career, controversies`
	case types.EntityOrganization:
		return `FEW-SHOT QUERY EXAMPLES:
GOOD: "[entity] founders investors SEC filings"
GOOD: "[entity] board members acquisitions litigation"
BAD: "[entity] about" or "products" (misses connections)`
	default:
		return `FEW-SHOT QUERY EXAMPLES:
GOOD: "[entity] career history board memberships"
GOOD: "[entity] family connections investments"
BAD: "[entity] bio" or "latest news" (too generic)`
	}
}

func buildPlannerPrompt(entity string, entityType types.EntityType) string {
	return fmt.Sprintf(`You are an expert research strategist conducting a DEEP, COMPREHENSIVE investigation on: %s

ENTITY TYPE DETECTED: %s

=== MISSION ===
Uncover HIDDEN, LESSER-KNOWN facts that require investigative depth, not just surface-level information.

TARGET CATEGORIES:
1. Biographical & Professional Background (education, early career, current roles)
2. Financial Connections (investments, business interests, wealth sources)
3. HIDDEN FACTS (brief roles, family connections, unlisted ventures)
4. Risk Factors (controversies, lawsuits, regulatory issues)
5. Network of Related Entities (people and organizations to investigate further)

=== STRATEGIC APPROACH ===

1. DEPTH LAYERS (Progress from obvious to hidden):
- Layer 1: Overview (Wikipedia, LinkedIn, news)
- Layer 2: Professional connections (SEC, boards, investments)
- Layer 3: HIDDEN FACTS (family, brief roles, unlisted ventures, early career)
- Layer 4: Second-order entities (investigate discovered people/orgs)

2. QUERY FORMULATION:
- Generate 6-8 queries across layers (1-2 broad, 4-6 investigative)
- Use specific names, dates, organizations (not "[entity] information")
- Target multiple source types (news, SEC, court records, LinkedIn)

%s

SOURCE STRATEGIES:
- Professional: LinkedIn, Crunchbase, company bios
- Financial: SEC filings, investment databases, court records
- Public Records: Congressional testimony, patents
- Media: News archives, industry publications
- Personal: Family connections, education, early career

=== OUTPUT FORMAT (JSON) ===

{
  "entity_type": "%s",
  "strategy": "High-level approach (2-3 sentences)",
  "initial_queries": ["Layer 1 query", "Layer 2 query", "Layer 3 query"],
  "information_gaps": ["Expected gaps needing deeper investigation"],
  "risk_hypotheses": ["Potential concerns based on entity type"]
}

Provide valid JSON only. Make queries SPECIFIC and INVESTIGATIVE!`,
		entity, entityType, fewShotQueryExamples(entityType), entityType)
}
