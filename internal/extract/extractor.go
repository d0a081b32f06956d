// Package extract turns retrieved content into candidate facts and
// candidate related entities. Extraction fans out across content items in
// parallel; a failure on any single item degrades to zero facts for that
// item and never fails the batch.
package extract

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"sleuth/internal/ai"
	"sleuth/internal/types"
)

// Work caps per iteration, independent of how large the content corpus
// grows: consider the newest maxRecentItems, process the top maxItems by
// relevance.
const (
	maxRecentItems = 20
	maxItems       = 10
)

// contentTruncateLen bounds how much page text goes into one extraction
// prompt.
const contentTruncateLen = 3000

// Extractor runs fact/entity extraction through the completion capability.
type Extractor struct {
	client      ai.Client
	maxParallel int
}

// New creates an extractor. maxParallel bounds the fan-out width
// (default 10).
func New(client ai.Client, maxParallel int) *Extractor {
	if maxParallel <= 0 {
		maxParallel = 10
	}
	return &Extractor{client: client, maxParallel: maxParallel}
}

// Result is the merged output of one extraction round.
type Result struct {
	Facts    []types.Fact
	Entities []types.Entity
	// ItemsProcessed and ItemsFailed feed the audit payload.
	ItemsProcessed int
	ItemsFailed    int
}

// extractionPayload mirrors the JSON structure the researcher model is
// prompted to produce.
type extractionPayload struct {
	Facts []struct {
		Category   string  `json:"category"`
		Claim      string  `json:"claim"`
		Confidence float64 `json:"confidence"`
		IsHidden   bool    `json:"is_hidden"`
	} `json:"facts"`
	KeyEntitiesMentioned []struct {
		Name         string `json:"name"`
		Priority     string `json:"priority"`
		Relationship string `json:"relationship"`
	} `json:"key_entities_mentioned"`
}

// itemResult is one worker's isolated output; merging happens only after
// all workers join.
type itemResult struct {
	facts    []types.Fact
	entities []types.Entity
	failed   bool
}

// Run extracts facts and entities from the content corpus for the current
// iteration. Items are processed independently and in parallel.
func (e *Extractor) Run(ctx context.Context, entity string, items []types.ContentItem, iteration int) Result {
	selected := SelectItems(items)
	if len(selected) == 0 {
		return Result{}
	}

	fmt.Printf("extract: processing %d content items in parallel\n", len(selected))

	results := make([]itemResult, len(selected))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxParallel)

	for i, item := range selected {
		g.Go(func() error {
			results[i] = e.extractFromItem(gctx, entity, item)
			// Worker errors are absorbed into the per-item result; the
			// group error is only ever nil.
			return nil
		})
	}
	_ = g.Wait()

	out := Result{ItemsProcessed: len(selected)}
	var rawEntities []types.Entity
	for _, r := range results {
		if r.failed {
			out.ItemsFailed++
		}
		out.Facts = append(out.Facts, r.facts...)
		rawEntities = append(rawEntities, r.entities...)
	}

	out.Entities = Dedup(rawEntities, iteration)

	fmt.Printf("extract: %d facts, %d unique entities (from %d raw mentions, %d items failed)\n",
		len(out.Facts), len(out.Entities), len(rawEntities), out.ItemsFailed)
	return out
}

// SelectItems picks the extraction working set: the newest maxRecentItems,
// ranked by relevance descending, truncated to maxItems. The sort is
// stable so equal-relevance items keep their retrieval order.
func SelectItems(items []types.ContentItem) []types.ContentItem {
	recent := items
	if len(recent) > maxRecentItems {
		recent = recent[len(recent)-maxRecentItems:]
	}

	withText := make([]types.ContentItem, 0, len(recent))
	for _, item := range recent {
		if strings.TrimSpace(item.Text) != "" {
			withText = append(withText, item)
		}
	}

	sort.SliceStable(withText, func(i, j int) bool {
		return withText[i].Relevance > withText[j].Relevance
	})

	if len(withText) > maxItems {
		withText = withText[:maxItems]
	}
	return withText
}

// extractFromItem runs one completion call for one content item. All
// failure modes (call error, malformed JSON) degrade to an empty result.
func (e *Extractor) extractFromItem(ctx context.Context, entity string, item types.ContentItem) itemResult {
	prompt := buildExtractionPrompt(entity, item)

	response, err := e.client.Complete(ctx, ai.RoleResearcher, prompt)
	if err != nil {
		fmt.Fprintf(os.Stderr, "extract: completion failed for %s: %v\n", item.URL, err)
		return itemResult{failed: true}
	}

	parsed := ai.Parse[extractionPayload](response)
	if !parsed.Success {
		fmt.Fprintf(os.Stderr, "extract: malformed response for %s: %s\n", item.URL, parsed.Error)
		return itemResult{failed: true}
	}

	var out itemResult
	for _, f := range parsed.Data.Facts {
		claim := strings.TrimSpace(f.Claim)
		if claim == "" {
			continue
		}
		out.facts = append(out.facts, types.Fact{
			Category:  normalizeCategory(f.Category),
			Claim:     claim,
			SourceURL: item.URL,
			IsHidden:  f.IsHidden,
			// Self-reported confidence is intentionally dropped; the
			// validator recomputes it from corroboration.
		})
	}
	for _, raw := range parsed.Data.KeyEntitiesMentioned {
		name := strings.TrimSpace(raw.Name)
		if name == "" {
			continue
		}
		priority := types.Priority(raw.Priority)
		if priority.Rank() == 0 {
			priority = types.PriorityMedium
		}
		relationship := raw.Relationship
		if relationship == "" {
			relationship = "Unknown"
		}
		out.entities = append(out.entities, types.Entity{
			Name:         name,
			Priority:     priority,
			Relationship: relationship,
		})
	}
	return out
}

// normalizeCategory maps free-form category strings onto the known set,
// defaulting to patterns for anything unrecognized.
func normalizeCategory(s string) types.FactCategory {
	switch types.FactCategory(strings.ToLower(strings.TrimSpace(s))) {
	case types.FactBiographical:
		return types.FactBiographical
	case types.FactProfessional:
		return types.FactProfessional
	case types.FactFinancial:
		return types.FactFinancial
	case types.FactRelationships:
		return types.FactRelationships
	case types.FactEvents:
		return types.FactEvents
	default:
		return types.FactPatterns
	}
}

// NormalizeName is the dedup key for entity names.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Dedup collapses raw entity mentions to one record per normalized name.
// On collision the higher-priority record survives; ties keep the first
// seen. Every accepted entity is stamped with the current iteration.
func Dedup(raw []types.Entity, iteration int) []types.Entity {
	seen := make(map[string]types.Entity)
	var order []string

	for _, entity := range raw {
		key := NormalizeName(entity.Name)
		if key == "" {
			continue
		}
		existing, ok := seen[key]
		if !ok {
			entity.DiscoveredAtIteration = iteration
			seen[key] = entity
			order = append(order, key)
			continue
		}
		if entity.Priority.Rank() > existing.Priority.Rank() {
			entity.DiscoveredAtIteration = iteration
			seen[key] = entity
		}
	}

	out := make([]types.Entity, 0, len(order))
	for _, key := range order {
		out = append(out, seen[key])
	}
	return out
}

// buildExtractionPrompt binds the researcher prompt to one content item.
func buildExtractionPrompt(entity string, item types.ContentItem) string {
	content := item.Text
	if len(content) > contentTruncateLen {
		content = content[:contentTruncateLen]
	}

	return fmt.Sprintf(`You are extracting factual information about: %s

SOURCE: %s

CONTENT TO ANALYZE:
%s

Extract all relevant facts in structured format. For each fact identify the
specific claim and note any dates, names, or specific details.

FACT CATEGORIES:
- biographical (education, age, location, family)
- professional (career history, positions, companies)
- financial (investments, net worth, business interests)
- relationships (connections to other entities)
- events (significant incidents, controversies)
- patterns (behavioral patterns)

ENTITY EXTRACTION - CRITICAL FOR INVESTIGATION:
For each person or organization mentioned, determine investigation priority:
- high: family members, co-founders, business partners, direct collaborators
- medium: board members, investors, portfolio companies, professional connections
- low: casual mentions, one-time interactions, generic references

OUTPUT FORMAT (JSON):
{
  "facts": [
    {
      "category": "biographical|professional|financial|relationships|events|patterns",
      "claim": "Specific factual claim",
      "confidence": 0.0,
      "is_hidden": false
    }
  ],
  "key_entities_mentioned": [
    {
      "name": "Entity name (person or organization)",
      "priority": "high|medium|low",
      "relationship": "Brief description of relationship to %s"
    }
  ]
}

Set is_hidden to true for lesser-known information. Provide your response as
valid JSON only.`, entity, item.URL, content, entity)
}
