package research

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"

	"sleuth/internal/search"
	"sleuth/internal/types"
)

// minContentLen is the raw-content size below which a search result is
// considered insufficient and gets the scrape fallback.
const minContentLen = 200

// Scrape fallback caps per search round.
const (
	maxResultsPerQuery = 5
	maxScrapesPerRound = 5
)

// searchNode drains the pending-query queue: it issues each query (capped
// per iteration), collects results as content items, and enriches thin
// results by scraping. Enrichment targets items by ID, never by position.
// A failed query contributes nothing; the round continues with whatever
// the other queries returned.
func (o *Orchestrator) searchNode(ctx context.Context, state *State) *Update {
	queries := state.PendingQueries
	if len(queries) > o.cfg.MaxQueriesPerIteration {
		queries = queries[:o.cfg.MaxQueriesPerIteration]
	}

	// Normalized duplicate suppression against everything already executed.
	executed := make(map[string]struct{}, len(state.ExecutedQueries))
	for _, q := range state.ExecutedQueries {
		executed[search.NormalizeQuery(q)] = struct{}{}
	}
	fresh := make([]string, 0, len(queries))
	for _, q := range queries {
		key := search.NormalizeQuery(q)
		if key == "" {
			continue
		}
		if _, ok := executed[key]; ok {
			fmt.Printf("research: skipping duplicate query %q\n", q)
			continue
		}
		executed[key] = struct{}{}
		fresh = append(fresh, q)
	}

	fmt.Printf("research: executing %d search queries\n", len(fresh))

	var items []types.ContentItem
	for _, query := range fresh {
		results, err := o.searcher.Search(ctx, query, maxResultsPerQuery)
		if err != nil {
			fmt.Fprintf(os.Stderr, "research: search failed for %q: %v\n", query, err)
			continue
		}
		for _, r := range results {
			items = append(items, types.ContentItem{
				ID:         uuid.New().String(),
				URL:        r.URL,
				Title:      r.Title,
				Text:       r.RawContent,
				SourceKind: types.SourcePrimary,
				Relevance:  r.Score,
				Query:      query,
			})
		}
	}

	scraped := o.enrichThinItems(ctx, items)

	update := &Update{
		ExecutedQueries: fresh,
		ContentItems:    items,
		SetPending:      []string{},
		HasSetPending:   true,
	}
	update.Audit = []types.AuditEntry{newAuditEntry("search", state.Iteration, map[string]any{
		"queries":         fresh,
		"results_count":   len(items),
		"scraped_results": scraped,
	})}
	return update
}

// enrichThinItems scrapes items whose raw content is below minContentLen,
// replacing each item's text by ID lookup. Returns how many items were
// enriched.
func (o *Orchestrator) enrichThinItems(ctx context.Context, items []types.ContentItem) int {
	byID := make(map[string]int, len(items))
	var thinIDs []string
	for i, item := range items {
		byID[item.ID] = i
		if len(item.Text) < minContentLen && item.URL != "" {
			thinIDs = append(thinIDs, item.ID)
		}
	}
	if len(thinIDs) > maxScrapesPerRound {
		thinIDs = thinIDs[:maxScrapesPerRound]
	}
	if len(thinIDs) == 0 {
		return 0
	}

	fmt.Printf("research: scraping %d results without sufficient content\n", len(thinIDs))

	enriched := 0
	for _, id := range thinIDs {
		idx := byID[id]
		text, err := o.fetcher.Fetch(ctx, items[idx].URL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "research: scrape fallback failed for %s: %v\n", items[idx].URL, err)
			continue
		}
		if text == "" {
			continue
		}
		items[idx].Text = text
		items[idx].SourceKind = types.SourceFallback
		enriched++
	}
	return enriched
}
