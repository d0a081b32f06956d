// Package search provides the web-search capability. The production
// implementation calls the Tavily API; the pipeline depends only on the
// Searcher interface so tests can substitute fixtures.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Result is one search hit. RawContent is the full page text when the
// provider supplies it; Summary is the provider's snippet.
type Result struct {
	URL        string
	Title      string
	Summary    string
	RawContent string
	Score      float64
}

// Searcher executes a query and returns ranked results. Implementations
// must be idempotent per exact query string within a run: repeating a
// query returns the cached result set without a second network call.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}

const tavilyEndpoint = "https://api.tavily.com/search"

// Retry policy for search calls: exponential backoff, 3 attempts total.
const (
	searchMaxAttempts    = 3
	searchInitialBackoff = 2 * time.Second
	searchMaxBackoff     = 10 * time.Second
)

// TavilyClient searches the web via the Tavily API with per-run query
// deduplication and result caching.
type TavilyClient struct {
	apiKey         string
	depth          string
	endpoint       string
	client         *http.Client
	initialBackoff time.Duration

	mu    sync.Mutex
	cache map[string][]Result // normalized query -> results
}

var _ Searcher = (*TavilyClient)(nil)

// NewTavily constructs a Tavily search client. Depth defaults to
// "advanced" for comprehensive results.
func NewTavily(apiKey string, timeout time.Duration) (*TavilyClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("tavily: API key is missing")
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &TavilyClient{
		apiKey:         apiKey,
		depth:          "advanced",
		endpoint:       tavilyEndpoint,
		client:         &http.Client{Timeout: timeout},
		initialBackoff: searchInitialBackoff,
		cache:          make(map[string][]Result),
	}, nil
}

// NormalizeQuery is the canonical form used for duplicate suppression.
func NormalizeQuery(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// Search executes the query, consulting the per-run cache first. A query
// already executed (by normalized text) returns its cached results and
// performs no network call.
func (t *TavilyClient) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	normalized := NormalizeQuery(query)

	t.mu.Lock()
	if cached, ok := t.cache[normalized]; ok {
		t.mu.Unlock()
		fmt.Printf("search: duplicate query suppressed: %q\n", query)
		return cached, nil
	}
	t.mu.Unlock()

	results, err := t.searchWithRetry(ctx, query, maxResults)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	t.cache[normalized] = results
	t.mu.Unlock()

	return results, nil
}

func (t *TavilyClient) searchWithRetry(ctx context.Context, query string, maxResults int) ([]Result, error) {
	var lastErr error
	backoff := t.initialBackoff

	for attempt := 1; attempt <= searchMaxAttempts; attempt++ {
		results, err := t.doSearch(ctx, query, maxResults)
		if err == nil {
			return results, nil
		}
		lastErr = err

		if attempt == searchMaxAttempts {
			break
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		fmt.Printf("search: query %q failed (attempt %d/%d), retrying in %v: %v\n",
			query, attempt, searchMaxAttempts, backoff, err)

		select {
		case <-time.After(backoff):
			backoff *= 2
			if backoff > searchMaxBackoff {
				backoff = searchMaxBackoff
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("search failed after %d attempts: %w", searchMaxAttempts, lastErr)
}

func (t *TavilyClient) doSearch(ctx context.Context, query string, maxResults int) ([]Result, error) {
	body := map[string]any{
		"query":               query,
		"api_key":             t.apiKey,
		"search_depth":        t.depth,
		"max_results":         maxResults,
		"include_raw_content": true,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily http %d", resp.StatusCode)
	}

	var response struct {
		Results []struct {
			Title      string  `json:"title"`
			URL        string  `json:"url"`
			Content    string  `json:"content"`
			RawContent string  `json:"raw_content"`
			Score      float64 `json:"score"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("tavily: decoding response: %w", err)
	}

	results := make([]Result, 0, len(response.Results))
	for _, r := range response.Results {
		score := r.Score
		if score == 0 {
			score = 0.5
		}
		results = append(results, Result{
			URL:        r.URL,
			Title:      r.Title,
			Summary:    r.Content,
			RawContent: r.RawContent,
			Score:      score,
		})
		if len(results) >= maxResults && maxResults > 0 {
			break
		}
	}
	return results, nil
}
