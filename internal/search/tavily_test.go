package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient points a TavilyClient at a local test server.
func newTestClient(t *testing.T, handler http.HandlerFunc) *TavilyClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewTavily("test-key", 5*time.Second)
	require.NoError(t, err)
	client.endpoint = srv.URL
	client.initialBackoff = time.Millisecond
	return client
}

func tavilyFixture(w http.ResponseWriter) {
	resp := map[string]any{
		"results": []map[string]any{
			{"title": "Result A", "url": "https://example.com/a", "content": "summary a", "raw_content": "full text a", "score": 0.9},
			{"title": "Result B", "url": "https://example.com/b", "content": "summary b", "raw_content": "", "score": 0.4},
		},
	}
	json.NewEncoder(w).Encode(resp)
}

func TestNewTavily_RequiresKey(t *testing.T) {
	_, err := NewTavily("  ", 0)
	assert.Error(t, err)
}

func TestNormalizeQuery(t *testing.T) {
	assert.Equal(t, "sam altman openai", NormalizeQuery("  Sam Altman OpenAI "))
}

func TestTavily_DuplicateQuerySuppression(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		tavilyFixture(w)
	})

	ctx := context.Background()
	first, err := client.Search(ctx, "Sam Altman OpenAI", 5)
	require.NoError(t, err)
	require.Len(t, first, 2)

	// Same query with different whitespace/case: served from cache
	second, err := client.Search(ctx, "  sam altman openai ", 5)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), calls.Load(), "second search should not hit the network")
}

func TestTavily_RetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		tavilyFixture(w)
	})

	results, err := client.Search(context.Background(), "query", 5)
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, int32(2), calls.Load())
}

func TestTavily_MaxResultsRespected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		tavilyFixture(w)
	})

	results, err := client.Search(context.Background(), "query", 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestTavily_ZeroScoreDefaults(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"title": "No score", "url": "https://example.com/x", "content": "text"},
			},
		})
	})

	results, err := client.Search(context.Background(), "query", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 0.5, results[0].Score)
}
