package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestFetcher() *HTTPFetcher {
	f := NewHTTP(5 * time.Second)
	f.limiter = rate.NewLimiter(rate.Inf, 1)
	f.retryDelay = time.Millisecond
	return f
}

func TestFetch_StripsHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><script>var x = 1;</script><style>p{}</style></head>
<body><nav>menu</nav><article><p>Jane Doe founded Acme Corp in 2015.</p></article>
<footer>copyright</footer></body></html>`))
	}))
	defer srv.Close()

	text, err := newTestFetcher().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, text, "Jane Doe founded Acme Corp in 2015.")
	assert.NotContains(t, text, "var x")
	assert.NotContains(t, text, "menu")
	assert.NotContains(t, text, "copyright")
}

func TestFetch_RetriesOnceThenFails(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestFetcher().Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetch_SecondAttemptSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("<p>recovered content</p>"))
	}))
	defer srv.Close()

	text, err := newTestFetcher().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, text, "recovered content")
}

func TestFetch_EmptyURL(t *testing.T) {
	_, err := newTestFetcher().Fetch(context.Background(), "  ")
	assert.Error(t, err)
}

func TestFetch_Truncates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<p>" + strings.Repeat("word ", 20000) + "</p>"))
	}))
	defer srv.Close()

	text, err := newTestFetcher().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(text), maxFetchBytes+len("\n[TRUNCATED]"))
	assert.True(t, strings.HasSuffix(text, "[TRUNCATED]"))
}

func TestStripHTML_Entities(t *testing.T) {
	assert.Equal(t, `Smith & Sons "quoted"`, StripHTML(`Smith &amp; Sons &quot;quoted&quot;`))
}
