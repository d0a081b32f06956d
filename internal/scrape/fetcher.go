// Package scrape provides the page-fetch fallback used when a search
// result arrives without enough raw content. It is deliberately polite:
// requests are rate limited and retried at most once.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// maxFetchBytes caps extracted text so one giant page cannot blow out
// model context downstream.
const maxFetchBytes = 32 * 1024

// Retry policy for scrape calls: 2 attempts, fixed delay.
const (
	fetchMaxAttempts = 2
	fetchRetryDelay  = 2 * time.Second
)

// Fetcher retrieves readable text from a URL. Implementations return an
// error when the page cannot be fetched or yields no usable text; callers
// treat that as "content absent", not as a run failure.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// HTTPFetcher fetches pages over plain HTTP with a shared rate limiter
// (1 request/second) so batch scraping stays polite.
type HTTPFetcher struct {
	client     *http.Client
	limiter    *rate.Limiter
	retryDelay time.Duration
}

var _ Fetcher = (*HTTPFetcher)(nil)

// NewHTTP creates an HTTP fetcher.
func NewHTTP(timeout time.Duration) *HTTPFetcher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &HTTPFetcher{
		client:     &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Every(time.Second), 1),
		retryDelay: fetchRetryDelay,
	}
}

// Fetch downloads the URL, strips HTML to plain text, and truncates.
// Transient failures are retried once after a fixed delay.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	trimmed := strings.TrimSpace(url)
	if trimmed == "" {
		return "", errors.New("fetch url is empty")
	}

	var lastErr error
	for attempt := 1; attempt <= fetchMaxAttempts; attempt++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return "", err
		}

		text, err := f.fetchOnce(ctx, trimmed)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if attempt == fetchMaxAttempts {
			break
		}
		select {
		case <-time.After(f.retryDelay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	return "", fmt.Errorf("fetch failed after %d attempts: %w", fetchMaxAttempts, lastErr)
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch http %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4*maxFetchBytes))
	if err != nil {
		return "", err
	}

	text := StripHTML(string(body))
	if text == "" {
		return "", fmt.Errorf("no text content at %s", url)
	}
	if len(text) > maxFetchBytes {
		text = text[:maxFetchBytes] + "\n[TRUNCATED]"
	}
	return text, nil
}

var (
	reScript     = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	reStyle      = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	reNav        = regexp.MustCompile(`(?is)<nav[^>]*>.*?</nav>`)
	reHeader     = regexp.MustCompile(`(?is)<header[^>]*>.*?</header>`)
	reFooter     = regexp.MustCompile(`(?is)<footer[^>]*>.*?</footer>`)
	reAside      = regexp.MustCompile(`(?is)<aside[^>]*>.*?</aside>`)
	reTags       = regexp.MustCompile(`<[^>]+>`)
	reWhitespace = regexp.MustCompile(`[ \t]+`)
	reBlankLines = regexp.MustCompile(`\n{3,}`)
)

// StripHTML removes scripts, styles, and boilerplate sections, then all
// remaining tags, yielding readable plain text.
func StripHTML(html string) string {
	s := reScript.ReplaceAllString(html, "")
	s = reStyle.ReplaceAllString(s, "")
	s = reNav.ReplaceAllString(s, "")
	s = reHeader.ReplaceAllString(s, "")
	s = reFooter.ReplaceAllString(s, "")
	s = reAside.ReplaceAllString(s, "")
	s = reTags.ReplaceAllString(s, " ")

	// Decode common entities
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&quot;", "\"")
	s = strings.ReplaceAll(s, "&#39;", "'")
	s = strings.ReplaceAll(s, "&nbsp;", " ")

	// Collapse whitespace and drop empty lines
	s = reWhitespace.ReplaceAllString(s, " ")
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	s = strings.Join(out, "\n")
	s = reBlankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
