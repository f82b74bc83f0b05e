package enrichment

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/singleflight"
)

const (
	defaultFetchTimeout = 10 * time.Second
	defaultMaxBodyBytes = 2 << 20
	defaultUserAgent    = "bookmarks-api/1.0 (+metadata fetcher)"
)

// Fetcher retrieves and parses an HTML document.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (*goquery.Document, error)
}

// FetcherConfig configures HTTPFetcher.
type FetcherConfig struct {
	Client       *http.Client
	Timeout      time.Duration
	MaxBodyBytes int64
	UserAgent    string
}

// HTTPFetcher fetches pages over HTTP. Concurrent fetches of the same URL
// share one request.
type HTTPFetcher struct {
	client       *http.Client
	timeout      time.Duration
	maxBodyBytes int64
	userAgent    string
	inflight     singleflight.Group
}

// NewHTTPFetcher applies defaults to cfg and constructs a fetcher.
func NewHTTPFetcher(cfg FetcherConfig) *HTTPFetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	client := cfg.Client
	if client == nil {
		client = NewHTTPClient(timeout)
	}
	maxBodyBytes := cfg.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &HTTPFetcher{
		client:       client,
		timeout:      timeout,
		maxBodyBytes: maxBodyBytes,
		userAgent:    userAgent,
	}
}

// Fetch returns the parsed document or an error wrapping ErrFetchFailed.
// The shared request is detached from any single caller's cancellation and
// bounded by the fetch timeout; each caller stops waiting when its own
// context ends.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	shared := context.WithoutCancel(ctx)
	results := f.inflight.DoChan(pageURL, func() (any, error) {
		return f.fetch(shared, pageURL)
	})
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, ctx.Err())
	case result := <-results:
		if result.Err != nil {
			return nil, result.Err
		}
		return result.Val.(*goquery.Document), nil
	}
}

func (f *HTTPFetcher) fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	request, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrFetchFailed, err)
	}
	request.Header.Set("User-Agent", f.userAgent)
	request.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	response, err := f.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer response.Body.Close()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, io.LimitReader(response.Body, 4096))
		return nil, fmt.Errorf("%w: unexpected status %d", ErrFetchFailed, response.StatusCode)
	}

	document, err := goquery.NewDocumentFromReader(io.LimitReader(response.Body, f.maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: parse: %v", ErrFetchFailed, err)
	}
	return document, nil
}
