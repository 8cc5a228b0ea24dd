package fetcher

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/markdave123-py/contexta-ingest/internal/core"
)

var _ core.PageFetcher = (*HTTPFetcher)(nil)

const userAgent = "contexta-ingest/1.0 (+https://github.com/markdave123-py/contexta-ingest)"

// HTTPFetcher downloads pages for URL sources.
type HTTPFetcher struct {
	client   *resty.Client
	maxBytes int
}

// NewHTTPFetcher builds a fetcher with the given per-request timeout and body limit (0 = unlimited).
func NewHTTPFetcher(timeout time.Duration, maxBytes int) *HTTPFetcher {
	c := resty.New().
		SetTimeout(timeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(5)).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")
	return &HTTPFetcher{client: c, maxBytes: maxBytes}
}

// Fetch streams the page body and stops reading one byte past the limit, so an oversized
// page never sits in memory whole.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	resp, err := f.client.R().SetContext(ctx).SetDoNotParseResponse(true).Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	raw := resp.RawBody()
	defer raw.Close()

	if resp.IsError() {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode())
	}

	var r io.Reader = raw
	if f.maxBytes > 0 {
		r = io.LimitReader(raw, int64(f.maxBytes)+1)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: read body: %w", url, err)
	}
	if f.maxBytes > 0 && len(body) > f.maxBytes {
		return nil, fmt.Errorf("fetch %s: body exceeds limit %d", url, f.maxBytes)
	}
	return body, nil
}
