package fetch

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// HTTPFetcher fetches pages over plain HTTP. Retries on transport errors are
// delegated to the resty client; request pacing to the rate limiter.
type HTTPFetcher struct {
	client  *resty.Client
	limiter *rate.Limiter
}

// NewHTTPFetcher builds a fetcher that retries up to maxRetries times with
// backoff and leaves at least rateLimitMs between request starts.
func NewHTTPFetcher(maxRetries, rateLimitMs int) *HTTPFetcher {
	client := resty.New().
		SetTimeout(30*time.Second).
		SetRetryCount(maxRetries).
		SetRetryWaitTime(2*time.Second).
		SetRetryMaxWaitTime(20*time.Second).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept-Language", "en-US,en;q=0.9")

	interval := time.Duration(rateLimitMs) * time.Millisecond
	var limiter *rate.Limiter
	if interval > 0 {
		limiter = rate.NewLimiter(rate.Every(interval), 1)
	}

	return &HTTPFetcher{client: client, limiter: limiter}
}

// Fetch retrieves url and parses the response body.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*goquery.Document, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("http: rate wait: %w", err)
		}
	}

	res, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("http: get %q: %w", url, err)
	}
	if res.StatusCode() < 200 || res.StatusCode() >= 300 {
		return nil, fmt.Errorf("http: get %q: status %d", url, res.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		return nil, fmt.Errorf("http: parse %q: %w", url, err)
	}
	return doc, nil
}

// Close implements Fetcher; the underlying client needs no teardown.
func (f *HTTPFetcher) Close() error { return nil }
