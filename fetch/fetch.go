// Package fetch owns page retrieval. The crawl logic never touches sockets,
// redirects or TLS — it hands a URL to a Fetcher and gets back a parsed
// document, or a terminal error once the backend's own retry policy gave up.
package fetch

import (
	"context"

	"github.com/PuerkitoBio/goquery"
)

// Fetcher retrieves one page and parses it. Implementations apply their own
// retry and politeness policies; an error from Fetch means the branch of the
// crawl that needed this page should be abandoned.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*goquery.Document, error)
	Close() error
}

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
