package amazon

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"amazon-review-scraper/config"
	"amazon-review-scraper/models"
	"amazon-review-scraper/utils"
)

// fakeFetcher serves canned HTML from a map and counts fetches per URL.
type fakeFetcher struct {
	mu      sync.Mutex
	pages   map[string]string
	fetches map[string]int
}

func newFakeFetcher(pages map[string]string) *fakeFetcher {
	return &fakeFetcher{pages: pages, fetches: make(map[string]int)}
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (*goquery.Document, error) {
	f.mu.Lock()
	f.fetches[url]++
	html, ok := f.pages[url]
	f.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("no page for %s", url)
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

func (f *fakeFetcher) Close() error { return nil }

func (f *fakeFetcher) count(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches[url]
}

// memStore collects saved reviews in memory.
type memStore struct {
	mu    sync.Mutex
	saved []*models.RawReview
}

func (m *memStore) Save(r *models.RawReview) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, r)
	return nil
}

func (m *memStore) FetchAll() ([]*models.RawReview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.RawReview(nil), m.saved...), nil
}

func (m *memStore) Close() error { return nil }

const host = "https://www.amazon.com"

func listingPage(productHrefs []string, nextHref string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, href := range productHrefs {
		fmt.Fprintf(&b, `<h2><a class="a-link-normal s-underline-link-text" href=%q><span>a product</span></a></h2>`, href)
	}
	if nextHref != "" {
		fmt.Fprintf(&b, `<a class="s-pagination-next" href=%q>Next</a>`, nextHref)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func productPage(title, ingredients, reviewsHref string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	fmt.Fprintf(&b, `<span id="productTitle"> %s </span>`, title)
	if ingredients != "" {
		fmt.Fprintf(&b, `<div id="important-information"><div><h4>Ingredients:</h4><p>%s</p></div></div>`, ingredients)
	}
	if reviewsHref != "" {
		fmt.Fprintf(&b, `<a data-hook="see-all-reviews-link-foot" href=%q>See all reviews</a>`, reviewsHref)
	}
	b.WriteString("</body></html>")
	return b.String()
}

type fakeReview struct {
	title  string
	body   string
	rating string
}

func reviewPage(reviews []fakeReview, nextHref string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, r := range reviews {
		b.WriteString(`<div data-hook="review"><div><div>`)
		if r.title != "" {
			fmt.Fprintf(&b, `<a data-hook="review-title"><span>%s</span></a>`, r.title)
		}
		fmt.Fprintf(&b, `<i data-hook="review-star-rating"><span class="a-icon-alt">%s</span></i>`, r.rating)
		fmt.Fprintf(&b, `<span data-hook="review-body"><span>%s</span></span>`, r.body)
		b.WriteString(`</div></div></div>`)
	}
	if nextHref != "" {
		fmt.Fprintf(&b, `<ul class="a-pagination"><li>prev</li><li class="a-last"><a href=%q>Next</a></li></ul>`, nextHref)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func newTestSpider(crawl *config.CrawlConfig, fetcher *fakeFetcher, store *memStore) *Spider {
	cfg := &config.Config{MaxConcurrency: 3, RateLimitMs: 0, MaxRetries: 1}
	return New(crawl, cfg, fetcher, store, utils.NewLogger())
}

func TestSpiderEndToEndPaginatedReviews(t *testing.T) {
	pages := map[string]string{
		host + "/s?k=cleanser": listingPage([]string{"/dp/B01"}, ""),
		host + "/dp/B01":       productPage("Gel Cleanser", "Water, Glycerin", "/product-reviews/B01"),
		host + "/product-reviews/B01": reviewPage([]fakeReview{
			{title: "Love it", body: "Very gentle", rating: "5.0 out of 5 stars"},
			{title: "Decent", body: "A bit drying", rating: "3.0 out of 5 stars"},
		}, "/product-reviews/B01?page=2"),
		host + "/product-reviews/B01?page=2": reviewPage([]fakeReview{
			{title: "Broke me out", body: "Caused acne within a week", rating: "1.0 out of 5 stars"},
		}, ""),
	}

	fetcher := newFakeFetcher(pages)
	store := &memStore{}
	spider := newTestSpider(&config.CrawlConfig{
		ListingURLs:   []string{host + "/s?k=cleanser"},
		AllowedDomain: "www.amazon.com",
	}, fetcher, store)

	spider.Run(context.Background())

	require.Len(t, store.saved, 3)
	for _, r := range store.saved {
		require.Equal(t, "Gel Cleanser", r.ProductName)
		require.Equal(t, host+"/dp/B01", r.ProductURL)
		require.Equal(t, "Water, Glycerin", r.ProductIngredients)
	}

	// One product's chain is sequential, so reviews arrive in page order.
	require.Equal(t, "Love it", store.saved[0].ReviewTitle)
	require.Equal(t, "Decent", store.saved[1].ReviewTitle)
	require.Equal(t, "Broke me out", store.saved[2].ReviewTitle)
	require.Equal(t, 1.0, store.saved[2].Rating)

	report := spider.Report()
	require.EqualValues(t, 4, report.PagesFetched)
	require.EqualValues(t, 1, report.ProductsCrawled)
	require.EqualValues(t, 3, report.ReviewsPersisted)
	require.Empty(t, report.Errors)
}

func TestSpiderDeduplicatesProductPages(t *testing.T) {
	// The same product appears on both listing pages; its detail page must
	// be fetched exactly once.
	pages := map[string]string{
		host + "/s?page=1": listingPage([]string{"/dp/B01", "/dp/B01"}, "/s?page=2"),
		host + "/s?page=2": listingPage([]string{"/dp/B01"}, ""),
		host + "/dp/B01":   productPage("Toner", "", "/product-reviews/B01"),
		host + "/product-reviews/B01": reviewPage([]fakeReview{
			{title: "ok", body: "fine", rating: "4.0 out of 5 stars"},
		}, ""),
	}

	fetcher := newFakeFetcher(pages)
	store := &memStore{}
	spider := newTestSpider(&config.CrawlConfig{
		ListingURLs:   []string{host + "/s?page=1"},
		AllowedDomain: "www.amazon.com",
	}, fetcher, store)

	spider.Run(context.Background())

	require.Equal(t, 1, fetcher.count(host+"/dp/B01"))
	require.Len(t, store.saved, 1)
}

func TestSpiderInterleavedChainsKeepContext(t *testing.T) {
	// Two products crawled concurrently; every review must end up attributed
	// to the product whose chain emitted it, however the chains interleave.
	pages := map[string]string{
		host + "/s?k=all": listingPage([]string{"/dp/A", "/dp/B"}, ""),
		host + "/dp/A":    productPage("Product A", "Aloe", "/product-reviews/A"),
		host + "/dp/B":    productPage("Product B", "Shea", "/product-reviews/B"),
		host + "/product-reviews/A": reviewPage([]fakeReview{
			{title: "a1", body: "body a1", rating: "5.0 out of 5 stars"},
		}, "/product-reviews/A?page=2"),
		host + "/product-reviews/A?page=2": reviewPage([]fakeReview{
			{title: "a2", body: "body a2", rating: "4.0 out of 5 stars"},
		}, ""),
		host + "/product-reviews/B": reviewPage([]fakeReview{
			{title: "b1", body: "body b1", rating: "2.0 out of 5 stars"},
		}, ""),
	}

	fetcher := newFakeFetcher(pages)
	store := &memStore{}
	spider := newTestSpider(&config.CrawlConfig{
		ListingURLs:   []string{host + "/s?k=all"},
		AllowedDomain: "www.amazon.com",
	}, fetcher, store)

	spider.Run(context.Background())

	require.Len(t, store.saved, 3)
	wantProduct := map[string]string{"a1": "Product A", "a2": "Product A", "b1": "Product B"}
	wantIngredients := map[string]string{"Product A": "Aloe", "Product B": "Shea"}
	for _, r := range store.saved {
		require.Equal(t, wantProduct[r.ReviewTitle], r.ProductName, "review %q", r.ReviewTitle)
		require.Equal(t, wantIngredients[r.ProductName], r.ProductIngredients)
	}
}

func TestSpiderBadRatingDropsOnlyThatRecord(t *testing.T) {
	pages := map[string]string{
		host + "/dp/B01": productPage("Serum", "", "/product-reviews/B01"),
		host + "/product-reviews/B01": reviewPage([]fakeReview{
			{title: "good", body: "works", rating: "4.0 out of 5 stars"},
			{title: "weird", body: "stars broke", rating: "many out of 5 stars"},
			{title: "fine", body: "okay", rating: "3.0 out of 5 stars"},
		}, ""),
	}

	fetcher := newFakeFetcher(pages)
	store := &memStore{}
	spider := newTestSpider(&config.CrawlConfig{
		ProductURLs:   []string{host + "/dp/B01"},
		AllowedDomain: "www.amazon.com",
	}, fetcher, store)

	spider.Run(context.Background())

	require.Len(t, store.saved, 2)
	require.Equal(t, "good", store.saved[0].ReviewTitle)
	require.Equal(t, "fine", store.saved[1].ReviewTitle)

	report := spider.Report()
	require.Len(t, report.Errors, 1)
	require.Contains(t, report.Errors[0].Source, "/product-reviews/B01")
}

func TestSpiderDropsProductWithoutReviewsLink(t *testing.T) {
	pages := map[string]string{
		host + "/dp/B01": productPage("Mystery Cream", "Water", ""),
	}

	fetcher := newFakeFetcher(pages)
	store := &memStore{}
	spider := newTestSpider(&config.CrawlConfig{
		ProductURLs:   []string{host + "/dp/B01"},
		AllowedDomain: "www.amazon.com",
	}, fetcher, store)

	spider.Run(context.Background())

	require.Empty(t, store.saved)
	report := spider.Report()
	require.EqualValues(t, 1, report.ProductsSeen)
	require.EqualValues(t, 0, report.ProductsCrawled)
	require.Empty(t, report.Errors)
}

func TestSpiderAbandonsBranchOnFetchFailure(t *testing.T) {
	// /dp/B02 has no canned page, so its branch dies; B01 still completes.
	pages := map[string]string{
		host + "/s?k=x": listingPage([]string{"/dp/B01", "/dp/B02"}, ""),
		host + "/dp/B01": productPage("Lotion", "", "/product-reviews/B01"),
		host + "/product-reviews/B01": reviewPage([]fakeReview{
			{title: "soft", body: "very soft", rating: "5.0 out of 5 stars"},
		}, ""),
	}

	fetcher := newFakeFetcher(pages)
	store := &memStore{}
	spider := newTestSpider(&config.CrawlConfig{
		ListingURLs:   []string{host + "/s?k=x"},
		AllowedDomain: "www.amazon.com",
	}, fetcher, store)

	spider.Run(context.Background())

	require.Len(t, store.saved, 1)
	report := spider.Report()
	require.Len(t, report.Errors, 1)
	require.Equal(t, host+"/dp/B02", report.Errors[0].Source)
}

func TestParseListingSkipsOffDomainLinks(t *testing.T) {
	html := listingPage([]string{"/dp/B01", "https://evil.example.com/dp/B02"}, "")
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	actions := parseListing(doc, host+"/s?k=x", "www.amazon.com")
	require.Len(t, actions, 1)
	require.Equal(t, host+"/dp/B01", actions[0].Schedule.URL)
}

func TestParseReviewsResolvesRelativeNextLink(t *testing.T) {
	html := reviewPage(nil, "/product-reviews/B01?page=3")
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	product := &models.ProductContext{Name: "X", URL: host + "/dp/B01"}
	actions, errs := parseReviews(doc, host+"/product-reviews/B01?page=2", product)
	require.Empty(t, errs)
	require.Len(t, actions, 1)
	require.Equal(t, host+"/product-reviews/B01?page=3", actions[0].Schedule.URL)
	require.Same(t, product, actions[0].Schedule.Product)
}
