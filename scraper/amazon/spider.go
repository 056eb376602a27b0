package amazon

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/PuerkitoBio/goquery"

	"amazon-review-scraper/config"
	"amazon-review-scraper/fetch"
	"amazon-review-scraper/models"
	"amazon-review-scraper/storage"
	"amazon-review-scraper/utils"
)

// Spider drives the crawl: it seeds the configured start URLs, runs listing
// and product fetches concurrently on a worker pool, and walks each
// product's review pagination sequentially inside a single job so reviews
// are persisted in page order.
type Spider struct {
	crawl   *config.CrawlConfig
	logger  *utils.Logger
	fetcher fetch.Fetcher
	store   storage.ReviewStore
	pool    *utils.WorkerPool
	visited *utils.URLSet

	maxListingPages int64

	pagesFetched    int64
	listingsFetched int64
	productsSeen    int64
	productsCrawled int64
	reviewsEmitted  int64
	saveFailures    int64

	mu   sync.Mutex
	raws []*models.RawReview
	errs []models.RecordError
}

// New creates a Spider wired to the given fetcher and review store.
func New(crawl *config.CrawlConfig, cfg *config.Config, fetcher fetch.Fetcher,
	store storage.ReviewStore, logger *utils.Logger) *Spider {
	return &Spider{
		crawl:           crawl,
		logger:          logger,
		fetcher:         fetcher,
		store:           store,
		pool:            utils.NewWorkerPool(cfg.MaxConcurrency, cfg.RateLimitMs),
		visited:         utils.NewURLSet(),
		maxListingPages: int64(cfg.MaxPages),
	}
}

// Run executes the whole crawl and returns every raw review that was
// extracted, in the order reviews were emitted. Transport and persistence
// failures abandon their branch or record; they never abort the run.
func (s *Spider) Run(ctx context.Context) []*models.RawReview {
	s.logger.Info("[amazon] Starting crawl — %d listing URLs, %d direct product URLs",
		len(s.crawl.ListingURLs), len(s.crawl.ProductURLs))

	for _, u := range s.crawl.ListingURLs {
		s.submit(ctx, Request{Stage: StageListing, URL: u})
	}
	for _, u := range s.crawl.ProductURLs {
		s.submit(ctx, Request{Stage: StageProduct, URL: u})
	}

	s.pool.Wait()

	s.logger.Info("[amazon] Crawl complete — %d pages fetched, %d products crawled, %d reviews emitted",
		atomic.LoadInt64(&s.pagesFetched),
		atomic.LoadInt64(&s.productsCrawled),
		atomic.LoadInt64(&s.reviewsEmitted))

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.raws
}

func (s *Spider) submit(ctx context.Context, req Request) {
	s.pool.Submit(func() {
		s.process(ctx, req)
	})
}

// process handles one request end to end. Review requests loop here through
// their pagination chain instead of rescheduling, keeping one product's
// pages strictly ordered.
func (s *Spider) process(ctx context.Context, req Request) {
	if ctx.Err() != nil {
		return
	}

	switch req.Stage {
	case StageListing:
		s.processListing(ctx, req)
	case StageProduct:
		s.processProduct(ctx, req)
	case StageReviews:
		s.processReviewChain(ctx, req)
	}
}

func (s *Spider) processListing(ctx context.Context, req Request) {
	if s.maxListingPages > 0 && atomic.LoadInt64(&s.listingsFetched) >= s.maxListingPages {
		s.logger.Debug("[amazon] Listing page cap reached — not fetching %s", req.URL)
		return
	}

	doc, err := s.fetchPage(ctx, req)
	if err != nil {
		return
	}
	atomic.AddInt64(&s.listingsFetched, 1)

	actions := parseListing(doc, req.URL, s.crawl.AllowedDomain)
	products := 0
	for _, a := range actions {
		if a.Schedule == nil {
			continue
		}
		if a.Schedule.Stage == StageProduct {
			products++
		}
		s.submit(ctx, *a.Schedule)
	}
	s.logger.Info("[amazon] Listing %s — %d product links", req.URL, products)
}

func (s *Spider) processProduct(ctx context.Context, req Request) {
	// Atomic check-and-insert: under concurrent discovery only the first
	// sighting of a product URL proceeds to its review chain.
	if !s.visited.Add(req.URL) {
		s.logger.Debug("[amazon] Skipping already-visited product: %s", req.URL)
		return
	}
	atomic.AddInt64(&s.productsSeen, 1)

	doc, err := s.fetchPage(ctx, req)
	if err != nil {
		return
	}

	actions := parseProduct(doc, req.URL)
	if len(actions) == 0 {
		// Accepted data loss: no reviews link means no reviews are reachable.
		s.logger.Debug("[amazon] Product has no reviews link, dropping: %s", req.URL)
		return
	}
	atomic.AddInt64(&s.productsCrawled, 1)

	for _, a := range actions {
		if a.Schedule != nil {
			s.process(ctx, *a.Schedule)
		}
	}
}

// processReviewChain walks one product's review pagination to its end. The
// ProductContext pointer on the inbound request is reused for every hop.
func (s *Spider) processReviewChain(ctx context.Context, req Request) {
	for {
		if ctx.Err() != nil {
			return
		}

		doc, err := s.fetchPage(ctx, req)
		if err != nil {
			return
		}

		actions, errs := parseReviews(doc, req.URL, req.Product)
		for _, e := range errs {
			s.logger.Warn("[amazon] Dropping review at %s: %v", e.Source, e.Err)
			s.recordError(e)
		}

		next := ""
		for _, a := range actions {
			switch {
			case a.Emit != nil:
				s.sink(a.Emit)
			case a.Schedule != nil:
				next = a.Schedule.URL
			}
		}

		if next == "" {
			return
		}
		req = Request{Stage: StageReviews, URL: next, Product: req.Product}
	}
}

// sink hands one terminal review record to the store. A failed insert is a
// per-record error; the raw record is still kept for the CSV dump.
func (s *Spider) sink(r *models.RawReview) {
	atomic.AddInt64(&s.reviewsEmitted, 1)

	s.mu.Lock()
	s.raws = append(s.raws, r)
	s.mu.Unlock()

	if err := s.store.Save(r); err != nil {
		atomic.AddInt64(&s.saveFailures, 1)
		s.logger.Error("[amazon] Persist failed for review of %s: %v", r.ProductURL, err)
		s.recordError(models.RecordError{Source: r.ProductURL, Err: err})
	}
}

func (s *Spider) fetchPage(ctx context.Context, req Request) (*goquery.Document, error) {
	d, err := s.fetcher.Fetch(ctx, req.URL)
	if err != nil {
		s.logger.Error("[amazon] Abandoning %s branch at %s: %v", req.Stage, req.URL, err)
		s.recordError(models.RecordError{Source: req.URL, Err: err})
		return nil, err
	}
	atomic.AddInt64(&s.pagesFetched, 1)
	return d, nil
}

func (s *Spider) recordError(e models.RecordError) {
	s.mu.Lock()
	s.errs = append(s.errs, e)
	s.mu.Unlock()
}

// Report snapshots the crawl-side counters into a RunReport.
func (s *Spider) Report() models.RunReport {
	s.mu.Lock()
	errs := make([]models.RecordError, len(s.errs))
	copy(errs, s.errs)
	s.mu.Unlock()

	persisted := atomic.LoadInt64(&s.reviewsEmitted) - atomic.LoadInt64(&s.saveFailures)

	return models.RunReport{
		PagesFetched:     atomic.LoadInt64(&s.pagesFetched),
		ProductsSeen:     atomic.LoadInt64(&s.productsSeen),
		ProductsCrawled:  atomic.LoadInt64(&s.productsCrawled),
		ReviewsPersisted: persisted,
		StoreWarning:     atomic.LoadInt64(&s.saveFailures) > persisted,
		Errors:           errs,
	}
}
