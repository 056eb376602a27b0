package storage

import "amazon-review-scraper/models"

// ReviewStore is the relational sink for raw reviews. Save persists one
// record in its own transaction; a failed Save must never stop the crawl.
type ReviewStore interface {
	Save(review *models.RawReview) error
	FetchAll() ([]*models.RawReview, error)
	Close() error
}

// RawReviewWriter persists the unprocessed review dump (CSV).
type RawReviewWriter interface {
	WriteRaw(reviews []*models.RawReview) error
	Close() error
}
