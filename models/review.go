package models

import "time"

// ProductContext is the identity of one product, captured once on its detail
// page and carried unchanged through every review page of that product.
// The URL doubles as the dedup key for the crawl.
type ProductContext struct {
	Name        string
	URL         string
	Ingredients string
}

// RawReview is a single review exactly as extracted from a review-list page,
// stamped with the product it belongs to. Written once to storage, never
// updated.
type RawReview struct {
	ProductName        string
	ProductURL         string
	ProductIngredients string
	ReviewTitle        string
	ReviewBody         string
	Rating             float64
	ScrapedAt          time.Time
}

// CleanReview is a RawReview after the cleaning pass: title and body merged
// into a single text field, incomplete records already dropped.
type CleanReview struct {
	ProductName        string
	ProductURL         string
	ProductIngredients string
	ReviewText         string
	Rating             float64
}

// TaggedReview is a CleanReview with one boolean per skin-condition rule.
// Every TaggedReview that survives filtering has at least one true flag.
type TaggedReview struct {
	CleanReview
	Flags map[string]bool
}

// RecordError identifies one recoverable failure (bad rating, failed insert,
// failed export) by the record's source so it can be reported at end of run.
type RecordError struct {
	Source string
	Err    error
}

// RunReport holds the counters printed when the pipeline finishes.
type RunReport struct {
	PagesFetched     int64
	ProductsSeen     int64
	ProductsCrawled  int64
	ReviewsPersisted int64
	ReviewsCleaned   int
	ReviewsKept      int
	ProductsExported int
	StoreWarning     bool
	Errors           []RecordError
}
