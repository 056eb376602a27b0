// Package amazon implements the crawl over Amazon search listings, product
// pages and paginated review lists.
//
// Each fetch stage is a pure transition function from a parsed page to a list
// of actions: emit a terminal review record, or schedule a further fetch.
// All per-product state travels inside the scheduled request itself, never in
// package or process variables, so interleaved review chains from different
// products can never contaminate each other.
package amazon

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"amazon-review-scraper/extract"
	"amazon-review-scraper/models"
)

// Stage identifies which transition function handles a request.
type Stage int

const (
	StageListing Stage = iota
	StageProduct
	StageReviews
)

func (s Stage) String() string {
	switch s {
	case StageListing:
		return "listing"
	case StageProduct:
		return "product"
	case StageReviews:
		return "reviews"
	}
	return "unknown"
}

// Request is one unit of fetch work. Product carries the immutable
// ProductContext through a review chain and is nil for the other stages.
type Request struct {
	Stage   Stage
	URL     string
	Product *models.ProductContext
}

// Action is the tagged result variant of a stage transition: exactly one of
// Emit or Schedule is set.
type Action struct {
	Emit     *models.RawReview
	Schedule *Request
}

func emit(r *models.RawReview) Action { return Action{Emit: r} }

func schedule(req Request) Action { return Action{Schedule: &req} }

// Locators for the fields each stage extracts.
var (
	listingProductLinks = "h2 a.s-underline-link-text"
	listingNextLink     = "a.s-pagination-next"

	productTitleLoc   = extract.Locator{Field: "name", Selector: "span#productTitle"}
	productReviewsLoc = extract.Locator{Field: "reviews_url", Selector: `a[data-hook="see-all-reviews-link-foot"]`, Attr: "href"}

	reviewElements  = `div[data-hook="review"]`
	reviewTitleLoc  = extract.Locator{Field: "title", Selector: `a[data-hook="review-title"] span`}
	reviewBodyLoc   = extract.Locator{Field: "body", Selector: `span[data-hook="review-body"] span`}
	reviewRatingLoc = extract.Locator{Field: "rating", Selector: `i[data-hook="review-star-rating"] span`}
	reviewsNextLink = "ul.a-pagination li.a-last a"
)

// parseListing schedules one product fetch per product link on a search
// results page, plus one listing fetch for the pagination-next link when
// present. Links off the allowed domain are skipped.
func parseListing(doc *goquery.Document, pageURL, allowedDomain string) []Action {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	var actions []Action
	doc.Find(listingProductLinks).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		abs, ok := resolve(base, href, allowedDomain)
		if !ok {
			return
		}
		actions = append(actions, schedule(Request{Stage: StageProduct, URL: abs}))
	})

	if href, ok := doc.Find(listingNextLink).First().Attr("href"); ok {
		if abs, ok := resolve(base, href, allowedDomain); ok {
			actions = append(actions, schedule(Request{Stage: StageListing, URL: abs}))
		}
	}

	return actions
}

// parseProduct builds the ProductContext for a product-detail page and
// schedules the first fetch of its review chain. A page without a reviews
// link yields no actions: the product's reviews are unreachable and the
// branch ends here.
func parseProduct(doc *goquery.Document, pageURL string) []Action {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	fields := extract.Extract(doc.Selection, []extract.Locator{productTitleLoc, productReviewsLoc})

	reviewsHref, ok := fields["reviews_url"]
	if !ok {
		return nil
	}
	reviewsURL, ok := resolve(base, reviewsHref, "")
	if !ok {
		return nil
	}

	product := &models.ProductContext{
		Name:        fields["name"],
		URL:         pageURL,
		Ingredients: ingredientsText(doc),
	}

	return []Action{schedule(Request{Stage: StageReviews, URL: reviewsURL, Product: product})}
}

// parseReviews emits one RawReview per review element, stamped with the
// inbound ProductContext, then schedules the next review page with the same
// context if a pagination link exists. A review whose rating cannot be
// parsed is dropped alone; its siblings on the page are unaffected.
func parseReviews(doc *goquery.Document, pageURL string, product *models.ProductContext) ([]Action, []models.RecordError) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, []models.RecordError{{Source: pageURL, Err: fmt.Errorf("bad page url: %w", err)}}
	}

	var actions []Action
	var errs []models.RecordError

	doc.Find(reviewElements).Each(func(i int, sel *goquery.Selection) {
		title, _ := extract.First(sel, reviewTitleLoc)
		body := reviewBodyText(sel)

		ratingRaw, ok := extract.First(sel, reviewRatingLoc)
		if !ok {
			errs = append(errs, models.RecordError{
				Source: fmt.Sprintf("%s#review-%d", pageURL, i),
				Err:    fmt.Errorf("rating not found"),
			})
			return
		}
		rating, err := extract.ParseRating(ratingRaw)
		if err != nil {
			errs = append(errs, models.RecordError{
				Source: fmt.Sprintf("%s#review-%d", pageURL, i),
				Err:    err,
			})
			return
		}

		actions = append(actions, emit(&models.RawReview{
			ProductName:        product.Name,
			ProductURL:         product.URL,
			ProductIngredients: product.Ingredients,
			ReviewTitle:        title,
			ReviewBody:         body,
			Rating:             rating,
			ScrapedAt:          time.Now(),
		}))
	})

	if href, ok := doc.Find(reviewsNextLink).First().Attr("href"); ok {
		if abs, ok := resolve(base, href, ""); ok {
			actions = append(actions, schedule(Request{Stage: StageReviews, URL: abs, Product: product}))
		}
	}

	return actions, errs
}

// ingredientsText finds the "Ingredients" heading inside the important
// information block and returns the text of the node that follows it.
func ingredientsText(doc *goquery.Document) string {
	var text string
	doc.Find("div#important-information h4").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if !strings.Contains(sel.Text(), "Ingredients") {
			return true
		}
		text = extract.NormalizeText(sel.NextAll().First().Text())
		return false
	})
	return text
}

// reviewBodyText joins every text fragment of a review body. Bodies are
// frequently split across spans by line breaks and markup.
func reviewBodyText(sel *goquery.Selection) string {
	var parts []string
	sel.Find(reviewBodyLoc.Selector).Each(func(_ int, span *goquery.Selection) {
		parts = append(parts, span.Text())
	})
	return extract.NormalizeText(strings.Join(parts, " "))
}

// resolve turns href into an absolute URL against base. When allowedDomain
// is non-empty the result must be on that host.
func resolve(base *url.URL, href, allowedDomain string) (string, bool) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil || ref.String() == "" {
		return "", false
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	if allowedDomain != "" && abs.Host != allowedDomain {
		return "", false
	}
	return abs.String(), true
}
