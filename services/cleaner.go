package services

import (
	"amazon-review-scraper/models"
	"amazon-review-scraper/utils"
)

// Cleaner turns persisted raw reviews into records ready for tagging.
// Reviews missing either a title or a body carry too little text to classify
// and are dropped; this is accepted, documented loss.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Clean merges each review's title and body into a single text field,
// preserving input order. Pure apart from logging.
func (c *Cleaner) Clean(raw []*models.RawReview) []*models.CleanReview {
	result := make([]*models.CleanReview, 0, len(raw))

	for _, r := range raw {
		if r.ReviewTitle == "" || r.ReviewBody == "" {
			c.logger.Debug("[cleaner] Dropping incomplete review for %s", r.ProductURL)
			continue
		}

		result = append(result, &models.CleanReview{
			ProductName:        r.ProductName,
			ProductURL:         r.ProductURL,
			ProductIngredients: r.ProductIngredients,
			ReviewText:         r.ReviewTitle + " " + r.ReviewBody,
			Rating:             r.Rating,
		})
	}

	c.logger.Info("[cleaner] Cleaned %d → %d reviews (dropped %d incomplete)",
		len(raw), len(result), len(raw)-len(result))
	return result
}
