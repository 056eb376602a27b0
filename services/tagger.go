package services

import (
	"fmt"
	"regexp"

	"amazon-review-scraper/config"
	"amazon-review-scraper/models"
	"amazon-review-scraper/utils"
)

// Rule is one compiled tagging rule. Rules are independent data: none reads
// another's result, and adding a rule never touches the engine.
type Rule struct {
	Flag    string
	Pattern *regexp.Regexp
}

// Tagger applies the configured skin-condition rules to cleaned reviews.
type Tagger struct {
	rules  []Rule
	logger *utils.Logger
}

// NewTagger compiles the configured keyword rules. A pattern that fails to
// compile is a configuration error and rejected up front.
func NewTagger(keywords []config.KeywordRule, logger *utils.Logger) (*Tagger, error) {
	rules := make([]Rule, 0, len(keywords))
	for _, kw := range keywords {
		re, err := regexp.Compile("(?i)" + kw.Pattern)
		if err != nil {
			return nil, fmt.Errorf("tagger: compile rule %q: %w", kw.Flag, err)
		}
		rules = append(rules, Rule{Flag: kw.Flag, Pattern: re})
	}
	return &Tagger{rules: rules, logger: logger}, nil
}

// Tag evaluates every rule against the review text. Pure and idempotent.
func (t *Tagger) Tag(review *models.CleanReview) *models.TaggedReview {
	flags := make(map[string]bool, len(t.rules))
	for _, rule := range t.rules {
		flags[rule.Flag] = rule.Pattern.MatchString(review.ReviewText)
	}
	return &models.TaggedReview{CleanReview: *review, Flags: flags}
}

// TagAll tags a batch in order.
func (t *Tagger) TagAll(reviews []*models.CleanReview) []*models.TaggedReview {
	tagged := make([]*models.TaggedReview, 0, len(reviews))
	for _, r := range reviews {
		tagged = append(tagged, t.Tag(r))
	}
	return tagged
}

// FilterTagged retains only reviews with at least one flag set; everything
// else carries no signal for any condition.
func (t *Tagger) FilterTagged(tagged []*models.TaggedReview) []*models.TaggedReview {
	kept := make([]*models.TaggedReview, 0, len(tagged))
	for _, r := range tagged {
		if anyFlag(r.Flags) {
			kept = append(kept, r)
		}
	}
	t.logger.Info("[tagger] Kept %d of %d reviews matching at least one condition",
		len(kept), len(tagged))
	return kept
}

func anyFlag(flags map[string]bool) bool {
	for _, set := range flags {
		if set {
			return true
		}
	}
	return false
}
