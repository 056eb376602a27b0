package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// KeywordRule is one declarative tagging rule: a flag name and the
// case-insensitive pattern that sets it. Rules are data — adding one never
// touches the tagging engine.
type KeywordRule struct {
	Flag    string `yaml:"flag"`
	Pattern string `yaml:"pattern"`
}

// CrawlConfig is the external crawl surface: where to start, which domain to
// stay on, and which keyword rules classify the reviews. Editing the file
// never requires recompiling the pipeline.
type CrawlConfig struct {
	ListingURLs   []string `yaml:"listing_urls"`
	ProductURLs   []string `yaml:"product_urls"`
	AllowedDomain string   `yaml:"allowed_domain"`

	Keywords []KeywordRule `yaml:"keywords"`
}

// defaultKeywords mirror the ten skin-condition rules the pipeline shipped
// with, so the binary runs even without a crawl file.
func defaultKeywords() []KeywordRule {
	return []KeywordRule{
		{Flag: "acne", Pattern: `acne|break.out|breakout|pimple`},
		{Flag: "blackheads", Pattern: `blackhead|clogged pores`},
		{Flag: "dry_skin", Pattern: `dry|irritate|tight|soothing|uncomfortable`},
		{Flag: "rosacea", Pattern: `rosacea|apparent blood vessels|dialated vessels`},
		{Flag: "irritated_skin", Pattern: `redness|red.skin|inflam|itch|irritat|sooth|painful|calm|rash`},
		{Flag: "atopic_dermatitis", Pattern: `atopic.dermatitis|topic.skin|eczema`},
		{Flag: "psoriasis", Pattern: `psoriasis`},
		{Flag: "sensitive_skin", Pattern: `sensitive|allerg|rash`},
		{Flag: "oily_skin", Pattern: `oily|shiny|sebum`},
		{Flag: "pigmentation", Pattern: `pigment|dark spots|sun.spots|sunspots|acne.scars`},
	}
}

// LoadCrawl reads the crawl YAML at path. A missing file is not an error as
// long as the caller can still supply start URLs some other way; missing
// keywords fall back to the built-in rule set.
func LoadCrawl(path string) (*CrawlConfig, error) {
	cc := &CrawlConfig{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cc); err != nil {
			return nil, fmt.Errorf("crawl config: parse %q: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// fall through to defaults
	default:
		return nil, fmt.Errorf("crawl config: read %q: %w", path, err)
	}

	if len(cc.Keywords) == 0 {
		cc.Keywords = defaultKeywords()
	}
	return cc, nil
}

// Validate rejects a configuration that cannot start a crawl. This is the
// only hard-stop error in the whole run.
func (cc *CrawlConfig) Validate() error {
	if len(cc.ListingURLs) == 0 && len(cc.ProductURLs) == 0 {
		return errors.New("crawl config: no listing_urls or product_urls configured")
	}
	return nil
}
