package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"amazon-review-scraper/models"
	"amazon-review-scraper/utils"
)

// Exporter groups surviving reviews by product and writes one UTF-8 text
// file per product, one review per line.
type Exporter struct {
	logger *utils.Logger
}

// NewExporter creates an Exporter with the given logger.
func NewExporter(logger *utils.Logger) *Exporter {
	return &Exporter{logger: logger}
}

// ProductGroup is one product's aggregated reviews. Groups keep the order
// products were first seen in; reviews keep their input order.
type ProductGroup struct {
	Key          string
	CombinedText string
}

// Aggregate groups reviews by product name and joins each group's texts
// with a newline.
func (e *Exporter) Aggregate(tagged []*models.TaggedReview) []ProductGroup {
	texts := make(map[string][]string)
	var order []string

	for _, r := range tagged {
		key := ProductKey(r.ProductName)
		if key == "" {
			continue
		}
		if _, seen := texts[key]; !seen {
			order = append(order, key)
		}
		texts[key] = append(texts[key], r.ReviewText)
	}

	groups := make([]ProductGroup, 0, len(order))
	for _, key := range order {
		groups = append(groups, ProductGroup{
			Key:          key,
			CombinedText: strings.Join(texts[key], "\n"),
		})
	}
	return groups
}

// Export writes each group to <dir>/<product_key>.txt, overwriting prior
// artifacts. A failure for one product is logged and reported but never
// blocks the remaining exports.
func (e *Exporter) Export(dir string, groups []ProductGroup) (written int, errs []models.RecordError) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, []models.RecordError{{Source: dir, Err: fmt.Errorf("export: create dir: %w", err)}}
	}

	for _, g := range groups {
		path := filepath.Join(dir, g.Key+".txt")
		if err := os.WriteFile(path, []byte(g.CombinedText), 0644); err != nil {
			e.logger.Error("[export] Failed to write %s: %v", path, err)
			errs = append(errs, models.RecordError{Source: g.Key, Err: err})
			continue
		}
		written++
	}

	e.logger.Info("[export] Wrote %d product files to %s", written, dir)
	return written, errs
}

// ProductKey converts a product name into its artifact name: runs of
// whitespace become a single underscore.
func ProductKey(name string) string {
	return strings.Join(strings.Fields(name), "_")
}
