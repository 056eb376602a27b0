package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"amazon-review-scraper/models"
)

// CSVWriter dumps raw (uncleaned) reviews to a CSV file, mirroring the
// relational store so the dataset can be inspected without a database client.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)

	if err := w.Write([]string{
		"product_name", "product_url", "product_ingredients",
		"review_title", "review_body", "rating", "scraped_at",
	}); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// WriteRaw appends the given reviews to the CSV file.
func (c *CSVWriter) WriteRaw(reviews []*models.RawReview) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, r := range reviews {
		row := []string{
			r.ProductName,
			r.ProductURL,
			r.ProductIngredients,
			r.ReviewTitle,
			r.ReviewBody,
			strconv.FormatFloat(r.Rating, 'f', 1, 64),
			r.ScrapedAt.Format(time.RFC3339),
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}
