package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"amazon-review-scraper/models"
)

// dialect captures the only thing that actually differs between supported
// databases: how a positional parameter is spelled.
type dialect struct {
	name        string
	placeholder func(i int) string
}

var (
	postgresDialect = dialect{
		name:        "postgres",
		placeholder: func(i int) string { return fmt.Sprintf("$%d", i) },
	}
	sqliteDialect = dialect{
		name:        "sqlite",
		placeholder: func(i int) string { return "?" },
	}
)

// SQLStore persists raw reviews to a relational database. One implementation
// serves every dialect; the table is created on first use and creating it
// again is never an error.
type SQLStore struct {
	db        *sql.DB
	insertSQL string
}

// NewPostgresStore connects to PostgreSQL, waits for it to become reachable,
// and ensures the schema.
func NewPostgresStore(dsn string) (*SQLStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	return newStore(db, postgresDialect)
}

// NewSQLiteStore opens (or creates) a SQLite database file and ensures the
// schema. Intermediate directories are created automatically.
func NewSQLiteStore(path string) (*SQLStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("sqlite: create dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}
	// Single writer: the driver serializes access through one connection.
	db.SetMaxOpenConns(1)

	return newStore(db, sqliteDialect)
}

func newStore(db *sql.DB, d dialect) (*SQLStore, error) {
	s := &SQLStore{db: db, insertSQL: buildInsert(d)}
	if err := s.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: ensure schema: %w", d.name, err)
	}
	return s, nil
}

func buildInsert(d dialect) string {
	params := make([]string, 6)
	for i := range params {
		params[i] = d.placeholder(i + 1)
	}
	return fmt.Sprintf(`
		INSERT INTO product_reviews
			(product_name, product_url, product_ingredients, review_title, review_body, rating)
		VALUES (%s)
	`, strings.Join(params, ","))
}

func (s *SQLStore) ensureSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS product_reviews (
			product_name        TEXT,
			product_url         TEXT,
			product_ingredients TEXT,
			review_title        TEXT,
			review_body         TEXT,
			rating              REAL
		)
	`)
	return err
}

// Save inserts one review as its own transaction. Duplicate rows from a
// retried fetch are an accepted cost; there is no natural dedup key across
// reviews.
func (s *SQLStore) Save(r *models.RawReview) error {
	_, err := s.db.Exec(s.insertSQL,
		r.ProductName, r.ProductURL, r.ProductIngredients,
		r.ReviewTitle, r.ReviewBody, r.Rating)
	if err != nil {
		return fmt.Errorf("store: insert review for %q: %w", r.ProductURL, err)
	}
	return nil
}

// FetchAll returns every persisted review in insertion order, for the
// downstream cleaning pass.
func (s *SQLStore) FetchAll() ([]*models.RawReview, error) {
	rows, err := s.db.Query(`
		SELECT product_name, product_url, product_ingredients, review_title, review_body, rating
		FROM product_reviews
	`)
	if err != nil {
		return nil, fmt.Errorf("store: fetch all: %w", err)
	}
	defer rows.Close()

	var reviews []*models.RawReview
	for rows.Next() {
		r := &models.RawReview{}
		if err := rows.Scan(
			&r.ProductName, &r.ProductURL, &r.ProductIngredients,
			&r.ReviewTitle, &r.ReviewBody, &r.Rating,
		); err != nil {
			return nil, fmt.Errorf("store: scan row: %w", err)
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

// Close closes the underlying database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
