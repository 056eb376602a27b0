package services

import (
	"fmt"
	"strings"

	"amazon-review-scraper/models"
)

// PrintReport renders the end-of-run summary: crawl counters, pipeline
// counters and the list of per-record errors with their sources.
func PrintReport(r *models.RunReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Printf("\n\033[1;35m%s\033[0m\n", sep)
	fmt.Printf("\033[1;35m  📊 REVIEW CRAWL REPORT\033[0m\n")
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)

	fmt.Printf("\033[1;33m  Crawl\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Pages fetched       : \033[1m%d\033[0m\n", r.PagesFetched)
	fmt.Printf("  Products discovered : \033[1m%d\033[0m\n", r.ProductsSeen)
	fmt.Printf("  Products with reviews: \033[1m%d\033[0m\n", r.ProductsCrawled)
	fmt.Printf("  Reviews persisted   : \033[1m%d\033[0m\n", r.ReviewsPersisted)
	fmt.Println()

	fmt.Printf("\033[1;33m  Pipeline\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Reviews cleaned     : \033[1m%d\033[0m\n", r.ReviewsCleaned)
	fmt.Printf("  Reviews kept        : \033[1m%d\033[0m\n", r.ReviewsKept)
	fmt.Printf("  Products exported   : \033[1m%d\033[0m\n", r.ProductsExported)
	fmt.Println()

	if r.StoreWarning {
		fmt.Printf("  \033[1;31mWARNING: most review inserts failed — check the store\033[0m\n\n")
	}

	fmt.Printf("\033[1;33m  Errors (%d)\033[0m\n", len(r.Errors))
	fmt.Printf("  %s\n", thin)
	if len(r.Errors) == 0 {
		fmt.Printf("  none\n")
	} else {
		for _, e := range r.Errors {
			fmt.Printf("  %-60s %v\n", truncate(e.Source, 58), e.Err)
		}
	}

	fmt.Printf("\n\033[1;35m%s\033[0m\n\n", sep)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
