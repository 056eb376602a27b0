package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"amazon-review-scraper/config"
	"amazon-review-scraper/fetch"
	"amazon-review-scraper/scraper/amazon"
	"amazon-review-scraper/services"
	"amazon-review-scraper/storage"
	"amazon-review-scraper/utils"
)

func main() {
	logger := utils.NewLogger()
	cfg := config.Load()

	logger.Info("=== Amazon Review Scraping System starting ===")
	logger.Info("Config — store: %s | fetcher: %s | concurrency: %d | rate: %dms",
		cfg.StoreBackend, cfg.FetcherBackend, cfg.MaxConcurrency, cfg.RateLimitMs)

	crawlCfg, err := config.LoadCrawl(cfg.CrawlConfigPath)
	if err != nil {
		logger.Error("Failed to load crawl config: %v", err)
		os.Exit(1)
	}
	if err := crawlCfg.Validate(); err != nil {
		logger.Error("Invalid crawl config: %v", err)
		os.Exit(1)
	}

	tagger, err := services.NewTagger(crawlCfg.Keywords, logger)
	if err != nil {
		logger.Error("Invalid keyword rules: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store storage.ReviewStore
	switch cfg.StoreBackend {
	case "postgres":
		store, err = storage.NewPostgresStore(cfg.DSN())
		if err != nil {
			logger.Error("Failed to connect to PostgreSQL: %v", err)
			logger.Error("Make sure Docker is running: docker compose up -d")
			os.Exit(1)
		}
	default:
		store, err = storage.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			logger.Error("Failed to open SQLite store: %v", err)
			os.Exit(1)
		}
	}
	defer store.Close()

	csvWriter, err := storage.NewCSVWriter(cfg.CSVOutputPath)
	if err != nil {
		logger.Error("Failed to create CSV writer: %v", err)
		os.Exit(1)
	}
	defer csvWriter.Close()

	var fetcher fetch.Fetcher
	if cfg.FetcherBackend == "chrome" {
		fetcher = fetch.NewChromeFetcher(cfg.ChromeBin, cfg.MaxRetries, logger)
	} else {
		fetcher = fetch.NewHTTPFetcher(cfg.MaxRetries, cfg.RateLimitMs)
	}
	defer fetcher.Close()

	spider := amazon.New(crawlCfg, cfg, fetcher, store, logger)
	raws := spider.Run(ctx)

	if len(raws) > 0 {
		if err := csvWriter.WriteRaw(raws); err != nil {
			logger.Error("CSV write failed: %v", err)
		} else {
			logger.Info("Raw reviews saved to %s", cfg.CSVOutputPath)
		}
	}

	report := spider.Report()

	// The downstream pass reads back from the store so it covers everything
	// persisted, including records from earlier partial runs.
	stored, err := store.FetchAll()
	if err != nil {
		logger.Error("Failed to fetch reviews from store, using in-memory set: %v", err)
		stored = raws
	}

	cleaner := services.NewCleaner(logger)
	clean := cleaner.Clean(stored)
	kept := tagger.FilterTagged(tagger.TagAll(clean))

	exporter := services.NewExporter(logger)
	groups := exporter.Aggregate(kept)
	written, exportErrs := exporter.Export(cfg.ExportDir, groups)

	report.ReviewsCleaned = len(clean)
	report.ReviewsKept = len(kept)
	report.ProductsExported = written
	report.Errors = append(report.Errors, exportErrs...)
	services.PrintReport(&report)

	fmt.Printf("  Done. Raw CSV → %s | Store → %s | Product files → %s\n\n",
		cfg.CSVOutputPath, cfg.StoreBackend, cfg.ExportDir)
}
