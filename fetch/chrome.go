package fetch

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"

	"amazon-review-scraper/utils"
)

// ChromeFetcher renders pages in headless Chrome before parsing. Useful when
// the target serves script-built markup to plain HTTP clients.
type ChromeFetcher struct {
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
	cancelCtx   context.CancelFunc
	retry       *utils.RetryConfig
	logger      *utils.Logger
}

// NewChromeFetcher starts a headless Chrome allocator. chromeBin overrides
// binary discovery when non-empty.
func NewChromeFetcher(chromeBin string, maxRetries int, logger *utils.Logger) *ChromeFetcher {
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	logger.Info("[fetch] Using browser binary: %s", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.UserAgent(userAgent),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)

	// Suppress chromedp log noise
	silentCtx, cancelSilent := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	return &ChromeFetcher{
		allocCtx:    silentCtx,
		cancelAlloc: cancelAlloc,
		cancelCtx:   cancelSilent,
		retry: &utils.RetryConfig{
			MaxAttempts: maxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
		logger: logger,
	}
}

// Fetch navigates to url in a fresh tab and returns the rendered document.
func (f *ChromeFetcher) Fetch(ctx context.Context, url string) (*goquery.Document, error) {
	var html string

	err := f.retry.Do(ctx, "fetch-"+url, func() error {
		tabCtx, cancel := chromedp.NewContext(f.allocCtx)
		defer cancel()

		tabCtx, cancelTimeout := context.WithTimeout(tabCtx, 60*time.Second)
		defer cancelTimeout()

		return chromedp.Run(tabCtx,
			chromedp.Navigate(url),
			chromedp.Sleep(3*time.Second),
			chromedp.OuterHTML("html", &html),
		)
	})
	if err != nil {
		return nil, fmt.Errorf("chrome: fetch %q: %w", url, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("chrome: parse %q: %w", url, err)
	}
	return doc, nil
}

// Close tears down the browser allocator.
func (f *ChromeFetcher) Close() error {
	f.cancelCtx()
	f.cancelAlloc()
	return nil
}

// findChromeBinary locates a Chrome/Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
