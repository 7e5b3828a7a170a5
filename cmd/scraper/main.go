package main

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"review_scraper/internal/adapters/fetch"
	"review_scraper/internal/adapters/observability"
	"review_scraper/internal/analyzer"
	"review_scraper/internal/domain"
	"review_scraper/internal/platforms"
	"review_scraper/internal/shared"
)

// pageReport is one URL's slice of the JSON written to stdout.
type pageReport struct {
	URL          string            `json:"url"`
	Platform     string            `json:"platform"`
	TotalReviews int               `json:"total_reviews"`
	Reviews      []annotatedReview `json:"reviews"`
	Insights     analyzer.Insights `json:"insights"`
	Error        string            `json:"error,omitempty"`
}

type annotatedReview struct {
	domain.Review
	Authenticity analyzer.Authenticity `json:"authenticity"`
}

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	urls := os.Args[1:]
	if len(urls) == 0 {
		log.Fatal().Msg("usage: scraper <url> [url ...]")
	}

	log.Info().
		Int("urls", len(urls)).
		Int("workers", cfg.SearchWorkers).
		Msg("scraper starting")

	client, err := fetch.NewClient(cfg.ScrapeRPS, time.Duration(cfg.ScrapeTimeoutSec)*time.Second)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize fetch client")
	}
	var browser *fetch.Browser
	if cfg.BrowserEnabled {
		browser = fetch.NewBrowser()
		defer browser.Close()
	}
	scraper := fetch.NewScraper(client, browser)
	an := analyzer.New()

	perURL := time.Duration(cfg.SearchTimeoutSec) * time.Second
	sem := semaphore.NewWeighted(int64(cfg.SearchWorkers))
	var wg sync.WaitGroup

	// each worker writes only its own index, so no mutex is needed
	reports := make([]pageReport, len(urls))
	for i, rawURL := range urls {
		i, rawURL := i, rawURL

		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, int64(1)); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func(slot int, pageURL string) {
			defer wg.Done()
			defer sem.Release(int64(1))

			reports[slot] = scrapePage(ctx, scraper, an, pageURL, perURL)
		}(i, rawURL)
	}

	wg.Wait()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(reports); err != nil {
		log.Fatal().Err(err).Msg("encode reports failed")
	}
	log.Info().Msg("scraping completed")
}

// scrapePage fetches one URL, runs the analyzer over whatever came back, and
// folds failures into the report instead of aborting the batch.
func scrapePage(ctx context.Context, scraper *fetch.Scraper, an *analyzer.Analyzer, rawURL string, timeout time.Duration) pageReport {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	key := "universal"
	if cfg, ok := platforms.Detect(rawURL); ok {
		key = cfg.Key
	}
	rep := pageReport{URL: rawURL, Platform: key, Reviews: []annotatedReview{}}

	reviews, err := scraper.Scrape(ctx, rawURL, "", 0)
	if err != nil {
		log.Warn().Str("url", rawURL).Err(err).Msg("scrape failed")
		rep.Error = err.Error()
		return rep
	}

	filtered := an.FilterReviews(reviews, analyzer.PlatformFilter(key, nil))
	for _, r := range filtered {
		rep.Reviews = append(rep.Reviews, annotatedReview{
			Review:       r,
			Authenticity: an.Authenticity(r),
		})
	}
	rep.TotalReviews = len(rep.Reviews)
	rep.Insights = an.Insights(filtered)

	log.Info().
		Str("url", rawURL).
		Str("platform", key).
		Int("reviews", rep.TotalReviews).
		Msg("scrape ok")
	return rep
}
