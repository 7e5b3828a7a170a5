package domain

import "context"

// Scraper extracts normalized reviews from a live page. platform may be
// empty, in which case the implementation detects it from the URL and falls
// back to universal pattern extraction for unknown sites. ScrapeFirst tries
// candidate URLs in order, moving past ones the site reports missing.
type Scraper interface {
	Scrape(ctx context.Context, rawURL, platform string, maxReviews int) ([]Review, error)
	ScrapeFirst(ctx context.Context, urls []string, platform string, maxReviews int) ([]Review, error)
}

// YelpAPI fetches reviews through the Yelp Fusion API.
type YelpAPI interface {
	BusinessReviews(ctx context.Context, businessID string) ([]Review, error)
}

// RunStore persists scrape runs so the latest snapshot survives restarts.
type RunStore interface {
	SaveRun(ctx context.Context, run *ScrapeRun) (int64, error)
	LatestRun(ctx context.Context) (*ScrapeRun, error)
	LogMiss(ctx context.Context, platform string, status int, reason string) error
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
