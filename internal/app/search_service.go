package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"review_scraper/internal/analyzer"
	"review_scraper/internal/domain"
	"review_scraper/internal/platforms"
)

// searchURLs maps a platform key to its product search URL shape. The query
// is inserted already escaped.
var searchURLs = map[string]string{
	"amazon":  "https://www.amazon.com/s?k=%s",
	"walmart": "https://www.walmart.com/search/?query=%s",
	"target":  "https://www.target.com/s?searchTerm=%s",
	"bestbuy": "https://www.bestbuy.com/site/searchpage.jsp?st=%s",
	"ebay":    "https://www.ebay.com/sch/i.html?_nkw=%s",
}

// searchOrder keeps fan-out results and platforms_scraped deterministic.
var searchOrder = []string{"amazon", "walmart", "target", "bestbuy", "ebay"}

// FilterEcho mirrors the applied filter back to API consumers.
type FilterEcho struct {
	Keywords   []string `json:"keywords"`
	Categories []string `json:"categories"`
	MinRating  float64  `json:"min_rating"`
	MaxRating  float64  `json:"max_rating"`
	Sentiment  string   `json:"sentiment"`
	SortBy     string   `json:"sort_by"`
}

// SearchResult is the data payload of an intelligent search: filtered
// reviews, their aggregate insights, and the filter echo.
type SearchResult struct {
	Reviews          []domain.Review   `json:"reviews"`
	Insights         analyzer.Insights `json:"insights"`
	FilterApplied    FilterEcho        `json:"filter_applied"`
	TotalFound       int               `json:"total_found"`
	TotalScraped     int               `json:"total_scraped"`
	Platform         string            `json:"platform,omitempty"`
	PlatformsScraped []string          `json:"platforms_scraped,omitempty"`
	Product          string            `json:"product,omitempty"`
	Errors           []string          `json:"errors,omitempty"`
	ScrapedAt        string            `json:"scraped_at"`
	OriginalURL      string            `json:"original_url,omitempty"`
}

// SearchService answers intelligent review searches: single-URL scrapes and
// multi-platform product fan-outs, both run through the analyzer.
type SearchService struct {
	scraper  domain.Scraper
	analyzer *analyzer.Analyzer
	cache    domain.Cache
	ttlSec   int
	workers  int64
	perQuery time.Duration
}

// NewSearchService wires the search pipeline. workers bounds concurrent
// platform scrapes, timeoutSec bounds each one.
func NewSearchService(scraper domain.Scraper, an *analyzer.Analyzer, cache domain.Cache, ttlSec, workers, timeoutSec int) *SearchService {
	if ttlSec <= 0 {
		ttlSec = 900
	}
	if workers <= 0 {
		workers = 3
	}
	if timeoutSec <= 0 {
		timeoutSec = 60
	}
	return &SearchService{
		scraper:  scraper,
		analyzer: an,
		cache:    cache,
		ttlSec:   ttlSec,
		workers:  int64(workers),
		perQuery: time.Duration(timeoutSec) * time.Second,
	}
}

// SearchURL scrapes one product page and filters its reviews. Unknown
// domains are rejected; the universal fallback stays on /universal where the
// caller asked for it explicitly.
func (s *SearchService) SearchURL(ctx context.Context, rawURL string, f analyzer.Filter) (SearchResult, error) {
	if err := domain.ValidateURL(rawURL); err != nil {
		return SearchResult{}, err
	}
	cfg, ok := platforms.Detect(rawURL)
	if !ok {
		return SearchResult{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedPlatform, rawURL)
	}

	reviews, err := s.scrapeCached(ctx, "search:url:"+rawURL, rawURL, cfg.Key, 0)
	if err != nil {
		return SearchResult{}, err
	}

	filtered := s.analyzer.FilterReviews(reviews, f)
	log.Info().Str("platform", cfg.Key).Int("matched", len(filtered)).Int("scraped", len(reviews)).
		Msg("intelligent search completed")
	return SearchResult{
		Reviews:       filtered,
		Insights:      s.analyzer.Insights(filtered),
		FilterApplied: echoFilter(f),
		TotalFound:    len(filtered),
		TotalScraped:  len(reviews),
		Platform:      cfg.Key,
		ScrapedAt:     time.Now().UTC().Format(time.RFC3339),
		OriginalURL:   rawURL,
	}, nil
}

// SearchProduct fans a product query out across the search pages of the
// major platforms, bounded by the worker semaphore and a per-platform
// timeout. Per-platform failures are recorded and aggregation continues;
// only a run where every platform failed is an error.
func (s *SearchService) SearchProduct(ctx context.Context, product string, only []string, f analyzer.Filter) (SearchResult, error) {
	product = strings.TrimSpace(product)
	if product == "" {
		return SearchResult{}, fmt.Errorf("%w: product is required", domain.ErrInvalidInput)
	}

	selected := selectPlatforms(only)
	if len(selected) == 0 {
		return SearchResult{}, fmt.Errorf("%w: none of %v has a search page", domain.ErrUnsupportedPlatform, only)
	}
	query := url.QueryEscape(product)

	sem := semaphore.NewWeighted(s.workers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	byPlatform := make(map[string][]domain.Review, len(selected))
	var errs []string

	for _, p := range selected {
		p := p
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Sprintf("%s search failed: %v", p, err))
				mu.Unlock()
				return
			}
			defer sem.Release(1)

			pctx, cancel := context.WithTimeout(ctx, s.perQuery)
			defer cancel()

			searchURL := fmt.Sprintf(searchURLs[p], query)
			key := fmt.Sprintf("search:product:%s:%s", p, query)
			revs, err := s.scrapeCached(pctx, key, searchURL, p, 0)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s search failed: %v", p, err))
				return
			}
			byPlatform[p] = revs
		}()
	}
	wg.Wait()

	var combined []domain.Review
	var scraped []string
	for _, p := range selected {
		revs, ok := byPlatform[p]
		if !ok {
			continue
		}
		combined = append(combined, revs...)
		scraped = append(scraped, p)
	}
	if len(combined) == 0 && len(errs) == len(selected) {
		return SearchResult{}, fmt.Errorf("all platform searches failed: %s", strings.Join(errs, "; "))
	}

	filtered := s.analyzer.FilterReviews(combined, f)
	log.Info().Str("product", product).Strs("platforms", scraped).Int("matched", len(filtered)).
		Int("scraped", len(combined)).Msg("multi-platform search completed")
	return SearchResult{
		Reviews:          filtered,
		Insights:         s.analyzer.Insights(filtered),
		FilterApplied:    echoFilter(f),
		TotalFound:       len(filtered),
		TotalScraped:     len(combined),
		PlatformsScraped: scraped,
		Product:          product,
		Errors:           errs,
		ScrapedAt:        time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// scrapeCached is cache-aside over the scraper: raw (unfiltered) reviews are
// cached per URL so repeat searches with different filters skip the fetch.
func (s *SearchService) scrapeCached(ctx context.Context, key, rawURL, platform string, maxReviews int) ([]domain.Review, error) {
	if s.cache != nil {
		var cached []domain.Review
		if ok, _ := s.cache.Get(ctx, key, &cached); ok {
			return cached, nil
		}
	}

	reviews, err := s.scraper.Scrape(ctx, rawURL, platform, maxReviews)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		// copy so annotation of the returned slice cannot alias the cached value
		cp := make([]domain.Review, len(reviews))
		copy(cp, reviews)

		// size guard
		if b, _ := json.Marshal(cp); len(b) < 1_000_000 {
			_ = s.cache.Set(ctx, key, cp, s.ttlSec)
		}
	}
	return reviews, nil
}

// selectPlatforms returns the platforms to fan out to, in fixed order. An
// empty filter means all of them; unknown names are dropped.
func selectPlatforms(only []string) []string {
	if len(only) == 0 {
		return searchOrder
	}
	want := make(map[string]bool, len(only))
	for _, p := range only {
		want[strings.ToLower(strings.TrimSpace(p))] = true
	}
	var out []string
	for _, p := range searchOrder {
		if want[p] {
			out = append(out, p)
		}
	}
	return out
}

func echoFilter(f analyzer.Filter) FilterEcho {
	return FilterEcho{
		Keywords:   f.Keywords,
		Categories: f.Categories,
		MinRating:  f.MinRating,
		MaxRating:  f.MaxRating,
		Sentiment:  f.Sentiment,
		SortBy:     f.SortBy,
	}
}
