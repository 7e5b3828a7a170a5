package app

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"review_scraper/internal/adapters/observability"
	"review_scraper/internal/domain"
	"review_scraper/internal/platforms"
)

// UniversalResult is the payload of a one-off dispatcher scrape.
type UniversalResult struct {
	Reviews          []domain.Review `json:"reviews"`
	TotalReviews     int             `json:"total_reviews"`
	Platform         string          `json:"platform"`
	ScrapedAt        string          `json:"scraped_at"`
	OriginalURL      string          `json:"original_url"`
	KeywordsFiltered []string        `json:"keywords_filtered,omitempty"`
	ScrapingMethod   string          `json:"scraping_method"`
	DataType         string          `json:"data_type"`
}

// ScrapeUniversal scrapes one URL through the platform dispatcher, keeps only
// reviews mentioning any of the keywords when keywords are given, and folds
// the result into the served snapshot's universal slice. The platform
// argument overrides URL detection.
func (s *ScrapeService) ScrapeUniversal(ctx context.Context, rawURL, platform string, keywords []string) (UniversalResult, error) {
	if err := domain.ValidateURL(rawURL); err != nil {
		return UniversalResult{}, err
	}

	key, method := "universal", "universal_fallback"
	if cfg, ok := platforms.Get(platform); ok {
		key, method = cfg.Key, "configured_extraction"
	} else if cfg, ok := platforms.Detect(rawURL); ok {
		key, method = cfg.Key, "configured_extraction"
	}

	reviews, err := s.scraper.Scrape(ctx, rawURL, platform, 0)
	if err != nil {
		observability.ObserveScrape(key, observability.LabelErr(err))
		return UniversalResult{}, err
	}
	observability.ObserveScrape(key, "ok")

	if len(keywords) > 0 {
		kept := make([]domain.Review, 0, len(reviews))
		for _, r := range reviews {
			if matchAnyKeyword(r.Text, keywords) {
				kept = append(kept, r)
			}
		}
		reviews = kept
	}

	s.SetUniversal(ctx, rawURL, reviews)
	log.Info().Int("reviews", len(reviews)).Str("platform", key).Str("url", rawURL).
		Msg("universal scrape completed")

	return UniversalResult{
		Reviews:          reviews,
		TotalReviews:     len(reviews),
		Platform:         key,
		ScrapedAt:        time.Now().UTC().Format(time.RFC3339),
		OriginalURL:      rawURL,
		KeywordsFiltered: keywords,
		ScrapingMethod:   method,
		DataType:         "extracted_reviews",
	}, nil
}

// matchAnyKeyword is plain substring matching, intentionally looser than the
// analyzer's stemmed relevance scoring.
func matchAnyKeyword(text string, keywords []string) bool {
	t := strings.ToLower(text)
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" && strings.Contains(t, k) {
			return true
		}
	}
	return false
}
