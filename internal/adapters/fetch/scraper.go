package fetch

import (
	"context"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"review_scraper/internal/adapters/extract"
	"review_scraper/internal/domain"
	"review_scraper/internal/platforms"
)

// Matches the ASIN segment in both /dp/ and /product-reviews/ page URLs.
var asinPathRe = regexp.MustCompile(`(?i)/(?:product-reviews|dp|gp/product)/([A-Z0-9]{10})`)

// Scraper turns a page URL into reviews: resolve the platform config, fetch
// through the right transport tier, extract.
type Scraper struct {
	client  *Client
	browser *Browser // nil when headless Chrome is disabled
}

func NewScraper(client *Client, browser *Browser) *Scraper {
	return &Scraper{client: client, browser: browser}
}

// Scrape implements domain.Scraper. An explicit platform key overrides URL
// detection; keys and URLs that resolve to no config take the universal
// extraction path. maxReviews tightens (never widens) the config cap.
func (s *Scraper) Scrape(ctx context.Context, rawURL, platform string, maxReviews int) ([]domain.Review, error) {
	key := strings.ToLower(strings.TrimSpace(platform))

	var cfg domain.PlatformConfig
	var ok bool
	if key != "" {
		cfg, ok = platforms.Get(key)
	} else {
		cfg, ok = platforms.Detect(rawURL)
	}
	if !ok {
		return s.universal(ctx, rawURL, key, maxReviews)
	}

	if maxReviews > 0 && maxReviews < cfg.MaxReviews {
		cfg.MaxReviews = maxReviews
	}

	html, err := s.pageHTML(ctx, rawURL, cfg)
	if err != nil {
		return nil, err
	}
	return extract.Configured(html, rawURL, cfg)
}

// ScrapeFirst implements domain.Scraper. It fetches the first candidate URL
// that does not 404 and extracts from that page. Amazon exposes the same
// reviews under several path shapes and rotates which ones resolve, so
// callers hand over the whole candidate list in one go.
func (s *Scraper) ScrapeFirst(ctx context.Context, urls []string, platform string, maxReviews int) ([]domain.Review, error) {
	key := strings.ToLower(strings.TrimSpace(platform))
	cfg, ok := platforms.Get(key)
	if !ok {
		cfg, ok = platforms.Detect(first(urls))
	}
	if !ok {
		return s.universal(ctx, first(urls), key, maxReviews)
	}

	if maxReviews > 0 && maxReviews < cfg.MaxReviews {
		cfg.MaxReviews = maxReviews
	}

	var headers map[string]string
	if len(urls) > 0 {
		headers = headersFor(cfg, urls[0])
	}
	body, servedBy, err := s.client.FetchFirst(ctx, urls, headers, cfg.AntiBotLevel >= domain.AntiBotBypassLevel)
	if err != nil {
		return nil, err
	}
	return extract.Configured(string(body), servedBy, cfg)
}

func first(urls []string) string {
	if len(urls) == 0 {
		return ""
	}
	return urls[0]
}

// pageHTML picks the transport tier: headless browser for JS-rendered pages,
// anti-bot transport for heavily defended sites, plain client otherwise. A
// failed render degrades to the HTTP tiers instead of failing the scrape.
func (s *Scraper) pageHTML(ctx context.Context, rawURL string, cfg domain.PlatformConfig) (string, error) {
	if cfg.RequiresJS && s.browser != nil {
		html, err := s.browser.Render(ctx, rawURL, cfg.Timeout, cfg.DynamicLoading)
		if err == nil {
			return html, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		log.Warn().Err(err).Str("platform", cfg.Key).Str("url", rawURL).
			Msg("browser render failed, falling back to http")
	}

	headers := headersFor(cfg, rawURL)
	var body []byte
	var err error
	if cfg.AntiBotLevel >= domain.AntiBotBypassLevel {
		body, err = s.client.GetBypass(ctx, rawURL, headers)
	} else {
		body, err = s.client.Get(ctx, rawURL, headers)
	}
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// headersFor builds per-platform request headers. Amazon checks that review
// page hits arrive from the product page, so those requests carry a Referer
// pointing at the /dp/ URL for the same ASIN.
func headersFor(cfg domain.PlatformConfig, rawURL string) map[string]string {
	if cfg.Key != "amazon" {
		return nil
	}
	m := asinPathRe.FindStringSubmatch(rawURL)
	if m == nil {
		return nil
	}
	return map[string]string{"Referer": "https://www.amazon.com/dp/" + strings.ToUpper(m[1])}
}

func (s *Scraper) universal(ctx context.Context, rawURL, key string, maxReviews int) ([]domain.Review, error) {
	body, err := s.client.Get(ctx, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return extract.Universal(string(body), rawURL, key, maxReviews)
}
