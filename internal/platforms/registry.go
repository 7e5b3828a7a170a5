// Package platforms holds the built-in scraping configurations and maps
// incoming URLs to them.
package platforms

import (
	"net/url"
	"sort"
	"strings"
	"time"

	"review_scraper/internal/domain"
)

// registry is keyed by platform key. Selector sets mirror each site's live
// markup; anti-bot levels range from 1 (plain requests work) to 5 (expect
// fingerprinting and JS challenges).
var registry = map[string]domain.PlatformConfig{
	"amazon": {
		Name:   "Amazon",
		Domain: "amazon.com",
		Selectors: domain.Selectors{
			Container: "[data-hook='review']",
			Reviewer:  "[data-hook='review-author']",
			Rating:    "[data-hook='review-star-rating']",
			Text:      "[data-hook='review-body'] span",
			Date:      "[data-hook='review-date']",
		},
		DynamicLoading: true,
		RequiresJS:     true,
		AntiBotLevel:   5,
	},
	"walmart": {
		Name:   "Walmart",
		Domain: "walmart.com",
		Selectors: domain.Selectors{
			Container: "[data-automation-id='reviews-section-review']",
			Reviewer:  "[data-automation-id='review-author-name']",
			Rating:    "[data-automation-id='review-star-rating']",
			Text:      "[data-automation-id='review-text']",
			Date:      "[data-automation-id='review-date']",
		},
		DynamicLoading: true,
		RequiresJS:     true,
		AntiBotLevel:   4,
	},
	"target": {
		Name:   "Target",
		Domain: "target.com",
		Selectors: domain.Selectors{
			Container: "[data-test='review-content']",
			Reviewer:  "[data-test='review-author']",
			Rating:    "[data-test='review-stars']",
			Text:      "[data-test='review-text']",
			Date:      "[data-test='review-date']",
		},
		DynamicLoading: true,
		AntiBotLevel:   3,
	},
	"bestbuy": {
		Name:   "Best Buy",
		Domain: "bestbuy.com",
		Selectors: domain.Selectors{
			Container: ".review-item-content",
			Reviewer:  ".sr-only",
			Rating:    ".sr-only",
			Text:      ".review-text",
			Date:      ".review-date",
		},
		DynamicLoading: true,
		AntiBotLevel:   3,
	},
	"homedepot": {
		Name:   "Home Depot",
		Domain: "homedepot.com",
		Selectors: domain.Selectors{
			Container: "[data-testid='review']",
			Reviewer:  "[data-testid='review-author']",
			Rating:    "[data-testid='review-rating']",
			Text:      "[data-testid='review-text']",
			Date:      "[data-testid='review-date']",
		},
		AntiBotLevel: 2,
	},
	"lowes": {
		Name:   "Lowe's",
		Domain: "lowes.com",
		Selectors: domain.Selectors{
			Container: ".review-item",
			Reviewer:  ".review-author",
			Rating:    ".review-rating",
			Text:      ".review-content",
			Date:      ".review-date",
		},
		AntiBotLevel: 2,
	},
	"wayfair": {
		Name:   "Wayfair",
		Domain: "wayfair.com",
		Selectors: domain.Selectors{
			Container: "[data-enzyme-id='ReviewListItem']",
			Reviewer:  "[data-enzyme-id='ReviewAuthor']",
			Rating:    "[data-enzyme-id='ReviewRating']",
			Text:      "[data-enzyme-id='ReviewText']",
			Date:      "[data-enzyme-id='ReviewDate']",
		},
		DynamicLoading: true,
		AntiBotLevel:   3,
	},
	"overstock": {
		Name:   "Overstock",
		Domain: "overstock.com",
		Selectors: domain.Selectors{
			Container: ".review-item",
			Reviewer:  ".review-author",
			Rating:    ".review-rating",
			Text:      ".review-text",
			Date:      ".review-date",
		},
		AntiBotLevel: 2,
	},
	"newegg": {
		Name:   "Newegg",
		Domain: "newegg.com",
		Selectors: domain.Selectors{
			Container: ".review-item",
			Reviewer:  ".review-author",
			Rating:    ".review-rating",
			Text:      ".review-text",
			Date:      ".review-date",
		},
		AntiBotLevel: 3,
	},
	"costco": {
		Name:   "Costco",
		Domain: "costco.com",
		Selectors: domain.Selectors{
			Container: ".review-item",
			Reviewer:  ".review-author",
			Rating:    ".review-rating",
			Text:      ".review-text",
			Date:      ".review-date",
		},
		AntiBotLevel: 2,
	},
	"ebay": {
		Name:   "eBay",
		Domain: "ebay.com",
		Selectors: domain.Selectors{
			Container: ".reviews .review-item-content",
			Reviewer:  ".review-item-author",
			Rating:    ".star-rating",
			Text:      ".review-item-text",
			Date:      ".review-item-date",
		},
		DynamicLoading: true,
		AntiBotLevel:   4,
	},
	"etsy": {
		Name:   "Etsy",
		Domain: "etsy.com",
		Selectors: domain.Selectors{
			Container: "[data-region='review']",
			Reviewer:  "[data-region='review-author']",
			Rating:    "[data-region='review-rating']",
			Text:      "[data-region='review-text']",
			Date:      "[data-region='review-date']",
		},
		AntiBotLevel: 3,
	},
	"yelp": {
		Name:   "Yelp",
		Domain: "yelp.com",
		Selectors: domain.Selectors{
			Container: "[data-testid='review']",
			Reviewer:  "[data-testid='reviewer-name']",
			Rating:    "[data-testid='review-rating']",
			Text:      "[data-testid='review-text']",
			Date:      "[data-testid='review-date']",
		},
		DynamicLoading: true,
		RequiresJS:     true,
		AntiBotLevel:   5,
	},
	"tripadvisor": {
		Name:   "TripAdvisor",
		Domain: "tripadvisor.com",
		Selectors: domain.Selectors{
			Container: "[data-test-target='review-card']",
			Reviewer:  "[data-test-target='reviewer-name']",
			Rating:    "[data-test-target='review-rating']",
			Text:      "[data-test-target='review-text']",
			Date:      "[data-test-target='review-date']",
		},
		DynamicLoading: true,
		AntiBotLevel:   4,
	},
	"trustpilot": {
		Name:   "Trustpilot",
		Domain: "trustpilot.com",
		Selectors: domain.Selectors{
			Container: "[data-service-review-card-paper]",
			Reviewer:  "[data-consumer-name-typography]",
			Rating:    "[data-service-review-rating]",
			Text:      "[data-service-review-text-typography]",
			Date:      "[data-service-review-date-time-ago]",
		},
		AntiBotLevel: 3,
	},
	"glassdoor": {
		Name:   "Glassdoor",
		Domain: "glassdoor.com",
		Selectors: domain.Selectors{
			Container: "[data-test='review-item']",
			Reviewer:  "[data-test='reviewer-name']",
			Rating:    "[data-test='review-rating']",
			Text:      "[data-test='review-text']",
			Date:      "[data-test='review-date']",
		},
		RequiresJS:   true,
		AntiBotLevel: 4,
	},
	"nike": {
		Name:   "Nike",
		Domain: "nike.com",
		Selectors: domain.Selectors{
			Container: ".review-item",
			Reviewer:  ".reviewer-name",
			Rating:    ".star-rating",
			Text:      ".review-text",
			Date:      ".review-date",
		},
		AntiBotLevel: 3,
	},
	"adidas": {
		Name:   "Adidas",
		Domain: "adidas.com",
		Selectors: domain.Selectors{
			Container: "[data-testid='review']",
			Reviewer:  "[data-testid='reviewer-name']",
			Rating:    "[data-testid='review-rating']",
			Text:      "[data-testid='review-text']",
			Date:      "[data-testid='review-date']",
		},
		AntiBotLevel: 3,
	},
	"macys": {
		Name:   "Macy's",
		Domain: "macys.com",
		Selectors: domain.Selectors{
			Container: ".review-item",
			Reviewer:  ".review-author",
			Rating:    ".review-rating",
			Text:      ".review-text",
			Date:      ".review-date",
		},
		AntiBotLevel: 2,
	},
	"nordstrom": {
		Name:   "Nordstrom",
		Domain: "nordstrom.com",
		Selectors: domain.Selectors{
			Container: "[data-testid='review']",
			Reviewer:  "[data-testid='reviewer-name']",
			Rating:    "[data-testid='review-rating']",
			Text:      "[data-testid='review-text']",
			Date:      "[data-testid='review-date']",
		},
		AntiBotLevel: 2,
	},
}

func init() {
	for key, cfg := range registry {
		cfg.Key = key
		if cfg.RatingScale == 0 {
			cfg.RatingScale = 5
		}
		if cfg.MaxReviews == 0 {
			cfg.MaxReviews = 50
		}
		if cfg.MinReviewLength == 0 {
			cfg.MinReviewLength = 10
		}
		if cfg.Delay == 0 {
			cfg.Delay = time.Second
		}
		if cfg.Timeout == 0 {
			cfg.Timeout = 30 * time.Second
		}
		if cfg.RetryAttempts == 0 {
			cfg.RetryAttempts = 3
		}
		registry[key] = cfg
	}
}

// Get returns the config for a platform key.
func Get(key string) (domain.PlatformConfig, bool) {
	cfg, ok := registry[strings.ToLower(strings.TrimSpace(key))]
	return cfg, ok
}

// Detect matches a URL's host against the registered domains. The host is
// lowercased and stripped of a leading www. before substring matching, so
// subdomains and country TLD prefixes like smile.amazon.com still resolve.
func Detect(rawURL string) (domain.PlatformConfig, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return domain.PlatformConfig{}, false
	}
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	for _, cfg := range registry {
		if strings.Contains(host, cfg.Domain) {
			return cfg, true
		}
	}
	return domain.PlatformConfig{}, false
}

// Keys returns the platform keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(registry))
	for k := range registry {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// All returns every config sorted by key, for the /platforms listing.
func All() []domain.PlatformConfig {
	out := make([]domain.PlatformConfig, 0, len(registry))
	for _, k := range Keys() {
		out = append(out, registry[k])
	}
	return out
}
