// Package extract turns fetched HTML into normalized reviews, either
// through a platform's CSS selectors or a generic review-shaped-markup
// fallback for unknown sites.
package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"review_scraper/internal/domain"
)

var ratingRE = regexp.MustCompile(`(\d+(?:\.\d+)?)`)

// Class regexes used by the universal fallback to spot review-shaped
// markup on sites without a selector config.
var (
	containerClassRE = regexp.MustCompile(`(?i)review|comment|feedback`)
	textClassRE      = regexp.MustCompile(`(?i)text|content|body`)
	ratingClassRE    = regexp.MustCompile(`(?i)rating|star|score`)
	nameClassRE      = regexp.MustCompile(`(?i)name|author|user`)
)

// Configured parses reviews out of html using the platform's selectors.
// At most cfg.MaxReviews containers are examined; containers without
// meaningful content or with text shorter than cfg.MinReviewLength are
// dropped. pageURL becomes each review's review_url.
func Configured(html, pageURL string, cfg domain.PlatformConfig) ([]domain.Review, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse %s page: %w", cfg.Key, err)
	}

	var reviews []domain.Review
	examined := 0
	doc.Find(cfg.Selectors.Container).EachWithBreak(func(_ int, container *goquery.Selection) bool {
		if r, ok := reviewFromContainer(container, pageURL, cfg); ok {
			reviews = append(reviews, r)
		}
		examined++
		return examined < cfg.MaxReviews
	})
	return reviews, nil
}

func reviewFromContainer(container *goquery.Selection, pageURL string, cfg domain.PlatformConfig) (domain.Review, bool) {
	reviewer := strings.TrimSpace(container.Find(cfg.Selectors.Reviewer).First().Text())
	if reviewer == "" {
		reviewer = "Anonymous"
	}

	ratingSel := container.Find(cfg.Selectors.Rating).First()
	ratingText := ratingSel.AttrOr("aria-label", "")
	if ratingText == "" {
		ratingText = ratingSel.Text()
	}
	rating := parseRating(ratingText)

	text := strings.TrimSpace(container.Find(cfg.Selectors.Text).First().Text())

	dateSel := container.Find(cfg.Selectors.Date).First()
	date := strings.TrimSpace(dateSel.Text())
	if date == "" {
		date = dateSel.AttrOr("datetime", "")
	}

	if text == "" && rating == 0 {
		return domain.Review{}, false
	}
	if len(text) < cfg.MinReviewLength {
		return domain.Review{}, false
	}
	return newReview(cfg.Key, reviewer, rating, text, date, pageURL), true
}

// Universal extracts reviews from pages with no selector config. It
// walks div/article/section elements whose class looks review-like and
// pulls text, rating, and reviewer from class-name conventions. Only
// candidates with review text are kept.
func Universal(html, pageURL, platform string, maxReviews int) ([]domain.Review, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	if platform == "" {
		platform = "universal"
	}
	if maxReviews <= 0 {
		maxReviews = 50
	}

	var reviews []domain.Review
	seen := make(map[string]struct{})
	doc.Find("div, article, section").EachWithBreak(func(_ int, container *goquery.Selection) bool {
		if !containerClassRE.MatchString(container.AttrOr("class", "")) {
			return true
		}

		var text string
		if el := findByClass(container, "p, div, span", textClassRE); el != nil {
			text = strings.TrimSpace(el.Text())
		}
		if text == "" {
			return true
		}
		// Nested containers surface the same review more than once.
		if _, dup := seen[text]; dup {
			return true
		}
		seen[text] = struct{}{}

		var rating float64
		if el := findByClass(container, "span, div", ratingClassRE); el != nil {
			raw := el.Text()
			if strings.TrimSpace(raw) == "" {
				raw = el.AttrOr("aria-label", "")
			}
			rating = parseRating(raw)
		}

		reviewer := ""
		if el := findByClass(container, "span, div, p", nameClassRE); el != nil {
			reviewer = strings.TrimSpace(el.Text())
		}
		if reviewer == "" {
			reviewer = "Anonymous"
		}

		reviews = append(reviews, newReview(platform, reviewer, rating, text, "", pageURL))
		return len(reviews) < maxReviews
	})
	return reviews, nil
}

// findByClass returns the first element under container matching the tag
// list whose class attribute matches re, or nil.
func findByClass(container *goquery.Selection, tags string, re *regexp.Regexp) *goquery.Selection {
	var found *goquery.Selection
	container.Find(tags).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if re.MatchString(s.AttrOr("class", "")) {
			found = s
			return false
		}
		return true
	})
	return found
}

func parseRating(raw string) float64 {
	m := ratingRE.FindString(raw)
	if m == "" {
		return 0
	}
	rating, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return rating
}

// newReview assembles the final cleaned review shared by both extraction
// paths.
func newReview(platformKey, reviewer string, rating float64, text, date, pageURL string) domain.Review {
	rating = ClampRating(rating)
	return domain.Review{
		ReviewerName: SanitizeText(reviewer),
		Rating:       rating,
		Text:         SanitizeText(text),
		Date:         NormalizeDate(date),
		ReviewURL:    pageURL,
		ReviewLink:   ReviewLink(platformKey, pageURL),
		Source:       platformKey + "_scraping",
		Platform:     platformKey,
		StarDisplay:  StarDisplay(rating),
	}
}
