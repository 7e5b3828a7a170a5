package analyzer

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"review_scraper/internal/domain"
)

// Sort orders accepted by Filter.SortBy. All of them sort descending.
const (
	SortRelevance = "relevance"
	SortRating    = "rating"
	SortDate      = "date"
	SortLength    = "length"
)

// Reviews scoring at or below this relevance are dropped when keyword
// filtering is active.
const relevanceThreshold = 0.1

// Filter selects and orders reviews. Zero values mean "no constraint"
// except MaxRating, which callers should set (see DefaultFilter).
type Filter struct {
	Keywords   []string
	Categories []string
	MinRating  float64
	MaxRating  float64
	Sentiment  string
	SortBy     string
	Limit      int
}

// DefaultFilter matches everything and returns up to 50 reviews by
// relevance.
func DefaultFilter() Filter {
	return Filter{
		MinRating: 0,
		MaxRating: 5,
		SortBy:    SortRelevance,
		Limit:     50,
	}
}

var platformLimits = map[string]int{
	"amazon":  100,
	"walmart": 75,
	"yelp":    50,
	"target":  75,
}

// PlatformFilter returns a filter tuned to the review volume a platform
// typically yields. Unknown platforms get the amazon defaults.
func PlatformFilter(platform string, keywords []string) Filter {
	limit, ok := platformLimits[strings.ToLower(platform)]
	if !ok {
		limit = platformLimits["amazon"]
	}
	return Filter{
		Keywords:  keywords,
		MinRating: 1,
		MaxRating: 5,
		SortBy:    SortRelevance,
		Limit:     limit,
	}
}

// FilterReviews applies f to reviews and returns the surviving ones,
// annotated with sentiment, categories, and keyword relevance. Inputs
// are not mutated. The result is sorted per f.SortBy and capped at
// f.Limit when the limit is positive.
func (a *Analyzer) FilterReviews(reviews []domain.Review, f Filter) []domain.Review {
	out := make([]domain.Review, 0, len(reviews))
	for _, r := range reviews {
		if r.Rating < f.MinRating || r.Rating > f.MaxRating {
			continue
		}
		sentiment := a.Sentiment(r.Text)
		if f.Sentiment != "" && sentiment != f.Sentiment {
			continue
		}
		r.Sentiment = sentiment
		r.Categories = a.Categorize(r.Text)
		if len(f.Categories) > 0 && !intersects(r.Categories, f.Categories) {
			continue
		}
		if len(f.Keywords) > 0 {
			relevance := a.KeywordRelevance(r.Text, f.Keywords)
			if relevance <= relevanceThreshold {
				continue
			}
			r.KeywordRelevance = relevance
			r.RelevancePercentage = fmt.Sprintf("%.1f%%", relevance*100)
		} else {
			r.KeywordRelevance = 1.0
			r.RelevancePercentage = "100%"
		}
		out = append(out, r)
	}
	sortReviews(out, f.SortBy)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

func sortReviews(reviews []domain.Review, sortBy string) {
	switch sortBy {
	case SortRelevance:
		sort.SliceStable(reviews, func(i, j int) bool {
			return reviews[i].KeywordRelevance > reviews[j].KeywordRelevance
		})
	case SortRating:
		sort.SliceStable(reviews, func(i, j int) bool {
			return reviews[i].Rating > reviews[j].Rating
		})
	case SortDate:
		sort.SliceStable(reviews, func(i, j int) bool {
			return compareDates(reviews[i].Date, reviews[j].Date) > 0
		})
	case SortLength:
		sort.SliceStable(reviews, func(i, j int) bool {
			return len(reviews[i].Text) > len(reviews[j].Text)
		})
	}
}

// compareDates orders two normalized dates by parsed time when both are
// RFC3339, and lexicographically otherwise.
func compareDates(a, b string) int {
	ta, errA := time.Parse(time.RFC3339, a)
	tb, errB := time.Parse(time.RFC3339, b)
	if errA == nil && errB == nil {
		switch {
		case ta.After(tb):
			return 1
		case ta.Before(tb):
			return -1
		default:
			return 0
		}
	}
	return strings.Compare(a, b)
}

func intersects(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
