package analyzer

import (
	"sort"

	"review_scraper/internal/domain"
)

// Insights aggregates a filtered review set for API consumers.
type Insights struct {
	TotalReviews       int            `json:"total_reviews"`
	AverageRating      float64        `json:"average_rating"`
	CategoryBreakdown  map[string]int `json:"category_breakdown"`
	SentimentBreakdown map[string]int `json:"sentiment_breakdown"`
	TopCategories      []string       `json:"top_categories"`
	RatingDistribution map[string]int `json:"rating_distribution"`
}

// Insights summarizes reviews that have already been annotated by
// FilterReviews. Reviews missing a sentiment label count as neutral.
func (a *Analyzer) Insights(reviews []domain.Review) Insights {
	ins := Insights{
		CategoryBreakdown:  map[string]int{},
		SentimentBreakdown: map[string]int{},
		TopCategories:      []string{},
		RatingDistribution: map[string]int{
			"5_star": 0, "4_star": 0, "3_star": 0, "2_star": 0, "1_star": 0,
		},
	}
	if len(reviews) == 0 {
		return ins
	}

	var sum float64
	for _, r := range reviews {
		for _, cat := range r.Categories {
			ins.CategoryBreakdown[cat]++
		}
		sentiment := r.Sentiment
		if sentiment == "" {
			sentiment = domain.SentimentNeutral
		}
		ins.SentimentBreakdown[sentiment]++

		sum += r.Rating
		switch {
		case r.Rating >= 4.5:
			ins.RatingDistribution["5_star"]++
		case r.Rating >= 3.5:
			ins.RatingDistribution["4_star"]++
		case r.Rating >= 2.5:
			ins.RatingDistribution["3_star"]++
		case r.Rating >= 1.5:
			ins.RatingDistribution["2_star"]++
		default:
			ins.RatingDistribution["1_star"]++
		}
	}

	ins.TotalReviews = len(reviews)
	ins.AverageRating = sum / float64(len(reviews))
	ins.TopCategories = topCategories(ins.CategoryBreakdown, 5)
	return ins
}

// topCategories orders by count descending, name ascending on ties, and
// keeps the first n.
func topCategories(counts map[string]int, n int) []string {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > n {
		names = names[:n]
	}
	return names
}
