package analyzer

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"review_scraper/internal/domain"
)

// Authenticity is a heuristic estimate of whether a review was written
// by a genuine customer.
type Authenticity struct {
	Score           float64  `json:"authenticity_score"`
	Percentage      string   `json:"authenticity_percentage"`
	LikelyAuthentic bool     `json:"is_likely_authentic"`
	Flags           []string `json:"flags"`
	Confidence      string   `json:"confidence"`
}

var genericPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(great|good|nice|awesome|amazing|excellent)\s+product\b`),
	regexp.MustCompile(`(?i)\bwould\s+recommend\b`),
	regexp.MustCompile(`(?i)\b(five|5)\s+stars?\b`),
	regexp.MustCompile(`(?i)\bbuy\s+this\b`),
}

// realNameRE matches "Jane D." style reviewer names.
var realNameRE = regexp.MustCompile(`^[A-Z][a-z]+\s[A-Z]\.$`)

// Authenticity scores a review between 0 and 1. Each triggered
// heuristic subtracts from a perfect score and records a flag; a
// plausible real-name pattern earns a small bonus.
func (a *Analyzer) Authenticity(r domain.Review) Authenticity {
	score := 1.0
	flags := []string{}

	if len(r.Text) < 20 {
		score -= 0.3
		flags = append(flags, "very_short_text")
	}
	if len(r.Text) > 2000 {
		score -= 0.1
		flags = append(flags, "very_long_text")
	}

	var generic int
	for _, p := range genericPatterns {
		if p.MatchString(r.Text) {
			generic++
		}
	}
	if generic >= 3 {
		score -= 0.2
		flags = append(flags, "generic_language")
	}

	sentiment := a.Sentiment(r.Text)
	if (r.Rating >= 4 && sentiment == domain.SentimentNegative) ||
		(r.Rating <= 2 && sentiment == domain.SentimentPositive) {
		score -= 0.4
		flags = append(flags, "rating_sentiment_mismatch")
	}

	if realNameRE.MatchString(r.ReviewerName) {
		score += 0.1
	} else if strings.Contains(r.ReviewerName, "Amazon Customer") ||
		strings.Contains(r.ReviewerName, "Anonymous") {
		score -= 0.1
		flags = append(flags, "anonymous_reviewer")
	}

	score = math.Max(0, math.Min(1, score))

	confidence := "low"
	switch {
	case len(flags) <= 1:
		confidence = "high"
	case len(flags) <= 3:
		confidence = "medium"
	}

	return Authenticity{
		Score:           math.Round(score*100) / 100,
		Percentage:      fmt.Sprintf("%.1f%%", score*100),
		LikelyAuthentic: score >= 0.6,
		Flags:           flags,
		Confidence:      confidence,
	}
}
