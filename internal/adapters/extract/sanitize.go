package extract

import (
	"fmt"
	"math"
	"strings"
)

const maxTextLength = 5000

var dangerousChars = []string{"<", ">", `"`, "'", "&"}

// SanitizeText collapses runs of whitespace, strips markup-significant
// characters, and caps the result at 5000 characters.
func SanitizeText(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	for _, c := range dangerousChars {
		text = strings.ReplaceAll(text, c, "")
	}
	if runes := []rune(text); len(runes) > maxTextLength {
		text = string(runes[:maxTextLength]) + "..."
	}
	return strings.TrimSpace(text)
}

// ClampRating bounds a parsed rating to the 0..5 scale.
func ClampRating(rating float64) float64 {
	return math.Max(0, math.Min(5, rating))
}

// StarDisplay renders a rating as filled and empty stars, e.g.
// "⭐⭐⭐⭐☆ (4.0/5)".
func StarDisplay(rating float64) string {
	full := int(ClampRating(rating))
	return strings.Repeat("⭐", full) + strings.Repeat("☆", 5-full) +
		fmt.Sprintf(" (%.1f/5)", rating)
}

// ReviewLink labels a review URL for display, with the big four platforms
// called out by name.
func ReviewLink(platform, url string) string {
	p := strings.ToLower(platform)
	switch {
	case strings.Contains(p, "yelp"):
		return "🔗 View on Yelp: " + url
	case strings.Contains(p, "amazon"):
		return "🔗 View on Amazon: " + url
	case strings.Contains(p, "walmart"):
		return "🔗 View on Walmart: " + url
	case strings.Contains(p, "target"):
		return "🔗 View on Target: " + url
	default:
		return "🔗 View Review: " + url
	}
}
