package domain

// Review is one normalized customer review as extracted from a platform.
// Extraction fills the identity fields; the analyzer annotates a copy and
// never mutates the original.
type Review struct {
	ReviewerName string  `json:"reviewer_name"`
	Rating       float64 `json:"rating"`
	Text         string  `json:"review_text"`
	Date         string  `json:"date"`
	ReviewURL    string  `json:"review_url"`
	ReviewLink   string  `json:"review_link,omitempty"`
	Source       string  `json:"source"`
	Platform     string  `json:"platform"`
	HelpfulVotes string  `json:"helpful_votes,omitempty"`

	// Analysis annotations, absent until the analyzer runs.
	Sentiment           string   `json:"sentiment,omitempty"`
	Categories          []string `json:"categories,omitempty"`
	KeywordRelevance    float64  `json:"keyword_relevance,omitempty"`
	RelevancePercentage string   `json:"relevance_percentage,omitempty"`
	StarDisplay         string   `json:"star_display,omitempty"`
}

// Sentiment labels assigned by the analyzer.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)
