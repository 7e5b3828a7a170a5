package domain

import "time"

// Snapshot status values. A run that produced reviews on every requested
// platform is a success; reviews on some but errors on others is a partial
// success.
const (
	StatusNoData         = "no_data"
	StatusSuccess        = "success"
	StatusPartialSuccess = "partial_success"
	StatusFailed         = "failed"
)

// Snapshot is the result of one scrape run across the requested platforms.
// Review slices are never nil so they marshal as [] rather than null.
type Snapshot struct {
	Timestamp        string   `json:"timestamp"`
	YelpReviews      []Review `json:"yelp_reviews"`
	AmazonReviews    []Review `json:"amazon_reviews"`
	WalmartReviews   []Review `json:"walmart_reviews"`
	TargetReviews    []Review `json:"target_reviews"`
	UniversalReviews []Review `json:"universal_reviews"`
	Status           string   `json:"status"`
	Errors           []string `json:"errors"`

	// Set on responses from POST /scrape when a refresh loop was started.
	BackgroundScraping bool `json:"background_scraping,omitempty"`
	RefreshInterval    int  `json:"refresh_interval,omitempty"`

	Statistics Statistics `json:"statistics"`
}

// Statistics summarizes a snapshot for API responses.
type Statistics struct {
	TotalReviews         int  `json:"total_reviews"`
	YelpReviewCount      int  `json:"yelp_review_count"`
	AmazonReviewCount    int  `json:"amazon_review_count"`
	WalmartReviewCount   int  `json:"walmart_review_count"`
	TargetReviewCount    int  `json:"target_review_count"`
	UniversalReviewCount int  `json:"universal_review_count"`
	HasErrors            bool `json:"has_errors"`
}

// NewSnapshot returns an empty snapshot stamped with the current time.
func NewSnapshot() Snapshot {
	return Snapshot{
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
		YelpReviews:      []Review{},
		AmazonReviews:    []Review{},
		WalmartReviews:   []Review{},
		TargetReviews:    []Review{},
		UniversalReviews: []Review{},
		Status:           StatusNoData,
		Errors:           []string{},
	}
}

func (s *Snapshot) TotalReviews() int {
	return len(s.YelpReviews) + len(s.AmazonReviews) + len(s.WalmartReviews) +
		len(s.TargetReviews) + len(s.UniversalReviews)
}

// Recount refreshes Statistics from the review slices. Call after the last
// mutation and before the snapshot is published or stored.
func (s *Snapshot) Recount() {
	s.Statistics = Statistics{
		TotalReviews:         s.TotalReviews(),
		YelpReviewCount:      len(s.YelpReviews),
		AmazonReviewCount:    len(s.AmazonReviews),
		WalmartReviewCount:   len(s.WalmartReviews),
		TargetReviewCount:    len(s.TargetReviews),
		UniversalReviewCount: len(s.UniversalReviews),
		HasErrors:            len(s.Errors) > 0,
	}
}

// ScrapeRun is a persisted snapshot with storage identity. Request records
// what was asked for, so stored runs stay explainable.
type ScrapeRun struct {
	ID         int64
	Request    ScrapeRequest
	Snapshot   Snapshot
	StartedAt  time.Time
	FinishedAt time.Time
}
