package domain

import "time"

// Selectors are the CSS selectors used to pull review parts out of a
// platform's markup. Container matches one review element; the others are
// resolved relative to it.
type Selectors struct {
	Container string
	Reviewer  string
	Rating    string
	Text      string
	Date      string
}

// PlatformConfig describes how reviews are fetched and extracted for one
// supported platform.
type PlatformConfig struct {
	Key    string // registry key, e.g. "amazon"
	Name   string // display name, e.g. "Amazon"
	Domain string // apex domain, also used for URL detection

	Selectors Selectors

	RatingScale     int
	RequiresJS      bool // markup is built client-side, needs a browser
	AntiBotLevel    int  // 1 (none) to 5 (aggressive)
	DynamicLoading  bool // reviews load on scroll
	MaxReviews      int
	MinReviewLength int

	Delay         time.Duration // minimum delay between requests
	Timeout       time.Duration
	RetryAttempts int
}

// Anti-bot level at which plain HTTP clients get blocked and requests go
// through the bypass transport.
const AntiBotBypassLevel = 3
