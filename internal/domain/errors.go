package domain

import "errors"

// Sentinel errors shared across adapters and services. Adapters wrap these
// with context; callers branch with errors.Is.
var (
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrBlocked             = errors.New("blocked by anti-bot protection")
	ErrRateLimited         = errors.New("rate limited")
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	ErrInvalidInput        = errors.New("invalid input")
	ErrNoData              = errors.New("no scrape data available")
)
