// Package yelp calls the Yelp Fusion API. Scraping yelp.com stays in the
// generic dispatcher; this client only covers the official reviews endpoint.
package yelp

import (
	"context"
	crand "crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"review_scraper/internal/adapters/extract"
	"review_scraper/internal/adapters/observability"
	"review_scraper/internal/domain"
)

const defaultBaseURL = "https://api.yelp.com"

type Client struct {
	base string
	hc   *http.Client
	key  string
	rl   *rate.Limiter
}

func New(base, key string, rps int) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if base == "" {
		base = defaultBaseURL
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base: strings.TrimSuffix(base, "/"),
		hc:   &http.Client{Timeout: 20 * time.Second},
		key:  key,
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

type reviewsResponse struct {
	Reviews []apiReview `json:"reviews"`
	Total   int         `json:"total"`
}

type apiReview struct {
	Rating      float64 `json:"rating"`
	Text        string  `json:"text"`
	TimeCreated string  `json:"time_created"`
	URL         string  `json:"url"`
	User        struct {
		Name string `json:"name"`
	} `json:"user"`
}

// BusinessReviews implements domain.YelpAPI. Fusion currently serves three
// review excerpts per business; the cap of ten guards against that growing.
func (c *Client) BusinessReviews(ctx context.Context, businessID string) ([]domain.Review, error) {
	endpoint := fmt.Sprintf("%s/v3/businesses/%s/reviews", c.base, url.PathEscape(businessID))
	var payload reviewsResponse
	if err := c.get(ctx, endpoint, &payload); err != nil {
		return nil, err
	}

	items := payload.Reviews
	if len(items) > 10 {
		items = items[:10]
	}
	reviews := make([]domain.Review, 0, len(items))
	for _, it := range items {
		name := it.User.Name
		if name == "" {
			name = "Anonymous"
		}
		reviews = append(reviews, domain.Review{
			ReviewerName: name,
			Rating:       extract.ClampRating(it.Rating),
			Text:         extract.SanitizeText(it.Text),
			Date:         extract.NormalizeDate(it.TimeCreated),
			ReviewURL:    it.URL,
			ReviewLink:   extract.ReviewLink("yelp", it.URL),
			Source:       "yelp_api",
			Platform:     "yelp",
			StarDisplay:  extract.StarDisplay(it.Rating),
		})
	}
	return reviews, nil
}

// get performs a GET with client-side rate limiting, retries, and JSON decode
// into out. Retries on 429 and transient 5xx, honoring Retry-After.
func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	var lastErr error
	for i := 0; i < 4; i++ {
		// build a fresh request each attempt
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+c.key)
		req.Header.Set("Accept", "application/json")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal("yelp_api", "business_reviews", 0, time.Since(start))
			// network error or context canceled
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal("yelp_api", "business_reviews", resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			return err

		case http.StatusNotFound:
			resp.Body.Close()
			return domain.ErrNotFound

		case http.StatusUnauthorized, http.StatusForbidden:
			// bad or revoked key; both mean the API tier is unusable
			resp.Body.Close()
			return fmt.Errorf("%w: status %d", domain.ErrUnauthorized, resp.StatusCode)

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("remote %d", resp.StatusCode)
			if resp.StatusCode == http.StatusTooManyRequests {
				lastErr = fmt.Errorf("%w: remote 429", domain.ErrRateLimited)
			}
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			// read a small error body for diagnostics
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}

	return lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff doubles from 200ms per attempt with up to +50% crypto/rand jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	j := time.Duration(0.5 * f * float64(base))
	return base + j
}
