package yelp_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"review_scraper/internal/adapters/yelp"
	"review_scraper/internal/domain"
)

func fusionPayload(n int) map[string]any {
	reviews := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		reviews = append(reviews, map[string]any{
			"rating":       5,
			"text":         fmt.Sprintf("Review number %d, tacos worth the wait.", i),
			"time_created": "2016-08-29 00:41:13",
			"url":          "https://www.yelp.com/biz/garaje-san-francisco",
			"user":         map[string]any{"name": "Ella A."},
		})
	}
	return map[string]any{"reviews": reviews, "total": n}
}

func TestClient_BusinessReviews_MapsFields(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(401)
			return
		}
		if r.URL.Path != "/v3/businesses/garaje-san-francisco/reviews" {
			w.WriteHeader(404)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"reviews": []map[string]any{{
				"rating":       5,
				"text":         "Went back <again> today, best carne asada in SOMA.",
				"time_created": "2016-08-29 00:41:13",
				"url":          "https://www.yelp.com/biz/garaje-san-francisco",
				"user":         map[string]any{"name": "Ella A."},
			}},
			"total": 1,
		})
	}))
	defer ts.Close()

	cl, err := yelp.New(ts.URL, "test-key", 100)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	reviews, err := cl.BusinessReviews(ctx, "garaje-san-francisco")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(reviews) != 1 {
		t.Fatalf("expected 1 review, got %d", len(reviews))
	}

	got := reviews[0]
	if got.ReviewerName != "Ella A." {
		t.Fatalf("unexpected reviewer: %q", got.ReviewerName)
	}
	if got.Rating != 5 {
		t.Fatalf("unexpected rating: %v", got.Rating)
	}
	if got.Text != "Went back again today, best carne asada in SOMA." {
		t.Fatalf("unexpected text: %q", got.Text)
	}
	if got.Date != "2016-08-29T00:41:13Z" {
		t.Fatalf("unexpected date: %q", got.Date)
	}
	if got.Source != "yelp_api" || got.Platform != "yelp" {
		t.Fatalf("unexpected labels: %q %q", got.Source, got.Platform)
	}
	if got.StarDisplay != "⭐⭐⭐⭐⭐ (5.0/5)" {
		t.Fatalf("unexpected stars: %q", got.StarDisplay)
	}
	if got.ReviewLink != "🔗 View on Yelp: https://www.yelp.com/biz/garaje-san-francisco" {
		t.Fatalf("unexpected link: %q", got.ReviewLink)
	}
}

func TestClient_BusinessReviews_RetriesThenSuccess(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&hits, 1) {
		case 1, 2:
			w.WriteHeader(500)
		default:
			_ = json.NewEncoder(w).Encode(fusionPayload(1))
		}
	}))
	defer ts.Close()

	cl, err := yelp.New(ts.URL, "test-key", 100)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	reviews, err := cl.BusinessReviews(ctx, "garaje-san-francisco")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(reviews) != 1 {
		t.Fatalf("expected 1 review, got %d", len(reviews))
	}
	if atomic.LoadInt32(&hits) < 3 {
		t.Fatalf("expected at least 3 calls due to retries, got %d", hits)
	}
}

func TestClient_BusinessReviews_NotFound(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	cl, err := yelp.New(ts.URL, "test-key", 100)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err = cl.BusinessReviews(ctx, "no-such-business")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClient_BusinessReviews_UnauthorizedNoRetry(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(401)
	}))
	defer ts.Close()

	cl, err := yelp.New(ts.URL, "bad-key", 100)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err = cl.BusinessReviews(ctx, "garaje-san-francisco")
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("401 must not be retried, got %d calls", hits)
	}
}

func TestClient_BusinessReviews_CapsAtTen(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(fusionPayload(12))
	}))
	defer ts.Close()

	cl, err := yelp.New(ts.URL, "test-key", 100)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	reviews, err := cl.BusinessReviews(ctx, "garaje-san-francisco")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(reviews) != 10 {
		t.Fatalf("expected cap of 10, got %d", len(reviews))
	}
}

func TestNew_RequiresKey(t *testing.T) {
	if _, err := yelp.New("", "", 0); err == nil {
		t.Fatal("expected error for missing API key")
	}
}
