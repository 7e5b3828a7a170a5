package redisad_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	redisad "review_scraper/internal/adapters/redis"
	"review_scraper/internal/domain"
)

func newCache(t *testing.T) (*redisad.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := redisad.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestCache_RoundTrip(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()

	in := []domain.Review{{
		ReviewerName: "Priya",
		Rating:       4.5,
		Text:         "Sturdy desk, assembly took under an hour.",
		Platform:     "walmart",
		Source:       "walmart_scraping",
	}}
	if err := c.Set(ctx, "search:product:walmart:standing+desk", in, 900); err != nil {
		t.Fatalf("Set: %v", err)
	}

	var out []domain.Review
	ok, err := c.Get(ctx, "search:product:walmart:standing+desk", &out)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if len(out) != 1 || out[0].ReviewerName != "Priya" || out[0].Rating != 4.5 {
		t.Fatalf("round trip mismatch: %+v", out)
	}
}

func TestCache_MissIsNotAnError(t *testing.T) {
	c, _ := newCache(t)

	var out domain.Snapshot
	ok, err := c.Get(context.Background(), "snapshot:latest", &out)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatal("expected a miss on an empty cache")
	}
}

func TestCache_EntriesExpire(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "snapshot:latest", domain.NewSnapshot(), 60); err != nil {
		t.Fatalf("Set: %v", err)
	}
	mr.FastForward(61 * time.Second)

	var out domain.Snapshot
	ok, err := c.Get(ctx, "snapshot:latest", &out)
	if err != nil || ok {
		t.Fatalf("expected expiry, got ok=%v err=%v", ok, err)
	}
}

func TestCache_Del(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "snapshot:latest", domain.NewSnapshot(), 900); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := c.Del(ctx, "snapshot:latest"); err != nil {
		t.Fatalf("Del: %v", err)
	}

	var out domain.Snapshot
	if ok, _ := c.Get(ctx, "snapshot:latest", &out); ok {
		t.Fatal("expected a miss after Del")
	}
}
