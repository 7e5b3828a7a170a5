package app_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"review_scraper/internal/app"
	"review_scraper/internal/domain"
)

// ---- fakes ----

type scrapeCall struct {
	url      string
	platform string
	max      int
}

type fakeScraper struct {
	mu         sync.Mutex
	calls      []scrapeCall
	firstCalls [][]string
	reviews    map[string][]domain.Review // keyed by url
	errs       map[string]error           // keyed by url
}

func (f *fakeScraper) Scrape(ctx context.Context, rawURL, platform string, maxReviews int) ([]domain.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, scrapeCall{rawURL, platform, maxReviews})
	if err, ok := f.errs[rawURL]; ok {
		return nil, err
	}
	return f.reviews[rawURL], nil
}

func (f *fakeScraper) ScrapeFirst(ctx context.Context, urls []string, platform string, maxReviews int) ([]domain.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.firstCalls = append(f.firstCalls, urls)
	for _, u := range urls {
		if err, ok := f.errs[u]; ok {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if revs, ok := f.reviews[u]; ok {
			return revs, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeScraper) calledWith(url string) *scrapeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.calls {
		if f.calls[i].url == url {
			return &f.calls[i]
		}
	}
	return nil
}

type fakeYelp struct {
	reviews []domain.Review
	err     error
	calls   int
}

func (f *fakeYelp) BusinessReviews(ctx context.Context, businessID string) ([]domain.Review, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.reviews, nil
}

type fakeStore struct {
	mu     sync.Mutex
	runs   []*domain.ScrapeRun
	misses []string
}

func (f *fakeStore) SaveRun(ctx context.Context, run *domain.ScrapeRun) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	run.ID = int64(len(f.runs) + 1)
	f.runs = append(f.runs, run)
	return run.ID, nil
}

func (f *fakeStore) LatestRun(ctx context.Context) (*domain.ScrapeRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.runs) == 0 {
		return nil, domain.ErrNoData
	}
	return f.runs[len(f.runs)-1], nil
}

func (f *fakeStore) LogMiss(ctx context.Context, platform string, status int, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.misses = append(f.misses, platform)
	return nil
}

type fakeKV struct {
	mu    sync.Mutex
	store map[string]any
	sets  int
}

func (c *fakeKV) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		return false, nil
	}
	v, ok := c.store[key]
	if !ok {
		return false, nil
	}
	switch d := dst.(type) {
	case *domain.Snapshot:
		*d = v.(domain.Snapshot)
	case *[]domain.Review:
		*d = v.([]domain.Review)
	}
	return true, nil
}

func (c *fakeKV) Set(ctx context.Context, key string, v any, ttlSec int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = map[string]any{}
	}
	c.store[key] = v
	c.sets++
	return nil
}

func (c *fakeKV) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
	return nil
}

// gatedScraper holds every Scrape call at a barrier until release is
// closed, so a test can line up concurrent requests mid-run.
type gatedScraper struct {
	fakeScraper
	arrived chan struct{}
	release chan struct{}
}

func (g *gatedScraper) Scrape(ctx context.Context, rawURL, platform string, maxReviews int) ([]domain.Review, error) {
	g.arrived <- struct{}{}
	<-g.release
	return g.fakeScraper.Scrape(ctx, rawURL, platform, maxReviews)
}

func iv(n int) *int { return &n }

func rev(name, text string, rating float64) domain.Review {
	return domain.Review{ReviewerName: name, Text: text, Rating: rating}
}

// ---- tests ----

func TestScrape_RequiresInput(t *testing.T) {
	svc := app.NewScrapeService(&fakeScraper{}, nil, nil, nil, 0)
	_, err := svc.Scrape(context.Background(), domain.ScrapeRequest{})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestScrape_YelpAPIFirst(t *testing.T) {
	yelp := &fakeYelp{reviews: []domain.Review{
		rev("Maya", "Best carne asada in SOMA.", 5),
		rev("Jon", "Long line but worth the wait.", 4),
	}}
	sc := &fakeScraper{}
	store := &fakeStore{}
	svc := app.NewScrapeService(sc, yelp, store, nil, 0)

	snap, err := svc.Scrape(context.Background(), domain.ScrapeRequest{YelpBusinessID: "garaje-san-francisco"})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if snap.Status != domain.StatusSuccess {
		t.Fatalf("status: %s", snap.Status)
	}
	if len(snap.YelpReviews) != 2 || snap.Statistics.YelpReviewCount != 2 {
		t.Fatalf("unexpected yelp reviews: %+v", snap.YelpReviews)
	}
	if snap.Statistics.TotalReviews != 2 || snap.Statistics.HasErrors {
		t.Fatalf("unexpected statistics: %+v", snap.Statistics)
	}
	if len(sc.calls) != 0 {
		t.Fatalf("scraper should not be called when the API answers: %+v", sc.calls)
	}
	if len(store.runs) != 1 {
		t.Fatalf("expected one persisted run, got %d", len(store.runs))
	}
}

func TestScrape_YelpFallsBackToScraping(t *testing.T) {
	bizURL := "https://www.yelp.com/biz/garaje-san-francisco"
	yelp := &fakeYelp{err: errors.New("fusion down")}
	sc := &fakeScraper{reviews: map[string][]domain.Review{
		bizURL: {rev("Ana", "Tacos were excellent, great value.", 5)},
	}}
	svc := app.NewScrapeService(sc, yelp, nil, nil, 0)

	snap, err := svc.Scrape(context.Background(), domain.ScrapeRequest{
		YelpBusinessID: "https://www.yelp.com/biz/garaje-san-francisco?osq=tacos",
	})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	call := sc.calledWith(bizURL)
	if call == nil {
		t.Fatalf("expected fallback scrape of %s, calls: %+v", bizURL, sc.calls)
	}
	if call.platform != "yelp" || call.max != 10 {
		t.Fatalf("unexpected call: %+v", call)
	}
	if snap.Status != domain.StatusSuccess || len(snap.YelpReviews) != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestScrape_PartialSuccessAndMissLog(t *testing.T) {
	yelp := &fakeYelp{reviews: []domain.Review{rev("Maya", "Solid brunch spot.", 4)}}
	sc := &fakeScraper{} // every amazon candidate 404s
	store := &fakeStore{}
	svc := app.NewScrapeService(sc, yelp, store, nil, 0)

	snap, err := svc.Scrape(context.Background(), domain.ScrapeRequest{
		YelpBusinessID: "garaje-san-francisco",
		AmazonASIN:     "B08N5WRWNW",
	})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if snap.Status != domain.StatusPartialSuccess {
		t.Fatalf("status: %s", snap.Status)
	}
	if len(snap.Errors) != 1 || !strings.HasPrefix(snap.Errors[0], "Amazon scraping failed:") {
		t.Fatalf("unexpected errors: %+v", snap.Errors)
	}
	if !snap.Statistics.HasErrors || snap.Statistics.TotalReviews != 1 {
		t.Fatalf("unexpected statistics: %+v", snap.Statistics)
	}
	if len(store.misses) != 1 || store.misses[0] != "amazon" {
		t.Fatalf("unexpected misses: %+v", store.misses)
	}
}

func TestScrape_FailedWhenEverySourceFails(t *testing.T) {
	sc := &fakeScraper{errs: map[string]error{
		"https://www.yelp.com/biz/garaje-san-francisco": domain.ErrBlocked,
	}}
	svc := app.NewScrapeService(sc, nil, nil, nil, 0)

	snap, err := svc.Scrape(context.Background(), domain.ScrapeRequest{YelpBusinessID: "garaje-san-francisco"})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if snap.Status != domain.StatusFailed {
		t.Fatalf("status: %s", snap.Status)
	}
	if !strings.HasPrefix(snap.Errors[0], "Yelp scraping failed:") {
		t.Fatalf("unexpected errors: %+v", snap.Errors)
	}
}

func TestScrape_AmazonCandidatesAndProductLink(t *testing.T) {
	reviewsURL := "https://www.amazon.com/product-reviews/B08N5WRWNW/ref=cm_cr_dp_d_show_all_btm"
	dpURL := "https://www.amazon.com/dp/B08N5WRWNW/ref=cm_cr_dp_d_show_all_btm"
	sc := &fakeScraper{
		errs: map[string]error{reviewsURL: domain.ErrNotFound},
		reviews: map[string][]domain.Review{
			dpURL: {{
				ReviewerName: "Priya",
				Rating:       4,
				Text:         "Sturdy desk, assembly took under an hour.",
				ReviewURL:    dpURL,
			}},
		},
	}
	svc := app.NewScrapeService(sc, nil, nil, nil, 0)

	snap, err := svc.Scrape(context.Background(), domain.ScrapeRequest{AmazonASIN: "b08n5wrwnw"})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(sc.firstCalls) != 1 {
		t.Fatalf("expected one candidate pass, got %d", len(sc.firstCalls))
	}
	want := []string{
		"https://www.amazon.com/product-reviews/B08N5WRWNW/ref=cm_cr_dp_d_show_all_btm",
		"https://www.amazon.com/dp/B08N5WRWNW/ref=cm_cr_dp_d_show_all_btm",
		"https://www.amazon.com/product-reviews/B08N5WRWNW",
	}
	got := sc.firstCalls[0]
	if len(got) != len(want) {
		t.Fatalf("candidates: %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("candidate %d: got %s want %s", i, got[i], want[i])
		}
	}
	if len(snap.AmazonReviews) != 1 {
		t.Fatalf("unexpected reviews: %+v", snap.AmazonReviews)
	}
	r := snap.AmazonReviews[0]
	if r.ReviewURL != "https://www.amazon.com/dp/B08N5WRWNW" {
		t.Fatalf("review url not rewritten to product page: %q", r.ReviewURL)
	}
	if r.ReviewLink != "🔗 View on Amazon: https://www.amazon.com/dp/B08N5WRWNW" {
		t.Fatalf("unexpected review link: %q", r.ReviewLink)
	}
}

func TestScrape_WalmartAndTargetProductURLs(t *testing.T) {
	walmartURL := "https://www.walmart.com/ip/55137435"
	targetURL := "https://www.target.com/p/-/A-79035712"
	sc := &fakeScraper{reviews: map[string][]domain.Review{
		walmartURL: {rev("Dana", "Assembled in twenty minutes.", 4)},
		targetURL:  {rev("Lee", "Color matches the photos.", 5)},
	}}
	svc := app.NewScrapeService(sc, nil, nil, nil, 0)

	snap, err := svc.Scrape(context.Background(), domain.ScrapeRequest{
		WalmartProductID: "https://www.walmart.com/ip/Instant-Pot-Duo-6-Quart/55137435",
		TargetProductID:  "79035712",
	})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	wc := sc.calledWith(walmartURL)
	if wc == nil || wc.platform != "walmart" || wc.max != 10 {
		t.Fatalf("unexpected walmart call: %+v, calls %+v", wc, sc.calls)
	}
	tc := sc.calledWith(targetURL)
	if tc == nil || tc.platform != "target" || tc.max != 10 {
		t.Fatalf("unexpected target call: %+v", tc)
	}
	if snap.Statistics.WalmartReviewCount != 1 || snap.Statistics.TargetReviewCount != 1 {
		t.Fatalf("unexpected statistics: %+v", snap.Statistics)
	}
}

func TestScrape_BackgroundJobLifecycle(t *testing.T) {
	sc := &fakeScraper{reviews: map[string][]domain.Review{
		"https://shop.example.com/p/1": {rev("Alice", "Crushes ice without stalling.", 5)},
	}}
	svc := app.NewScrapeService(sc, nil, nil, nil, 0)
	defer svc.Close()

	snap, err := svc.Scrape(context.Background(), domain.ScrapeRequest{
		URL:             "https://shop.example.com/p/1",
		RefreshInterval: iv(60),
	})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if !snap.BackgroundScraping || snap.RefreshInterval != 60 {
		t.Fatalf("expected background flags on response: %+v", snap)
	}

	// The stored snapshot does not carry the response-only flags.
	latest, err := svc.Latest(context.Background())
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.BackgroundScraping {
		t.Fatal("background flag leaked into the stored snapshot")
	}

	if !svc.StopBackground() {
		t.Fatal("expected an active job to stop")
	}
	if svc.StopBackground() {
		t.Fatal("expected no job on second stop")
	}
}

func TestScrape_ConcurrentRequestsKeepOneJob(t *testing.T) {
	urls := []string{"https://shop.example.com/p/1", "https://shop.example.com/p/2"}
	sc := &gatedScraper{
		fakeScraper: fakeScraper{reviews: map[string][]domain.Review{
			urls[0]: {rev("Alice", "Crushes ice without stalling.", 5)},
			urls[1]: {rev("Ben", "Quieter than the old model.", 4)},
		}},
		arrived: make(chan struct{}, len(urls)),
		release: make(chan struct{}),
	}
	svc := app.NewScrapeService(sc, nil, nil, nil, 0)

	var wg sync.WaitGroup
	for _, u := range urls {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			if _, err := svc.Scrape(context.Background(), domain.ScrapeRequest{URL: u, RefreshInterval: iv(60)}); err != nil {
				t.Errorf("scrape %s: %v", u, err)
			}
		}(u)
	}
	// Both requests are past their stop-any-running-job step and inside
	// the run before either installs a loop.
	<-sc.arrived
	<-sc.arrived
	close(sc.release)
	wg.Wait()

	if !svc.StopBackground() {
		t.Fatal("expected exactly one active job")
	}
	if svc.StopBackground() {
		t.Fatal("expected an empty slot after one stop")
	}

	closed := make(chan struct{})
	go func() {
		svc.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(3 * time.Second):
		t.Fatal("Close did not return; a refresh loop leaked")
	}
}

func TestLatest_FallsBackToStore(t *testing.T) {
	store := &fakeStore{}
	sc := &fakeScraper{reviews: map[string][]domain.Review{
		"https://www.walmart.com/ip/55137435": {rev("Dana", "Assembled in twenty minutes.", 4)},
	}}

	first := app.NewScrapeService(sc, nil, store, nil, 0)
	if _, err := first.Scrape(context.Background(), domain.ScrapeRequest{WalmartProductID: "55137435"}); err != nil {
		t.Fatalf("err: %v", err)
	}

	// A fresh service (fresh process) finds the run in the store.
	second := app.NewScrapeService(sc, nil, store, nil, 0)
	snap, err := second.Latest(context.Background())
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if snap.Statistics.WalmartReviewCount != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap.Statistics)
	}

	// No memory, no cache, no store -> no data.
	empty := app.NewScrapeService(sc, nil, nil, nil, 0)
	if _, err := empty.Latest(context.Background()); !errors.Is(err, domain.ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestLatest_ReadsCacheAfterRestart(t *testing.T) {
	kv := &fakeKV{}
	sc := &fakeScraper{reviews: map[string][]domain.Review{
		"https://www.walmart.com/ip/55137435": {rev("Dana", "Assembled in twenty minutes.", 4)},
	}}

	first := app.NewScrapeService(sc, nil, nil, kv, 0)
	if _, err := first.Scrape(context.Background(), domain.ScrapeRequest{WalmartProductID: "55137435"}); err != nil {
		t.Fatalf("err: %v", err)
	}
	if kv.sets == 0 {
		t.Fatal("expected snapshot write-through")
	}

	second := app.NewScrapeService(sc, nil, nil, kv, 0)
	snap, err := second.Latest(context.Background())
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if snap.Statistics.TotalReviews != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap.Statistics)
	}
}

func TestSetUniversal_KeepsOtherPlatforms(t *testing.T) {
	yelp := &fakeYelp{reviews: []domain.Review{rev("Maya", "Solid brunch spot.", 4)}}
	svc := app.NewScrapeService(&fakeScraper{}, yelp, nil, nil, 0)

	if _, err := svc.Scrape(context.Background(), domain.ScrapeRequest{YelpBusinessID: "garaje-san-francisco"}); err != nil {
		t.Fatalf("err: %v", err)
	}

	snap := svc.SetUniversal(context.Background(), "https://example.com/blender", []domain.Review{
		rev("Alice", "Crushes ice without stalling.", 5),
	})
	if len(snap.YelpReviews) != 1 || len(snap.UniversalReviews) != 1 {
		t.Fatalf("unexpected merge: %+v", snap.Statistics)
	}
	if snap.Statistics.TotalReviews != 2 {
		t.Fatalf("unexpected statistics: %+v", snap.Statistics)
	}

	latest, err := svc.Latest(context.Background())
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.Statistics.UniversalReviewCount != 1 {
		t.Fatalf("latest not updated: %+v", latest.Statistics)
	}
}
