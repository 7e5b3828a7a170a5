package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"review_scraper/internal/adapters/extract"
	"review_scraper/internal/adapters/observability"
	"review_scraper/internal/domain"
)

// latestSnapshotKey is the redis key the newest snapshot is written through
// to, so /latest survives a restart even before MySQL is consulted.
const latestSnapshotKey = "snapshot:latest"

// perSourceCap bounds the reviews kept per dedicated product flow, matching
// the yelp and amazon scraper limits.
const perSourceCap = 10

// backgroundRunTimeout bounds one refresh-loop scrape pass. The loop itself
// has no caller context to inherit.
const backgroundRunTimeout = 5 * time.Minute

// refreshJob is the single background slot: closing stop ends the loop, done
// closes when the goroutine has fully exited.
type refreshJob struct {
	stop chan struct{}
	done chan struct{}
}

// ScrapeService runs one scrape across the requested platforms, keeps the
// latest snapshot, and owns the background refresh slot. yelpAPI, store, and
// cache may be nil; the service degrades to scraping-only, memory-only
// operation.
type ScrapeService struct {
	scraper domain.Scraper
	yelpAPI domain.YelpAPI
	store   domain.RunStore
	cache   domain.Cache
	ttlSec  int

	mu     sync.Mutex
	latest *domain.Snapshot

	jobMu sync.Mutex
	job   *refreshJob
	jobWG sync.WaitGroup
}

func NewScrapeService(scraper domain.Scraper, yelpAPI domain.YelpAPI, store domain.RunStore, cache domain.Cache, ttlSec int) *ScrapeService {
	if ttlSec <= 0 {
		ttlSec = 900
	}
	return &ScrapeService{scraper: scraper, yelpAPI: yelpAPI, store: store, cache: cache, ttlSec: ttlSec}
}

// Scrape validates req, stops any running refresh loop, performs one
// immediate run, and starts a new loop when a refresh interval was given.
// The returned snapshot reflects the immediate run; the background flags are
// set only on the response, not on the stored snapshot.
func (s *ScrapeService) Scrape(ctx context.Context, req domain.ScrapeRequest) (domain.Snapshot, error) {
	if err := req.Validate(); err != nil {
		return domain.Snapshot{}, err
	}

	// A new request supersedes whatever loop is running.
	s.StopBackground()

	started := time.Now().UTC()
	snap := s.runOnce(ctx, req)
	s.publish(ctx, req, snap, started)

	if req.RefreshInterval != nil {
		s.startBackground(req, *req.RefreshInterval)
		snap.BackgroundScraping = true
		snap.RefreshInterval = *req.RefreshInterval
	}
	return snap, nil
}

// runOnce scrapes every requested source. Per-source failures append to
// Errors and never abort the run.
func (s *ScrapeService) runOnce(ctx context.Context, req domain.ScrapeRequest) domain.Snapshot {
	snap := domain.NewSnapshot()
	snap.Status = domain.StatusSuccess

	if req.YelpBusinessID != "" {
		if revs, err := s.yelpReviews(ctx, req.YelpBusinessID); err != nil {
			s.recordMiss(ctx, &snap, "yelp", fmt.Sprintf("Yelp scraping failed: %v", err), err)
		} else {
			snap.YelpReviews = append(snap.YelpReviews, revs...)
			observability.ObserveScrape("yelp", "ok")
			log.Info().Int("reviews", len(revs)).Msg("yelp scrape succeeded")
		}
	}
	if req.AmazonASIN != "" {
		if revs, err := s.amazonReviews(ctx, req.AmazonASIN); err != nil {
			s.recordMiss(ctx, &snap, "amazon", fmt.Sprintf("Amazon scraping failed: %v", err), err)
		} else {
			snap.AmazonReviews = append(snap.AmazonReviews, revs...)
			observability.ObserveScrape("amazon", "ok")
			log.Info().Int("reviews", len(revs)).Msg("amazon scrape succeeded")
		}
	}
	if req.WalmartProductID != "" {
		if revs, err := s.walmartReviews(ctx, req.WalmartProductID); err != nil {
			s.recordMiss(ctx, &snap, "walmart", fmt.Sprintf("Walmart scraping failed: %v", err), err)
		} else {
			snap.WalmartReviews = append(snap.WalmartReviews, revs...)
			observability.ObserveScrape("walmart", "ok")
			log.Info().Int("reviews", len(revs)).Msg("walmart scrape succeeded")
		}
	}
	if req.TargetProductID != "" {
		if revs, err := s.targetReviews(ctx, req.TargetProductID); err != nil {
			s.recordMiss(ctx, &snap, "target", fmt.Sprintf("Target scraping failed: %v", err), err)
		} else {
			snap.TargetReviews = append(snap.TargetReviews, revs...)
			observability.ObserveScrape("target", "ok")
			log.Info().Int("reviews", len(revs)).Msg("target scrape succeeded")
		}
	}
	if req.URL != "" {
		if revs, err := s.scraper.Scrape(ctx, req.URL, "", 0); err != nil {
			s.recordMiss(ctx, &snap, "universal", fmt.Sprintf("URL scraping failed: %v", err), err)
		} else {
			snap.UniversalReviews = append(snap.UniversalReviews, revs...)
			observability.ObserveScrape("universal", "ok")
			log.Info().Int("reviews", len(revs)).Str("url", req.URL).Msg("url scrape succeeded")
		}
	}

	if len(snap.Errors) > 0 {
		if snap.TotalReviews() == 0 {
			snap.Status = domain.StatusFailed
		} else {
			snap.Status = domain.StatusPartialSuccess
		}
	}
	snap.Recount()
	return snap
}

func (s *ScrapeService) recordMiss(ctx context.Context, snap *domain.Snapshot, platform, msg string, err error) {
	log.Error().Err(err).Str("platform", platform).Msg("source scrape failed")
	snap.Errors = append(snap.Errors, msg)
	observability.ObserveScrape(platform, observability.LabelErr(err))
	if s.store != nil {
		_ = s.store.LogMiss(ctx, platform, missStatus(err), err.Error())
	}
}

// missStatus maps sentinel errors to the upstream status they stand for so
// the misses table stays queryable by status code.
func missStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return 404
	case errors.Is(err, domain.ErrUnauthorized):
		return 401
	case errors.Is(err, domain.ErrBlocked):
		return 403
	case errors.Is(err, domain.ErrRateLimited):
		return 429
	default:
		return 0
	}
}

// yelpReviews is API-first: the Fusion API when configured, scraping the
// business page when the API is missing or fails. An API answer with zero
// reviews still counts as an answer.
func (s *ScrapeService) yelpReviews(ctx context.Context, input string) ([]domain.Review, error) {
	id := domain.YelpBusinessID(input)
	if id == "" {
		return nil, fmt.Errorf("%w: no business ID in %q", domain.ErrInvalidInput, input)
	}
	if s.yelpAPI != nil {
		revs, err := s.yelpAPI.BusinessReviews(ctx, id)
		if err == nil {
			return revs, nil
		}
		log.Warn().Err(err).Str("business_id", id).Msg("yelp api failed, falling back to scraping")
	}
	return s.scraper.Scrape(ctx, "https://www.yelp.com/biz/"+id, "yelp", perSourceCap)
}

// amazonReviews scrapes the review listing. Amazon serves the same reviews
// under several paths and rotates which ones resolve, so candidates are
// tried in order until one answers.
func (s *ScrapeService) amazonReviews(ctx context.Context, input string) ([]domain.Review, error) {
	asin := domain.AmazonASIN(input)
	if asin == "" {
		return nil, fmt.Errorf("%w: no ASIN in %q", domain.ErrInvalidInput, input)
	}
	candidates := []string{
		"https://www.amazon.com/product-reviews/" + asin + "/ref=cm_cr_dp_d_show_all_btm",
		"https://www.amazon.com/dp/" + asin + "/ref=cm_cr_dp_d_show_all_btm",
		"https://www.amazon.com/product-reviews/" + asin,
	}
	revs, err := s.scraper.ScrapeFirst(ctx, candidates, "amazon", perSourceCap)
	if err != nil {
		return nil, err
	}
	// Link back to the product page rather than whichever review listing
	// happened to answer.
	productURL := "https://www.amazon.com/dp/" + asin
	for i := range revs {
		revs[i].ReviewURL = productURL
		revs[i].ReviewLink = extract.ReviewLink("amazon", productURL)
	}
	return revs, nil
}

func (s *ScrapeService) walmartReviews(ctx context.Context, input string) ([]domain.Review, error) {
	id := domain.WalmartProductID(input)
	if id == "" {
		return nil, fmt.Errorf("%w: no product ID in %q", domain.ErrInvalidInput, input)
	}
	return s.scraper.Scrape(ctx, "https://www.walmart.com/ip/"+id, "walmart", perSourceCap)
}

func (s *ScrapeService) targetReviews(ctx context.Context, input string) ([]domain.Review, error) {
	id := domain.TargetProductID(input)
	if id == "" {
		return nil, fmt.Errorf("%w: no TCIN in %q", domain.ErrInvalidInput, input)
	}
	return s.scraper.Scrape(ctx, "https://www.target.com/p/-/A-"+id, "target", perSourceCap)
}

// publish makes snap the served snapshot: process memory first, then
// write-through to redis and MySQL. Storage failures degrade to memory-only
// serving, never fail the scrape.
func (s *ScrapeService) publish(ctx context.Context, req domain.ScrapeRequest, snap domain.Snapshot, startedAt time.Time) {
	s.mu.Lock()
	cp := snap
	s.latest = &cp
	s.mu.Unlock()

	if s.cache != nil {
		if err := s.cache.Set(ctx, latestSnapshotKey, snap, s.ttlSec); err != nil {
			log.Warn().Err(err).Msg("snapshot cache write failed")
		}
	}
	if s.store != nil {
		run := &domain.ScrapeRun{Request: req, Snapshot: snap, StartedAt: startedAt, FinishedAt: time.Now().UTC()}
		if _, err := s.store.SaveRun(ctx, run); err != nil {
			log.Warn().Err(err).Msg("snapshot persist failed")
		}
	}
}

// Latest returns the most recent snapshot: process memory first, then the
// redis write-through, then the last persisted run. Hits from the outer
// tiers are promoted back into memory. Returns ErrNoData when nothing has
// been scraped yet.
func (s *ScrapeService) Latest(ctx context.Context) (domain.Snapshot, error) {
	s.mu.Lock()
	if s.latest != nil {
		snap := *s.latest
		s.mu.Unlock()
		return snap, nil
	}
	s.mu.Unlock()

	if s.cache != nil {
		var snap domain.Snapshot
		if ok, err := s.cache.Get(ctx, latestSnapshotKey, &snap); err == nil && ok {
			s.remember(snap)
			return snap, nil
		}
	}
	if s.store != nil {
		run, err := s.store.LatestRun(ctx)
		if err != nil && !errors.Is(err, domain.ErrNoData) {
			return domain.Snapshot{}, err
		}
		if run != nil {
			s.remember(run.Snapshot)
			return run.Snapshot, nil
		}
	}
	return domain.Snapshot{}, domain.ErrNoData
}

func (s *ScrapeService) remember(snap domain.Snapshot) {
	s.mu.Lock()
	s.latest = &snap
	s.mu.Unlock()
}

// SetUniversal replaces the universal slice of the served snapshot, keeping
// the other platforms' reviews, and returns the merged snapshot. rawURL is
// recorded as the run's request.
func (s *ScrapeService) SetUniversal(ctx context.Context, rawURL string, reviews []domain.Review) domain.Snapshot {
	started := time.Now().UTC()

	s.mu.Lock()
	snap := domain.NewSnapshot()
	if s.latest != nil {
		snap = *s.latest
		snap.Timestamp = started.Format(time.RFC3339)
	}
	snap.UniversalReviews = append([]domain.Review{}, reviews...)
	snap.Status = domain.StatusSuccess
	snap.Recount()
	s.mu.Unlock()

	s.publish(ctx, domain.ScrapeRequest{URL: rawURL}, snap, started)
	return snap
}

func (s *ScrapeService) startBackground(req domain.ScrapeRequest, intervalSec int) {
	job := &refreshJob{stop: make(chan struct{}), done: make(chan struct{})}

	s.jobMu.Lock()
	prev := s.job
	s.job = job
	s.jobWG.Add(1)
	go s.refreshLoop(job, req, time.Duration(intervalSec)*time.Second)
	s.jobMu.Unlock()

	// A concurrent request may have installed a loop after our earlier stop.
	// The slot holds exactly one job; whoever removes a job from the slot
	// owns closing it, so retire the displaced loop here.
	if prev != nil {
		close(prev.stop)
		select {
		case <-prev.done:
		case <-time.After(5 * time.Second):
		}
	}
	log.Info().Int("interval_seconds", intervalSec).Msg("background scraping started")
}

func (s *ScrapeService) refreshLoop(job *refreshJob, req domain.ScrapeRequest, interval time.Duration) {
	defer s.jobWG.Done()
	defer close(job.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-job.stop:
			log.Info().Msg("background scraping stopped")
			return
		case <-ticker.C:
			s.refreshOnce(req)
		}
	}
}

func (s *ScrapeService) refreshOnce(req domain.ScrapeRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), backgroundRunTimeout)
	defer cancel()

	started := time.Now().UTC()
	snap := s.runOnce(ctx, req)
	s.publish(ctx, req, snap, started)
	observability.ObserveRefreshRun()
	log.Info().Str("status", snap.Status).Int("reviews", snap.TotalReviews()).
		Msg("background refresh completed")
}

// StopBackground stops the refresh loop if one is running and reports
// whether there was one. An in-flight pass is given a grace period to
// finish; it will still publish its snapshot.
func (s *ScrapeService) StopBackground() bool {
	s.jobMu.Lock()
	job := s.job
	s.job = nil
	s.jobMu.Unlock()

	if job == nil {
		return false
	}
	close(job.stop)
	select {
	case <-job.done:
	case <-time.After(5 * time.Second):
	}
	return true
}

// Close stops the background job and waits for its goroutine to exit.
func (s *ScrapeService) Close() {
	s.StopBackground()
	s.jobWG.Wait()
}
