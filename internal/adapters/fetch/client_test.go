package fetch_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"review_scraper/internal/adapters/fetch"
	"review_scraper/internal/domain"
)

func TestClient_Get_RetriesThenSuccess(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&hits, 1) {
		case 1, 2:
			// two transient failures
			w.WriteHeader(500)
		default:
			w.WriteHeader(200)
			_, _ = w.Write([]byte("<html><body>ok</body></html>"))
		}
	}))
	defer ts.Close()

	cl, err := fetch.NewClient(100, 2*time.Second) // high RPS for tests
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	body, err := cl.Get(ctx, ts.URL, nil)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !strings.Contains(string(body), "ok") {
		t.Fatalf("unexpected body: %q", body)
	}
	if atomic.LoadInt32(&hits) < 3 {
		t.Fatalf("expected at least 3 calls due to retries, got %d", hits)
	}
}

func TestClient_Get_NotFound(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(404)
	}))
	defer ts.Close()

	cl, err := fetch.NewClient(100, time.Second)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err = cl.Get(ctx, ts.URL, nil)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("404 must not be retried, got %d calls", hits)
	}
}

func TestClient_Get_BlockedOn403(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(403)
	}))
	defer ts.Close()

	cl, err := fetch.NewClient(100, time.Second)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err = cl.Get(ctx, ts.URL, nil)
	if !errors.Is(err, domain.ErrBlocked) {
		t.Fatalf("expected ErrBlocked, got %v", err)
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("403 must not be retried, got %d calls", hits)
	}
}

func TestClient_Get_HonorsRetryAfter(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(429)
			return
		}
		w.WriteHeader(200)
		_, _ = w.Write([]byte("<html>later</html>"))
	}))
	defer ts.Close()

	cl, err := fetch.NewClient(100, time.Second)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	body, err := cl.Get(ctx, ts.URL, nil)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !strings.Contains(string(body), "later") {
		t.Fatalf("unexpected body: %q", body)
	}
	if elapsed := time.Since(start); elapsed < time.Second {
		t.Fatalf("expected Retry-After wait of >=1s, waited %v", elapsed)
	}
	if atomic.LoadInt32(&hits) != 2 {
		t.Fatalf("expected exactly 2 calls, got %d", hits)
	}
}

func TestClient_Get_RateLimitedAfterRetries(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(429)
	}))
	defer ts.Close()

	cl, err := fetch.NewClient(100, time.Second)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err = cl.Get(ctx, ts.URL, nil)
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestClient_Get_BrowserHeaders(t *testing.T) {
	// the handler echoes headers back so the test never shares memory with it
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.Header.Get("User-Agent") + "|" + r.Header.Get("Accept")))
	}))
	defer ts.Close()

	cl, err := fetch.NewClient(100, time.Second)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	body, err := cl.Get(ctx, ts.URL, nil)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	parts := strings.SplitN(string(body), "|", 2)
	if len(parts) != 2 {
		t.Fatalf("unexpected echo body: %q", body)
	}
	if !strings.HasPrefix(parts[0], "Mozilla/5.0") {
		t.Fatalf("expected a rotated browser user agent, got %q", parts[0])
	}
	if !strings.HasPrefix(parts[1], "text/html") {
		t.Fatalf("expected a browser accept header, got %q", parts[1])
	}

	// a caller-pinned agent wins over rotation
	body, err = cl.Get(ctx, ts.URL, map[string]string{"User-Agent": "pinned/1.0"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !strings.HasPrefix(string(body), "pinned/1.0|") {
		t.Fatalf("expected pinned user agent, got %q", body)
	}
}

func TestClient_FetchFirst_SkipsPast404(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/new-style" {
			w.WriteHeader(404)
			return
		}
		w.WriteHeader(200)
		_, _ = w.Write([]byte("<html>legacy</html>"))
	}))
	defer ts.Close()

	cl, err := fetch.NewClient(100, time.Second)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	body, servedBy, err := cl.FetchFirst(ctx, []string{ts.URL + "/new-style", ts.URL + "/legacy"}, nil, false)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !strings.Contains(string(body), "legacy") {
		t.Fatalf("unexpected body: %q", body)
	}
	if servedBy != ts.URL+"/legacy" {
		t.Fatalf("unexpected winning url: %q", servedBy)
	}
}

func TestClient_FetchFirst_StopsOnHardError(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(403)
	}))
	defer ts.Close()

	cl, err := fetch.NewClient(100, time.Second)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, _, err = cl.FetchFirst(ctx, []string{ts.URL + "/a", ts.URL + "/b"}, nil, false)
	if !errors.Is(err, domain.ErrBlocked) {
		t.Fatalf("expected ErrBlocked, got %v", err)
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("non-404 must stop the candidate loop, got %d calls", hits)
	}
}
