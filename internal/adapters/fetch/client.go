// Package fetch is the transport half of the scraper: rate-limited HTTP
// clients, an anti-bot variant, and a headless browser for pages that only
// render reviews through JavaScript.
package fetch

import (
	"context"
	crand "crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"review_scraper/internal/adapters/observability"
	"review_scraper/internal/domain"
)

const acceptHTML = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7"

// Client fetches pages over two transports sharing one rate limiter: plain
// for ordinary storefronts and a cloudflare-bypass wrap for platforms whose
// anti-bot tier requires it.
type Client struct {
	plain  *resty.Client
	bypass *resty.Client
}

func NewClient(rps int, timeout time.Duration) (*Client, error) {
	if rps <= 0 {
		rps = 2
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	// burst == rps so no request is dropped, only delayed
	rl := rate.NewLimiter(rate.Limit(rps), rps)

	plain, err := newRestyClient(rl, timeout, false)
	if err != nil {
		return nil, err
	}
	bypass, err := newRestyClient(rl, timeout, true)
	if err != nil {
		return nil, err
	}
	return &Client{plain: plain, bypass: bypass}, nil
}

func newRestyClient(rl *rate.Limiter, timeout time.Duration, antiBot bool) (*resty.Client, error) {
	c := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	c.SetCookieJar(jar)
	c.SetTimeout(timeout)
	c.SetHeader("Accept", acceptHTML)
	c.SetHeader("Accept-Language", "en-US,en;q=0.9")
	if antiBot {
		c.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(c.GetClient().Transport)
	}
	c.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		if err := rl.Wait(req.Context()); err != nil {
			return err
		}
		// rotate unless the caller pinned one
		if req.Header.Get("User-Agent") == "" {
			req.SetHeader("User-Agent", RandomUserAgent())
		}
		return nil
	})
	return c, nil
}

// Get fetches rawURL over the plain transport. headers may be nil.
func (c *Client) Get(ctx context.Context, rawURL string, headers map[string]string) ([]byte, error) {
	return c.do(ctx, c.plain, rawURL, headers)
}

// GetBypass fetches rawURL through the anti-bot transport.
func (c *Client) GetBypass(ctx context.Context, rawURL string, headers map[string]string) ([]byte, error) {
	return c.do(ctx, c.bypass, rawURL, headers)
}

// FetchFirst tries candidate URLs in order until one yields a body,
// skipping only 404s. Returns the body and the URL that served it.
func (c *Client) FetchFirst(ctx context.Context, urls []string, headers map[string]string, antiBot bool) ([]byte, string, error) {
	rc := c.plain
	if antiBot {
		rc = c.bypass
	}
	var last error
	for _, u := range urls {
		body, err := c.do(ctx, rc, u, headers)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				last = err
				continue // try next pattern
			}
			return nil, "", err // non-404: stop early
		}
		return body, u, nil
	}
	if last != nil {
		return nil, "", last
	}
	return nil, "", errors.New("no candidate URL succeeded")
}

// do performs a GET with retries and maps HTTP statuses onto domain errors.
// Retries on 429 and transient 5xx, honoring Retry-After when provided.
func (c *Client) do(ctx context.Context, rc *resty.Client, rawURL string, headers map[string]string) ([]byte, error) {
	service := serviceLabel(rawURL)

	var lastErr error
	for i := 0; i < 4; i++ {
		// fresh request each attempt; the limiter is waited in OnBeforeRequest
		req := rc.R().SetContext(ctx)
		for k, v := range headers {
			req.SetHeader(k, v)
		}

		start := time.Now()
		resp, err := req.Get(rawURL)
		if err != nil {
			observability.ObserveExternal(service, "GET", 0, time.Since(start))
			// network error or context canceled
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, lastErr
		}
		observability.ObserveExternal(service, "GET", resp.StatusCode(), time.Since(start))

		switch resp.StatusCode() {
		case http.StatusOK, http.StatusCreated, http.StatusAccepted:
			return resp.Body(), nil

		case http.StatusNotFound:
			return nil, domain.ErrNotFound

		case http.StatusUnauthorized:
			return nil, domain.ErrUnauthorized

		case http.StatusForbidden:
			return nil, fmt.Errorf("%w: status 403 from %s", domain.ErrBlocked, service)

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			// Prefer server-provided Retry-After; otherwise exponential backoff.
			wait := retryAfter(resp)
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("remote %d from %s", resp.StatusCode(), service)
			if resp.StatusCode() == http.StatusTooManyRequests {
				lastErr = fmt.Errorf("%w: remote 429 from %s", domain.ErrRateLimited, service)
			}
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, lastErr

		default:
			// keep a small body snippet for diagnostics
			b := resp.Body()
			if len(b) > 4096 {
				b = b[:4096]
			}
			return nil, fmt.Errorf("bad status %d: %s", resp.StatusCode(), strings.TrimSpace(string(b)))
		}
	}

	return nil, lastErr
}

// serviceLabel keeps the external-request metric cardinality at one label
// per site.
func serviceLabel(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
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
func retryAfter(resp *resty.Response) time.Duration {
	h := resp.Header().Get("Retry-After")
	if h == "" {
		return 0
	}
	// seconds form
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	// HTTP-date form
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff returns an exponential backoff delay with concurrency-safe jitter.
// i = retry attempt (0,1,2,...). Base doubles each attempt (200ms, 400ms, 800ms...),
// with up to +50% random jitter to avoid thundering herds.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0                  // 0..1
	j := time.Duration(0.5 * f * float64(base)) // up to +50%
	return base + j
}
