// internal/adapters/http_server/handlers.go
package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"review_scraper/internal/analyzer"
	"review_scraper/internal/app"
	"review_scraper/internal/domain"
	"review_scraper/internal/platforms"
)

type Handlers struct {
	Scrape *app.ScrapeService
	Search *app.SearchService
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`

	// RFC 7807 extension: set when the client named a platform we don't
	// support, so it can retry with one we do.
	SupportedPlatforms []string `json:"supported_platforms,omitempty"`
}

// envelope wraps search-style responses.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data"`
	Message string `json:"message,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, http.StatusNotFound, "Not Found", "Endpoint not found")
	})
	s.mux.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, http.StatusMethodNotAllowed, "Method Not Allowed", r.Method+" is not supported on "+r.URL.Path)
	})

	s.mux.Get("/", h.home)
	s.mux.Get("/health", h.health)
	s.mux.Post("/scrape", h.scrape)
	s.mux.Get("/latest", h.latest)
	s.mux.Post("/stop", h.stop)
	s.mux.Get("/search", h.search)
	s.mux.Get("/universal", h.universal)
	s.mux.Get("/platforms", h.platforms)
	s.mux.Get("/categories", h.categories)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	writeProblemBody(w, problem{Type: "about:blank", Title: title, Status: status, Detail: detail})
}

// writePlatformProblem is writeProblem plus the supported-platform list.
func writePlatformProblem(w http.ResponseWriter, status int, title, detail string) {
	writeProblemBody(w, problem{
		Type: "about:blank", Title: title, Status: status, Detail: detail,
		SupportedPlatforms: platforms.Keys(),
	})
}

func writeProblemBody(w http.ResponseWriter, p problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	if err := json.NewEncoder(w).Encode(p); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		// Log but don't fail the whole response; return empty ETag and best-effort body.
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeETagged answers with a weak ETag, short-circuiting to 304 when the
// client already holds this version.
func writeETagged(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag) // include ETag on 304
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write response body")
	}
}

var homePayload = map[string]any{
	"service":     "Universal Review Scraper API",
	"version":     "2.0.0",
	"description": "Intelligent review scraper supporting 50+ major platforms with keyword filtering",
	"endpoints": map[string]string{
		"health":     "/health - GET - Health check",
		"scrape":     "/scrape - POST - Scrape by product identifiers (Yelp, Amazon, Walmart, Target, any URL)",
		"latest":     "/latest - GET - Get latest scraped data",
		"stop":       "/stop - POST - Stop background scraping",
		"search":     "/search - GET - Intelligent keyword-based review search",
		"universal":  "/universal - GET - Universal platform scraper",
		"platforms":  "/platforms - GET - List supported platforms",
		"categories": "/categories - GET - Available filter categories",
		"metrics":    "/metrics - GET - Prometheus metrics",
	},
	"examples": map[string]string{
		"standing_desk_assembly": "/search?product=standing+desk&keywords=assembly,setup",
		"chair_comfort":          "/search?url=https://www.target.com/p/chair&categories=comfort,quality&min_rating=4",
		"amazon_live_reviews":    "/universal?url=https://www.amazon.com/dp/B08N5WRWNW&keywords=sound,quality",
		"multi_platform_search":  "/search?product=wireless+headphones&keywords=battery,comfort",
	},
	"features": []string{
		"Keyword-based review filtering",
		"Sentiment analysis",
		"Category-based sorting",
		"Rating-based filtering",
		"Direct review links",
		"Multi-platform concurrent search",
		"Background refresh scheduling",
	},
}

func (h *Handlers) home(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, homePayload)
}

func (h *Handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "review-scraper",
	})
}

func (h *Handlers) scrape(w http.ResponseWriter, r *http.Request) {
	var req domain.ScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}

	snap, err := h.Scrape.Scrape(r.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			writeProblem(w, http.StatusBadRequest, "Invalid Request", err.Error())
			return
		}
		writeProblem(w, http.StatusInternalServerError, "Scrape Failed", err.Error())
		return
	}

	// Every source failing is an upstream problem; the body still carries
	// the per-source errors.
	status := http.StatusOK
	if snap.Status == domain.StatusFailed {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, snap)
}

func (h *Handlers) latest(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Scrape.Latest(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrNoData) {
			writeProblem(w, http.StatusNotFound, "No Data", "no scrape has completed yet")
			return
		}
		writeProblem(w, http.StatusInternalServerError, "Lookup Failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handlers) stop(w http.ResponseWriter, r *http.Request) {
	if h.Scrape.StopBackground() {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Background scraping stopped", "status": "success"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "No background scraping active", "status": "info"})
}

func (h *Handlers) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	product := strings.TrimSpace(q.Get("product"))
	rawURL := strings.TrimSpace(q.Get("url"))
	if product == "" && rawURL == "" {
		writeProblem(w, http.StatusBadRequest, "Missing Parameter", "provide either url or product")
		return
	}

	f, err := parseFilter(q)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Filter", err.Error())
		return
	}

	var res app.SearchResult
	if product != "" {
		res, err = h.Search.SearchProduct(r.Context(), product, splitParam(q.Get("platforms")), f)
	} else {
		res, err = h.Search.SearchURL(r.Context(), rawURL, f)
	}
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnsupportedPlatform):
			writePlatformProblem(w, http.StatusBadRequest, "Unsupported Platform", err.Error())
		case errors.Is(err, domain.ErrInvalidInput):
			writeProblem(w, http.StatusBadRequest, "Invalid Request", err.Error())
		default:
			writeProblem(w, http.StatusBadGateway, "Search Failed", fmt.Sprintf("Intelligent search failed: %v", err))
		}
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Data:    res,
		Message: fmt.Sprintf("Found %d relevant reviews out of %d total", res.TotalFound, res.TotalScraped),
	})
}

func (h *Handlers) universal(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rawURL := strings.TrimSpace(q.Get("url"))
	if rawURL == "" {
		writePlatformProblem(w, http.StatusBadRequest, "Missing Parameter", "Missing required parameter: url")
		return
	}

	res, err := h.Scrape.ScrapeUniversal(r.Context(), rawURL, q.Get("platform"), splitParam(q.Get("keywords")))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			writeProblem(w, http.StatusBadRequest, "Invalid Request", err.Error())
			return
		}
		writePlatformProblem(w, http.StatusBadGateway, "Scrape Failed", fmt.Sprintf("Universal scraping failed: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Data:    res,
		Message: fmt.Sprintf("Successfully scraped %d reviews", res.TotalReviews),
	})
}

type platformInfo struct {
	Platform     string `json:"platform"`
	Name         string `json:"name"`
	Domain       string `json:"domain"`
	AntiBotLevel int    `json:"anti_bot_level"`
	RequiresJS   bool   `json:"requires_js"`
}

func (h *Handlers) platforms(w http.ResponseWriter, r *http.Request) {
	all := platforms.All()
	infos := make([]platformInfo, 0, len(all))
	for _, cfg := range all {
		infos = append(infos, platformInfo{
			Platform:     cfg.Key,
			Name:         cfg.Name,
			Domain:       cfg.Domain,
			AntiBotLevel: cfg.AntiBotLevel,
			RequiresJS:   cfg.RequiresJS,
		})
	}
	writeETagged(w, r, envelope{
		Success: true,
		Data: map[string]any{
			"platforms":       infos,
			"total_platforms": len(infos),
		},
		Message: fmt.Sprintf("Currently supporting %d platforms", len(infos)),
	})
}

func (h *Handlers) categories(w http.ResponseWriter, r *http.Request) {
	cats := analyzer.Categories()
	writeETagged(w, r, envelope{
		Success: true,
		Data: map[string]any{
			"categories":       cats,
			"total_categories": len(cats),
		},
		Message: "Available review categories for intelligent filtering",
	})
}

// parseFilter builds an analyzer filter from query parameters, starting from
// the defaults so absent parameters keep their usual meaning.
func parseFilter(q url.Values) (analyzer.Filter, error) {
	f := analyzer.DefaultFilter()
	f.Keywords = splitParam(q.Get("keywords"))
	f.Categories = splitParam(q.Get("categories"))
	if v := q.Get("min_rating"); v != "" {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return f, errors.New("min_rating must be a number")
		}
		f.MinRating = n
	}
	if v := q.Get("max_rating"); v != "" {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return f, errors.New("max_rating must be a number")
		}
		f.MaxRating = n
	}
	if v := q.Get("sentiment"); v != "" {
		f.Sentiment = strings.ToLower(v)
	}
	if v := q.Get("sort_by"); v != "" {
		f.SortBy = strings.ToLower(v)
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return f, errors.New("limit must be a positive integer")
		}
		f.Limit = n
	}
	return f, nil
}

// splitParam splits a comma-separated parameter, dropping empty entries.
func splitParam(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
