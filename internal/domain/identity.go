package domain

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	yelpBusinessIDRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	numericIDRe      = regexp.MustCompile(`^\d+$`)
	targetDPCIRe     = regexp.MustCompile(`^\d{3}-\d{2}-\d{4}$`)
	targetTCINRe     = regexp.MustCompile(`/[Aa]-(\d+)`)
	asinRe           = regexp.MustCompile(`^[A-Z0-9]{10}$`)

	asinURLRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)/dp/([A-Z0-9]{10})`),
		regexp.MustCompile(`(?i)/product/([A-Z0-9]{10})`),
		regexp.MustCompile(`(?i)/ASIN/([A-Z0-9]{10})`),
		regexp.MustCompile(`(?i)asin=([A-Z0-9]{10})`),
	}
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// ValidateYelpInput accepts a Yelp business ID or a yelp.com business URL.
func ValidateYelpInput(in string) error {
	in = strings.TrimSpace(in)
	if in == "" {
		return invalid("Yelp input must be a non-empty string")
	}
	if strings.HasPrefix(in, "http") {
		u, err := url.Parse(in)
		if err != nil {
			return invalid("invalid URL format")
		}
		if !strings.Contains(u.Host, "yelp.com") {
			return invalid("URL must be from yelp.com domain")
		}
		if !strings.Contains(u.Path, "/biz/") {
			return invalid("Yelp URL must contain /biz/ path")
		}
		return nil
	}
	if !yelpBusinessIDRe.MatchString(in) {
		return invalid("invalid Yelp business ID format")
	}
	if len(in) < 3 || len(in) > 100 {
		return invalid("Yelp business ID must be 3-100 characters")
	}
	return nil
}

// ValidateAmazonInput accepts a bare ASIN or an Amazon product URL that
// carries one.
func ValidateAmazonInput(in string) error {
	in = strings.TrimSpace(in)
	if in == "" {
		return invalid("Amazon input must be a non-empty string")
	}
	if strings.HasPrefix(in, "http") {
		u, err := url.Parse(in)
		if err != nil {
			return invalid("invalid URL format")
		}
		if !strings.Contains(u.Host, "amazon.") {
			return invalid("URL must be from Amazon domain")
		}
		for _, re := range asinURLRes {
			if re.MatchString(in) {
				return nil
			}
		}
		return invalid("Amazon URL must contain a valid ASIN")
	}
	if !asinRe.MatchString(strings.ToUpper(in)) {
		return invalid("invalid Amazon ASIN format (must be 10 alphanumeric characters)")
	}
	return nil
}

// ValidateWalmartInput accepts a numeric Walmart item ID or a walmart.com
// product URL.
func ValidateWalmartInput(in string) error {
	in = strings.TrimSpace(in)
	if in == "" {
		return invalid("Walmart input must be a non-empty string")
	}
	if strings.HasPrefix(in, "http") {
		u, err := url.Parse(in)
		if err != nil {
			return invalid("invalid URL format")
		}
		if !strings.Contains(u.Host, "walmart.com") {
			return invalid("URL must be from walmart.com domain")
		}
		if !strings.Contains(u.Path, "/ip/") {
			return invalid("Walmart URL must contain /ip/ path")
		}
		return nil
	}
	if !numericIDRe.MatchString(in) {
		return invalid("invalid Walmart product ID format")
	}
	if len(in) < 3 || len(in) > 20 {
		return invalid("Walmart product ID must be 3-20 digits")
	}
	return nil
}

// ValidateTargetInput accepts a Target DPCI (XXX-XX-XXXX), a numeric TCIN
// or a target.com product URL.
func ValidateTargetInput(in string) error {
	in = strings.TrimSpace(in)
	if in == "" {
		return invalid("Target input must be a non-empty string")
	}
	if strings.HasPrefix(in, "http") {
		u, err := url.Parse(in)
		if err != nil {
			return invalid("invalid URL format")
		}
		if !strings.Contains(u.Host, "target.com") {
			return invalid("URL must be from target.com domain")
		}
		if !strings.Contains(u.Path, "/p/") {
			return invalid("Target URL must contain /p/ path")
		}
		return nil
	}
	if targetDPCIRe.MatchString(in) {
		return nil
	}
	if !numericIDRe.MatchString(in) {
		return invalid("invalid Target product ID format")
	}
	if len(in) < 3 || len(in) > 20 {
		return invalid("Target product ID must be 3-20 digits")
	}
	return nil
}

// ValidateURL checks a generic scrape target.
func ValidateURL(in string) error {
	in = strings.TrimSpace(in)
	if in == "" {
		return invalid("URL must be a non-empty string")
	}
	if !strings.HasPrefix(in, "http://") && !strings.HasPrefix(in, "https://") {
		return invalid("URL must start with http:// or https://")
	}
	u, err := url.Parse(in)
	if err != nil || u.Host == "" {
		return invalid("invalid URL format - missing domain")
	}
	return nil
}

// ValidateRefreshInterval bounds the background refresh period. A nil
// interval means no background refresh and is valid.
func ValidateRefreshInterval(seconds *int) error {
	if seconds == nil {
		return nil
	}
	switch {
	case *seconds <= 0:
		return invalid("refresh interval must be positive")
	case *seconds < 60:
		return invalid("refresh interval must be at least 60 seconds to avoid rate limiting")
	case *seconds > 86400:
		return invalid("refresh interval cannot exceed 24 hours")
	}
	return nil
}

// YelpBusinessID returns the bare business ID, extracting it from a /biz/
// URL when one was supplied.
func YelpBusinessID(in string) string {
	in = strings.TrimSpace(in)
	if !strings.HasPrefix(in, "http") {
		return in
	}
	_, after, ok := strings.Cut(in, "/biz/")
	if !ok {
		return ""
	}
	if i := strings.IndexByte(after, '/'); i >= 0 {
		after = after[:i]
	}
	if i := strings.IndexByte(after, '?'); i >= 0 {
		after = after[:i]
	}
	return after
}

// AmazonASIN returns the uppercase ASIN, extracting it from a product URL
// when one was supplied.
func AmazonASIN(in string) string {
	in = strings.TrimSpace(in)
	if !strings.HasPrefix(in, "http") {
		return strings.ToUpper(in)
	}
	for _, re := range asinURLRes {
		if m := re.FindStringSubmatch(in); m != nil {
			return strings.ToUpper(m[1])
		}
	}
	return ""
}

// WalmartProductID returns the numeric item ID. Walmart product URLs put it
// in the last path segment after /ip/.
func WalmartProductID(in string) string {
	in = strings.TrimSpace(in)
	if !strings.HasPrefix(in, "http") {
		return in
	}
	_, after, ok := strings.Cut(in, "/ip/")
	if !ok {
		return ""
	}
	if i := strings.IndexByte(after, '?'); i >= 0 {
		after = after[:i]
	}
	after = strings.TrimSuffix(after, "/")
	if i := strings.LastIndexByte(after, '/'); i >= 0 {
		after = after[i+1:]
	}
	return after
}

// TargetProductID returns the TCIN, extracting it from the /p/.../A-<tcin>
// form when a URL was supplied.
func TargetProductID(in string) string {
	in = strings.TrimSpace(in)
	if !strings.HasPrefix(in, "http") {
		return in
	}
	if m := targetTCINRe.FindStringSubmatch(in); m != nil {
		return m[1]
	}
	return ""
}

// ScrapeRequest is the decoded body of POST /scrape.
type ScrapeRequest struct {
	YelpBusinessID   string `json:"yelp_business_id,omitempty"`
	AmazonASIN       string `json:"amazon_asin,omitempty"`
	WalmartProductID string `json:"walmart_product_id,omitempty"`
	TargetProductID  string `json:"target_product_id,omitempty"`
	URL              string `json:"url,omitempty"`
	RefreshInterval  *int   `json:"refresh_interval,omitempty"`
}

// Validate checks that at least one scrape target was given and that every
// supplied field is well formed.
func (r ScrapeRequest) Validate() error {
	if r.YelpBusinessID == "" && r.AmazonASIN == "" && r.WalmartProductID == "" &&
		r.TargetProductID == "" && r.URL == "" {
		return invalid("at least one of yelp_business_id, amazon_asin, walmart_product_id, target_product_id, or url must be provided")
	}
	if r.YelpBusinessID != "" {
		if err := ValidateYelpInput(r.YelpBusinessID); err != nil {
			return fmt.Errorf("yelp validation error: %w", err)
		}
	}
	if r.AmazonASIN != "" {
		if err := ValidateAmazonInput(r.AmazonASIN); err != nil {
			return fmt.Errorf("amazon validation error: %w", err)
		}
	}
	if r.WalmartProductID != "" {
		if err := ValidateWalmartInput(r.WalmartProductID); err != nil {
			return fmt.Errorf("walmart validation error: %w", err)
		}
	}
	if r.TargetProductID != "" {
		if err := ValidateTargetInput(r.TargetProductID); err != nil {
			return fmt.Errorf("target validation error: %w", err)
		}
	}
	if r.URL != "" {
		if err := ValidateURL(r.URL); err != nil {
			return fmt.Errorf("url validation error: %w", err)
		}
	}
	if err := ValidateRefreshInterval(r.RefreshInterval); err != nil {
		return fmt.Errorf("refresh interval error: %w", err)
	}
	return nil
}
