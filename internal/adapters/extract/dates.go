package extract

import "time"

// dateLayouts covers the formats review sites commonly render dates in.
var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"02/01/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2006-01-02 15:04:05",
	"01/02/2006 15:04:05",
}

// NormalizeDate converts a scraped date string to RFC3339 UTC when it
// matches a known layout; anything else passes through sanitized.
func NormalizeDate(raw string) string {
	if raw == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC().Format(time.RFC3339)
		}
	}
	return SanitizeText(raw)
}
