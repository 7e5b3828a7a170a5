package domain_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"review_scraper/internal/domain"
)

func TestValidateYelpInput(t *testing.T) {
	testCases := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{"business id", "garaje-san-francisco", false},
		{"id with underscore", "some_place_123", false},
		{"business url", "https://www.yelp.com/biz/garaje-san-francisco?osq=tacos", false},
		{"empty", "", true},
		{"too short", "ab", true},
		{"invalid characters", "bad id!", true},
		{"wrong domain", "https://www.yellowpages.com/biz/garaje", true},
		{"missing biz path", "https://www.yelp.com/search?find_desc=tacos", true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := domain.ValidateYelpInput(tc.in)
			if tc.wantErr {
				require.ErrorIs(t, err, domain.ErrInvalidInput)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestValidateAmazonInput(t *testing.T) {
	testCases := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{"asin", "B08N5WRWNW", false},
		{"lowercase asin", "b08n5wrwnw", false},
		{"dp url", "https://www.amazon.com/dp/B08N5WRWNW", false},
		{"query asin url", "https://www.amazon.com/gp/product?asin=B08N5WRWNW", false},
		{"empty", "", true},
		{"nine characters", "B08N5WRWN", true},
		{"url without asin", "https://www.amazon.com/s?k=desk", true},
		{"wrong domain", "https://www.ebay.com/dp/B08N5WRWNW", true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := domain.ValidateAmazonInput(tc.in)
			if tc.wantErr {
				require.ErrorIs(t, err, domain.ErrInvalidInput)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestValidateWalmartAndTargetInput(t *testing.T) {
	require.NoError(t, domain.ValidateWalmartInput("123456789"))
	require.NoError(t, domain.ValidateWalmartInput("https://www.walmart.com/ip/standing-desk/987654321"))
	require.ErrorIs(t, domain.ValidateWalmartInput("12"), domain.ErrInvalidInput)
	require.ErrorIs(t, domain.ValidateWalmartInput("abc123"), domain.ErrInvalidInput)
	require.ErrorIs(t, domain.ValidateWalmartInput("https://www.walmart.com/search?q=desk"), domain.ErrInvalidInput)

	require.NoError(t, domain.ValidateTargetInput("123-45-6789"))
	require.NoError(t, domain.ValidateTargetInput("86776548"))
	require.NoError(t, domain.ValidateTargetInput("https://www.target.com/p/desk/-/A-86776548"))
	require.ErrorIs(t, domain.ValidateTargetInput("12-3"), domain.ErrInvalidInput)
	require.ErrorIs(t, domain.ValidateTargetInput("https://www.target.com/c/furniture"), domain.ErrInvalidInput)
}

func TestValidateURL(t *testing.T) {
	require.NoError(t, domain.ValidateURL("https://example.com/reviews"))
	require.NoError(t, domain.ValidateURL("http://example.com"))
	require.ErrorIs(t, domain.ValidateURL(""), domain.ErrInvalidInput)
	require.ErrorIs(t, domain.ValidateURL("ftp://example.com"), domain.ErrInvalidInput)
	require.ErrorIs(t, domain.ValidateURL("https://"), domain.ErrInvalidInput)
}

func TestValidateRefreshInterval(t *testing.T) {
	iv := func(n int) *int { return &n }

	require.NoError(t, domain.ValidateRefreshInterval(nil))
	require.NoError(t, domain.ValidateRefreshInterval(iv(60)))
	require.NoError(t, domain.ValidateRefreshInterval(iv(86400)))
	require.ErrorIs(t, domain.ValidateRefreshInterval(iv(0)), domain.ErrInvalidInput)
	require.ErrorIs(t, domain.ValidateRefreshInterval(iv(59)), domain.ErrInvalidInput)
	require.ErrorIs(t, domain.ValidateRefreshInterval(iv(86401)), domain.ErrInvalidInput)
}

func TestIdentifierExtraction(t *testing.T) {
	require.Equal(t, "garaje-san-francisco",
		domain.YelpBusinessID("https://www.yelp.com/biz/garaje-san-francisco?osq=tacos"))
	require.Equal(t, "garaje-san-francisco",
		domain.YelpBusinessID("https://www.yelp.com/biz/garaje-san-francisco/review_feed"))
	require.Equal(t, "garaje-san-francisco", domain.YelpBusinessID("garaje-san-francisco"))
	require.Equal(t, "", domain.YelpBusinessID("https://www.yelp.com/search?q=tacos"))

	require.Equal(t, "B08N5WRWNW", domain.AmazonASIN("b08n5wrwnw"))
	require.Equal(t, "B08N5WRWNW",
		domain.AmazonASIN("https://www.amazon.com/Some-Product/dp/b08n5wrwnw/ref=sr_1_1"))
	require.Equal(t, "", domain.AmazonASIN("https://www.amazon.com/s?k=desk"))

	require.Equal(t, "55137435", domain.WalmartProductID(
		"https://www.walmart.com/ip/Instant-Pot-Duo-6-Quart/55137435?athbdg=L1600"))
	require.Equal(t, "55137435", domain.WalmartProductID("55137435"))
	require.Equal(t, "", domain.WalmartProductID("https://www.walmart.com/browse/home"))

	require.Equal(t, "79035712", domain.TargetProductID(
		"https://www.target.com/p/standing-desk/-/A-79035712#lnk=sametab"))
	require.Equal(t, "79035712", domain.TargetProductID("79035712"))
	require.Equal(t, "", domain.TargetProductID("https://www.target.com/c/furniture"))
}

func TestScrapeRequestValidate(t *testing.T) {
	iv := func(n int) *int { return &n }

	err := domain.ScrapeRequest{}.Validate()
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	require.Contains(t, err.Error(), "at least one of")

	require.NoError(t, domain.ScrapeRequest{AmazonASIN: "B08N5WRWNW"}.Validate())
	require.NoError(t, domain.ScrapeRequest{
		YelpBusinessID:  "garaje-san-francisco",
		AmazonASIN:      "B08N5WRWNW",
		RefreshInterval: iv(300),
	}.Validate())

	err = domain.ScrapeRequest{AmazonASIN: "nope"}.Validate()
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	require.Contains(t, err.Error(), "amazon validation error")

	err = domain.ScrapeRequest{URL: "https://example.com", RefreshInterval: iv(10)}.Validate()
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	require.Contains(t, err.Error(), "refresh interval error")
}

func TestSnapshotRecount(t *testing.T) {
	snap := domain.NewSnapshot()
	require.Equal(t, domain.StatusNoData, snap.Status)
	require.NotNil(t, snap.YelpReviews)
	require.NotNil(t, snap.Errors)

	snap.AmazonReviews = append(snap.AmazonReviews, domain.Review{Text: "ok"}, domain.Review{Text: "fine"})
	snap.UniversalReviews = append(snap.UniversalReviews, domain.Review{Text: "meh"})
	snap.Errors = append(snap.Errors, "Yelp: unauthorized")
	snap.Recount()

	require.Equal(t, 3, snap.Statistics.TotalReviews)
	require.Equal(t, 2, snap.Statistics.AmazonReviewCount)
	require.Equal(t, 1, snap.Statistics.UniversalReviewCount)
	require.Equal(t, 0, snap.Statistics.YelpReviewCount)
	require.True(t, snap.Statistics.HasErrors)
}
