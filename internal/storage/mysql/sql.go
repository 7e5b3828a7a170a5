package mysql

const insertRunSQL = `
INSERT INTO scrape_runs
  (status, request, total_reviews, yelp_count, amazon_count, walmart_count, target_count, universal_count, errors, snapshot, started_at, finished_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// Note: `text` is reserved; keep it quoted everywhere.
const insertReviewsPrefix = "INSERT INTO scraped_reviews\n  (run_id, platform, reviewer, rating, text_hash, `text`, review_date, url, source, sentiment, categories, helpful_votes)\nVALUES "

// Use VALUES(col) for broad compatibility; COALESCE keeps the old value when
// a rescrape of the same review has nothing new.
const insertReviewsOnDup = " ON DUPLICATE KEY UPDATE\n" +
	"  run_id        = VALUES(run_id),\n" +
	"  reviewer      = COALESCE(VALUES(reviewer), scraped_reviews.reviewer),\n" +
	"  rating        = VALUES(rating),\n" +
	"  review_date   = COALESCE(VALUES(review_date), scraped_reviews.review_date),\n" +
	"  url           = COALESCE(VALUES(url), scraped_reviews.url),\n" +
	"  source        = COALESCE(VALUES(source), scraped_reviews.source),\n" +
	"  sentiment     = COALESCE(VALUES(sentiment), scraped_reviews.sentiment),\n" +
	"  categories    = COALESCE(VALUES(categories), scraped_reviews.categories),\n" +
	"  helpful_votes = COALESCE(VALUES(helpful_votes), scraped_reviews.helpful_votes)\n"

// One row per platform: repeated misses bump the counter and refresh the
// latest status instead of growing the table.
const insertMissSQL = `
INSERT INTO scrape_misses (platform, http_status, reason)
VALUES (?, ?, ?)
ON DUPLICATE KEY UPDATE
  times       = times + 1,
  http_status = VALUES(http_status),
  reason      = VALUES(reason),
  seen_at     = CURRENT_TIMESTAMP
`

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

// The snapshot column is the source of truth for /latest after a restart;
// the count columns exist for SQL-side reporting.
const latestRunSQL = `
SELECT id, snapshot, started_at, finished_at
FROM scrape_runs
ORDER BY id DESC
LIMIT 1
`
