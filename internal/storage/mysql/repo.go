package mysql

import (
	"context"
	"crypto/sha1"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"strings"

	"review_scraper/internal/domain"
)

func nilStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nilJSON(v any) any {
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" || string(b) == "[]" || string(b) == "{}" {
		return nil
	}
	return string(b)
}

// textHash identifies a review across runs. Platforms shuffle display names
// and relative dates far more often than body text, so the hash is over
// platform and text only.
func textHash(platform, text string) string {
	sum := sha1.Sum([]byte(platform + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// SaveRun persists the run row and upserts its reviews in one transaction.
// The run ID is written back into run.
func (r *Repo) SaveRun(ctx context.Context, run *domain.ScrapeRun) (int64, error) {
	snapJSON, err := json.Marshal(run.Snapshot)
	if err != nil {
		return 0, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	st := run.Snapshot.Statistics
	res, err := tx.ExecContext(ctx, insertRunSQL,
		run.Snapshot.Status,
		nilJSON(run.Request),
		st.TotalReviews,
		st.YelpReviewCount,
		st.AmazonReviewCount,
		st.WalmartReviewCount,
		st.TargetReviewCount,
		st.UniversalReviewCount,
		nilJSON(run.Snapshot.Errors),
		string(snapJSON),
		run.StartedAt,
		run.FinishedAt,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if err := upsertReviews(ctx, tx, id, run.Snapshot); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	run.ID = id
	return id, nil
}

func upsertReviews(ctx context.Context, tx *sql.Tx, runID int64, snap domain.Snapshot) error {
	all := make([]domain.Review, 0, snap.TotalReviews())
	all = append(all, snap.YelpReviews...)
	all = append(all, snap.AmazonReviews...)
	all = append(all, snap.WalmartReviews...)
	all = append(all, snap.TargetReviews...)
	all = append(all, snap.UniversalReviews...)
	if len(all) == 0 {
		return nil
	}

	values := make([]string, 0, len(all))
	args := make([]any, 0, len(all)*12) // 12 params per row
	for _, rv := range all {
		// Columns (from insertReviewsPrefix):
		// (run_id, platform, reviewer, rating, text_hash, `text`, review_date, url, source, sentiment, categories, helpful_votes)
		values = append(values, "(?,?,?,?,?,?,?,?,?,?,?,?)")
		args = append(args,
			runID,
			rv.Platform,
			nilStr(rv.ReviewerName),
			rv.Rating,
			textHash(rv.Platform, rv.Text),
			rv.Text,
			nilStr(rv.Date),
			nilStr(rv.ReviewURL),
			nilStr(rv.Source),
			nilStr(rv.Sentiment),
			nilJSON(rv.Categories),
			nilStr(rv.HelpfulVotes),
		)
	}
	sqlStr := insertReviewsPrefix + strings.Join(values, ",") + insertReviewsOnDup
	_, err := tx.ExecContext(ctx, sqlStr, args...)
	return err
}

// LatestRun returns the most recently finished run, rebuilding the snapshot
// from its JSON column. ErrNoData when nothing has been persisted yet.
func (r *Repo) LatestRun(ctx context.Context) (*domain.ScrapeRun, error) {
	row := r.db.QueryRowContext(ctx, latestRunSQL)

	var run domain.ScrapeRun
	var snapJSON []byte
	var started, finished sql.NullTime
	if err := row.Scan(&run.ID, &snapJSON, &started, &finished); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNoData
		}
		return nil, err
	}
	if err := json.Unmarshal(snapJSON, &run.Snapshot); err != nil {
		return nil, err
	}
	if started.Valid {
		run.StartedAt = started.Time
	}
	if finished.Valid {
		run.FinishedAt = finished.Time
	}
	return &run, nil
}

func (r *Repo) LogMiss(ctx context.Context, platform string, status int, reason string) error {
	_, err := r.db.ExecContext(ctx, insertMissSQL, platform, status, reason)
	return err
}
