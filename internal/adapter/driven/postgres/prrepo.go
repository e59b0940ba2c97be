package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ericfisherdev/prreminder/internal/domain/model"
	"github.com/ericfisherdev/prreminder/internal/domain/port/driven"
)

var _ driven.PRStore = (*PRRepo)(nil)

// PRRepo is the Postgres implementation of the PRStore port interface.
type PRRepo struct {
	db *DB
}

// NewPRRepo creates a new PRRepo backed by the given pool.
func NewPRRepo(db *DB) *PRRepo {
	return &PRRepo{db: db}
}

const prColumns = `
	id, channel_id, submitter_id, name, link, description, reviewers,
	reviews_needed, reviews_received, attention_requests, submitted_at,
	message_ts, permalink, version`

// ListAll returns every tracked PR ordered by submission time.
func (r *PRRepo) ListAll(ctx context.Context) ([]model.PullRequest, error) {
	return r.queryPRs(ctx, `SELECT`+prColumns+` FROM pull_requests ORDER BY submitted_at, id`)
}

// ListByChannel returns the PRs posted in channelID ordered by submission time.
func (r *PRRepo) ListByChannel(ctx context.Context, channelID string) ([]model.PullRequest, error) {
	return r.queryPRs(ctx, `SELECT`+prColumns+` FROM pull_requests WHERE channel_id = $1 ORDER BY submitted_at, id`, channelID)
}

// GetByID returns nil, nil when the PR does not exist. A record with
// undecodable sets is returned with DecodeErr set.
func (r *PRRepo) GetByID(ctx context.Context, id string) (*model.PullRequest, error) {
	pr, err := scanPR(r.db.Pool.QueryRow(ctx, `SELECT`+prColumns+` FROM pull_requests WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get PR %s: %w", id, err)
	}
	return pr, nil
}

// Insert stores a new PR with version 1, or returns model.ErrDuplicatePR.
func (r *PRRepo) Insert(ctx context.Context, pr model.PullRequest) error {
	reviewers, attention, err := encodeSets(pr)
	if err != nil {
		return err
	}

	tag, err := r.db.Pool.Exec(ctx, `
		INSERT INTO pull_requests (
			id, channel_id, submitter_id, name, link, description, reviewers,
			reviews_needed, reviews_received, attention_requests, submitted_at,
			message_ts, permalink, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, 1)
		ON CONFLICT (id) DO NOTHING`,
		pr.ID, pr.ChannelID, pr.SubmitterID, pr.Name, pr.Link, pr.Description, reviewers,
		pr.ReviewsNeeded, pr.ReviewsReceived, attention, pr.SubmittedAt,
		pr.MessageTS, pr.Permalink,
	)
	if err != nil {
		return fmt.Errorf("insert PR %s: %w", pr.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrDuplicatePR
	}
	return nil
}

// Upsert inserts or replaces a PR and bumps its version.
func (r *PRRepo) Upsert(ctx context.Context, pr model.PullRequest) error {
	reviewers, attention, err := encodeSets(pr)
	if err != nil {
		return err
	}

	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO pull_requests (
			id, channel_id, submitter_id, name, link, description, reviewers,
			reviews_needed, reviews_received, attention_requests, submitted_at,
			message_ts, permalink, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, 1)
		ON CONFLICT (id)
		DO UPDATE SET
			channel_id = EXCLUDED.channel_id,
			submitter_id = EXCLUDED.submitter_id,
			name = EXCLUDED.name,
			link = EXCLUDED.link,
			description = EXCLUDED.description,
			reviewers = EXCLUDED.reviewers,
			reviews_needed = EXCLUDED.reviews_needed,
			reviews_received = EXCLUDED.reviews_received,
			attention_requests = EXCLUDED.attention_requests,
			submitted_at = EXCLUDED.submitted_at,
			message_ts = EXCLUDED.message_ts,
			permalink = EXCLUDED.permalink,
			version = pull_requests.version + 1
	`, pr.ID, pr.ChannelID, pr.SubmitterID, pr.Name, pr.Link, pr.Description, reviewers,
		pr.ReviewsNeeded, pr.ReviewsReceived, attention, pr.SubmittedAt,
		pr.MessageTS, pr.Permalink)
	if err != nil {
		return fmt.Errorf("upsert PR %s: %w", pr.ID, err)
	}
	return nil
}

// Update writes pr only if the stored version still equals pr.Version.
func (r *PRRepo) Update(ctx context.Context, pr model.PullRequest) error {
	reviewers, attention, err := encodeSets(pr)
	if err != nil {
		return err
	}

	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE pull_requests SET
			channel_id = $1, submitter_id = $2, name = $3, link = $4, description = $5,
			reviewers = $6, reviews_needed = $7, reviews_received = $8,
			attention_requests = $9, submitted_at = $10, message_ts = $11, permalink = $12,
			version = version + 1
		WHERE id = $13 AND version = $14
	`, pr.ChannelID, pr.SubmitterID, pr.Name, pr.Link, pr.Description,
		reviewers, pr.ReviewsNeeded, pr.ReviewsReceived,
		attention, pr.SubmittedAt, pr.MessageTS, pr.Permalink,
		pr.ID, pr.Version)
	if err != nil {
		return fmt.Errorf("update PR %s: %w", pr.ID, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	err = r.db.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pull_requests WHERE id = $1)`, pr.ID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check PR %s: %w", pr.ID, err)
	}
	if !exists {
		return model.ErrPRNotFound
	}
	return model.ErrVersionConflict
}

// Delete is idempotent.
func (r *PRRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.db.Pool.Exec(ctx, `DELETE FROM pull_requests WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete PR %s: %w", id, err)
	}
	return nil
}

func (r *PRRepo) queryPRs(ctx context.Context, query string, args ...any) ([]model.PullRequest, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query pull requests: %w", err)
	}
	defer rows.Close()

	var prs []model.PullRequest
	for rows.Next() {
		pr, err := scanPR(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pull request: %w", err)
		}
		prs = append(prs, *pr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pull requests: %w", err)
	}
	return prs, nil
}

func scanPR(row pgx.Row) (*model.PullRequest, error) {
	var pr model.PullRequest
	var reviewers, attention string

	err := row.Scan(
		&pr.ID, &pr.ChannelID, &pr.SubmitterID, &pr.Name, &pr.Link, &pr.Description,
		&reviewers, &pr.ReviewsNeeded, &pr.ReviewsReceived, &attention, &pr.SubmittedAt,
		&pr.MessageTS, &pr.Permalink, &pr.Version,
	)
	if err != nil {
		return nil, err
	}

	pr.DecodeSets(reviewers, attention)
	return &pr, nil
}

func encodeSets(pr model.PullRequest) (reviewers, attention string, err error) {
	r, err := json.Marshal(pr.Reviewers)
	if err != nil {
		return "", "", fmt.Errorf("marshal reviewers: %w", err)
	}
	a, err := json.Marshal(pr.AttentionRequests)
	if err != nil {
		return "", "", fmt.Errorf("marshal attention requests: %w", err)
	}
	return string(r), string(a), nil
}
