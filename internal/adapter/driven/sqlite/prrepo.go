package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ericfisherdev/prreminder/internal/domain/model"
	"github.com/ericfisherdev/prreminder/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.PRStore = (*PRRepo)(nil)

// PRRepo is the SQLite implementation of the PRStore port interface.
type PRRepo struct {
	db *DB
}

// NewPRRepo creates a new PRRepo backed by the given DB.
func NewPRRepo(db *DB) *PRRepo {
	return &PRRepo{db: db}
}

const prColumns = `
	id, channel_id, submitter_id, name, link, description, reviewers,
	reviews_needed, reviews_received, attention_requests, submitted_at,
	message_ts, permalink, version`

// ListAll returns every tracked PR ordered by submission time.
func (r *PRRepo) ListAll(ctx context.Context) ([]model.PullRequest, error) {
	query := `SELECT` + prColumns + ` FROM pull_requests ORDER BY submitted_at, id`
	return r.queryPRs(ctx, query)
}

// ListByChannel returns the PRs posted in channelID ordered by submission time.
func (r *PRRepo) ListByChannel(ctx context.Context, channelID string) ([]model.PullRequest, error) {
	query := `SELECT` + prColumns + ` FROM pull_requests WHERE channel_id = ? ORDER BY submitted_at, id`
	return r.queryPRs(ctx, query, channelID)
}

// GetByID retrieves a single PR. Returns nil, nil if the PR does not exist. A
// record with undecodable sets is returned with DecodeErr set.
func (r *PRRepo) GetByID(ctx context.Context, id string) (*model.PullRequest, error) {
	query := `SELECT` + prColumns + ` FROM pull_requests WHERE id = ?`

	pr, err := scanPR(r.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get PR %s: %w", id, err)
	}

	return pr, nil
}

// Insert stores a new PR with version 1. Returns model.ErrDuplicatePR if the ID
// is already taken; the existing record is left untouched.
func (r *PRRepo) Insert(ctx context.Context, pr model.PullRequest) error {
	const query = `
		INSERT INTO pull_requests (
			id, channel_id, submitter_id, name, link, description, reviewers,
			reviews_needed, reviews_received, attention_requests, submitted_at,
			message_ts, permalink, version
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(id) DO NOTHING
	`

	reviewers, attention, err := encodeSets(pr)
	if err != nil {
		return err
	}

	result, err := r.db.Writer.ExecContext(ctx, query,
		pr.ID, pr.ChannelID, pr.SubmitterID, pr.Name, pr.Link, pr.Description, reviewers,
		pr.ReviewsNeeded, pr.ReviewsReceived, attention, pr.SubmittedAt,
		pr.MessageTS, pr.Permalink,
	)
	if err != nil {
		return fmt.Errorf("insert PR %s: %w", pr.ID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrDuplicatePR
	}

	return nil
}

// Upsert inserts or replaces a PR and bumps its version. Reviewer and attention
// sets are serialized as JSON arrays in TEXT columns.
func (r *PRRepo) Upsert(ctx context.Context, pr model.PullRequest) error {
	const query = `
		INSERT INTO pull_requests (
			id, channel_id, submitter_id, name, link, description, reviewers,
			reviews_needed, reviews_received, attention_requests, submitted_at,
			message_ts, permalink, version
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(id) DO UPDATE SET
			channel_id = excluded.channel_id,
			submitter_id = excluded.submitter_id,
			name = excluded.name,
			link = excluded.link,
			description = excluded.description,
			reviewers = excluded.reviewers,
			reviews_needed = excluded.reviews_needed,
			reviews_received = excluded.reviews_received,
			attention_requests = excluded.attention_requests,
			submitted_at = excluded.submitted_at,
			message_ts = excluded.message_ts,
			permalink = excluded.permalink,
			version = pull_requests.version + 1
	`

	reviewers, attention, err := encodeSets(pr)
	if err != nil {
		return err
	}

	_, err = r.db.Writer.ExecContext(ctx, query,
		pr.ID, pr.ChannelID, pr.SubmitterID, pr.Name, pr.Link, pr.Description, reviewers,
		pr.ReviewsNeeded, pr.ReviewsReceived, attention, pr.SubmittedAt,
		pr.MessageTS, pr.Permalink,
	)
	if err != nil {
		return fmt.Errorf("upsert PR %s: %w", pr.ID, err)
	}

	return nil
}

// Update writes pr only if the stored version still equals pr.Version.
func (r *PRRepo) Update(ctx context.Context, pr model.PullRequest) error {
	const query = `
		UPDATE pull_requests SET
			channel_id = ?, submitter_id = ?, name = ?, link = ?, description = ?,
			reviewers = ?, reviews_needed = ?, reviews_received = ?,
			attention_requests = ?, submitted_at = ?, message_ts = ?, permalink = ?,
			version = version + 1
		WHERE id = ? AND version = ?
	`

	reviewers, attention, err := encodeSets(pr)
	if err != nil {
		return err
	}

	result, err := r.db.Writer.ExecContext(ctx, query,
		pr.ChannelID, pr.SubmitterID, pr.Name, pr.Link, pr.Description,
		reviewers, pr.ReviewsNeeded, pr.ReviewsReceived,
		attention, pr.SubmittedAt, pr.MessageTS, pr.Permalink,
		pr.ID, pr.Version,
	)
	if err != nil {
		return fmt.Errorf("update PR %s: %w", pr.ID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}

	var exists int
	err = r.db.Writer.QueryRowContext(ctx, `SELECT 1 FROM pull_requests WHERE id = ?`, pr.ID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrPRNotFound
	}
	if err != nil {
		return fmt.Errorf("check PR %s: %w", pr.ID, err)
	}
	return model.ErrVersionConflict
}

// Delete removes a PR. Deleting an absent PR is not an error.
func (r *PRRepo) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM pull_requests WHERE id = ?`

	if _, err := r.db.Writer.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete PR %s: %w", id, err)
	}

	return nil
}

func (r *PRRepo) queryPRs(ctx context.Context, query string, args ...any) ([]model.PullRequest, error) {
	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
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

type scanner interface {
	Scan(dest ...any) error
}

// scanPR reads one row. submitted_at is kept as stored; it is parsed when the
// PR is classified. Undecodable sets are reported through DecodeErr rather than
// failing the scan.
func scanPR(s scanner) (*model.PullRequest, error) {
	var pr model.PullRequest
	var reviewers, attention string

	err := s.Scan(
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
