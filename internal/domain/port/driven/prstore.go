package driven

import (
	"context"

	"github.com/ericfisherdev/prreminder/internal/domain/model"
)

// PRStore defines the driven port for pull request record persistence.
type PRStore interface {
	// ListAll returns a snapshot of every tracked PR. Records whose stored sets
	// cannot be decoded are included with DecodeErr set.
	ListAll(ctx context.Context) ([]model.PullRequest, error)
	// ListByChannel returns a snapshot of the PRs posted in one channel.
	ListByChannel(ctx context.Context, channelID string) ([]model.PullRequest, error)
	// GetByID returns nil, nil when the PR does not exist.
	GetByID(ctx context.Context, id string) (*model.PullRequest, error)
	// Insert stores a new record with version 1. Returns model.ErrDuplicatePR
	// when a record with the same ID already exists.
	Insert(ctx context.Context, pr model.PullRequest) error
	// Upsert writes the record unconditionally (last write wins).
	Upsert(ctx context.Context, pr model.PullRequest) error
	// Update writes the record only if the stored version still equals pr.Version.
	// Returns model.ErrVersionConflict otherwise, model.ErrPRNotFound if absent.
	Update(ctx context.Context, pr model.PullRequest) error
	// Delete is idempotent; deleting an absent ID is not an error.
	Delete(ctx context.Context, id string) error
}
