package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/prreminder/internal/domain/model"
)

func makePR(id, channelID string, submittedAt time.Time) model.PullRequest {
	return model.PullRequest{
		ID:            id,
		ChannelID:     channelID,
		SubmitterID:   "U_AUTHOR",
		Name:          "Add README",
		Link:          id,
		Description:   "first pass",
		ReviewsNeeded: 2,
		SubmittedAt:   model.FormatTimestamp(submittedAt),
		MessageTS:     "1700000000.000100",
		Permalink:     "https://chat.example.com/archives/" + channelID + "/p1700000000000100",
	}
}

var baseTime = time.Date(2024, 9, 2, 9, 0, 0, 0, time.UTC)

func TestPRRepo_UpsertAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPRRepo(db)
	ctx := context.Background()

	pr := makePR("https://github.com/o/r/pull/1", "C1", baseTime)
	pr.Reviewers = model.NewIdentitySet("U2", "U1")
	pr.AttentionRequests = model.NewIdentitySet("U9")
	pr.SyncReviewCount()
	require.NoError(t, repo.Upsert(ctx, pr))

	got, err := repo.GetByID(ctx, pr.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "C1", got.ChannelID)
	assert.Equal(t, "U_AUTHOR", got.SubmitterID)
	assert.Equal(t, "Add README", got.Name)
	assert.Equal(t, "first pass", got.Description)
	assert.Equal(t, []string{"U2", "U1"}, got.Reviewers.Items())
	assert.True(t, got.AttentionRequests.Contains("U9"))
	assert.Equal(t, 2, got.ReviewsReceived)
	assert.Equal(t, pr.SubmittedAt, got.SubmittedAt)
	assert.Equal(t, pr.MessageTS, got.MessageTS)
	assert.Equal(t, pr.Permalink, got.Permalink)
	assert.Equal(t, int64(1), got.Version)

	createdAt, err := got.CreatedAt(time.UTC)
	require.NoError(t, err)
	assert.True(t, createdAt.Equal(baseTime))
}

func TestPRRepo_UpsertBumpsVersion(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPRRepo(db)
	ctx := context.Background()

	pr := makePR("p1", "C1", baseTime)
	require.NoError(t, repo.Upsert(ctx, pr))
	pr.Name = "Renamed"
	require.NoError(t, repo.Upsert(ctx, pr))

	got, err := repo.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, int64(2), got.Version)
}

func TestPRRepo_GetByIDMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPRRepo(db)

	got, err := repo.GetByID(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPRRepo_Update(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPRRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, makePR("p1", "C1", baseTime)))
	current, err := repo.GetByID(ctx, "p1")
	require.NoError(t, err)

	stale := current.Clone()
	current.Reviewers.Add("U5")
	current.SyncReviewCount()
	require.NoError(t, repo.Update(ctx, *current))

	got, err := repo.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.ReviewsReceived)
	assert.Equal(t, current.Version+1, got.Version)

	stale.Name = "lost update"
	err = repo.Update(ctx, stale)
	assert.True(t, errors.Is(err, model.ErrVersionConflict))

	err = repo.Update(ctx, makePR("missing", "C1", baseTime))
	assert.True(t, errors.Is(err, model.ErrPRNotFound))
}

func TestPRRepo_ListAllAndByChannel(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPRRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, makePR("b", "C1", baseTime.Add(time.Hour))))
	require.NoError(t, repo.Upsert(ctx, makePR("a", "C2", baseTime)))
	require.NoError(t, repo.Upsert(ctx, makePR("c", "C1", baseTime.Add(2*time.Hour))))

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].ID)
	assert.Equal(t, "b", all[1].ID)
	assert.Equal(t, "c", all[2].ID)

	c1, err := repo.ListByChannel(ctx, "C1")
	require.NoError(t, err)
	require.Len(t, c1, 2)
	assert.Equal(t, "b", c1[0].ID)
	assert.Equal(t, "c", c1[1].ID)

	empty, err := repo.ListByChannel(ctx, "C_NONE")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestPRRepo_UnparsableTimestampStillLoads(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPRRepo(db)
	ctx := context.Background()

	pr := makePR("p1", "C1", baseTime)
	pr.SubmittedAt = "last tuesday"
	require.NoError(t, repo.Upsert(ctx, pr))

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	_, err = all[0].CreatedAt(time.UTC)
	var parseErr *model.RecordParseError
	assert.True(t, errors.As(err, &parseErr))
}

func TestPRRepo_LegacyReviewerEncoding(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPRRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, makePR("p1", "C1", baseTime)))
	_, err := db.Writer.ExecContext(ctx, `UPDATE pull_requests SET reviewers = '{"U2": true, "U1": true}' WHERE id = 'p1'`)
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"U1", "U2"}, got.Reviewers.Items())
}

func TestPRRepo_DeleteIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPRRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, makePR("p1", "C1", baseTime)))
	require.NoError(t, repo.Delete(ctx, "p1"))
	require.NoError(t, repo.Delete(ctx, "p1"))

	got, err := repo.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPRRepo_Insert(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPRRepo(db)
	ctx := context.Background()

	pr := makePR("p1", "C1", baseTime)
	require.NoError(t, repo.Insert(ctx, pr))

	dup := makePR("p1", "C2", baseTime.Add(time.Hour))
	dup.Name = "Someone else's PR"
	assert.ErrorIs(t, repo.Insert(ctx, dup), model.ErrDuplicatePR)

	got, err := repo.GetByID(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "C1", got.ChannelID)
	assert.Equal(t, "Add README", got.Name)
	assert.Equal(t, int64(1), got.Version)
}

func TestPRRepo_CorruptSetsDoNotFailListing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPRRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, makePR("a", "C1", baseTime)))
	require.NoError(t, repo.Upsert(ctx, makePR("b", "C1", baseTime.Add(time.Hour))))
	_, err := db.Writer.ExecContext(ctx, `UPDATE pull_requests SET attention_requests = 'oops' WHERE id = 'a'`)
	require.NoError(t, err)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	var parseErr *model.RecordParseError
	require.True(t, errors.As(all[0].DecodeErr, &parseErr))
	assert.Equal(t, "a", parseErr.ID)
	assert.Equal(t, "attention_requests", parseErr.Field)
	assert.NoError(t, all[1].DecodeErr)

	got, err := repo.GetByID(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Error(t, got.DecodeErr)
}
