package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/prreminder/internal/domain/model"
)

func TestChannelSettingsRepo_GetSettingsMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewChannelSettingsRepo(db)

	settings, err := repo.GetSettings(context.Background(), "C_NONE")
	require.NoError(t, err)
	assert.Nil(t, settings)
}

func TestChannelSettingsRepo_SetAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewChannelSettingsRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.SetSettings(ctx, model.ChannelSettings{
		ChannelID:    "C1",
		SLAHours:     4,
		EnabledHours: []int{9, 13},
	}))

	settings, err := repo.GetSettings(ctx, "C1")
	require.NoError(t, err)
	require.NotNil(t, settings)
	assert.Equal(t, "C1", settings.ChannelID)
	assert.Equal(t, 4, settings.SLAHours)
	assert.Equal(t, []int{9, 13}, settings.EnabledHours)
}

func TestChannelSettingsRepo_NilHoursMeansDefaults(t *testing.T) {
	db := setupTestDB(t)
	repo := NewChannelSettingsRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.SetSettings(ctx, model.ChannelSettings{ChannelID: "C1", SLAHours: 6}))

	settings, err := repo.GetSettings(ctx, "C1")
	require.NoError(t, err)
	assert.Nil(t, settings.EnabledHours)
	assert.True(t, settings.HourEnabled(9))
}

func TestChannelSettingsRepo_EmptyHoursMutesChannel(t *testing.T) {
	db := setupTestDB(t)
	repo := NewChannelSettingsRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.SetSettings(ctx, model.ChannelSettings{ChannelID: "C1", SLAHours: 8, EnabledHours: []int{}}))

	settings, err := repo.GetSettings(ctx, "C1")
	require.NoError(t, err)
	require.NotNil(t, settings.EnabledHours)
	assert.Empty(t, settings.EnabledHours)
	assert.False(t, settings.HourEnabled(9))
}

func TestChannelSettingsRepo_UpsertOverwrites(t *testing.T) {
	db := setupTestDB(t)
	repo := NewChannelSettingsRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.SetSettings(ctx, model.ChannelSettings{ChannelID: "C1", SLAHours: 2, EnabledHours: []int{9}}))
	require.NoError(t, repo.SetSettings(ctx, model.ChannelSettings{ChannelID: "C1", SLAHours: 10, EnabledHours: []int{15, 16}}))

	settings, err := repo.GetSettings(ctx, "C1")
	require.NoError(t, err)
	assert.Equal(t, 10, settings.SLAHours)
	assert.Equal(t, []int{15, 16}, settings.EnabledHours)
}

func TestRunMigrations_Idempotent(t *testing.T) {
	db := setupTestDB(t)

	version, err := RunMigrations(db)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
}
