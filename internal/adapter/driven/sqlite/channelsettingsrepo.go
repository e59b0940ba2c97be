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
var _ driven.ChannelSettingsStore = (*ChannelSettingsRepo)(nil)

// ChannelSettingsRepo is the SQLite implementation of the ChannelSettingsStore port interface.
type ChannelSettingsRepo struct {
	db *DB
}

// NewChannelSettingsRepo creates a new ChannelSettingsRepo backed by the given DB.
func NewChannelSettingsRepo(db *DB) *ChannelSettingsRepo {
	return &ChannelSettingsRepo{db: db}
}

// GetSettings retrieves per-channel settings. Returns (nil, nil) if no
// settings exist for the channel. A NULL enabled_hours column leaves
// EnabledHours nil so the default hours apply.
func (r *ChannelSettingsRepo) GetSettings(ctx context.Context, channelID string) (*model.ChannelSettings, error) {
	const query = `
		SELECT channel_id, sla_hours, enabled_hours
		FROM channel_settings
		WHERE channel_id = ?
	`

	var s model.ChannelSettings
	var hours sql.NullString

	err := r.db.Reader.QueryRowContext(ctx, query, channelID).Scan(&s.ChannelID, &s.SLAHours, &hours)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get settings for %s: %w", channelID, err)
	}

	if hours.Valid {
		s.EnabledHours = []int{}
		if err := json.Unmarshal([]byte(hours.String), &s.EnabledHours); err != nil {
			return nil, fmt.Errorf("decode enabled hours for %s: %w", channelID, err)
		}
	}

	return &s, nil
}

// SetSettings inserts or replaces per-channel settings.
func (r *ChannelSettingsRepo) SetSettings(ctx context.Context, settings model.ChannelSettings) error {
	const query = `
		INSERT INTO channel_settings (channel_id, sla_hours, enabled_hours)
		VALUES (?, ?, ?)
		ON CONFLICT(channel_id) DO UPDATE SET
			sla_hours = excluded.sla_hours,
			enabled_hours = excluded.enabled_hours
	`

	var hours sql.NullString
	if settings.EnabledHours != nil {
		b, err := json.Marshal(settings.EnabledHours)
		if err != nil {
			return fmt.Errorf("encode enabled hours: %w", err)
		}
		hours = sql.NullString{String: string(b), Valid: true}
	}

	_, err := r.db.Writer.ExecContext(ctx, query, settings.ChannelID, settings.EffectiveSLAHours(), hours)
	if err != nil {
		return fmt.Errorf("set settings for %s: %w", settings.ChannelID, err)
	}

	return nil
}
