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

var _ driven.ChannelSettingsStore = (*ChannelSettingsRepo)(nil)

// ChannelSettingsRepo is the Postgres implementation of the ChannelSettingsStore port interface.
type ChannelSettingsRepo struct {
	db *DB
}

func NewChannelSettingsRepo(db *DB) *ChannelSettingsRepo {
	return &ChannelSettingsRepo{db: db}
}

// GetSettings returns (nil, nil) if the channel has no stored settings.
func (r *ChannelSettingsRepo) GetSettings(ctx context.Context, channelID string) (*model.ChannelSettings, error) {
	var s model.ChannelSettings
	var hours *string

	err := r.db.Pool.QueryRow(ctx,
		`SELECT channel_id, sla_hours, enabled_hours FROM channel_settings WHERE channel_id = $1`,
		channelID,
	).Scan(&s.ChannelID, &s.SLAHours, &hours)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get settings for %s: %w", channelID, err)
	}

	if hours != nil {
		s.EnabledHours = []int{}
		if err := json.Unmarshal([]byte(*hours), &s.EnabledHours); err != nil {
			return nil, fmt.Errorf("decode enabled hours for %s: %w", channelID, err)
		}
	}
	return &s, nil
}

func (r *ChannelSettingsRepo) SetSettings(ctx context.Context, settings model.ChannelSettings) error {
	var hours *string
	if settings.EnabledHours != nil {
		b, err := json.Marshal(settings.EnabledHours)
		if err != nil {
			return fmt.Errorf("encode enabled hours: %w", err)
		}
		encoded := string(b)
		hours = &encoded
	}

	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO channel_settings (channel_id, sla_hours, enabled_hours)
		VALUES ($1, $2, $3)
		ON CONFLICT (channel_id)
		DO UPDATE SET
			sla_hours = EXCLUDED.sla_hours,
			enabled_hours = EXCLUDED.enabled_hours
	`, settings.ChannelID, settings.EffectiveSLAHours(), hours)
	if err != nil {
		return fmt.Errorf("set settings for %s: %w", settings.ChannelID, err)
	}
	return nil
}
