package application

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/ericfisherdev/prreminder/internal/domain/model"
	"github.com/ericfisherdev/prreminder/internal/domain/port/driven"
)

// SettingsService reads and changes per-channel SLA settings.
type SettingsService struct {
	store  driven.ChannelSettingsStore
	logger *slog.Logger
}

// NewSettingsService creates a new SettingsService.
func NewSettingsService(store driven.ChannelSettingsStore, logger *slog.Logger) *SettingsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SettingsService{store: store, logger: logger}
}

// Get returns the channel's settings with defaults applied.
func (s *SettingsService) Get(ctx context.Context, channelID string) (model.ChannelSettings, error) {
	stored, err := s.store.GetSettings(ctx, channelID)
	if err != nil {
		return model.ChannelSettings{}, fmt.Errorf("get settings for %s: %w", channelID, err)
	}
	if stored == nil {
		return model.DefaultChannelSettings(channelID), nil
	}

	settings := *stored
	if settings.SLAHours <= 0 {
		settings.SLAHours = model.DefaultSLAHours
	}
	if settings.EnabledHours == nil {
		settings.EnabledHours = model.DefaultEnabledHours()
	} else {
		settings.EnabledHours = slices.Clone(settings.EnabledHours)
	}
	return settings, nil
}

// SetSLAHours changes the channel's SLA threshold.
func (s *SettingsService) SetSLAHours(ctx context.Context, channelID string, hours int) (model.ChannelSettings, error) {
	if hours <= 0 {
		return model.ChannelSettings{}, model.ErrInvalidSLAHours
	}

	settings, err := s.Get(ctx, channelID)
	if err != nil {
		return model.ChannelSettings{}, err
	}
	settings.SLAHours = hours

	if err := s.store.SetSettings(ctx, settings); err != nil {
		return model.ChannelSettings{}, fmt.Errorf("set SLA hours for %s: %w", channelID, err)
	}
	s.logger.Info("SLA time updated", "channel", channelID, "sla_hours", hours)
	return settings, nil
}

// ToggleHour flips whether digests are sent during hour.
func (s *SettingsService) ToggleHour(ctx context.Context, channelID string, hour int) (model.ChannelSettings, error) {
	if hour < 0 || hour > 23 {
		return model.ChannelSettings{}, model.ErrInvalidHour
	}

	settings, err := s.Get(ctx, channelID)
	if err != nil {
		return model.ChannelSettings{}, err
	}
	settings.ToggleHour(hour)

	if err := s.store.SetSettings(ctx, settings); err != nil {
		return model.ChannelSettings{}, fmt.Errorf("toggle hour for %s: %w", channelID, err)
	}
	s.logger.Info("enabled hours updated", "channel", channelID, "hour", hour, "enabled_hours", settings.EnabledHours)
	return settings, nil
}
