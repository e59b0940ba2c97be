package model

import "slices"

// DefaultSLAHours is the SLA applied to channels without settings.
const DefaultSLAHours = 8

// DefaultEnabledHours returns the hours during which digests are sent when a
// channel has not configured its own.
func DefaultEnabledHours() []int {
	return []int{9, 10, 11, 12, 13, 14, 15, 16}
}

// ChannelSettings holds per-channel SLA configuration.
type ChannelSettings struct {
	ChannelID    string
	SLAHours     int
	EnabledHours []int // Hours of day (0-23) in the business location, ascending.
}

// DefaultChannelSettings returns the settings used for a channel that has none stored.
func DefaultChannelSettings(channelID string) ChannelSettings {
	return ChannelSettings{
		ChannelID:    channelID,
		SLAHours:     DefaultSLAHours,
		EnabledHours: DefaultEnabledHours(),
	}
}

// EffectiveSLAHours returns SLAHours, or the default when unset.
func (s ChannelSettings) EffectiveSLAHours() int {
	if s.SLAHours <= 0 {
		return DefaultSLAHours
	}
	return s.SLAHours
}

// HourEnabled reports whether digests may be sent during the given hour of day.
// A nil EnabledHours means the defaults apply; an empty non-nil slice disables
// every hour.
func (s ChannelSettings) HourEnabled(hour int) bool {
	hours := s.EnabledHours
	if hours == nil {
		hours = DefaultEnabledHours()
	}
	return slices.Contains(hours, hour)
}

// ToggleHour flips the enabled state of hour and keeps EnabledHours sorted.
func (s *ChannelSettings) ToggleHour(hour int) {
	if s.EnabledHours == nil {
		s.EnabledHours = DefaultEnabledHours()
	}
	if i := slices.Index(s.EnabledHours, hour); i >= 0 {
		s.EnabledHours = slices.Delete(s.EnabledHours, i, i+1)
		return
	}
	s.EnabledHours = append(s.EnabledHours, hour)
	slices.Sort(s.EnabledHours)
}

// SettingsSet is a snapshot of channel settings keyed by channel ID.
type SettingsSet map[string]ChannelSettings

// For returns the settings for channelID, falling back to defaults.
func (s SettingsSet) For(channelID string) ChannelSettings {
	if settings, ok := s[channelID]; ok {
		return settings
	}
	return DefaultChannelSettings(channelID)
}
