package driven

import (
	"context"

	"github.com/ericfisherdev/prreminder/internal/domain/model"
)

// ChannelSettingsStore defines the driven port for per-channel settings persistence.
// GetSettings returns (nil, nil) if no settings exist for the channel;
// callers should apply defaults when nil is returned.
type ChannelSettingsStore interface {
	GetSettings(ctx context.Context, channelID string) (*model.ChannelSettings, error)
	SetSettings(ctx context.Context, settings model.ChannelSettings) error
}
