package driven

import "context"

// ChatNotifier defines the driven port for the chat platform.
type ChatNotifier interface {
	// PostMessage posts text to a channel and returns the message timestamp.
	PostMessage(ctx context.Context, channelID, text string) (string, error)
	// UpdateMessage replaces the text of a previously posted message.
	UpdateMessage(ctx context.Context, channelID, messageTS, text string) error
	// Permalink returns a durable link to a posted message.
	Permalink(ctx context.Context, channelID, messageTS string) (string, error)
	// UserName resolves a user ID to a display name.
	UserName(ctx context.Context, userID string) (string, error)
}
