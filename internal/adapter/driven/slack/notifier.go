// Package slack delivers PR messages and digests to Slack channels.
package slack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/slack-go/slack"

	"github.com/ericfisherdev/prreminder/internal/domain/port/driven"
)

const (
	maxAttempts  = 4
	initialDelay = 500 * time.Millisecond
	maxDelay     = 10 * time.Second
)

var _ driven.ChatNotifier = (*Notifier)(nil)

// Notifier implements driven.ChatNotifier on the Slack Web API. Rate-limited
// and 5xx responses are retried with backoff; API errors such as
// channel_not_found are returned immediately.
type Notifier struct {
	api    *slack.Client
	logger *slog.Logger
	delay  time.Duration
}

type options struct {
	apiURL string
	delay  time.Duration
}

// Option configures a Notifier.
type Option func(*options)

// WithAPIURL points the client at a different Web API base URL (with a trailing slash).
func WithAPIURL(url string) Option {
	return func(o *options) { o.apiURL = url }
}

// WithRetryDelay overrides the initial backoff delay.
func WithRetryDelay(d time.Duration) Option {
	return func(o *options) { o.delay = d }
}

// NewNotifier creates a Notifier authenticated with a bot token.
func NewNotifier(botToken string, logger *slog.Logger, opts ...Option) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}

	o := options{delay: initialDelay}
	for _, opt := range opts {
		opt(&o)
	}

	var clientOpts []slack.Option
	if o.apiURL != "" {
		clientOpts = append(clientOpts, slack.OptionAPIURL(o.apiURL))
	}

	return &Notifier{
		api:    slack.New(botToken, clientOpts...),
		logger: logger,
		delay:  o.delay,
	}
}

// PostMessage posts text to channelID and returns the message timestamp.
func (n *Notifier) PostMessage(ctx context.Context, channelID, text string) (string, error) {
	var ts string
	err := n.do(ctx, "chat.postMessage", func() error {
		_, respTS, err := n.api.PostMessageContext(ctx, channelID, slack.MsgOptionText(text, false))
		ts = respTS
		return err
	})
	if err != nil {
		return "", fmt.Errorf("post message to %s: %w", channelID, err)
	}
	return ts, nil
}

// UpdateMessage replaces the text of the message at messageTS.
func (n *Notifier) UpdateMessage(ctx context.Context, channelID, messageTS, text string) error {
	err := n.do(ctx, "chat.update", func() error {
		_, _, _, err := n.api.UpdateMessageContext(ctx, channelID, messageTS, slack.MsgOptionText(text, false))
		return err
	})
	if err != nil {
		return fmt.Errorf("update message %s in %s: %w", messageTS, channelID, err)
	}
	return nil
}

// Permalink returns the permanent link of a posted message.
func (n *Notifier) Permalink(ctx context.Context, channelID, messageTS string) (string, error) {
	var link string
	err := n.do(ctx, "chat.getPermalink", func() error {
		l, err := n.api.GetPermalinkContext(ctx, &slack.PermalinkParameters{Channel: channelID, Ts: messageTS})
		link = l
		return err
	})
	if err != nil {
		return "", fmt.Errorf("get permalink for %s in %s: %w", messageTS, channelID, err)
	}
	return link, nil
}

// UserName returns the user's real name, falling back to the display name.
func (n *Notifier) UserName(ctx context.Context, userID string) (string, error) {
	var user *slack.User
	err := n.do(ctx, "users.info", func() error {
		u, err := n.api.GetUserInfoContext(ctx, userID)
		user = u
		return err
	})
	if err != nil {
		return "", fmt.Errorf("get user %s: %w", userID, err)
	}
	if user.RealName != "" {
		return user.RealName, nil
	}
	return user.Profile.DisplayName, nil
}

func (n *Notifier) do(ctx context.Context, method string, fn func() error) error {
	return retry.Do(
		fn,
		retry.Context(ctx),
		retry.Attempts(maxAttempts),
		retry.Delay(n.delay),
		retry.MaxDelay(maxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(retryable),
		retry.OnRetry(func(attempt uint, err error) {
			n.logger.Warn("slack call failed, retrying", "method", method, "attempt", attempt+1, "error", err)
		}),
		retry.LastErrorOnly(true),
	)
}

// retryable reports whether Slack marked err as transient (rate limiting or a
// server-side failure).
func retryable(err error) bool {
	var r interface{ Retryable() bool }
	return errors.As(err, &r) && r.Retryable()
}
