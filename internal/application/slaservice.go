package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/prreminder/internal/domain/model"
	"github.com/ericfisherdev/prreminder/internal/domain/port/driven"
)

// PassResult summarizes one periodic pass.
type PassResult struct {
	RunID            string
	RemovedIDs       []string
	DigestsByChannel map[string]string
	SkippedChannels  []string // Had something to report but the hour was not enabled.
	FailedChannels   []string
	Rejected         int
}

// ChannelQueryResult is the on-demand summary for one channel.
type ChannelQueryResult struct {
	ChannelID string
	Digest    string
	PRCount   int
}

// SLAService runs SLA passes over snapshots read from the record store and
// delivers the resulting notices and digests through the chat notifier. A nil
// notifier composes digests without delivering them.
type SLAService struct {
	prStore       driven.PRStore
	settingsStore driven.ChannelSettingsStore
	notifier      driven.ChatNotifier
	calendar      WorkCalendar
	logger        *slog.Logger
}

// NewSLAService creates a new SLAService.
func NewSLAService(
	prStore driven.PRStore,
	settingsStore driven.ChannelSettingsStore,
	notifier driven.ChatNotifier,
	calendar WorkCalendar,
	logger *slog.Logger,
) *SLAService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SLAService{
		prStore:       prStore,
		settingsStore: settingsStore,
		notifier:      notifier,
		calendar:      calendar,
		logger:        logger,
	}
}

// RunPeriodicPass removes expired PRs and sends each eligible channel its digest.
// Failures affecting one PR or one channel are logged and do not stop the pass.
func (s *SLAService) RunPeriodicPass(ctx context.Context, now time.Time) (PassResult, error) {
	start := time.Now()
	result := PassResult{
		RunID:            uuid.NewString(),
		DigestsByChannel: make(map[string]string),
	}
	logger := s.logger.With("run_id", result.RunID)

	prs, err := s.prStore.ListAll(ctx)
	if err != nil {
		return result, fmt.Errorf("fetch PR snapshot: %w", err)
	}

	settings := s.loadSettings(ctx, prs)
	classification := s.calendar.Classify(prs, settings, now)
	result.Rejected = len(classification.Rejected)
	s.logRejected(logger, classification.Rejected)

	for _, pr := range classification.Expired {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		if s.expire(ctx, logger, pr) {
			result.RemovedIDs = append(result.RemovedIDs, pr.ID)
		}
	}

	hour := now.In(s.calendar.Location()).Hour()
	var eligible []*ChannelBuckets
	for _, channelID := range classification.ChannelOrder {
		buckets := classification.Channels[channelID]
		if !buckets.NeedsDigest() {
			continue
		}
		if !ShouldSendDigest(hour, settings.For(channelID)) {
			logger.Info("skipping channel outside enabled hours", "channel", channelID, "hour", hour)
			result.SkippedChannels = append(result.SkippedChannels, channelID)
			continue
		}
		eligible = append(eligible, buckets)
	}

	names := s.resolveNames(ctx, logger, eligible...)
	for _, buckets := range eligible {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		text, err := s.deliverDigest(ctx, buckets, names)
		if err != nil {
			logger.Error("channel digest failed", "channel", buckets.ChannelID, "error", err)
			result.FailedChannels = append(result.FailedChannels, buckets.ChannelID)
			continue
		}
		result.DigestsByChannel[buckets.ChannelID] = text
		if s.notifier == nil {
			logger.Info("composed SLA digest without a notifier", "channel", buckets.ChannelID, "text", text)
			continue
		}
		logger.Info("sent SLA digest", "channel", buckets.ChannelID,
			"overdue", len(buckets.Overdue), "near_due", len(buckets.NearDue))
	}

	logger.Info("sla pass complete",
		"prs", len(prs),
		"removed", len(result.RemovedIDs),
		"rejected", result.Rejected,
		"digests", len(result.DigestsByChannel),
		"skipped", len(result.SkippedChannels),
		"failed", len(result.FailedChannels),
		"duration", time.Since(start).Round(time.Millisecond),
	)

	return result, nil
}

// RunChannelQuery composes the active summary for one channel. Expired PRs are
// left out of the summary; removing them is the periodic pass's job.
func (s *SLAService) RunChannelQuery(ctx context.Context, channelID string, now time.Time) (ChannelQueryResult, error) {
	prs, err := s.prStore.ListByChannel(ctx, channelID)
	if err != nil {
		return ChannelQueryResult{}, fmt.Errorf("fetch PRs for channel %s: %w", channelID, err)
	}

	settings := make(model.SettingsSet)
	if stored := s.getSettings(ctx, channelID); stored != nil {
		settings[channelID] = *stored
	}

	classification := s.calendar.Classify(prs, settings, now)
	s.logRejected(s.logger, classification.Rejected)

	buckets := classification.Channel(channelID, settings)
	names := s.resolveNames(ctx, s.logger, buckets)

	return ChannelQueryResult{
		ChannelID: channelID,
		Digest:    ComposeActiveSummary(buckets, names, s.calendar.Location()),
		PRCount:   buckets.Len(),
	}, nil
}

// PostChannelSummary runs a channel query and posts the summary to the channel.
func (s *SLAService) PostChannelSummary(ctx context.Context, channelID string, now time.Time) (ChannelQueryResult, error) {
	result, err := s.RunChannelQuery(ctx, channelID, now)
	if err != nil {
		return result, err
	}
	if s.notifier == nil {
		return result, nil
	}
	if _, err := s.notifier.PostMessage(ctx, channelID, result.Digest); err != nil {
		return result, fmt.Errorf("post summary to %s: %w", channelID, err)
	}
	s.logger.Info("posted channel summary", "channel", channelID, "prs", result.PRCount)
	return result, nil
}

// expire posts the removal notice and deletes the record. It reports whether
// the record was deleted; a failed deletion leaves it for the next pass.
func (s *SLAService) expire(ctx context.Context, logger *slog.Logger, pr model.PullRequest) bool {
	logger.Info("PR is older than the working-day limit, removing it", "pr", pr.ID, "channel", pr.ChannelID)

	if s.notifier != nil && pr.MessageTS != "" {
		if err := s.notifier.UpdateMessage(ctx, pr.ChannelID, pr.MessageTS, RemovalNotice(pr)); err != nil {
			logger.Warn("removal notice failed", "pr", pr.ID, "channel", pr.ChannelID, "error", err)
		}
	}

	if err := s.prStore.Delete(ctx, pr.ID); err != nil {
		logger.Error("delete expired PR failed", "pr", pr.ID, "error", err)
		return false
	}
	return true
}

// deliverDigest composes and posts one channel's digest. Panics are converted
// to errors so one channel cannot abort the pass.
func (s *SLAService) deliverDigest(ctx context.Context, buckets *ChannelBuckets, names NameLookup) (text string, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("panic while notifying channel %s: %v", buckets.ChannelID, v)
		}
	}()

	text, ok := ComposeDigest(buckets, names)
	if !ok {
		return "", fmt.Errorf("nothing to report for channel %s", buckets.ChannelID)
	}

	if s.notifier != nil {
		if _, err := s.notifier.PostMessage(ctx, buckets.ChannelID, text); err != nil {
			return "", fmt.Errorf("post digest: %w", err)
		}
	}
	return text, nil
}

// loadSettings reads settings for every channel in the snapshot. Read failures
// fall back to defaults (non-fatal).
func (s *SLAService) loadSettings(ctx context.Context, prs []model.PullRequest) model.SettingsSet {
	settings := make(model.SettingsSet)
	seen := make(map[string]bool)
	for _, pr := range prs {
		if seen[pr.ChannelID] {
			continue
		}
		seen[pr.ChannelID] = true
		if stored := s.getSettings(ctx, pr.ChannelID); stored != nil {
			settings[pr.ChannelID] = *stored
		}
	}
	return settings
}

func (s *SLAService) getSettings(ctx context.Context, channelID string) *model.ChannelSettings {
	stored, err := s.settingsStore.GetSettings(ctx, channelID)
	if err != nil {
		s.logger.Warn("failed to get channel settings, using defaults", "channel", channelID, "error", err)
		return nil
	}
	return stored
}

// resolveNames looks up every submitter appearing in the given buckets before
// composition starts. Lookup failures render as UnknownUserName.
func (s *SLAService) resolveNames(ctx context.Context, logger *slog.Logger, channels ...*ChannelBuckets) NameLookup {
	names := make(map[string]string)
	if s.notifier == nil {
		return func(string) string { return "" }
	}

	resolve := func(userID string) {
		if _, ok := names[userID]; ok || userID == "" {
			return
		}
		name, err := s.notifier.UserName(ctx, userID)
		if err != nil {
			logger.Warn("failed to resolve user name", "user", userID, "error", err)
			name = ""
		}
		names[userID] = name
	}

	for _, b := range channels {
		for _, e := range b.Overdue {
			resolve(e.PR.SubmitterID)
		}
		for _, e := range b.NearDue {
			resolve(e.PR.SubmitterID)
		}
		for _, e := range b.Active {
			resolve(e.PR.SubmitterID)
		}
		for _, e := range b.Reviewed {
			resolve(e.PR.SubmitterID)
		}
	}

	return func(userID string) string { return names[userID] }
}

func (s *SLAService) logRejected(logger *slog.Logger, rejected []RejectedRecord) {
	for _, r := range rejected {
		logger.Warn("skipping unparsable PR record", "pr", r.PR.ID, "channel", r.PR.ChannelID, "error", r.Err)
	}
}
