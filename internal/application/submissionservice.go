package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"

	"github.com/ericfisherdev/prreminder/internal/domain/model"
	"github.com/ericfisherdev/prreminder/internal/domain/port/driven"
)

const (
	updateAttempts = 3
	updateDelay    = 25 * time.Millisecond
)

var hostPattern = regexp.MustCompile(`^([a-z0-9-]+\.)+[a-z]{2,}$`)

// NormalizeLink lower-cases a review link and adds an https scheme when none is
// given. The normalized link is the PR's stable ID.
func NormalizeLink(raw string) (string, error) {
	link := strings.ToLower(strings.TrimSpace(raw))
	if link == "" {
		return "", fmt.Errorf("%w: empty link", model.ErrInvalidLink)
	}
	if !strings.Contains(link, "://") {
		link = "https://" + link
	}

	u, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrInvalidLink, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", model.ErrInvalidLink, u.Scheme)
	}
	if !hostPattern.MatchString(u.Host) {
		return "", fmt.Errorf("%w: invalid host %q", model.ErrInvalidLink, u.Host)
	}

	return link, nil
}

// SubmitRequest carries a new review request.
type SubmitRequest struct {
	ChannelID     string
	SubmitterID   string
	Name          string
	Link          string
	Description   string
	ReviewsNeeded int // Zero means model.DefaultReviewsNeeded.
}

// SubmissionService handles interactive changes to PR records: submission,
// approvals, attention requests and manual removal. Every read-modify-write is
// version-checked and retried on conflict.
type SubmissionService struct {
	prStore  driven.PRStore
	notifier driven.ChatNotifier
	resolver driven.PRMetadataResolver
	logger   *slog.Logger
}

// NewSubmissionService creates a new SubmissionService. notifier and resolver
// may be nil.
func NewSubmissionService(
	prStore driven.PRStore,
	notifier driven.ChatNotifier,
	resolver driven.PRMetadataResolver,
	logger *slog.Logger,
) *SubmissionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubmissionService{
		prStore:  prStore,
		notifier: notifier,
		resolver: resolver,
		logger:   logger,
	}
}

// Submit validates and stores a new PR and posts its message to the channel.
func (s *SubmissionService) Submit(ctx context.Context, req SubmitRequest, now time.Time) (model.PullRequest, error) {
	link, err := NormalizeLink(req.Link)
	if err != nil {
		return model.PullRequest{}, err
	}

	reviewsNeeded := req.ReviewsNeeded
	if reviewsNeeded < 0 {
		return model.PullRequest{}, model.ErrInvalidReviewCount
	}
	if reviewsNeeded == 0 {
		reviewsNeeded = model.DefaultReviewsNeeded
	}

	existing, err := s.prStore.GetByID(ctx, link)
	if err != nil {
		return model.PullRequest{}, fmt.Errorf("check existing PR: %w", err)
	}
	if existing != nil {
		return model.PullRequest{}, model.ErrDuplicatePR
	}

	pr := model.PullRequest{
		ID:            link,
		ChannelID:     req.ChannelID,
		SubmitterID:   req.SubmitterID,
		Name:          strings.TrimSpace(req.Name),
		Link:          link,
		Description:   strings.TrimSpace(req.Description),
		ReviewsNeeded: reviewsNeeded,
		SubmittedAt:   model.FormatTimestamp(now),
	}
	if pr.Name == "" {
		pr.Name = s.resolveName(ctx, link)
	}

	// Insert first so a concurrent submission of the same link loses before
	// anything is posted.
	if err := s.prStore.Insert(ctx, pr); err != nil {
		if errors.Is(err, model.ErrDuplicatePR) {
			return model.PullRequest{}, err
		}
		return model.PullRequest{}, fmt.Errorf("store PR: %w", err)
	}
	pr.Version = 1

	if s.notifier != nil {
		ts, err := s.notifier.PostMessage(ctx, pr.ChannelID, PRMessage(pr))
		if err != nil {
			if delErr := s.prStore.Delete(ctx, pr.ID); delErr != nil {
				s.logger.Error("failed to discard unposted PR", "pr", pr.ID, "error", delErr)
			}
			return model.PullRequest{}, fmt.Errorf("post PR message: %w", err)
		}

		permalink, err := s.notifier.Permalink(ctx, pr.ChannelID, ts)
		if err != nil {
			s.logger.Warn("failed to fetch permalink", "pr", pr.ID, "channel", pr.ChannelID, "error", err)
		}

		pr, err = s.commit(ctx, pr.ID, func(stored *model.PullRequest) error {
			stored.MessageTS = ts
			stored.Permalink = permalink
			return nil
		})
		if err != nil {
			return model.PullRequest{}, fmt.Errorf("record PR message: %w", err)
		}
	}

	s.logger.Info("PR submitted", "pr", pr.ID, "channel", pr.ChannelID, "reviews_needed", pr.ReviewsNeeded)
	return pr, nil
}

// Approve records reviewerID's approval. Approving twice is a no-op.
func (s *SubmissionService) Approve(ctx context.Context, id, reviewerID string) (model.PullRequest, error) {
	return s.mutate(ctx, id, func(pr *model.PullRequest) error {
		if pr.SubmitterID == reviewerID {
			return model.ErrSelfApproval
		}
		pr.Reviewers.Add(reviewerID)
		pr.SyncReviewCount()
		return nil
	})
}

// RetractApproval removes reviewerID's approval.
func (s *SubmissionService) RetractApproval(ctx context.Context, id, reviewerID string) (model.PullRequest, error) {
	return s.mutate(ctx, id, func(pr *model.PullRequest) error {
		pr.Reviewers.Remove(reviewerID)
		pr.SyncReviewCount()
		return nil
	})
}

// ToggleAttention adds or removes userID from the PR's attention requests.
func (s *SubmissionService) ToggleAttention(ctx context.Context, id, userID string) (model.PullRequest, error) {
	return s.mutate(ctx, id, func(pr *model.PullRequest) error {
		if !pr.AttentionRequests.Remove(userID) {
			pr.AttentionRequests.Add(userID)
		}
		return nil
	})
}

// EditRequest carries the editable fields of a submitted PR.
type EditRequest struct {
	Name          string // Blank keeps the current name.
	Description   string
	ReviewsNeeded int // Zero means model.DefaultReviewsNeeded.
}

// Edit changes a PR's name, description and required review count. Lowering or
// raising the count moves the PR between buckets on the next pass.
func (s *SubmissionService) Edit(ctx context.Context, id string, req EditRequest) (model.PullRequest, error) {
	reviewsNeeded := req.ReviewsNeeded
	if reviewsNeeded < 0 {
		return model.PullRequest{}, model.ErrInvalidReviewCount
	}
	if reviewsNeeded == 0 {
		reviewsNeeded = model.DefaultReviewsNeeded
	}

	updated, err := s.mutate(ctx, id, func(pr *model.PullRequest) error {
		if name := strings.TrimSpace(req.Name); name != "" {
			pr.Name = name
		}
		pr.Description = strings.TrimSpace(req.Description)
		pr.ReviewsNeeded = reviewsNeeded
		return nil
	})
	if err != nil {
		return model.PullRequest{}, err
	}

	s.logger.Info("PR edited", "pr", id, "reviews_needed", reviewsNeeded)
	return updated, nil
}

// RequestReReview withdraws every approval on the PR and asks the previous
// approvers, by direct message, to review it again. Failed messages are logged.
func (s *SubmissionService) RequestReReview(ctx context.Context, id, userID string) (model.PullRequest, error) {
	var previous []string
	updated, err := s.mutate(ctx, id, func(pr *model.PullRequest) error {
		previous = pr.Reviewers.Items()
		pr.Reviewers = model.IdentitySet{}
		pr.SyncReviewCount()
		return nil
	})
	if err != nil {
		return model.PullRequest{}, err
	}

	if s.notifier != nil {
		text := ReReviewMessage(updated)
		for _, reviewerID := range previous {
			if _, err := s.notifier.PostMessage(ctx, reviewerID, text); err != nil {
				s.logger.Warn("failed to ask reviewer for re-review", "pr", id, "reviewer", reviewerID, "error", err)
			}
		}
	}

	s.logger.Info("re-review requested", "pr", id, "by", userID, "reviewers", len(previous))
	return updated, nil
}

// ReReviewMessage is the direct message sent to reviewers whose approval was
// withdrawn.
func ReReviewMessage(pr model.PullRequest) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "*The PR* *<%s|%s>* *has been updated since your last review.*\n", pr.Link, pr.Name)
	sb.WriteString("Please take a moment to review the changes and update your +1 if you still approve.")
	if pr.Permalink != "" {
		fmt.Fprintf(&sb, "\n<%s|View original post>", pr.Permalink)
	}
	return sb.String()
}

// Remove deletes a PR and replaces its message with a removal note.
func (s *SubmissionService) Remove(ctx context.Context, id, userID string) error {
	pr, err := s.prStore.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get PR %s: %w", id, err)
	}
	if pr == nil {
		return model.ErrPRNotFound
	}

	if s.notifier != nil && pr.MessageTS != "" {
		text := fmt.Sprintf("PR *<%s|%s>* has been removed by <@%s>.", pr.Link, pr.Name, userID)
		if err := s.notifier.UpdateMessage(ctx, pr.ChannelID, pr.MessageTS, text); err != nil {
			s.logger.Warn("failed to update removed PR message", "pr", pr.ID, "error", err)
		}
	}

	if err := s.prStore.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete PR %s: %w", id, err)
	}
	s.logger.Info("PR removed", "pr", id, "by", userID)
	return nil
}

// mutate commits fn and refreshes the PR's chat message.
func (s *SubmissionService) mutate(ctx context.Context, id string, fn func(*model.PullRequest) error) (model.PullRequest, error) {
	updated, err := s.commit(ctx, id, fn)
	if err != nil {
		return model.PullRequest{}, err
	}

	if s.notifier != nil && updated.MessageTS != "" {
		if err := s.notifier.UpdateMessage(ctx, updated.ChannelID, updated.MessageTS, PRMessage(updated)); err != nil {
			s.logger.Warn("failed to refresh PR message", "pr", updated.ID, "error", err)
		}
	}

	return updated, nil
}

// commit applies fn to a fresh copy of the record and writes it back with a
// version check, retrying when another writer got there first. Records that
// failed to decode are never written back.
func (s *SubmissionService) commit(ctx context.Context, id string, fn func(*model.PullRequest) error) (model.PullRequest, error) {
	var updated model.PullRequest

	err := retry.Do(
		func() error {
			pr, err := s.prStore.GetByID(ctx, id)
			if err != nil {
				return fmt.Errorf("get PR %s: %w", id, err)
			}
			if pr == nil {
				return model.ErrPRNotFound
			}
			if pr.DecodeErr != nil {
				return fmt.Errorf("PR %s is unreadable: %w", id, pr.DecodeErr)
			}
			if err := fn(pr); err != nil {
				return err
			}
			if err := s.prStore.Update(ctx, *pr); err != nil {
				return err
			}
			pr.Version++
			updated = *pr
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(updateAttempts),
		retry.Delay(updateDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, model.ErrVersionConflict)
		}),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Debug("retrying PR update", "pr", id, "attempt", n+1, "error", err)
		}),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return model.PullRequest{}, err
	}
	return updated, nil
}

func (s *SubmissionService) resolveName(ctx context.Context, link string) string {
	if s.resolver == nil {
		return link
	}
	title, ok, err := s.resolver.ResolveTitle(ctx, link)
	if err != nil {
		s.logger.Warn("failed to resolve PR title", "link", link, "error", err)
		return link
	}
	if !ok || title == "" {
		return link
	}
	return title
}

// PRMessage renders the live chat message for a PR.
func PRMessage(pr model.PullRequest) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "PR submitted: *<%s|%s>* by <@%s>\n", pr.Link, pr.Name, pr.SubmitterID)
	if pr.Description != "" {
		sb.WriteString(pr.Description)
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "_Status_: %s\n", pr.Status())
	if pr.Reviewers.Len() > 0 {
		fmt.Fprintf(&sb, "Approved by: %s\n", mentions(pr.Reviewers.Items()))
	}
	if pr.AttentionRequests.Len() > 0 {
		fmt.Fprintf(&sb, "Attention requested by: %s\n", mentions(pr.AttentionRequests.Items()))
	}
	return sb.String()
}

func mentions(ids []string) string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = "<@" + id + ">"
	}
	return strings.Join(out, ", ")
}
