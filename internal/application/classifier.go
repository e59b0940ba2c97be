package application

import (
	"time"

	"github.com/ericfisherdev/prreminder/internal/domain/model"
)

const secondsPerHour = 3600

// Bucket is the SLA state a PR is assigned to during a pass.
type Bucket int

const (
	BucketActive Bucket = iota
	BucketNearDue
	BucketOverdue
	BucketReviewed
)

// String returns a human-readable name for the bucket.
func (b Bucket) String() string {
	switch b {
	case BucketActive:
		return "active"
	case BucketNearDue:
		return "near-due"
	case BucketOverdue:
		return "overdue"
	case BucketReviewed:
		return "reviewed"
	default:
		return "unknown"
	}
}

// ClassifyElapsed assigns a bucket from elapsed business seconds, the channel SLA
// and whether reviews are still outstanding. Buckets are checked in priority
// order overdue, near-due, reviewed, active.
func ClassifyElapsed(elapsed int64, slaHours int, reviewsOutstanding bool) Bucket {
	threshold := int64(slaHours) * secondsPerHour
	switch {
	case elapsed > threshold && reviewsOutstanding:
		return BucketOverdue
	case threshold-secondsPerHour <= elapsed && elapsed <= threshold && reviewsOutstanding:
		return BucketNearDue
	case !reviewsOutstanding:
		return BucketReviewed
	default:
		return BucketActive
	}
}

// OverdueEntry is a PR past its SLA.
type OverdueEntry struct {
	PR             model.PullRequest
	OverdueSeconds int64
}

// NearDueEntry is a PR within the final hour before its SLA.
type NearDueEntry struct {
	PR             model.PullRequest
	ElapsedSeconds int64
}

// TimedEntry is a PR with its parsed submission instant.
type TimedEntry struct {
	PR        model.PullRequest
	CreatedAt time.Time
}

// ChannelBuckets holds one channel's partition of a snapshot. Each PR appears in
// exactly one of the four slices.
type ChannelBuckets struct {
	ChannelID string
	SLAHours  int
	Overdue   []OverdueEntry
	NearDue   []NearDueEntry
	Active    []TimedEntry
	Reviewed  []TimedEntry
}

// NeedsDigest reports whether the channel has anything for the periodic digest.
func (b *ChannelBuckets) NeedsDigest() bool {
	return len(b.Overdue) > 0 || len(b.NearDue) > 0
}

// Len returns the number of PRs across all buckets.
func (b *ChannelBuckets) Len() int {
	return len(b.Overdue) + len(b.NearDue) + len(b.Active) + len(b.Reviewed)
}

// RejectedRecord is a PR excluded from a pass because it could not be decoded.
type RejectedRecord struct {
	PR  model.PullRequest
	Err error
}

// Classification is the result of classifying one snapshot.
type Classification struct {
	Expired  []model.PullRequest
	Rejected []RejectedRecord
	Channels map[string]*ChannelBuckets
	// ChannelOrder lists channel IDs in order of first appearance in the snapshot.
	ChannelOrder []string
}

// Channel returns the buckets for channelID, or an empty set of buckets when the
// snapshot held no classifiable PRs for it.
func (c Classification) Channel(channelID string, settings model.SettingsSet) *ChannelBuckets {
	if b, ok := c.Channels[channelID]; ok {
		return b
	}
	return &ChannelBuckets{ChannelID: channelID, SLAHours: settings.For(channelID).EffectiveSLAHours()}
}

// Classify partitions a snapshot. Expired PRs are reported in Expired and never
// bucketed; PRs that failed to decode or have unparsable timestamps are reported
// in Rejected. Bucket order
// within a channel follows snapshot order.
func (c WorkCalendar) Classify(prs []model.PullRequest, settings model.SettingsSet, now time.Time) Classification {
	result := Classification{Channels: make(map[string]*ChannelBuckets)}

	for _, pr := range prs {
		if pr.DecodeErr != nil {
			result.Rejected = append(result.Rejected, RejectedRecord{PR: pr, Err: pr.DecodeErr})
			continue
		}
		createdAt, err := pr.CreatedAt(c.Location())
		if err != nil {
			result.Rejected = append(result.Rejected, RejectedRecord{PR: pr, Err: err})
			continue
		}

		if c.IsDueForRemoval(createdAt, now) {
			result.Expired = append(result.Expired, pr)
			continue
		}

		buckets, ok := result.Channels[pr.ChannelID]
		if !ok {
			buckets = &ChannelBuckets{
				ChannelID: pr.ChannelID,
				SLAHours:  settings.For(pr.ChannelID).EffectiveSLAHours(),
			}
			result.Channels[pr.ChannelID] = buckets
			result.ChannelOrder = append(result.ChannelOrder, pr.ChannelID)
		}

		elapsed := c.ElapsedBusinessSeconds(createdAt, now)
		switch ClassifyElapsed(elapsed, buckets.SLAHours, pr.ReviewsOutstanding()) {
		case BucketOverdue:
			buckets.Overdue = append(buckets.Overdue, OverdueEntry{
				PR:             pr,
				OverdueSeconds: elapsed - int64(buckets.SLAHours)*secondsPerHour,
			})
		case BucketNearDue:
			buckets.NearDue = append(buckets.NearDue, NearDueEntry{PR: pr, ElapsedSeconds: elapsed})
		case BucketReviewed:
			buckets.Reviewed = append(buckets.Reviewed, TimedEntry{PR: pr, CreatedAt: createdAt})
		default:
			buckets.Active = append(buckets.Active, TimedEntry{PR: pr, CreatedAt: createdAt})
		}
	}

	return result
}
