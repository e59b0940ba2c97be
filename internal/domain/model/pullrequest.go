package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// DefaultReviewsNeeded is applied when a submission does not specify a review count.
const DefaultReviewsNeeded = 2

// PullRequest represents a review request posted into a chat channel.
type PullRequest struct {
	ID                string // Normalized review link; stable identifier.
	ChannelID         string
	SubmitterID       string
	Name              string
	Link              string
	Description       string
	Reviewers         IdentitySet // Reviewers who approved, in approval order.
	ReviewsNeeded     int
	ReviewsReceived   int
	AttentionRequests IdentitySet
	SubmittedAt       string // Stored timestamp; see CreatedAt.
	MessageTS         string // Timestamp of the posted chat message within ChannelID.
	Permalink         string
	Version           int64 // Incremented by the store on every write.

	// DecodeErr is set by stores when a stored column could not be decoded. Such
	// records are listed so one bad row cannot hide the rest, but they are never
	// classified or written back.
	DecodeErr error
}

// DecodeSets fills Reviewers and AttentionRequests from their stored JSON. A
// column that fails to decode leaves its set empty and records a
// *RecordParseError in DecodeErr.
func (pr *PullRequest) DecodeSets(reviewers, attention string) {
	if err := json.Unmarshal([]byte(reviewers), &pr.Reviewers); err != nil {
		pr.Reviewers = IdentitySet{}
		pr.DecodeErr = &RecordParseError{ID: pr.ID, Field: "reviewers", Value: reviewers, Err: err}
	}
	if err := json.Unmarshal([]byte(attention), &pr.AttentionRequests); err != nil {
		pr.AttentionRequests = IdentitySet{}
		if pr.DecodeErr == nil {
			pr.DecodeErr = &RecordParseError{ID: pr.ID, Field: "attention_requests", Value: attention, Err: err}
		}
	}
}

// CreatedAt parses SubmittedAt in the given location. Timestamps without a zone
// offset are interpreted as wall-clock time in loc.
func (pr PullRequest) CreatedAt(loc *time.Location) (time.Time, error) {
	t, err := ParseTimestamp(pr.SubmittedAt, loc)
	if err != nil {
		return time.Time{}, &RecordParseError{ID: pr.ID, Field: "submitted_at", Value: pr.SubmittedAt, Err: err}
	}
	return t, nil
}

// ReviewsOutstanding reports whether the PR still needs approvals.
func (pr PullRequest) ReviewsOutstanding() bool {
	return pr.ReviewsReceived < pr.ReviewsNeeded
}

// Status returns the display label for the PR. Attention requests take priority
// over review counts.
func (pr PullRequest) Status() string {
	remaining := pr.ReviewsNeeded - pr.ReviewsReceived
	switch {
	case pr.AttentionRequests.Len() > 0:
		return "attention needed"
	case remaining > 0:
		return fmt.Sprintf("needs %d reviews", remaining)
	default:
		return "PR reviewed!"
	}
}

// SyncReviewCount sets ReviewsReceived from the approving reviewer set.
func (pr *PullRequest) SyncReviewCount() {
	pr.ReviewsReceived = pr.Reviewers.Len()
}

// Clone returns a copy that shares no mutable state with pr.
func (pr PullRequest) Clone() PullRequest {
	out := pr
	out.Reviewers = NewIdentitySet(pr.Reviewers.Items()...)
	out.AttentionRequests = NewIdentitySet(pr.AttentionRequests.Items()...)
	return out
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses a stored timestamp. Layouts carrying an offset keep it and
// are converted to loc; naive layouts are read as wall-clock time in loc.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.In(loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// FormatTimestamp renders t in the layout stores persist.
func FormatTimestamp(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}
