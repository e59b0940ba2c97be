package application

import (
	"fmt"
	"strings"
	"time"

	"github.com/ericfisherdev/prreminder/internal/domain/model"
)

// UnknownUserName is rendered when a submitter cannot be resolved.
const UnknownUserName = "Unknown User"

// NoActivePRsText is the channel query response for a channel without PRs.
const NoActivePRsText = "No active PRs found for this channel."

const submittedLayout = "Jan 2, 3:04 PM"

// NameLookup resolves a chat user ID to a display name.
type NameLookup func(userID string) string

// FormatOverdue renders an overdue duration as hours and minutes.
func FormatOverdue(seconds int64) string {
	return fmt.Sprintf("%d hours, %d minutes", seconds/3600, (seconds/60)%60)
}

// FormatUntilOverdue renders the whole minutes left before the SLA elapses.
func FormatUntilOverdue(elapsedSeconds int64, slaHours int) string {
	remaining := int64(slaHours)*secondsPerHour - elapsedSeconds
	return fmt.Sprintf("%d minutes until overdue", remaining/60)
}

// ShouldSendDigest reports whether a channel accepts its periodic digest during
// hour (0-23, business location).
func ShouldSendDigest(hour int, settings model.ChannelSettings) bool {
	return settings.HourEnabled(hour)
}

// ComposeDigest renders the periodic digest: header, overdue section, near-due
// section. ok is false when both sections are empty and nothing should be sent.
func ComposeDigest(b *ChannelBuckets, names NameLookup) (text string, ok bool) {
	if !b.NeedsDigest() {
		return "", false
	}

	var sb strings.Builder
	sb.WriteString("*:mega: PR Review Reminder*\n")
	fmt.Fprintf(&sb, "SLA time for this channel: %d hours\n", b.SLAHours)
	sb.WriteString("Here's a summary of PRs that need your attention:\n\n")

	writeOverdue(&sb, b, names)
	if len(b.Overdue) > 0 && len(b.NearDue) > 0 {
		sb.WriteString("\n")
	}
	writeNearDue(&sb, b, names)

	return sb.String(), true
}

// ComposeActiveSummary renders every bucket of a channel for an on-demand query.
// It is never gated by enabled hours.
func ComposeActiveSummary(b *ChannelBuckets, names NameLookup, loc *time.Location) string {
	if b.Len() == 0 {
		return NoActivePRsText
	}
	if loc == nil {
		loc = time.Local
	}

	var sb strings.Builder
	sb.WriteString("*:bell: PR Review Summary*\n")
	fmt.Fprintf(&sb, "SLA time for this channel: %d hours\n", b.SLAHours)
	sb.WriteString("Here's a summary of active PRs in this channel:\n\n")

	sections := 0
	separate := func() {
		if sections > 0 {
			sb.WriteString("\n")
		}
		sections++
	}

	if len(b.Overdue) > 0 {
		separate()
		writeOverdue(&sb, b, names)
	}
	if len(b.NearDue) > 0 {
		separate()
		writeNearDue(&sb, b, names)
	}
	if len(b.Active) > 0 {
		heading := ":scroll: *Active PRs*\n\n"
		if sections > 0 {
			heading = ":scroll: *Other Active PRs*\n\n"
		}
		separate()
		sb.WriteString(heading)
		for _, e := range b.Active {
			writeItem(&sb, e.PR, names)
			fmt.Fprintf(&sb, "   - Submitted %s\n", e.CreatedAt.In(loc).Format(submittedLayout))
			fmt.Fprintf(&sb, "   - _Status_: %s\n", e.PR.Status())
		}
	}
	if len(b.Reviewed) > 0 {
		separate()
		sb.WriteString(":white_check_mark: *Recently Reviewed PRs*\n")
		fmt.Fprintf(&sb, "Please check if they've been merged and remove them to keep things tidy. They will be automatically removed after %d days.\n", ExpirationWeekdays)
		for _, e := range b.Reviewed {
			writeItem(&sb, e.PR, names)
		}
	}

	return sb.String()
}

func writeOverdue(sb *strings.Builder, b *ChannelBuckets, names NameLookup) {
	if len(b.Overdue) == 0 {
		return
	}
	sb.WriteString(":warning: *The following PRs are overdue for review*\n\n")
	for e := range OrderOverdue(b.Overdue) {
		writeItem(sb, e.PR, names)
		fmt.Fprintf(sb, "   - Overdue by %s\n", FormatOverdue(e.OverdueSeconds))
		fmt.Fprintf(sb, "   - _Status_: %s\n", e.PR.Status())
	}
}

func writeNearDue(sb *strings.Builder, b *ChannelBuckets, names NameLookup) {
	if len(b.NearDue) == 0 {
		return
	}
	sb.WriteString(":hourglass_flowing_sand: *The following PRs are within 1 hour of SLA*\n\n")
	for _, e := range b.NearDue {
		writeItem(sb, e.PR, names)
		fmt.Fprintf(sb, "   - %s\n", FormatUntilOverdue(e.ElapsedSeconds, b.SLAHours))
		fmt.Fprintf(sb, "   - _Status_: %s\n", e.PR.Status())
	}
}

func writeItem(sb *strings.Builder, pr model.PullRequest, names NameLookup) {
	link := pr.Permalink
	if link == "" {
		link = pr.Link
	}
	fmt.Fprintf(sb, "• *<%s|%s>* by %s\n", link, pr.Name, lookupName(names, pr.SubmitterID))
}

func lookupName(names NameLookup, userID string) string {
	if names == nil {
		return UnknownUserName
	}
	if name := names(userID); name != "" {
		return name
	}
	return UnknownUserName
}
