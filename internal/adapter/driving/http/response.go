package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ericfisherdev/prreminder/internal/application"
	"github.com/ericfisherdev/prreminder/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeServiceError maps domain sentinel errors to client errors. Anything else
// is logged and reported as a generic 500.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, msg string, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidLink),
		errors.Is(err, model.ErrInvalidSLAHours),
		errors.Is(err, model.ErrInvalidHour),
		errors.Is(err, model.ErrInvalidReviewCount),
		errors.Is(err, model.ErrSelfApproval):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrPRNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrDuplicatePR), errors.Is(err, model.ErrVersionConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		logger.Error(msg, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// PRResponse is the JSON representation of a tracked pull request.
type PRResponse struct {
	ID                string   `json:"id"`
	ChannelID         string   `json:"channel_id"`
	SubmitterID       string   `json:"submitter_id"`
	Name              string   `json:"name"`
	Link              string   `json:"link"`
	Description       string   `json:"description"`
	Reviewers         []string `json:"reviewers"`
	ReviewsNeeded     int      `json:"reviews_needed"`
	ReviewsReceived   int      `json:"reviews_received"`
	AttentionRequests []string `json:"attention_requests"`
	SubmittedAt       string   `json:"submitted_at"`
	Status            string   `json:"status"`
	MessageTS         string   `json:"message_ts"`
	Permalink         string   `json:"permalink"`
	Version           int64    `json:"version"`
}

// SettingsResponse is the JSON representation of a channel's settings.
type SettingsResponse struct {
	ChannelID    string `json:"channel_id"`
	SLAHours     int    `json:"sla_hours"`
	EnabledHours []int  `json:"enabled_hours"`
}

// SummaryResponse is the on-demand channel summary.
type SummaryResponse struct {
	ChannelID string `json:"channel_id"`
	PRCount   int    `json:"pr_count"`
	Text      string `json:"text"`
}

// PassResponse reports the outcome of a periodic pass.
type PassResponse struct {
	RunID           string            `json:"run_id"`
	RemovedIDs      []string          `json:"removed_ids"`
	Digests         map[string]string `json:"digests"`
	SkippedChannels []string          `json:"skipped_channels"`
	FailedChannels  []string          `json:"failed_channels"`
	Rejected        int               `json:"rejected"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// SubmitPRRequest is the JSON body for the submit endpoint.
type SubmitPRRequest struct {
	ChannelID     string `json:"channel_id"`
	SubmitterID   string `json:"submitter_id"`
	Name          string `json:"name"`
	Link          string `json:"link"`
	Description   string `json:"description"`
	ReviewsNeeded int    `json:"reviews_needed"`
}

// EditPRRequest is the body of POST /api/v1/prs/edits.
type EditPRRequest struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	ReviewsNeeded int    `json:"reviews_needed"`
}

// ReviewerActionRequest is the JSON body for approval and attention endpoints.
type ReviewerActionRequest struct {
	ID      string `json:"id"`
	UserID  string `json:"user_id"`
	Retract bool   `json:"retract,omitempty"`
}

// UpdateSettingsRequest is the JSON body for the settings endpoint.
type UpdateSettingsRequest struct {
	SLAHours int `json:"sla_hours"`
}

func toPRResponse(pr model.PullRequest) PRResponse {
	return PRResponse{
		ID:                pr.ID,
		ChannelID:         pr.ChannelID,
		SubmitterID:       pr.SubmitterID,
		Name:              pr.Name,
		Link:              pr.Link,
		Description:       pr.Description,
		Reviewers:         pr.Reviewers.Items(),
		ReviewsNeeded:     pr.ReviewsNeeded,
		ReviewsReceived:   pr.ReviewsReceived,
		AttentionRequests: pr.AttentionRequests.Items(),
		SubmittedAt:       pr.SubmittedAt,
		Status:            pr.Status(),
		MessageTS:         pr.MessageTS,
		Permalink:         pr.Permalink,
		Version:           pr.Version,
	}
}

func toSettingsResponse(s model.ChannelSettings) SettingsResponse {
	hours := s.EnabledHours
	if hours == nil {
		hours = []int{}
	}
	return SettingsResponse{ChannelID: s.ChannelID, SLAHours: s.SLAHours, EnabledHours: hours}
}

func toPassResponse(r application.PassResult) PassResponse {
	return PassResponse{
		RunID:           r.RunID,
		RemovedIDs:      nonNil(r.RemovedIDs),
		Digests:         r.DigestsByChannel,
		SkippedChannels: nonNil(r.SkippedChannels),
		FailedChannels:  nonNil(r.FailedChannels),
		Rejected:        r.Rejected,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
