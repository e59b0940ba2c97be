package httphandler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ericfisherdev/prreminder/internal/adapter/driving/web"
	"github.com/ericfisherdev/prreminder/internal/application"
	"github.com/ericfisherdev/prreminder/internal/domain/model"
	"github.com/ericfisherdev/prreminder/internal/domain/port/driven"
)

const requestTimeout = 2 * time.Minute

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators a Handler serves requests with. Now defaults to
// time.Now and Store may be nil, in which case health checks always pass.
type Deps struct {
	PRStore    driven.PRStore
	SLA        *application.SLAService
	Runner     *application.PassRunner
	Submission *application.SubmissionService
	Settings   *application.SettingsService
	Store      Pinger
	Now        func() time.Time
}

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	Deps
	logger *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(deps Deps, logger *slog.Logger) *Handler {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{Deps: deps, logger: logger}
}

// NewRouter creates a chi router with all routes registered behind request
// IDs, logging, panic recovery and a per-request timeout.
func NewRouter(h *Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Recovery innermost so panics are caught before logging.
	r.Use(middleware.RequestID)
	r.Use(requestLogger(logger))
	r.Use(recoverer(logger))
	r.Use(middleware.Timeout(requestTimeout))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Post("/passes", h.RunPass)

		r.Route("/channels/{channelID}", func(r chi.Router) {
			r.Get("/prs", h.ListChannelPRs)
			r.Get("/summary", h.GetSummary)
			r.Post("/summary", h.PostSummary)
			r.Get("/settings", h.GetSettings)
			r.Put("/settings", h.UpdateSettings)
			r.Post("/settings/hours/{hour}", h.ToggleHour)
		})

		r.Post("/prs", h.SubmitPR)
		r.Delete("/prs", h.RemovePR)
		r.Post("/prs/approvals", h.Approve)
		r.Post("/prs/attention", h.ToggleAttention)
		r.Post("/prs/edits", h.EditPR)
		r.Post("/prs/rereviews", h.RequestReReview)
	})

	return r
}

// Health reports liveness and, when a store is configured, whether it is reachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Time: h.Now().UTC().Format(time.RFC3339)}

	if h.Store != nil {
		if err := h.Store.Ping(r.Context()); err != nil {
			h.logger.Warn("health check failed", "error", err)
			resp.Status = "unavailable"
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// RunPass runs a periodic pass now, or joins the one already running. The pass
// is not canceled if the client disconnects.
func (h *Handler) RunPass(w http.ResponseWriter, r *http.Request) {
	result, err := h.Runner.RunNow(context.WithoutCancel(r.Context()))
	if err != nil {
		h.logger.Error("on-demand pass failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toPassResponse(result))
}

// ListChannelPRs returns every PR tracked in a channel.
func (h *Handler) ListChannelPRs(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channelID")

	prs, err := h.PRStore.ListByChannel(r.Context(), channelID)
	if err != nil {
		h.logger.Error("failed to list PRs", "channel", channelID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]PRResponse, 0, len(prs))
	for _, pr := range prs {
		resp = append(resp, toPRResponse(pr))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetSummary composes the channel's active summary. With ?format=html the
// summary is rendered as a sanitized HTML fragment instead of JSON.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channelID")

	result, err := h.SLA.RunChannelQuery(r.Context(), channelID, h.Now())
	if err != nil {
		writeServiceError(w, h.logger, "failed to compose summary", err)
		return
	}

	if r.URL.Query().Get("format") == "html" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(web.RenderDigestHTML(result.Digest)))
		return
	}

	writeJSON(w, http.StatusOK, SummaryResponse{ChannelID: channelID, PRCount: result.PRCount, Text: result.Digest})
}

// PostSummary composes the channel's active summary and posts it to the channel.
func (h *Handler) PostSummary(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channelID")

	result, err := h.SLA.PostChannelSummary(r.Context(), channelID, h.Now())
	if err != nil {
		writeServiceError(w, h.logger, "failed to post summary", err)
		return
	}

	writeJSON(w, http.StatusOK, SummaryResponse{ChannelID: channelID, PRCount: result.PRCount, Text: result.Digest})
}

// GetSettings returns the channel's settings with defaults applied.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channelID")

	settings, err := h.Settings.Get(r.Context(), channelID)
	if err != nil {
		writeServiceError(w, h.logger, "failed to get settings", err)
		return
	}

	writeJSON(w, http.StatusOK, toSettingsResponse(settings))
}

// UpdateSettings changes the channel's SLA hours.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channelID")

	var req UpdateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	settings, err := h.Settings.SetSLAHours(r.Context(), channelID, req.SLAHours)
	if err != nil {
		writeServiceError(w, h.logger, "failed to update settings", err)
		return
	}

	writeJSON(w, http.StatusOK, toSettingsResponse(settings))
}

// ToggleHour flips whether digests are sent during the given hour.
func (h *Handler) ToggleHour(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channelID")

	hour, err := strconv.Atoi(chi.URLParam(r, "hour"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid hour")
		return
	}

	settings, err := h.Settings.ToggleHour(r.Context(), channelID, hour)
	if err != nil {
		writeServiceError(w, h.logger, "failed to toggle hour", err)
		return
	}

	writeJSON(w, http.StatusOK, toSettingsResponse(settings))
}

// SubmitPR registers a new review request and posts it to its channel.
func (h *Handler) SubmitPR(w http.ResponseWriter, r *http.Request) {
	var req SubmitPRRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ChannelID == "" || req.SubmitterID == "" {
		writeError(w, http.StatusBadRequest, "channel_id and submitter_id are required")
		return
	}

	pr, err := h.Submission.Submit(r.Context(), application.SubmitRequest{
		ChannelID:     req.ChannelID,
		SubmitterID:   req.SubmitterID,
		Name:          req.Name,
		Link:          req.Link,
		Description:   req.Description,
		ReviewsNeeded: req.ReviewsNeeded,
	}, h.Now())
	if err != nil {
		writeServiceError(w, h.logger, "failed to submit PR", err)
		return
	}

	writeJSON(w, http.StatusCreated, toPRResponse(pr))
}

// Approve records or retracts a reviewer's approval.
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeReviewerAction(w, r)
	if !ok {
		return
	}

	var pr model.PullRequest
	var err error
	if req.Retract {
		pr, err = h.Submission.RetractApproval(r.Context(), req.ID, req.UserID)
	} else {
		pr, err = h.Submission.Approve(r.Context(), req.ID, req.UserID)
	}
	if err != nil {
		writeServiceError(w, h.logger, "failed to record approval", err)
		return
	}

	writeJSON(w, http.StatusOK, toPRResponse(pr))
}

// ToggleAttention adds or removes the user's attention request.
func (h *Handler) ToggleAttention(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeReviewerAction(w, r)
	if !ok {
		return
	}

	pr, err := h.Submission.ToggleAttention(r.Context(), req.ID, req.UserID)
	if err != nil {
		writeServiceError(w, h.logger, "failed to toggle attention", err)
		return
	}

	writeJSON(w, http.StatusOK, toPRResponse(pr))
}

// EditPR changes a PR's name, description and required review count.
func (h *Handler) EditPR(w http.ResponseWriter, r *http.Request) {
	var req EditPRRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	pr, err := h.Submission.Edit(r.Context(), req.ID, application.EditRequest{
		Name:          req.Name,
		Description:   req.Description,
		ReviewsNeeded: req.ReviewsNeeded,
	})
	if err != nil {
		writeServiceError(w, h.logger, "failed to edit PR", err)
		return
	}

	writeJSON(w, http.StatusOK, toPRResponse(pr))
}

// RequestReReview withdraws the PR's approvals and messages the previous reviewers.
func (h *Handler) RequestReReview(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeReviewerAction(w, r)
	if !ok {
		return
	}

	pr, err := h.Submission.RequestReReview(r.Context(), req.ID, req.UserID)
	if err != nil {
		writeServiceError(w, h.logger, "failed to request re-review", err)
		return
	}

	writeJSON(w, http.StatusOK, toPRResponse(pr))
}

// RemovePR deletes the PR named by the id query parameter.
func (h *Handler) RemovePR(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.Submission.Remove(r.Context(), id, r.URL.Query().Get("user_id")); err != nil {
		writeServiceError(w, h.logger, "failed to remove PR", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func decodeReviewerAction(w http.ResponseWriter, r *http.Request) (ReviewerActionRequest, bool) {
	var req ReviewerActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	if req.ID == "" || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "id and user_id are required")
		return req, false
	}
	return req, true
}
