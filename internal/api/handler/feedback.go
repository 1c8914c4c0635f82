package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/feedbackhub/internal/api/response"
	"github.com/kiranshivaraju/feedbackhub/internal/feedback"
	"github.com/kiranshivaraju/feedbackhub/internal/store"
	"github.com/kiranshivaraju/feedbackhub/pkg/models"
)

// FeedbackService defines the feedback operations the handlers depend on.
type FeedbackService interface {
	List(ctx context.Context, filter store.FeedbackFilter) (*feedback.Page, error)
	Create(ctx context.Context, in feedback.CreateInput, author *models.User) (*models.Feedback, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Feedback, error)
	Update(ctx context.Context, id uuid.UUID, in feedback.UpdateInput, actor *models.User) (*models.Feedback, error)
	Delete(ctx context.Context, id uuid.UUID, actor *models.User) error
	Upvote(ctx context.Context, id uuid.UUID) (*models.Feedback, error)
	Stats(ctx context.Context) (*models.FeedbackStats, error)
}

// NewListFeedbackHandler returns an http.HandlerFunc for GET /api/v1/feedback.
func NewListFeedbackHandler(svc FeedbackService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := store.FeedbackFilter{
			Status:   q.Get("status"),
			Category: q.Get("category"),
		}
		var ok bool
		if filter.Page, ok = queryInt(w, q.Get("page"), "page"); !ok {
			return
		}
		if filter.Limit, ok = queryInt(w, q.Get("limit"), "limit"); !ok {
			return
		}

		page, err := svc.List(r.Context(), filter)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		items := page.Items
		if items == nil {
			items = []*models.Feedback{}
		}
		response.Collection(w, items, response.PaginationMeta{
			Page:  page.Page,
			Limit: page.Limit,
			Total: page.Total,
			Pages: page.Pages,
		})
	}
}

// NewCreateFeedbackHandler returns an http.HandlerFunc for POST /api/v1/feedback.
func NewCreateFeedbackHandler(svc FeedbackService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, ok := currentUser(w, r)
		if !ok {
			return
		}
		var req struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Category    string `json:"category"`
			Rating      *int   `json:"rating"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}

		f, err := svc.Create(r.Context(), feedback.CreateInput{
			Title:       req.Title,
			Description: req.Description,
			Category:    req.Category,
			Rating:      req.Rating,
		}, u)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		slog.Info("feedback created", "feedback_id", f.ID, "user_id", u.ID)
		response.Created(w, f)
	}
}

// NewGetFeedbackHandler returns an http.HandlerFunc for GET /api/v1/feedback/{id}.
func NewGetFeedbackHandler(svc FeedbackService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := feedbackID(w, r)
		if !ok {
			return
		}
		f, err := svc.Get(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		response.JSON(w, f)
	}
}

// NewUpdateFeedbackHandler returns an http.HandlerFunc for PUT /api/v1/feedback/{id}.
func NewUpdateFeedbackHandler(svc FeedbackService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, ok := currentUser(w, r)
		if !ok {
			return
		}
		id, ok := feedbackID(w, r)
		if !ok {
			return
		}
		var req struct {
			Title       *string `json:"title"`
			Description *string `json:"description"`
			Status      *string `json:"status"`
			Category    *string `json:"category"`
			Rating      *int    `json:"rating"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}

		f, err := svc.Update(r.Context(), id, feedback.UpdateInput{
			Title:       req.Title,
			Description: req.Description,
			Status:      req.Status,
			Category:    req.Category,
			Rating:      req.Rating,
		}, u)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		slog.Info("feedback updated", "feedback_id", id, "user_id", u.ID)
		response.JSON(w, f)
	}
}

// NewDeleteFeedbackHandler returns an http.HandlerFunc for DELETE /api/v1/feedback/{id}.
func NewDeleteFeedbackHandler(svc FeedbackService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, ok := currentUser(w, r)
		if !ok {
			return
		}
		id, ok := feedbackID(w, r)
		if !ok {
			return
		}
		if err := svc.Delete(r.Context(), id, u); err != nil {
			writeServiceError(w, r, err)
			return
		}
		slog.Info("feedback deleted", "feedback_id", id, "user_id", u.ID)
		response.NoContent(w)
	}
}

// NewUpvoteFeedbackHandler returns an http.HandlerFunc for PATCH /api/v1/feedback/{id}/upvote.
func NewUpvoteFeedbackHandler(svc FeedbackService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := feedbackID(w, r)
		if !ok {
			return
		}
		f, err := svc.Upvote(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		response.JSON(w, f)
	}
}

// NewFeedbackStatsHandler returns an http.HandlerFunc for GET /api/v1/feedback/stats.
func NewFeedbackStatsHandler(svc FeedbackService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.Stats(r.Context())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		response.JSON(w, stats)
	}
}

// queryInt parses an optional positive integer query parameter. Zero means unset.
func queryInt(w http.ResponseWriter, raw, name string) (int, bool) {
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		validationFailed(w, name, name+" must be a positive integer")
		return 0, false
	}
	return n, true
}
