// Package feedback implements the feedback item lifecycle.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/kiranshivaraju/feedbackhub/internal/cache"
	"github.com/kiranshivaraju/feedbackhub/internal/store"
	"github.com/kiranshivaraju/feedbackhub/pkg/models"
)

var (
	ErrNotFound  = errors.New("feedback not found")
	ErrForbidden = errors.New("not authorized to modify this feedback")
)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

const (
	minTitleLen       = 3
	maxTitleLen       = 100
	minDescriptionLen = 10
	statsTTL          = 30 * time.Second
)

// Repository is the slice of store.Store the feedback service depends on.
type Repository interface {
	CreateFeedback(ctx context.Context, f *models.Feedback) error
	GetFeedback(ctx context.Context, id uuid.UUID) (*models.Feedback, error)
	ListFeedback(ctx context.Context, filter store.FeedbackFilter) ([]*models.Feedback, int, error)
	UpdateFeedback(ctx context.Context, f *models.Feedback) error
	DeleteFeedback(ctx context.Context, id uuid.UUID) error
	UpvoteFeedback(ctx context.Context, id uuid.UUID) (*models.Feedback, error)
	FeedbackStats(ctx context.Context) (*models.FeedbackStats, error)
}

// Annotator attaches an AI summary to a feedback item in the background.
type Annotator interface {
	Annotate(feedbackID uuid.UUID, description string)
}

// Service implements the feedback operations.
type Service struct {
	repo      Repository
	cache     cache.Cache
	annotator Annotator
}

// NewService creates a Service. annotator may be nil to disable AI summaries.
func NewService(repo Repository, c cache.Cache, annotator Annotator) *Service {
	return &Service{repo: repo, cache: c, annotator: annotator}
}

// Page is one page of list results.
type Page struct {
	Items []*models.Feedback
	Page  int
	Limit int
	Total int
	Pages int
}

// List returns feedback newest first. Unknown status or category values are rejected.
func (s *Service) List(ctx context.Context, filter store.FeedbackFilter) (*Page, error) {
	if filter.Status != "" && !models.IsValidFeedbackStatus(filter.Status) {
		return nil, &ValidationError{Field: "status", Message: "invalid status"}
	}
	if filter.Category != "" && !models.IsValidFeedbackCategory(filter.Category) {
		return nil, &ValidationError{Field: "category", Message: "invalid category"}
	}
	filter = filter.Normalize()

	items, total, err := s.repo.ListFeedback(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing feedback: %w", err)
	}
	return &Page{
		Items: items,
		Page:  filter.Page,
		Limit: filter.Limit,
		Total: total,
		Pages: (total + filter.Limit - 1) / filter.Limit,
	}, nil
}

// CreateInput is the user-supplied part of a new feedback item.
type CreateInput struct {
	Title       string
	Description string
	Category    string
	Rating      *int
}

// Create stores the item and schedules its AI summary. The summary never
// delays or fails creation.
func (s *Service) Create(ctx context.Context, in CreateInput, author *models.User) (*models.Feedback, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if err := validateTitle(in.Title); err != nil {
		return nil, err
	}
	if err := validateDescription(in.Description); err != nil {
		return nil, err
	}
	if !models.IsValidFeedbackCategory(in.Category) {
		return nil, &ValidationError{Field: "category", Message: "invalid category"}
	}
	if err := validateRating(in.Rating); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	f := &models.Feedback{
		ID:          uuid.New(),
		Title:       in.Title,
		Description: in.Description,
		Status:      models.FeedbackStatusOpen,
		Category:    in.Category,
		UserID:      author.ID,
		Rating:      in.Rating,
		Author:      &models.UserSummary{ID: author.ID, Name: author.Name, Email: author.Email},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateFeedback(ctx, f); err != nil {
		return nil, fmt.Errorf("creating feedback: %w", err)
	}
	s.invalidateStats(ctx)

	if s.annotator != nil {
		s.annotator.Annotate(f.ID, f.Description)
	}
	return f, nil
}

// Get returns a single item.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Feedback, error) {
	f, err := s.repo.GetFeedback(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting feedback: %w", err)
	}
	return f, nil
}

// UpdateInput carries optional changes; nil fields are left alone.
type UpdateInput struct {
	Title       *string
	Description *string
	Status      *string
	Category    *string
	Rating      *int
}

// Update applies in to the item. Only the author or an admin may update.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput, actor *models.User) (*models.Feedback, error) {
	f, err := s.authorize(ctx, id, actor)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if err := validateTitle(title); err != nil {
			return nil, err
		}
		f.Title = title
	}
	if in.Description != nil {
		desc := strings.TrimSpace(*in.Description)
		if err := validateDescription(desc); err != nil {
			return nil, err
		}
		f.Description = desc
	}
	if in.Status != nil {
		if !models.IsValidFeedbackStatus(*in.Status) {
			return nil, &ValidationError{Field: "status", Message: "invalid status"}
		}
		f.Status = *in.Status
	}
	if in.Category != nil {
		if !models.IsValidFeedbackCategory(*in.Category) {
			return nil, &ValidationError{Field: "category", Message: "invalid category"}
		}
		f.Category = *in.Category
	}
	if in.Rating != nil {
		if err := validateRating(in.Rating); err != nil {
			return nil, err
		}
		f.Rating = in.Rating
	}

	if err := s.repo.UpdateFeedback(ctx, f); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("updating feedback: %w", err)
	}
	s.invalidateStats(ctx)
	return f, nil
}

// Delete removes the item. Only the author or an admin may delete.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, actor *models.User) error {
	if _, err := s.authorize(ctx, id, actor); err != nil {
		return err
	}
	if err := s.repo.DeleteFeedback(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("deleting feedback: %w", err)
	}
	s.invalidateStats(ctx)
	return nil
}

// Upvote atomically increments the upvote counter.
func (s *Service) Upvote(ctx context.Context, id uuid.UUID) (*models.Feedback, error) {
	f, err := s.repo.UpvoteFeedback(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("upvoting feedback: %w", err)
	}
	return f, nil
}

// Stats returns counts over every item, served from cache for up to 30 seconds.
// Cache failures fall through to the database.
func (s *Service) Stats(ctx context.Context) (*models.FeedbackStats, error) {
	key := cache.FeedbackStatsKey()
	var cached models.FeedbackStats
	if ok, err := cache.GetJSON(ctx, s.cache, key, &cached); err != nil {
		slog.Warn("feedback stats cache read failed", "error", err)
	} else if ok {
		return &cached, nil
	}

	stats, err := s.repo.FeedbackStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("computing feedback stats: %w", err)
	}
	if err := cache.SetJSON(ctx, s.cache, key, stats, statsTTL); err != nil {
		slog.Warn("feedback stats cache write failed", "error", err)
	}
	return stats, nil
}

func (s *Service) authorize(ctx context.Context, id uuid.UUID, actor *models.User) (*models.Feedback, error) {
	f, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor == nil || (f.UserID != actor.ID && !actor.IsAdmin()) {
		slog.Warn("feedback modification denied", "feedback_id", id, "user_id", actorID(actor))
		return nil, ErrForbidden
	}
	return f, nil
}

func (s *Service) invalidateStats(ctx context.Context) {
	if err := s.cache.Delete(ctx, cache.FeedbackStatsKey()); err != nil {
		slog.Warn("feedback stats cache invalidation failed", "error", err)
	}
}

func actorID(u *models.User) string {
	if u == nil {
		return ""
	}
	return u.ID.String()
}

func validateTitle(title string) error {
	n := utf8.RuneCountInString(title)
	if n < minTitleLen || n > maxTitleLen {
		return &ValidationError{Field: "title", Message: fmt.Sprintf("must be between %d and %d characters", minTitleLen, maxTitleLen)}
	}
	return nil
}

func validateDescription(desc string) error {
	if utf8.RuneCountInString(desc) < minDescriptionLen {
		return &ValidationError{Field: "description", Message: fmt.Sprintf("must be at least %d characters long", minDescriptionLen)}
	}
	return nil
}

func validateRating(r *int) error {
	if r != nil && (*r < 1 || *r > 5) {
		return &ValidationError{Field: "rating", Message: "must be between 1 and 5"}
	}
	return nil
}
