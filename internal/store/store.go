package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/feedbackhub/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error

	CreateFeedback(ctx context.Context, f *models.Feedback) error
	GetFeedback(ctx context.Context, id uuid.UUID) (*models.Feedback, error)
	ListFeedback(ctx context.Context, filter FeedbackFilter) ([]*models.Feedback, int, error)
	UpdateFeedback(ctx context.Context, f *models.Feedback) error
	DeleteFeedback(ctx context.Context, id uuid.UUID) error
	UpvoteFeedback(ctx context.Context, id uuid.UUID) (*models.Feedback, error)
	UpdateFeedbackSummary(ctx context.Context, id uuid.UUID, summary string) error
	ListRecentFeedback(ctx context.Context, limit int) ([]*models.Feedback, error)
	FeedbackStats(ctx context.Context) (*models.FeedbackStats, error)
}

// FeedbackFilter selects a page of feedback. Empty fields match everything.
type FeedbackFilter struct {
	Status   string
	Category string
	Page     int
	Limit    int
}

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// Normalize applies pagination defaults and bounds.
func (f FeedbackFilter) Normalize() FeedbackFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultPageLimit
	}
	if f.Limit > MaxPageLimit {
		f.Limit = MaxPageLimit
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	return f
}
