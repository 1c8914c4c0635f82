package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	FeedbackStatusOpen       = "open"
	FeedbackStatusInProgress = "in-progress"
	FeedbackStatusResolved   = "resolved"
)

const (
	FeedbackCategoryBug         = "bug"
	FeedbackCategoryFeature     = "feature"
	FeedbackCategoryImprovement = "improvement"
)

// FeedbackStatuses lists the valid statuses in workflow order.
var FeedbackStatuses = []string{FeedbackStatusOpen, FeedbackStatusInProgress, FeedbackStatusResolved}

// FeedbackCategories lists the valid categories.
var FeedbackCategories = []string{FeedbackCategoryBug, FeedbackCategoryFeature, FeedbackCategoryImprovement}

// Feedback is a single item submitted by a user. AISummary is attached
// asynchronously after creation and may stay nil forever.
type Feedback struct {
	ID          uuid.UUID    `db:"id"          json:"id"`
	Title       string       `db:"title"       json:"title"`
	Description string       `db:"description" json:"description"`
	Status      string       `db:"status"      json:"status"`
	Category    string       `db:"category"    json:"category"`
	UserID      uuid.UUID    `db:"user_id"     json:"user_id"`
	Upvotes     int          `db:"upvotes"     json:"upvotes"`
	Rating      *int         `db:"rating"      json:"rating,omitempty"`
	AISummary   *string      `db:"ai_summary"  json:"ai_summary,omitempty"`
	Author      *UserSummary `db:"-"           json:"author,omitempty"`
	CreatedAt   time.Time    `db:"created_at"  json:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at"  json:"updated_at"`
}

// FeedbackStats aggregates counts over every stored feedback item.
type FeedbackStats struct {
	Total      int            `json:"total"`
	ByStatus   map[string]int `json:"by_status"`
	ByCategory map[string]int `json:"by_category"`
}

// IsValidFeedbackStatus reports whether s is a known status.
func IsValidFeedbackStatus(s string) bool {
	for _, v := range FeedbackStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// IsValidFeedbackCategory reports whether c is a known category.
func IsValidFeedbackCategory(c string) bool {
	for _, v := range FeedbackCategories {
		if v == c {
			return true
		}
	}
	return false
}
