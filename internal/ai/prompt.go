package ai

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kiranshivaraju/feedbackhub/pkg/models"
)

const (
	// SnapshotSize is the number of most recent feedback items fed into the prompt.
	SnapshotSize = 15
	// SnapshotTimeout bounds the store read behind each system prompt.
	SnapshotTimeout = 5 * time.Second
	excerptRunes    = 200
)

const baseInstructions = `You are a helpful AI assistant for a feedback tracking system. Your role is to:
1. Answer questions about how to use the feedback system
2. Provide suggestions for categorizing and prioritizing feedback
3. Help users understand features and workflows
4. Be concise and specific in your responses
5. Only discuss topics related to feedback tracking and management

The feedback system has the following features:
- Submit feedback items (bugs, features, improvements)
- Track status (open, in-progress, resolved)
- Upvote important feedback
- Categorize feedback by type`

const unavailableNotice = "Live feedback data is currently unavailable. Answer from the feature description above and do not invent statistics."

const refinementInstruction = "IMPORTANT: Your response MUST be specifically about feedback tracking systems and be at least 50 characters long."

// RecentFeedbackReader is the slice of the store the context builder needs.
type RecentFeedbackReader interface {
	ListRecentFeedback(ctx context.Context, limit int) ([]*models.Feedback, error)
}

// PromptBuilder produces the system prompt for one orchestration call.
type PromptBuilder interface {
	Build(ctx context.Context) string
}

// ContextBuilder grounds the system prompt in a snapshot of recent feedback.
type ContextBuilder struct {
	reader  RecentFeedbackReader
	limit   int
	timeout time.Duration
}

// NewContextBuilder creates a ContextBuilder reading the SnapshotSize most recent items.
func NewContextBuilder(reader RecentFeedbackReader) *ContextBuilder {
	return &ContextBuilder{reader: reader, limit: SnapshotSize, timeout: SnapshotTimeout}
}

// Build never fails. A store error degrades to the static instruction block.
func (b *ContextBuilder) Build(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	items, err := b.reader.ListRecentFeedback(ctx, b.limit)
	if err != nil {
		slog.Warn("feedback snapshot unavailable, using static prompt", "error", err)
		return baseInstructions + "\n\n" + unavailableNotice
	}
	return renderPrompt(items)
}

// snapshotStats are computed over the snapshot, not the whole store.
type snapshotStats struct {
	total      int
	byStatus   map[string]int
	byCategory map[string]int
	ratingSum  int
	rated      int
}

func computeStats(items []*models.Feedback) snapshotStats {
	st := snapshotStats{
		total:      len(items),
		byStatus:   make(map[string]int),
		byCategory: make(map[string]int),
	}
	for _, f := range items {
		st.byStatus[f.Status]++
		st.byCategory[f.Category]++
		if f.Rating != nil {
			st.ratingSum += *f.Rating
			st.rated++
		}
	}
	return st
}

func (s snapshotStats) averageRating() string {
	if s.rated == 0 {
		return "no ratings"
	}
	return fmt.Sprintf("%.1f", float64(s.ratingSum)/float64(s.rated))
}

func renderPrompt(items []*models.Feedback) string {
	var sb strings.Builder
	sb.WriteString(baseInstructions)
	sb.WriteString("\n\n")

	if len(items) == 0 {
		sb.WriteString("No feedback data is available yet.")
		return sb.String()
	}

	st := computeStats(items)
	fmt.Fprintf(&sb, "Current feedback statistics (%d most recent items):\n", st.total)
	fmt.Fprintf(&sb, "- By status: %s\n", formatCounts(st.byStatus, models.FeedbackStatuses))
	fmt.Fprintf(&sb, "- By category: %s\n", formatCounts(st.byCategory, models.FeedbackCategories))
	fmt.Fprintf(&sb, "- Average rating: %s\n", st.averageRating())

	sb.WriteString("\nRecent feedback:\n")
	for _, f := range items {
		fmt.Fprintf(&sb, "- [%s] status=%s category=%s created=%s title=%q: %s\n",
			f.ID, f.Status, f.Category, f.CreatedAt.UTC().Format(time.RFC3339),
			f.Title, truncateRunes(f.Description, excerptRunes))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// formatCounts lists known keys in their canonical order, then any others sorted.
func formatCounts(counts map[string]int, order []string) string {
	parts := make([]string, 0, len(counts))
	seen := make(map[string]bool, len(order))
	for _, k := range order {
		seen[k] = true
		parts = append(parts, fmt.Sprintf("%s=%d", k, counts[k]))
	}
	var extra []string
	for k := range counts {
		if !seen[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counts[k]))
	}
	return strings.Join(parts, ", ")
}

// truncateRunes cuts s to at most n runes without splitting a code point.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
