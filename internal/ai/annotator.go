package ai

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// SummaryWriter persists a generated summary onto a feedback item.
type SummaryWriter interface {
	UpdateFeedbackSummary(ctx context.Context, id uuid.UUID, summary string) error
}

// Annotator attaches AI summaries to freshly created feedback in the background.
type Annotator struct {
	answerer Answerer
	writer   SummaryWriter
	limiter  *rate.Limiter
	timeout  time.Duration
	wg       sync.WaitGroup
}

// NewAnnotator creates an Annotator throttled to rps annotations per second.
// rps <= 0 disables throttling.
func NewAnnotator(answerer Answerer, writer SummaryWriter, rps float64, timeout time.Duration) *Annotator {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &Annotator{
		answerer: answerer,
		writer:   writer,
		limiter:  rate.NewLimiter(limit, 1),
		timeout:  timeout,
	}
}

// Annotate returns immediately. Failures are logged and never reach the caller.
func (a *Annotator) Annotate(feedbackID uuid.UUID, description string) {
	a.wg.Add(1)
	go a.run(feedbackID, description)
}

// Wait blocks until every in-flight annotation has finished.
func (a *Annotator) Wait() {
	a.wg.Wait()
}

func (a *Annotator) run(feedbackID uuid.UUID, description string) {
	defer a.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in feedback annotation", "error", r, "feedback_id", feedbackID)
		}
	}()

	waitCtx, cancel := a.bounded()
	err := a.limiter.Wait(waitCtx)
	cancel()
	if err != nil {
		slog.Warn("annotation skipped, rate limit wait exceeded", "feedback_id", feedbackID, "error", err)
		return
	}

	summary := a.answerer.Answer(context.Background(), summaryPrompt(description))

	ctx, cancel := a.bounded()
	defer cancel()
	if err := a.writer.UpdateFeedbackSummary(ctx, feedbackID, summary); err != nil {
		slog.Error("storing feedback summary failed", "feedback_id", feedbackID, "error", err)
		return
	}
	slog.Debug("feedback annotated", "feedback_id", feedbackID)
}

func (a *Annotator) bounded() (context.Context, context.CancelFunc) {
	if a.timeout > 0 {
		return context.WithTimeout(context.Background(), a.timeout)
	}
	return context.WithCancel(context.Background())
}

func summaryPrompt(description string) string {
	return fmt.Sprintf("Please create a brief summary (max 50 words) of this feedback: \"%s\"", description)
}
