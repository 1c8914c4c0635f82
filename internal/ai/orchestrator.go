package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kiranshivaraju/feedbackhub/pkg/models"
)

const logPrefixRunes = 30

// MaxGenerationCalls is the number of provider calls one Answer may make.
const MaxGenerationCalls = 2

// AnswerBudget is the longest one Answer can run when every generation call
// uses its full inference timeout.
func AnswerBudget(inference time.Duration) time.Duration {
	return SnapshotTimeout + MaxGenerationCalls*inference
}

// Answerer turns a user prompt into a non-empty answer.
type Answerer interface {
	Answer(ctx context.Context, prompt string) string
}

// Orchestrator runs the draft/refine generation loop against one provider.
// At most MaxGenerationCalls generation calls are made per Answer.
type Orchestrator struct {
	provider  models.AIProvider
	builder   PromptBuilder
	validator Validator
	timeout   time.Duration
}

// NewOrchestrator creates an Orchestrator. A zero timeout leaves generation
// calls bounded only by the provider client itself.
func NewOrchestrator(provider models.AIProvider, builder PromptBuilder, validator Validator, timeout time.Duration) *Orchestrator {
	if validator == nil {
		validator = DefaultValidator{}
	}
	return &Orchestrator{
		provider:  provider,
		builder:   builder,
		validator: validator,
		timeout:   timeout,
	}
}

// Answer always returns text. Provider failures and exhausted validation
// both resolve to a deterministic fallback built from the prompt.
func (o *Orchestrator) Answer(ctx context.Context, prompt string) string {
	system := o.builder.Build(ctx)
	prefix := truncateRunes(prompt, logPrefixRunes)

	slog.Info("generating ai response", "provider", o.provider.Name(), "prompt_prefix", prefix)

	draft, err := o.attempt(ctx, system+"\n\nUser question: "+prompt, draftConfig())
	if err != nil {
		slog.Error("ai generation failed", "attempt", 1, "prompt_prefix", prefix, "error", err)
		return providerFallback(prompt)
	}
	verdict := o.validator.Validate(draft, prompt)
	if verdict.Valid {
		return draft
	}

	slog.Warn("ai response rejected, retrying with refined prompt", "reason", verdict.Reason, "prompt_prefix", prefix)

	refinedPrompt := system + "\n\n" + refinementInstruction + "\n\nUser question: " + prompt
	refined, err := o.attempt(ctx, refinedPrompt, refineConfig())
	if err != nil {
		slog.Error("ai generation failed", "attempt", 2, "prompt_prefix", prefix, "error", err)
		return providerFallback(prompt)
	}
	verdict = o.validator.Validate(refined, prompt)
	if verdict.Valid {
		return refined
	}

	slog.Warn("refined ai response rejected, using fallback", "reason", verdict.Reason, "prompt_prefix", prefix)
	return validationFallback(prompt)
}

// attempt makes exactly one generation call. The call is detached from the
// caller's cancellation and bounded by the inference timeout instead.
func (o *Orchestrator) attempt(ctx context.Context, text string, cfg GenerationConfig) (out string, err error) {
	ctx = context.WithoutCancel(ctx)
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			out, err = "", fmt.Errorf("%w: provider panic: %v", ErrProviderUnavailable, r)
		}
	}()

	out, err = o.provider.Generate(ctx, cfg.request(text))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrInferenceTimeout) {
			err = fmt.Errorf("%w: %w", ErrInferenceTimeout, err)
		}
		return "", err
	}
	return out, nil
}

func providerFallback(prompt string) string {
	return fmt.Sprintf("I understand you're asking about \"%s\". This appears to be related to feedback tracking, "+
		"but I couldn't generate a specific response. Please try rephrasing your question.", prompt)
}

func validationFallback(prompt string) string {
	topic := "our system features"
	if strings.Contains(prompt, "feedback") {
		topic = "feedback management"
	}
	return fmt.Sprintf("I understand you're asking about \"%s\". This appears to be related to %s. "+
		"Could you please provide more details so I can give you a more specific answer about our feedback tracking system?",
		prompt, topic)
}
