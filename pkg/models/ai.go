// Package models contains shared data models used across the FeedbackHub codebase.
package models

import (
	"context"
	"errors"
	"fmt"
)

// AIProvider is the core interface that all text-generation integrations must implement.
// Callers depend on this interface and never on a concrete provider.
// Implementations hold no per-call state and must be safe for concurrent use.
type AIProvider interface {
	// Generate submits a single prompt and returns the raw generated text.
	Generate(ctx context.Context, req GenerationRequest) (string, error)
	// Name returns the provider identifier (e.g., "gemini", "openai").
	Name() string
	// Model returns the model the provider was configured with.
	Model() string
}

// HarmCategory names a content-safety axis understood by the providers.
type HarmCategory string

const (
	HarmCategoryHarassment       HarmCategory = "HARM_CATEGORY_HARASSMENT"
	HarmCategoryHateSpeech       HarmCategory = "HARM_CATEGORY_HATE_SPEECH"
	HarmCategorySexuallyExplicit HarmCategory = "HARM_CATEGORY_SEXUALLY_EXPLICIT"
	HarmCategoryDangerousContent HarmCategory = "HARM_CATEGORY_DANGEROUS_CONTENT"
)

// HarmThreshold is the severity at and above which content is blocked.
type HarmThreshold string

const (
	BlockLowAndAbove    HarmThreshold = "BLOCK_LOW_AND_ABOVE"
	BlockMediumAndAbove HarmThreshold = "BLOCK_MEDIUM_AND_ABOVE"
	BlockOnlyHigh       HarmThreshold = "BLOCK_ONLY_HIGH"
	BlockNone           HarmThreshold = "BLOCK_NONE"
)

// SafetySetting pairs a harm category with its blocking threshold.
type SafetySetting struct {
	Category  HarmCategory
	Threshold HarmThreshold
}

// GenerationRequest is the input to a single generation call.
// It is built fresh for every call and never mutated afterwards.
type GenerationRequest struct {
	Prompt          string
	Temperature     float64 // 0..1
	MaxOutputTokens int     // > 0
	SafetySettings  []SafetySetting
}

// Provider errors. Every AIProvider implementation wraps one of these so
// callers can classify failures without knowing the concrete provider.
var (
	ErrProviderUnavailable = errors.New("ai provider unavailable")
	ErrInferenceTimeout    = errors.New("ai inference timeout")
	ErrEmptyResponse       = errors.New("ai provider returned empty response")
)

// WrapProviderError classifies a failed provider call as a timeout when the
// deadline was hit, and as unavailability otherwise.
func WrapProviderError(ctx context.Context, provider string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", provider, ErrInferenceTimeout, err)
	}
	return fmt.Errorf("%s: %w: %w", provider, ErrProviderUnavailable, err)
}
