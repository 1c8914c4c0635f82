package ai

import (
	"context"
	"fmt"

	"github.com/kiranshivaraju/feedbackhub/internal/ai/anthropic"
	"github.com/kiranshivaraju/feedbackhub/internal/ai/bedrock"
	"github.com/kiranshivaraju/feedbackhub/internal/ai/gemini"
	"github.com/kiranshivaraju/feedbackhub/internal/ai/ollama"
	"github.com/kiranshivaraju/feedbackhub/internal/ai/openai"
	"github.com/kiranshivaraju/feedbackhub/internal/config"
	"github.com/kiranshivaraju/feedbackhub/pkg/models"
)

// NewProvider constructs the appropriate AI provider based on config.
// Called once at server startup.
func NewProvider(ctx context.Context, cfg config.AIConfig) (models.AIProvider, error) {
	switch cfg.Provider {
	case "gemini":
		p, err := gemini.NewProvider(ctx, cfg.Gemini)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "ollama":
		return ollama.NewProvider(cfg.Ollama), nil
	case "vllm":
		return openai.NewVLLMProvider(cfg.VLLM), nil
	case "openai":
		return openai.NewProvider(cfg.OpenAI), nil
	case "anthropic":
		return anthropic.NewProvider(cfg.Anthropic), nil
	case "bedrock":
		p, err := bedrock.NewProvider(ctx, cfg.Bedrock)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q: must be one of gemini, ollama, vllm, openai, anthropic, bedrock", cfg.Provider)
	}
}
