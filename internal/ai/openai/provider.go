// Package openai implements models.AIProvider on the OpenAI chat completions API.
// vLLM exposes the same API, so it is served by this package with a different base URL.
package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/kiranshivaraju/feedbackhub/internal/config"
	"github.com/kiranshivaraju/feedbackhub/pkg/models"
)

// Provider implements models.AIProvider for any OpenAI-compatible endpoint.
type Provider struct {
	name   string
	client *openai.Client
	model  string
}

// NewProvider creates a provider talking to api.openai.com (or cfg.BaseURL).
func NewProvider(cfg config.OpenAIConfig, opts ...option.RequestOption) *Provider {
	return newProvider("openai", cfg.APIKey, cfg.BaseURL, cfg.Model, opts...)
}

// NewVLLMProvider creates a provider for a self-hosted vLLM server.
func NewVLLMProvider(cfg config.VLLMConfig, opts ...option.RequestOption) *Provider {
	// vLLM ignores the key unless started with --api-key.
	return newProvider("vllm", "EMPTY", cfg.BaseURL, cfg.Model, opts...)
}

func newProvider(name, apiKey, baseURL, model string, opts ...option.RequestOption) *Provider {
	base := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		// Request paths are resolved relative to the base, so it must end in a slash.
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		base = append(base, option.WithBaseURL(baseURL))
	}
	return &Provider{
		name:   name,
		client: openai.NewClient(append(base, opts...)...),
		model:  model,
	}
}

func (p *Provider) Name() string { return p.name }

func (p *Provider) Model() string { return p.model }

// Generate ignores SafetySettings; the chat completions API has no equivalent knob.
func (p *Provider) Generate(ctx context.Context, req models.GenerationRequest) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.F(p.model),
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		}),
		Temperature: openai.F(req.Temperature),
		MaxTokens:   openai.F(int64(req.MaxOutputTokens)),
	})
	if err != nil {
		return "", models.WrapProviderError(ctx, p.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: %w", p.name, models.ErrEmptyResponse)
	}
	text := resp.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%s: %w", p.name, models.ErrEmptyResponse)
	}
	return text, nil
}

var _ models.AIProvider = (*Provider)(nil)
