// Package gemini implements models.AIProvider on the Google Gen AI SDK.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/kiranshivaraju/feedbackhub/internal/config"
	"github.com/kiranshivaraju/feedbackhub/pkg/models"
	"google.golang.org/genai"
)

// Provider implements models.AIProvider using the Gemini API.
type Provider struct {
	client *genai.Client
	model  string
}

// NewProvider creates the SDK client once; it is reused for every call.
func NewProvider(ctx context.Context, cfg config.GeminiConfig) (*Provider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &Provider{client: client, model: cfg.Model}, nil
}

func (p *Provider) Name() string { return "gemini" }

func (p *Provider) Model() string { return p.model }

func (p *Provider) Generate(ctx context.Context, req models.GenerationRequest) (string, error) {
	resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(req.Prompt), generateConfig(req))
	if err != nil {
		return "", models.WrapProviderError(ctx, p.Name(), err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("gemini: %w", models.ErrEmptyResponse)
	}
	return text, nil
}

func generateConfig(req models.GenerationRequest) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(req.Temperature)),
		MaxOutputTokens: int32(req.MaxOutputTokens),
	}
	for _, s := range req.SafetySettings {
		cfg.SafetySettings = append(cfg.SafetySettings, &genai.SafetySetting{
			Category:  genai.HarmCategory(s.Category),
			Threshold: genai.HarmBlockThreshold(s.Threshold),
		})
	}
	return cfg
}

var _ models.AIProvider = (*Provider)(nil)
