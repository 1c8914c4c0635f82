// Package anthropic implements models.AIProvider on the Anthropic Messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kiranshivaraju/feedbackhub/internal/config"
	"github.com/kiranshivaraju/feedbackhub/pkg/models"
)

const apiVersion = "2023-06-01"

// Provider implements models.AIProvider using Claude models.
type Provider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

func NewProvider(cfg config.AnthropicConfig) *Provider {
	return &Provider{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		client:  &http.Client{},
	}
}

func (p *Provider) Name() string { return "anthropic" }

func (p *Provider) Model() string { return p.model }

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type messagesResponse struct {
	ID      string         `json:"id"`
	Content []contentBlock `json:"content"`
}

func (p *Provider) Generate(ctx context.Context, req models.GenerationRequest) (string, error) {
	body, err := json.Marshal(messagesRequest{
		Model:       p.model,
		Messages:    []message{{Role: "user", Content: req.Prompt}},
		MaxTokens:   req.MaxOutputTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling anthropic request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating anthropic request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", models.WrapProviderError(ctx, p.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", models.WrapProviderError(ctx, p.Name(), fmt.Errorf("status %d: %s", resp.StatusCode, msg))
	}

	var out messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", models.WrapProviderError(ctx, p.Name(), fmt.Errorf("decoding response: %w", err))
	}
	return joinText(p.Name(), out.Content)
}

// joinText concatenates the text blocks of a Claude response.
func joinText(provider string, blocks []contentBlock) (string, error) {
	var sb strings.Builder
	for _, b := range blocks {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%s: %w", provider, models.ErrEmptyResponse)
	}
	return text, nil
}

var _ models.AIProvider = (*Provider)(nil)
