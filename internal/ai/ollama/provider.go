// Package ollama implements models.AIProvider against a self-hosted Ollama server.
package ollama

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

// Provider implements models.AIProvider using Ollama's /api/generate endpoint.
type Provider struct {
	baseURL string
	model   string
	client  *http.Client
}

func NewProvider(cfg config.OllamaConfig) *Provider {
	return &Provider{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		client:  &http.Client{},
	}
}

func (p *Provider) Name() string { return "ollama" }

func (p *Provider) Model() string { return p.model }

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func (p *Provider) Generate(ctx context.Context, req models.GenerationRequest) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:  p.model,
		Prompt: req.Prompt,
		Options: generateOptions{
			Temperature: req.Temperature,
			NumPredict:  req.MaxOutputTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling ollama request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating ollama request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", models.WrapProviderError(ctx, p.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", models.WrapProviderError(ctx, p.Name(), fmt.Errorf("status %d: %s", resp.StatusCode, msg))
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", models.WrapProviderError(ctx, p.Name(), fmt.Errorf("decoding response: %w", err))
	}

	text := out.Response
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("ollama: %w", models.ErrEmptyResponse)
	}
	return text, nil
}

var _ models.AIProvider = (*Provider)(nil)
