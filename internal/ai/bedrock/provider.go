// Package bedrock implements models.AIProvider on AWS Bedrock using Claude's
// message format.
package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/kiranshivaraju/feedbackhub/internal/config"
	"github.com/kiranshivaraju/feedbackhub/pkg/models"
)

const anthropicVersion = "bedrock-2023-05-31"

// InvokeModelAPI is the subset of the bedrockruntime client used here.
type InvokeModelAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Provider implements models.AIProvider for Bedrock-hosted Claude models.
type Provider struct {
	client InvokeModelAPI
	model  string
}

// NewProvider loads AWS credentials from the environment or instance role.
func NewProvider(ctx context.Context, cfg config.BedrockConfig) (*Provider, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return NewProviderWithClient(bedrockruntime.NewFromConfig(awsCfg), cfg.Model), nil
}

// NewProviderWithClient wraps an existing client.
func NewProviderWithClient(client InvokeModelAPI, model string) *Provider {
	return &Provider{client: client, model: model}
}

func (p *Provider) Name() string { return "bedrock" }

func (p *Provider) Model() string { return p.model }

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeRequest struct {
	Messages         []claudeMessage `json:"messages"`
	MaxTokens        int             `json:"max_tokens"`
	Temperature      float64         `json:"temperature"`
	AnthropicVersion string          `json:"anthropic_version"`
}

type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (p *Provider) Generate(ctx context.Context, req models.GenerationRequest) (string, error) {
	body, err := json.Marshal(claudeRequest{
		Messages:         []claudeMessage{{Role: "user", Content: req.Prompt}},
		MaxTokens:        req.MaxOutputTokens,
		Temperature:      req.Temperature,
		AnthropicVersion: anthropicVersion,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling bedrock request: %w", err)
	}

	resp, err := p.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(p.model),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", models.WrapProviderError(ctx, p.Name(), err)
	}

	var out claudeResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return "", models.WrapProviderError(ctx, p.Name(), fmt.Errorf("decoding response: %w", err))
	}

	var sb strings.Builder
	for _, c := range out.Content {
		if c.Type == "text" {
			sb.WriteString(c.Text)
		}
	}
	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("bedrock: %w", models.ErrEmptyResponse)
	}
	return text, nil
}

var _ models.AIProvider = (*Provider)(nil)
