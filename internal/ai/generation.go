package ai

import "github.com/kiranshivaraju/feedbackhub/pkg/models"

const (
	draftTemperature  = 0.2
	refineTemperature = 0.1
	maxOutputTokens   = 300
)

// GenerationConfig carries the sampling parameters of one attempt.
type GenerationConfig struct {
	Temperature     float64
	MaxOutputTokens int
	SafetySettings  []models.SafetySetting
}

// DefaultSafetySettings blocks medium and higher severity content on every category.
func DefaultSafetySettings() []models.SafetySetting {
	return []models.SafetySetting{
		{Category: models.HarmCategoryHarassment, Threshold: models.BlockMediumAndAbove},
		{Category: models.HarmCategoryHateSpeech, Threshold: models.BlockMediumAndAbove},
		{Category: models.HarmCategorySexuallyExplicit, Threshold: models.BlockMediumAndAbove},
		{Category: models.HarmCategoryDangerousContent, Threshold: models.BlockMediumAndAbove},
	}
}

func draftConfig() GenerationConfig {
	return GenerationConfig{
		Temperature:     draftTemperature,
		MaxOutputTokens: maxOutputTokens,
		SafetySettings:  DefaultSafetySettings(),
	}
}

func refineConfig() GenerationConfig {
	return GenerationConfig{
		Temperature:     refineTemperature,
		MaxOutputTokens: maxOutputTokens,
		SafetySettings:  DefaultSafetySettings(),
	}
}

func (c GenerationConfig) request(prompt string) models.GenerationRequest {
	settings := make([]models.SafetySetting, len(c.SafetySettings))
	copy(settings, c.SafetySettings)
	return models.GenerationRequest{
		Prompt:          prompt,
		Temperature:     c.Temperature,
		MaxOutputTokens: c.MaxOutputTokens,
		SafetySettings:  settings,
	}
}
