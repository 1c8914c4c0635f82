package ai

import "github.com/kiranshivaraju/feedbackhub/pkg/models"

// Re-exported so callers of the orchestration layer need not import models.
var (
	ErrProviderUnavailable = models.ErrProviderUnavailable
	ErrInferenceTimeout    = models.ErrInferenceTimeout
	ErrEmptyResponse       = models.ErrEmptyResponse
)
