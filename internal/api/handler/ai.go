package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/kiranshivaraju/feedbackhub/internal/ai"
	"github.com/kiranshivaraju/feedbackhub/internal/api/response"
	"github.com/kiranshivaraju/feedbackhub/pkg/models"
)

// MaxPromptLength is the longest prompt, in characters, the query endpoint accepts.
const MaxPromptLength = 500

type queryResponse struct {
	Answer string `json:"answer"`
	Prompt string `json:"prompt"`
}

// NewQueryHandler returns an http.HandlerFunc for POST /api/v1/ai/query.
// The orchestrator always produces an answer, so this endpoint only fails
// on bad input.
func NewQueryHandler(answerer ai.Answerer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, ok := currentUser(w, r)
		if !ok {
			return
		}
		var req struct {
			Prompt string `json:"prompt"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Prompt) == "" {
			validationFailed(w, "prompt", "Prompt is required")
			return
		}
		if utf8.RuneCountInString(req.Prompt) > MaxPromptLength {
			validationFailed(w, "prompt", "Prompt cannot exceed 500 characters")
			return
		}

		slog.Info("processing AI query", "user_id", u.ID)
		answer := answerer.Answer(r.Context(), req.Prompt)
		response.JSON(w, queryResponse{Answer: answer, Prompt: req.Prompt})
	}
}

// NewProviderInfoHandler returns an http.HandlerFunc for GET /api/v1/admin/ai/provider.
func NewProviderInfoHandler(p models.AIProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		response.JSON(w, map[string]string{
			"provider": p.Name(),
			"model":    p.Model(),
		})
	}
}
