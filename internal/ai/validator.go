package ai

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	minHelpfulLength   = 20
	refusalLengthLimit = 100
	relevancePromptMin = 15
)

var refusalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)I cannot answer|I don't have enough information|I'm not able to provide`),
	regexp.MustCompile(`(?i)As an AI|As a language model`),
}

var relevanceKeywords = []string{
	"feedback", "suggestion", "improvement", "feature", "bug", "issue",
	"track", "status", "priority", "category", "report", "user experience",
}

// ValidationResult is the verdict on one generated response.
type ValidationResult struct {
	Valid  bool
	Reason string
}

// Validator decides whether a generated response is acceptable for a prompt.
type Validator interface {
	Validate(response, prompt string) ValidationResult
}

// DefaultValidator applies both the helpfulness and the relevance checks.
type DefaultValidator struct{}

func (DefaultValidator) Validate(response, prompt string) ValidationResult {
	return ValidateResponse(response, prompt)
}

// HelpfulnessValidator only rejects short or refusing responses.
type HelpfulnessValidator struct{}

func (HelpfulnessValidator) Validate(response, _ string) ValidationResult {
	return ValidateHelpfulness(response)
}

// NewValidator returns the validator for the configured policy.
// "lenient" selects HelpfulnessValidator, anything else DefaultValidator.
func NewValidator(policy string) Validator {
	if policy == "lenient" {
		return HelpfulnessValidator{}
	}
	return DefaultValidator{}
}

// ValidateHelpfulness rejects responses that are too short, or short refusals.
func ValidateHelpfulness(text string) ValidationResult {
	n := utf8.RuneCountInString(text)
	if n < minHelpfulLength {
		return ValidationResult{
			Reason: fmt.Sprintf("response too short (%d chars), minimum %d required", n, minHelpfulLength),
		}
	}
	if n < refusalLengthLimit {
		for _, re := range refusalPatterns {
			if re.MatchString(text) {
				return ValidationResult{Reason: "response contains refusal or disclaimer without useful information"}
			}
		}
	}
	return ValidationResult{Valid: true}
}

// ValidateRelevance rejects responses with no feedback-domain keyword.
// Prompts of 15 runes or fewer are exempt.
func ValidateRelevance(text, prompt string) ValidationResult {
	lower := strings.ToLower(text)
	for _, kw := range relevanceKeywords {
		if strings.Contains(lower, kw) {
			return ValidationResult{Valid: true}
		}
	}
	if utf8.RuneCountInString(prompt) > relevancePromptMin {
		return ValidationResult{Reason: "response doesn't contain any feedback-related keywords"}
	}
	return ValidationResult{Valid: true}
}

// ValidateResponse runs helpfulness then relevance; the first failure wins.
func ValidateResponse(text, prompt string) ValidationResult {
	if r := ValidateHelpfulness(text); !r.Valid {
		return r
	}
	return ValidateRelevance(text, prompt)
}
