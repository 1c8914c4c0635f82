package cache

import "fmt"

// RateLimitKey scopes a rate-limit counter by limiter name and subject (user id or client IP).
func RateLimitKey(scope, subject string) string {
	return fmt.Sprintf("ratelimit:%s:%s", scope, subject)
}

// FeedbackStatsKey holds the cached aggregate counts over all feedback.
func FeedbackStatsKey() string {
	return "feedback:stats"
}
