package ai

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError is a non-2xx response from an OpenAI-compatible endpoint.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("llm response status %d: %s", e.StatusCode, e.Body)
}

var quotaMarkers = []string{
	"exceeded your current quota",
	"insufficient_quota",
	"billing",
}

var rateLimitMarkers = []string{
	"rate limit",
	"rate_limit",
	"too many requests",
}

var capacityMarkers = []string{
	"capacity",
	"overloaded",
}

// IsQuotaError reports an exhausted account quota. Retrying does not help.
func IsQuotaError(err error) bool {
	return err != nil && containsAny(strings.ToLower(err.Error()), quotaMarkers)
}

// IsRateLimitError reports a temporary throttle that may succeed after a wait.
func IsRateLimitError(err error) bool {
	if err == nil || IsQuotaError(err) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return containsAny(strings.ToLower(err.Error()), rateLimitMarkers)
}

// CompletionErrorClass groups completion failures for user-facing fallbacks.
type CompletionErrorClass int

const (
	CompletionOK CompletionErrorClass = iota
	// CompletionUnavailable covers quota, rate limit and capacity failures.
	CompletionUnavailable
	CompletionFailed
)

// ClassifyCompletionError separates capacity problems from other failures.
func ClassifyCompletionError(err error) CompletionErrorClass {
	if err == nil {
		return CompletionOK
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests, http.StatusServiceUnavailable:
			return CompletionUnavailable
		}
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "quota") || containsAny(msg, quotaMarkers) ||
		containsAny(msg, rateLimitMarkers) || containsAny(msg, capacityMarkers) {
		return CompletionUnavailable
	}
	return CompletionFailed
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
