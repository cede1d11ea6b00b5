// Package llm provides the model clients used for history compression
// snapshots and API-backed token counting.
package llm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/agentfold/contextbudget/internal/models"
)

// SummaryClient produces a state snapshot from a rendered conversation
// region. It satisfies compression.Summarizer.
type SummaryClient interface {
	Summarize(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// classifyByStatusCode maps an HTTP status code to the activity error
// taxonomy. Shared by all provider error classifiers.
//
//   - 429: rate limit, retryable with delay
//   - 408, 409: transient, retryable
//   - other 4xx: fatal client error, non-retryable
//   - 5xx: transient server error, retryable
func classifyByStatusCode(statusCode int, err error) *models.ActivityError {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return models.NewAPILimitError(fmt.Sprintf("rate limit (%d): %v", statusCode, err))
	case statusCode == http.StatusRequestTimeout || statusCode == http.StatusConflict:
		return models.NewTransientError(fmt.Sprintf("retryable error (%d): %v", statusCode, err))
	case statusCode >= 400 && statusCode < 500:
		return models.NewFatalError(fmt.Sprintf("client error (%d): %v", statusCode, err))
	case statusCode >= 500:
		return models.NewTransientError(fmt.Sprintf("server error (%d): %v", statusCode, err))
	default:
		return models.NewTransientError(fmt.Sprintf("unexpected status (%d): %v", statusCode, err))
	}
}
