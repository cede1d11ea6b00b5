package llm

import (
	"context"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/agentfold/contextbudget/internal/tokens"
)

// countTimeout bounds a single CountTokens call so a slow API never stalls
// a budget decision.
const countTimeout = 5 * time.Second

// APIEstimator counts tokens with Anthropic's CountTokens endpoint and falls
// back to the character heuristic when the call fails. It satisfies
// tokens.Estimator, so budget thresholds work unchanged with either source.
type APIEstimator struct {
	client   anthropic.Client
	model    string
	fallback tokens.Heuristic
}

// NewAPIEstimator creates an estimator counting against the given model.
// The API key comes from ANTHROPIC_API_KEY.
func NewAPIEstimator(model string) *APIEstimator {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &APIEstimator{client: client, model: model}
}

// Count returns the API token count for text, or the heuristic estimate when
// the API is unreachable. Empty text is zero without a call.
func (e *APIEstimator) Count(text string) int {
	if len(text) == 0 {
		return 0
	}

	ctx, cancel := context.WithTimeout(context.Background(), countTimeout)
	defer cancel()

	result, err := e.client.Messages.CountTokens(ctx, anthropic.MessageCountTokensParams{
		Model: anthropic.Model(e.model),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
	})
	if err != nil {
		return e.fallback.Count(text)
	}
	return int(result.InputTokens)
}
