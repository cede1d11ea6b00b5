package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/agentfold/contextbudget/internal/models"
)

// AnthropicSummarizer implements SummaryClient against Claude's streaming
// Messages API. Streaming keeps long snapshot generations from tripping
// server-side idle timeouts.
type AnthropicSummarizer struct {
	client    anthropic.Client
	model     string
	maxTokens int
}

// NewAnthropicSummarizer creates a summarizer for the given model. The API
// key comes from ANTHROPIC_API_KEY.
func NewAnthropicSummarizer(model string, maxTokens int) *AnthropicSummarizer {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicSummarizer{client: client, model: model, maxTokens: maxTokens}
}

// Summarize streams a snapshot generation and returns the accumulated text.
func (s *AnthropicSummarizer) Summarize(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	stream := s.client.Messages.NewStreaming(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(s.model),
		MaxTokens: int64(s.maxTokens),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})

	message := anthropic.Message{}
	for stream.Next() {
		event := stream.Current()
		if err := message.Accumulate(event); err != nil {
			return "", models.NewSummarizeError(fmt.Sprintf("accumulate stream: %v", err))
		}
	}
	if err := stream.Err(); err != nil {
		return "", classifyAnthropicError(err)
	}

	var out strings.Builder
	for _, block := range message.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			out.WriteString(text.Text)
		}
	}
	if out.Len() == 0 {
		return "", models.NewSummarizeError("empty response from summarizer")
	}
	return out.String(), nil
}

// classifyAnthropicError categorizes an Anthropic API error using the HTTP
// status code when available, falling back to message-based heuristics.
func classifyAnthropicError(err error) error {
	errMsg := strings.ToLower(err.Error())

	if strings.Contains(errMsg, "context_length") || strings.Contains(errMsg, "too many tokens") {
		return models.NewFatalError(err.Error())
	}

	if apiErr, ok := err.(*anthropic.Error); ok {
		return classifyByStatusCode(apiErr.StatusCode, err)
	}

	if strings.Contains(errMsg, "rate_limit") || strings.Contains(errMsg, "rate limit") {
		return models.NewAPILimitError(err.Error())
	}
	return models.NewTransientError(fmt.Sprintf("Anthropic API error: %v", err))
}
