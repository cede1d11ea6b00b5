package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"

	"github.com/agentfold/contextbudget/internal/models"
)

// OpenAISummarizer implements SummaryClient using OpenAI's Responses API.
type OpenAISummarizer struct {
	client    openai.Client
	model     string
	maxTokens int
}

// NewOpenAISummarizer creates a summarizer for the given model. The API key
// comes from OPENAI_API_KEY.
func NewOpenAISummarizer(model string, maxTokens int) *OpenAISummarizer {
	apiKey := os.Getenv("OPENAI_API_KEY")
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAISummarizer{client: client, model: model, maxTokens: maxTokens}
}

// Summarize sends the snapshot request and returns the output text.
func (s *OpenAISummarizer) Summarize(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	params := responses.ResponseNewParams{
		Model:        shared.ResponsesModel(s.model),
		Instructions: openai.String(systemPrompt),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: openai.String(userPrompt),
		},
		MaxOutputTokens: openai.Int(int64(s.maxTokens)),
	}

	resp, err := s.client.Responses.New(ctx, params)
	if err != nil {
		return "", classifyOpenAIError(err)
	}

	text := resp.OutputText()
	if text == "" {
		return "", models.NewSummarizeError("empty response from summarizer")
	}
	return text, nil
}

// classifyOpenAIError categorizes an OpenAI API error using the HTTP status
// code when available, falling back to message-based heuristics.
func classifyOpenAIError(err error) error {
	errMsg := strings.ToLower(err.Error())

	if strings.Contains(errMsg, "context_length") || strings.Contains(errMsg, "maximum context length") {
		return models.NewFatalError(err.Error())
	}

	if apiErr, ok := err.(*openai.Error); ok {
		return classifyByStatusCode(apiErr.StatusCode, err)
	}

	if strings.Contains(errMsg, "rate_limit") || strings.Contains(errMsg, "rate limit") {
		return models.NewAPILimitError(err.Error())
	}
	return models.NewTransientError(fmt.Sprintf("OpenAI API error: %v", err))
}
