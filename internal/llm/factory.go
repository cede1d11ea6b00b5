package llm

import (
	"fmt"

	"github.com/agentfold/contextbudget/internal/models"
)

// NewSummaryClient creates the summarizer for the configured provider.
func NewSummaryClient(cfg models.ModelConfig) (SummaryClient, error) {
	switch cfg.Provider {
	case "anthropic", "":
		return NewAnthropicSummarizer(cfg.Model, cfg.MaxTokens), nil
	case "openai":
		return NewOpenAISummarizer(cfg.Model, cfg.MaxTokens), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s (supported: anthropic, openai)", cfg.Provider)
	}
}
