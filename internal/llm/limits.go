package llm

import (
	"fmt"
	"strings"

	"github.com/agentfold/contextbudget/internal/models"
)

// modelLimit pairs a model-ID prefix with its context-window token limit.
// Entries are checked in order, so more specific prefixes come first.
type modelLimit struct {
	prefix string
	limit  int
}

var modelLimits = []modelLimit{
	// Anthropic. Claude models share a 200k window.
	{"claude-", 200_000},

	// OpenAI.
	{"gpt-5", 400_000},
	{"gpt-4.1", 1_047_576},
	{"gpt-4o", 128_000},
	{"gpt-4-turbo", 128_000},
	{"gpt-4", 8_192},
	{"o1", 200_000},
	{"o3", 200_000},
	{"o4", 200_000},
}

// ContextWindowFor resolves a model name to its context-window token limit.
// An unrecognized model is a configuration error: compression budgets cannot
// be evaluated against an unknown denominator.
func ContextWindowFor(model string) (int, error) {
	name := strings.ToLower(strings.TrimSpace(model))
	if name == "" {
		return 0, models.NewConfigError("model name is empty")
	}
	for _, ml := range modelLimits {
		if strings.HasPrefix(name, ml.prefix) {
			return ml.limit, nil
		}
	}
	return 0, models.NewConfigError(fmt.Sprintf("no token limit known for model %q", model))
}
