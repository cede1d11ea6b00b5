// Package tokens provides the token estimator consumed by every budget
// decision. All thresholds in the system are expressed in the units of a
// single estimator so counts stay comparable across subsystems.
package tokens

import "github.com/agentfold/contextbudget/internal/models"

// Estimator maps a content fragment to a deterministic token count.
type Estimator interface {
	Count(text string) int
}

// Heuristic estimates tokens from character count, ~4 characters per token
// for English text. Conservative, deterministic, and dependency-free.
type Heuristic struct{}

// Count returns the estimated token count, at least 1 for non-empty text.
func (Heuristic) Count(text string) int {
	if len(text) == 0 {
		return 0
	}
	n := (len(text) + 3) / 4
	if n < 1 {
		n = 1
	}
	return n
}

// CountPart estimates the tokens of a single part.
func CountPart(est Estimator, part models.Part) int {
	switch part.Type {
	case models.PartTypeText:
		return est.Count(part.Text)
	case models.PartTypeFunctionResponse:
		if part.FunctionResponse == nil {
			return 0
		}
		// Name and call id carry a little structural overhead.
		return est.Count(part.FunctionResponse.Observation()) +
			est.Count(part.FunctionResponse.Name) + 10
	case models.PartTypeInlineData:
		// Inline data is opaque to the estimator; charge a flat overhead.
		return 200
	default:
		return 0
	}
}

// CountTurn estimates the tokens of a turn including a small per-turn overhead.
func CountTurn(est Estimator, turn models.Turn) int {
	total := 4
	for _, p := range turn.Parts {
		total += CountPart(est, p)
	}
	return total
}

// CountHistory estimates the tokens of a full conversation.
func CountHistory(est Estimator, history []models.Turn) int {
	total := 0
	for _, t := range history {
		total += CountTurn(est, t)
	}
	return total
}
