package models

// Default budget thresholds. Tokens are always in the units of the single
// session estimator; the exposure budget is characters, a token-count proxy.
const (
	DefaultProtectTokens       = 50_000
	DefaultHysteresisTokens    = 30_000
	DefaultTriggerRatio        = 0.5
	DefaultTailFraction        = 0.30
	DefaultResponseTokenBudget = 4_000
	DefaultExposureCharBudget  = 30_000
)

// ModelConfig identifies the model used for summarization and the token
// limit lookups.
type ModelConfig struct {
	Provider  string `json:"provider"` // "anthropic" or "openai"
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"` // max tokens the summarizer may generate
}

// DefaultModelConfig returns a sensible default configuration.
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		Provider:  "anthropic",
		Model:     "claude-sonnet-4-5",
		MaxTokens: 4096,
	}
}

// BudgetConfig holds the thresholds driving masking, compression, and tool
// exposure. Zero values are replaced by the observed defaults via
// ApplyDefaults; tests override individual fields directly.
type BudgetConfig struct {
	// ProtectTokens is the budget of newest observations masking never touches.
	ProtectTokens int `json:"protect_tokens"`

	// HysteresisTokens is the minimum prunable total required before a
	// masking pass does anything, preventing oscillation around the boundary.
	HysteresisTokens int `json:"hysteresis_tokens"`

	// ProtectLatestTurn exempts the single newest turn from masking entirely.
	ProtectLatestTurn bool `json:"protect_latest_turn"`

	// TriggerRatio is sessionTokens/modelLimit above which compression runs.
	TriggerRatio float64 `json:"trigger_ratio"`

	// TailFraction is the share of most recent turns preserved verbatim.
	TailFraction float64 `json:"tail_fraction"`

	// ResponseTokenBudget is the per-function-response token cap; larger
	// responses are truncated before summarization.
	ResponseTokenBudget int `json:"response_token_budget"`

	// ExposureCharBudget caps the combined description size of discovered
	// tools before declarations are gated behind search.
	ExposureCharBudget int `json:"exposure_char_budget"`

	// StorageDir is the session temp/storage directory root for offloaded
	// files. Empty means the OS temp dir.
	StorageDir string `json:"storage_dir,omitempty"`
}

// ApplyDefaults fills unset fields with the observed defaults.
func (c *BudgetConfig) ApplyDefaults() {
	if c.ProtectTokens <= 0 {
		c.ProtectTokens = DefaultProtectTokens
	}
	if c.HysteresisTokens <= 0 {
		c.HysteresisTokens = DefaultHysteresisTokens
	}
	if c.TriggerRatio <= 0 {
		c.TriggerRatio = DefaultTriggerRatio
	}
	if c.TailFraction <= 0 || c.TailFraction >= 1 {
		c.TailFraction = DefaultTailFraction
	}
	if c.ResponseTokenBudget <= 0 {
		c.ResponseTokenBudget = DefaultResponseTokenBudget
	}
	if c.ExposureCharBudget <= 0 {
		c.ExposureCharBudget = DefaultExposureCharBudget
	}
}

// DefaultBudgetConfig returns a BudgetConfig with every default applied and
// latest-turn protection on.
func DefaultBudgetConfig() BudgetConfig {
	c := BudgetConfig{ProtectLatestTurn: true}
	c.ApplyDefaults()
	return c
}

// SessionConfiguration combines model and budget configuration for one session.
type SessionConfiguration struct {
	Model  ModelConfig  `json:"model"`
	Budget BudgetConfig `json:"budget"`
}

// DefaultSessionConfiguration returns the default session configuration.
func DefaultSessionConfiguration() SessionConfiguration {
	return SessionConfiguration{
		Model:  DefaultModelConfig(),
		Budget: DefaultBudgetConfig(),
	}
}
