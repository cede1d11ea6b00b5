// Package activities contains the Temporal activity implementations wrapping
// the budget engines: masking, compression, and tool exposure.
package activities

import (
	"context"
	"errors"
	"fmt"

	"github.com/agentfold/contextbudget/internal/compression"
	"github.com/agentfold/contextbudget/internal/exposure"
	"github.com/agentfold/contextbudget/internal/llm"
	"github.com/agentfold/contextbudget/internal/mcp"
	"github.com/agentfold/contextbudget/internal/models"
	"github.com/agentfold/contextbudget/internal/tokens"
)

// BudgetActivities exposes the budget pipeline to the workflow layer. All
// per-session state lives in the SessionStore; activity inputs carry the
// session ID and the history value.
type BudgetActivities struct {
	store *SessionStore

	// newSummarizer builds the snapshot client for a model config. Tests
	// inject fakes here.
	newSummarizer func(models.ModelConfig) (compression.Summarizer, error)
	// limits resolves model names to context-window sizes.
	limits compression.LimitFunc
}

// NewBudgetActivities creates the activity set backed by the given store.
func NewBudgetActivities(store *SessionStore) *BudgetActivities {
	return &BudgetActivities{
		store: store,
		newSummarizer: func(cfg models.ModelConfig) (compression.Summarizer, error) {
			return llm.NewSummaryClient(cfg)
		},
		limits: llm.ContextWindowFor,
	}
}

// WithSummarizerFactory overrides the snapshot client factory.
func (a *BudgetActivities) WithSummarizerFactory(f func(models.ModelConfig) (compression.Summarizer, error)) *BudgetActivities {
	a.newSummarizer = f
	return a
}

// WithLimits overrides the model limit lookup.
func (a *BudgetActivities) WithLimits(limits compression.LimitFunc) *BudgetActivities {
	a.limits = limits
	return a
}

// session resolves the state for a session ID or fails fatally: activities
// on an unknown session mean the workflow and worker disagree about
// initialization, which retries cannot fix.
func (a *BudgetActivities) session(sessionID string) (*SessionState, error) {
	st := a.store.Get(sessionID)
	if st == nil {
		return nil, models.WrapActivityError(
			models.NewFatalError(fmt.Sprintf("session %s not initialized on this worker", sessionID)))
	}
	return st, nil
}

// InitializeSessionInput configures a new session.
type InitializeSessionInput struct {
	SessionID   string                      `json:"session_id"`
	Config      models.SessionConfiguration `json:"config"`
	NativeTools []exposure.Entry            `json:"native_tools,omitempty"`
	McpServers  map[string]mcp.ServerConfig `json:"mcp_servers,omitempty"`
}

// InitializeSessionOutput reports discovery results.
type InitializeSessionOutput struct {
	ToolCount int               `json:"tool_count"`
	Failures  map[string]string `json:"failures,omitempty"`
}

// InitializeSession creates the session state, registers native tools, and
// discovers MCP tools. Idempotent per session ID: re-running on retry reuses
// the existing state and re-registration keeps activation intact.
func (a *BudgetActivities) InitializeSession(ctx context.Context, input InitializeSessionInput) (InitializeSessionOutput, error) {
	st := a.store.GetOrCreate(input.SessionID, input.Config)

	for _, entry := range input.NativeTools {
		entry.Origin = exposure.OriginNative
		if err := st.Exposure.RegisterTool(entry); err != nil {
			return InitializeSessionOutput{}, models.WrapActivityError(models.NewConfigError(err.Error()))
		}
	}

	out := InitializeSessionOutput{Failures: map[string]string{}}
	if len(input.McpServers) > 0 {
		result, err := st.Discoverer.Discover(ctx, input.McpServers)
		if err != nil {
			return InitializeSessionOutput{}, models.WrapActivityError(models.NewConfigError(err.Error()))
		}
		for _, entry := range result.Entries {
			if err := st.Exposure.RegisterTool(entry); err != nil {
				return InitializeSessionOutput{}, models.WrapActivityError(models.NewConfigError(err.Error()))
			}
		}
		out.Failures = result.Failures
	}

	out.ToolCount = len(st.Exposure.Snapshot())
	return out, nil
}

// MaskInput is the input for a masking pass.
type MaskInput struct {
	SessionID string        `json:"session_id"`
	History   []models.Turn `json:"history"`
}

// MaskOutput is the result of a masking pass. EstimatedTokens is the token
// count of the returned history, feeding the compression trigger without a
// second counting activity.
type MaskOutput struct {
	History         []models.Turn `json:"history"`
	MaskedCount     int           `json:"masked_count"`
	TokensSaved     int           `json:"tokens_saved"`
	EstimatedTokens int           `json:"estimated_tokens"`
}

// ExecuteMask runs the observation masking engine over the history.
func (a *BudgetActivities) ExecuteMask(ctx context.Context, input MaskInput) (MaskOutput, error) {
	st, err := a.session(input.SessionID)
	if err != nil {
		return MaskOutput{}, err
	}

	result, err := st.Masker.Mask(ctx, input.History)
	if err != nil {
		return MaskOutput{}, err
	}

	return MaskOutput{
		History:         result.History,
		MaskedCount:     result.MaskedCount,
		TokensSaved:     result.TokensSaved,
		EstimatedTokens: tokens.CountHistory(a.store.est, result.History),
	}, nil
}

// CompressInput is the input for a compression attempt.
type CompressInput struct {
	SessionID     string        `json:"session_id"`
	History       []models.Turn `json:"history"`
	SessionTokens int           `json:"session_tokens"`
	Force         bool          `json:"force"`
	Quiet         bool          `json:"quiet"`
}

// CompressOutput is the result of a compression attempt. A soft failure is
// data, not an activity error: FailureMessage is set and History is the
// input unchanged, so the workflow continues the turn without retries.
type CompressOutput struct {
	History            []models.Turn `json:"history"`
	Compressed         bool          `json:"compressed"`
	FailureMessage     string        `json:"failure_message,omitempty"`
	TokensBefore       int           `json:"tokens_before"`
	TokensAfter        int           `json:"tokens_after"`
	TruncatedResponses int           `json:"truncated_responses"`
}

// ExecuteCompress runs the history compression engine.
func (a *BudgetActivities) ExecuteCompress(ctx context.Context, input CompressInput) (CompressOutput, error) {
	st, err := a.session(input.SessionID)
	if err != nil {
		return CompressOutput{}, err
	}

	sum, err := a.newSummarizer(st.Config.Model)
	if err != nil {
		return CompressOutput{}, models.WrapActivityError(models.NewConfigError(err.Error()))
	}

	comp := compression.NewCompressor(sum, st.Truncator, a.store.est, a.limits, compression.Config{
		TriggerRatio: st.Config.Budget.TriggerRatio,
		TailFraction: st.Config.Budget.TailFraction,
	}, nil)

	result, err := comp.Compress(ctx, input.History, input.SessionTokens, compression.Options{
		Force: input.Force,
		Model: st.Config.Model.Model,
		Quiet: input.Quiet,
	})
	if err != nil {
		var activityErr *models.ActivityError
		if errors.As(err, &activityErr) {
			return CompressOutput{}, models.WrapActivityError(activityErr)
		}
		return CompressOutput{}, err
	}

	out := CompressOutput{
		History:            result.History,
		Compressed:         result.Compressed,
		TokensBefore:       result.TokensBefore,
		TokensAfter:        result.TokensAfter,
		TruncatedResponses: result.TruncatedResponses,
	}
	if result.Failure != nil {
		out.FailureMessage = result.Failure.Error()
	}
	return out, nil
}

// DeclarationsInput requests the current declaration set.
type DeclarationsInput struct {
	SessionID string `json:"session_id"`
}

// DeclarationsOutput carries the declarations to attach to a model request.
type DeclarationsOutput struct {
	Declarations []exposure.Declaration `json:"declarations"`
}

// ExecuteListDeclarations returns the declarations the exposure policy
// currently allows.
func (a *BudgetActivities) ExecuteListDeclarations(ctx context.Context, input DeclarationsInput) (DeclarationsOutput, error) {
	st, err := a.session(input.SessionID)
	if err != nil {
		return DeclarationsOutput{}, err
	}
	return DeclarationsOutput{Declarations: st.Exposure.FunctionDeclarations()}, nil
}

// SearchToolsInput is a search query against hidden tools.
type SearchToolsInput struct {
	SessionID string `json:"session_id"`
	Query     string `json:"query"`
}

// SearchToolsOutput is the structured search result message.
type SearchToolsOutput struct {
	Message string `json:"message"`
}

// ExecuteSearchTools runs the tool search. Never fails on an unmatched
// query; the zero-result message is a normal result.
func (a *BudgetActivities) ExecuteSearchTools(ctx context.Context, input SearchToolsInput) (SearchToolsOutput, error) {
	st, err := a.session(input.SessionID)
	if err != nil {
		return SearchToolsOutput{}, err
	}
	return SearchToolsOutput{Message: st.Exposure.Search(input.Query)}, nil
}

// GetToolInput looks up a tool for execution.
type GetToolInput struct {
	SessionID string `json:"session_id"`
	Name      string `json:"name"`
}

// GetToolOutput reports the entry and whether it exists.
type GetToolOutput struct {
	Entry exposure.Entry `json:"entry"`
	Found bool           `json:"found"`
}

// ExecuteGetTool fetches a tool entry by name, activating it if hidden.
func (a *BudgetActivities) ExecuteGetTool(ctx context.Context, input GetToolInput) (GetToolOutput, error) {
	st, err := a.session(input.SessionID)
	if err != nil {
		return GetToolOutput{}, err
	}
	entry, found := st.Exposure.GetTool(input.Name)
	return GetToolOutput{Entry: entry, Found: found}, nil
}

// CleanupSession tears down a session's worker-side state.
func (a *BudgetActivities) CleanupSession(ctx context.Context, sessionID string) error {
	a.store.Remove(sessionID)
	return nil
}
