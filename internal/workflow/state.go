// Package workflow contains the Temporal workflow definitions.
//
// state.go holds handler names and payload types, separated from workflow
// logic.
package workflow

import (
	"github.com/agentfold/contextbudget/internal/exposure"
	"github.com/agentfold/contextbudget/internal/mcp"
	"github.com/agentfold/contextbudget/internal/models"
)

// Handler name constants for Temporal query and update handlers.
const (
	// QueryGetHistory returns the current conversation history.
	QueryGetHistory = "get_history"

	// QueryGetBudgetStats returns cumulative budget pipeline statistics.
	QueryGetBudgetStats = "get_budget_stats"

	// UpdateUserInput appends a turn and runs the budget pipeline over the
	// resulting history.
	UpdateUserInput = "user_input"

	// UpdateCompact forces a compression pass regardless of the trigger.
	UpdateCompact = "compact"

	// UpdateShutdown ends the session.
	UpdateShutdown = "shutdown"
)

// WorkflowInput starts a session.
type WorkflowInput struct {
	SessionID   string                      `json:"session_id"`
	Config      models.SessionConfiguration `json:"config"`
	NativeTools []exposure.Entry            `json:"native_tools,omitempty"`
	McpServers  map[string]mcp.ServerConfig `json:"mcp_servers,omitempty"`
}

// AppendTurnRequest is the payload for the user_input Update. The turn may
// carry text and function-response parts produced by the caller's agent
// loop.
type AppendTurnRequest struct {
	Turn models.Turn `json:"turn"`
}

// AppendTurnResponse reports the pipeline outcome for the appended turn,
// including the declaration set to attach to the next model request.
type AppendTurnResponse struct {
	TurnCount       int                    `json:"turn_count"`
	EstimatedTokens int                    `json:"estimated_tokens"`
	MaskedCount     int                    `json:"masked_count"`
	TokensSaved     int                    `json:"tokens_saved"`
	Compressed      bool                   `json:"compressed"`
	Declarations    []exposure.Declaration `json:"declarations"`
}

// CompactRequest is the payload for the compact Update.
type CompactRequest struct{}

// CompactResponse is returned by the compact Update.
type CompactResponse struct {
	Compressed     bool   `json:"compressed"`
	FailureMessage string `json:"failure_message,omitempty"`
	TokensBefore   int    `json:"tokens_before"`
	TokensAfter    int    `json:"tokens_after"`
}

// ShutdownRequest is the payload for the shutdown Update.
type ShutdownRequest struct {
	Reason string `json:"reason,omitempty"`
}

// ShutdownResponse is returned by the shutdown Update.
type ShutdownResponse struct {
	Acknowledged bool `json:"acknowledged"`
}

// BudgetStats is the response from the get_budget_stats query.
type BudgetStats struct {
	TurnCount          int `json:"turn_count"`
	EstimatedTokens    int `json:"estimated_tokens"`
	TotalMasked        int `json:"total_masked"`
	TotalTokensSaved   int `json:"total_tokens_saved"`
	CompressionCount   int `json:"compression_count"`
	TruncatedResponses int `json:"truncated_responses"`
	ToolCount          int `json:"tool_count"`
}

// SessionState is the workflow state, passed through ContinueAsNew.
type SessionState struct {
	SessionID   string                      `json:"session_id"`
	Config      models.SessionConfiguration `json:"config"`
	NativeTools []exposure.Entry            `json:"native_tools,omitempty"`
	McpServers  map[string]mcp.ServerConfig `json:"mcp_servers,omitempty"`

	History []models.Turn `json:"history"`
	Stats   BudgetStats   `json:"stats"`

	// TurnsSinceContinue counts pipeline turns in this workflow run; the
	// loop triggers ContinueAsNew once it reaches the cap so Temporal event
	// history stays bounded.
	TurnsSinceContinue int `json:"turns_since_continue"`

	shutdown bool `json:"-"`
}

// SessionResult is the final result of the workflow.
type SessionResult struct {
	SessionID        string `json:"session_id"`
	TurnCount        int    `json:"turn_count"`
	CompressionCount int    `json:"compression_count"`
	EndReason        string `json:"end_reason,omitempty"`
}
