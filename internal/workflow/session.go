// session.go implements SessionWorkflow, the long-lived per-session
// orchestrator. The caller's agent loop appends turns via the user_input
// Update; each append runs the budget pipeline and returns the transformed
// history's stats plus the declaration set for the next model request.
package workflow

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/agentfold/contextbudget/internal/activities"
	"github.com/agentfold/contextbudget/internal/models"
)

// maxTurnsPerRun caps pipeline turns per workflow run before ContinueAsNew
// keeps Temporal event history bounded.
const maxTurnsPerRun = 50

// initializeTimeout bounds session initialization including MCP discovery.
const initializeTimeout = 60 * time.Second

// SessionWorkflow is the session entry point.
func SessionWorkflow(ctx workflow.Context, input WorkflowInput) (SessionResult, error) {
	state := SessionState{
		SessionID:   input.SessionID,
		Config:      input.Config,
		NativeTools: input.NativeTools,
		McpServers:  input.McpServers,
	}
	state.Config.Budget.ApplyDefaults()
	return runSessionLoop(ctx, &state)
}

// SessionWorkflowContinued is the ContinueAsNew re-entry point.
func SessionWorkflowContinued(ctx workflow.Context, state SessionState) (SessionResult, error) {
	return runSessionLoop(ctx, &state)
}

// runSessionLoop initializes worker-side session state, registers handlers,
// and loops until shutdown or the ContinueAsNew cap.
func runSessionLoop(ctx workflow.Context, state *SessionState) (SessionResult, error) {
	logger := workflow.GetLogger(ctx)

	// Worker-side state (exposure activations, truncation counter, MCP
	// sessions) does not survive worker restarts, so initialization runs at
	// the top of every workflow run, including after ContinueAsNew.
	initCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: initializeTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
			NonRetryableErrorTypes: []string{
				models.ErrorTypeConfig.String(),
				models.ErrorTypeFatal.String(),
			},
		},
	})
	var initOut activities.InitializeSessionOutput
	if err := workflow.ExecuteActivity(initCtx, "InitializeSession", activities.InitializeSessionInput{
		SessionID:   state.SessionID,
		Config:      state.Config,
		NativeTools: state.NativeTools,
		McpServers:  state.McpServers,
	}).Get(ctx, &initOut); err != nil {
		return SessionResult{}, fmt.Errorf("initialize session %s: %w", state.SessionID, err)
	}
	for server, msg := range initOut.Failures {
		logger.Warn("MCP server failed during discovery", "server", server, "error", msg)
	}
	state.Stats.ToolCount = initOut.ToolCount

	if err := registerHandlers(ctx, state); err != nil {
		return SessionResult{}, err
	}

	for {
		if err := workflow.Await(ctx, func() bool {
			return state.shutdown || state.TurnsSinceContinue >= maxTurnsPerRun
		}); err != nil {
			return SessionResult{}, err
		}

		// Let in-flight updates drain before ending this run.
		if err := workflow.Await(ctx, func() bool {
			return workflow.AllHandlersFinished(ctx)
		}); err != nil {
			return SessionResult{}, err
		}

		if state.shutdown {
			cleanupSession(ctx, state.SessionID)
			return SessionResult{
				SessionID:        state.SessionID,
				TurnCount:        state.Stats.TurnCount,
				CompressionCount: state.Stats.CompressionCount,
				EndReason:        "shutdown",
			}, nil
		}

		logger.Info("turn cap reached, continuing as new",
			"turns", state.TurnsSinceContinue)
		state.TurnsSinceContinue = 0
		return SessionResult{}, workflow.NewContinueAsNewError(ctx, SessionWorkflowContinued, *state)
	}
}

// registerHandlers wires the query and update handlers onto the workflow.
func registerHandlers(ctx workflow.Context, state *SessionState) error {
	if err := workflow.SetQueryHandler(ctx, QueryGetHistory, func() ([]models.Turn, error) {
		if state.History == nil {
			return []models.Turn{}, nil
		}
		return state.History, nil
	}); err != nil {
		return fmt.Errorf("register %s query: %w", QueryGetHistory, err)
	}

	if err := workflow.SetQueryHandler(ctx, QueryGetBudgetStats, func() (BudgetStats, error) {
		return state.Stats, nil
	}); err != nil {
		return fmt.Errorf("register %s query: %w", QueryGetBudgetStats, err)
	}

	if err := workflow.SetUpdateHandlerWithOptions(
		ctx,
		UpdateUserInput,
		func(ctx workflow.Context, req AppendTurnRequest) (AppendTurnResponse, error) {
			return handleAppendTurn(ctx, state, req)
		},
		workflow.UpdateHandlerOptions{
			Validator: func(ctx workflow.Context, req AppendTurnRequest) error {
				if len(req.Turn.Parts) == 0 {
					return temporal.NewApplicationError("turn must have at least one part", "InvalidRequest")
				}
				return nil
			},
		},
	); err != nil {
		return fmt.Errorf("register %s update: %w", UpdateUserInput, err)
	}

	if err := workflow.SetUpdateHandler(
		ctx,
		UpdateCompact,
		func(ctx workflow.Context, req CompactRequest) (CompactResponse, error) {
			return handleCompact(ctx, state)
		},
	); err != nil {
		return fmt.Errorf("register %s update: %w", UpdateCompact, err)
	}

	if err := workflow.SetUpdateHandler(
		ctx,
		UpdateShutdown,
		func(ctx workflow.Context, req ShutdownRequest) (ShutdownResponse, error) {
			state.shutdown = true
			return ShutdownResponse{Acknowledged: true}, nil
		},
	); err != nil {
		return fmt.Errorf("register %s update: %w", UpdateShutdown, err)
	}

	return nil
}

// handleAppendTurn appends the turn and runs the budget pipeline over the
// grown history.
func handleAppendTurn(ctx workflow.Context, state *SessionState, req AppendTurnRequest) (AppendTurnResponse, error) {
	state.History = append(state.History, req.Turn)
	state.TurnsSinceContinue++

	res, err := runBudgetPipeline(ctx, state, false, false)
	if err != nil {
		return AppendTurnResponse{}, err
	}
	if res.failure != "" {
		workflow.GetLogger(ctx).Warn("compression failed soft this turn", "error", res.failure)
	}

	return AppendTurnResponse{
		TurnCount:       len(state.History),
		EstimatedTokens: res.estimated,
		MaskedCount:     res.maskedCount,
		TokensSaved:     res.tokensSaved,
		Compressed:      res.compressed,
		Declarations:    res.declarations,
	}, nil
}

// handleCompact forces a compression pass outside the normal trigger.
func handleCompact(ctx workflow.Context, state *SessionState) (CompactResponse, error) {
	res, err := runBudgetPipeline(ctx, state, true, false)
	if err != nil {
		return CompactResponse{}, err
	}
	return CompactResponse{
		Compressed:     res.compressed,
		FailureMessage: res.failure,
		TokensBefore:   res.tokensBefore,
		TokensAfter:    res.tokensAfter,
	}, nil
}

// cleanupSession releases worker-side session state, best-effort.
func cleanupSession(ctx workflow.Context, sessionID string) {
	actCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Second,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})
	if err := workflow.ExecuteActivity(actCtx, "CleanupSession", sessionID).Get(ctx, nil); err != nil {
		workflow.GetLogger(ctx).Warn("session cleanup failed", "error", err)
	}
}
