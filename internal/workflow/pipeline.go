// pipeline.go runs the budget pipeline activities in their fixed order:
// masking, then compression, then declaration listing. The three stages are
// sequential because each consumes the previous stage's history.
package workflow

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/agentfold/contextbudget/internal/activities"
	"github.com/agentfold/contextbudget/internal/exposure"
	"github.com/agentfold/contextbudget/internal/models"
)

// withBudgetActivityOptions configures the activity context for budget
// pipeline calls. Config, Fatal, and Summarize errors are never retried:
// retrying cannot supply a missing token limit, and compression already
// fails soft inside the activity.
func withBudgetActivityOptions(ctx workflow.Context) workflow.Context {
	return workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    3,
			NonRetryableErrorTypes: []string{
				models.ErrorTypeConfig.String(),
				models.ErrorTypeFatal.String(),
				models.ErrorTypeSummarize.String(),
			},
		},
	})
}

// pipelineResult is the outcome of one budget pipeline run.
type pipelineResult struct {
	maskedCount  int
	tokensSaved  int
	compressed   bool
	failure      string
	tokensBefore int
	tokensAfter  int
	truncated    int
	estimated    int
	declarations []exposure.Declaration
}

// runBudgetPipeline masks, compresses, and lists declarations over the
// state's history, updating the state in place. force bypasses the
// compression trigger ratio.
func runBudgetPipeline(ctx workflow.Context, state *SessionState, force, quiet bool) (pipelineResult, error) {
	actCtx := withBudgetActivityOptions(ctx)
	var res pipelineResult

	var maskOut activities.MaskOutput
	if err := workflow.ExecuteActivity(actCtx, "ExecuteMask", activities.MaskInput{
		SessionID: state.SessionID,
		History:   state.History,
	}).Get(ctx, &maskOut); err != nil {
		return res, err
	}
	state.History = maskOut.History
	res.maskedCount = maskOut.MaskedCount
	res.tokensSaved = maskOut.TokensSaved
	res.estimated = maskOut.EstimatedTokens

	var compressOut activities.CompressOutput
	if err := workflow.ExecuteActivity(actCtx, "ExecuteCompress", activities.CompressInput{
		SessionID:     state.SessionID,
		History:       state.History,
		SessionTokens: maskOut.EstimatedTokens,
		Force:         force,
		Quiet:         quiet,
	}).Get(ctx, &compressOut); err != nil {
		return res, err
	}
	state.History = compressOut.History
	res.compressed = compressOut.Compressed
	res.failure = compressOut.FailureMessage
	res.tokensBefore = compressOut.TokensBefore
	res.tokensAfter = compressOut.TokensAfter
	res.truncated = compressOut.TruncatedResponses
	if compressOut.Compressed {
		res.estimated = compressOut.TokensAfter
	}

	var declOut activities.DeclarationsOutput
	if err := workflow.ExecuteActivity(actCtx, "ExecuteListDeclarations", activities.DeclarationsInput{
		SessionID: state.SessionID,
	}).Get(ctx, &declOut); err != nil {
		return res, err
	}
	res.declarations = declOut.Declarations

	applyPipelineStats(state, res)
	return res, nil
}

// applyPipelineStats folds a pipeline result into the cumulative stats.
func applyPipelineStats(state *SessionState, res pipelineResult) {
	state.Stats.TurnCount = len(state.History)
	state.Stats.EstimatedTokens = res.estimated
	state.Stats.TotalMasked += res.maskedCount
	state.Stats.TotalTokensSaved += res.tokensSaved
	state.Stats.TruncatedResponses += res.truncated
	state.Stats.ToolCount = len(res.declarations)
	if res.compressed {
		state.Stats.CompressionCount++
	}
}
