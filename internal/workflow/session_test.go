package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.temporal.io/sdk/testsuite"

	"github.com/agentfold/contextbudget/internal/activities"
	"github.com/agentfold/contextbudget/internal/exposure"
	"github.com/agentfold/contextbudget/internal/models"
)

// Stub activity functions for the test environment. These are never called
// directly (OnActivity mocks override them) but they must be registered so
// the test env recognises the activity names.
func InitializeSession(_ context.Context, _ activities.InitializeSessionInput) (activities.InitializeSessionOutput, error) {
	panic("stub: should be mocked")
}

func ExecuteMask(_ context.Context, _ activities.MaskInput) (activities.MaskOutput, error) {
	panic("stub: should be mocked")
}

func ExecuteCompress(_ context.Context, _ activities.CompressInput) (activities.CompressOutput, error) {
	panic("stub: should be mocked")
}

func ExecuteListDeclarations(_ context.Context, _ activities.DeclarationsInput) (activities.DeclarationsOutput, error) {
	panic("stub: should be mocked")
}

func CleanupSession(_ context.Context, _ string) error {
	panic("stub: should be mocked")
}

// SessionWorkflowTestSuite runs workflow tests with the Temporal test environment.
type SessionWorkflowTestSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite
	env *testsuite.TestWorkflowEnvironment
}

func TestSessionWorkflowSuite(t *testing.T) {
	suite.Run(t, new(SessionWorkflowTestSuite))
}

func (s *SessionWorkflowTestSuite) SetupTest() {
	s.env = s.NewTestWorkflowEnvironment()
	s.env.RegisterActivity(InitializeSession)
	s.env.RegisterActivity(ExecuteMask)
	s.env.RegisterActivity(ExecuteCompress)
	s.env.RegisterActivity(ExecuteListDeclarations)
	s.env.RegisterActivity(CleanupSession)
}

func (s *SessionWorkflowTestSuite) AfterTest(suiteName, testName string) {
	s.env.AssertExpectations(s.T())
}

// testInput returns a standard WorkflowInput for testing.
func testInput() WorkflowInput {
	return WorkflowInput{
		SessionID: "test-session-1",
		Config:    models.DefaultSessionConfiguration(),
	}
}

func userTurn(text string) models.Turn {
	return models.Turn{Role: models.RoleUser, Parts: []models.Part{models.NewTextPart(text)}}
}

// noopCallback returns a TestUpdateCallback that does nothing on all events.
func noopCallback() *testsuite.TestUpdateCallback {
	return &testsuite.TestUpdateCallback{
		OnAccept:   func() {},
		OnReject:   func(err error) {},
		OnComplete: func(interface{}, error) {},
	}
}

// mockDefaultPipeline installs pass-through mask and compress mocks plus a
// fixed declaration set.
func (s *SessionWorkflowTestSuite) mockDefaultPipeline() {
	s.env.OnActivity("ExecuteMask", mock.Anything, mock.Anything).Return(
		func(_ context.Context, in activities.MaskInput) (activities.MaskOutput, error) {
			return activities.MaskOutput{History: in.History, EstimatedTokens: 10 * len(in.History)}, nil
		})
	s.env.OnActivity("ExecuteCompress", mock.Anything, mock.Anything).Return(
		func(_ context.Context, in activities.CompressInput) (activities.CompressOutput, error) {
			return activities.CompressOutput{History: in.History}, nil
		})
	s.env.OnActivity("ExecuteListDeclarations", mock.Anything, mock.Anything).Return(
		activities.DeclarationsOutput{Declarations: []exposure.Declaration{
			{Name: "shell"}, {Name: "read_file"},
		}}, nil)
}

func (s *SessionWorkflowTestSuite) mockInitAndCleanup() {
	s.env.OnActivity("InitializeSession", mock.Anything, mock.Anything).Return(
		activities.InitializeSessionOutput{ToolCount: 2}, nil)
	s.env.OnActivity("CleanupSession", mock.Anything, mock.Anything).Return(nil)
}

// sendShutdown sends a shutdown Update via RegisterDelayedCallback.
func (s *SessionWorkflowTestSuite) sendShutdown(delay time.Duration) {
	s.env.RegisterDelayedCallback(func() {
		s.env.UpdateWorkflow(UpdateShutdown, "shutdown-1", noopCallback(), ShutdownRequest{Reason: "test"})
	}, delay)
}

// TestSession_AppendTurnRunsPipeline verifies the user_input Update appends
// the turn, runs the pipeline, and reports the declaration set.
func (s *SessionWorkflowTestSuite) TestSession_AppendTurnRunsPipeline() {
	s.mockInitAndCleanup()
	s.mockDefaultPipeline()

	var resp AppendTurnResponse
	s.env.RegisterDelayedCallback(func() {
		s.env.UpdateWorkflow(UpdateUserInput, "turn-1", &testsuite.TestUpdateCallback{
			OnAccept: func() {},
			OnReject: func(err error) { s.T().Errorf("update rejected: %v", err) },
			OnComplete: func(result interface{}, err error) {
				require.NoError(s.T(), err)
				r, ok := result.(AppendTurnResponse)
				require.True(s.T(), ok)
				resp = r
			},
		}, AppendTurnRequest{Turn: userTurn("hello")})
	}, time.Second)
	s.sendShutdown(time.Second * 2)

	s.env.ExecuteWorkflow(SessionWorkflow, testInput())

	require.True(s.T(), s.env.IsWorkflowCompleted())
	assert.Equal(s.T(), 1, resp.TurnCount)
	assert.Equal(s.T(), 10, resp.EstimatedTokens)
	assert.False(s.T(), resp.Compressed)
	require.Len(s.T(), resp.Declarations, 2)
	assert.Equal(s.T(), "shell", resp.Declarations[0].Name)

	var result SessionResult
	require.NoError(s.T(), s.env.GetWorkflowResult(&result))
	assert.Equal(s.T(), "test-session-1", result.SessionID)
	assert.Equal(s.T(), "shutdown", result.EndReason)
	assert.Equal(s.T(), 1, result.TurnCount)
}

// TestSession_QueryHistoryReflectsAppendedTurns verifies the history query
// after a turn.
func (s *SessionWorkflowTestSuite) TestSession_QueryHistoryReflectsAppendedTurns() {
	s.mockInitAndCleanup()
	s.mockDefaultPipeline()

	s.env.RegisterDelayedCallback(func() {
		s.env.UpdateWorkflow(UpdateUserInput, "turn-1", noopCallback(), AppendTurnRequest{Turn: userTurn("hello")})
	}, time.Second)

	s.env.RegisterDelayedCallback(func() {
		result, err := s.env.QueryWorkflow(QueryGetHistory)
		require.NoError(s.T(), err)

		var history []models.Turn
		require.NoError(s.T(), result.Get(&history))
		require.Len(s.T(), history, 1)
		assert.Equal(s.T(), "hello", history[0].Parts[0].Text)
	}, time.Second*2)

	s.sendShutdown(time.Second * 3)

	s.env.ExecuteWorkflow(SessionWorkflow, testInput())
	require.True(s.T(), s.env.IsWorkflowCompleted())
}

// TestSession_CompressionFailsSoft verifies a summarization failure leaves
// history unchanged and the turn still completes.
func (s *SessionWorkflowTestSuite) TestSession_CompressionFailsSoft() {
	s.mockInitAndCleanup()
	s.env.OnActivity("ExecuteMask", mock.Anything, mock.Anything).Return(
		func(_ context.Context, in activities.MaskInput) (activities.MaskOutput, error) {
			return activities.MaskOutput{History: in.History, EstimatedTokens: 999}, nil
		})
	s.env.OnActivity("ExecuteCompress", mock.Anything, mock.Anything).Return(
		func(_ context.Context, in activities.CompressInput) (activities.CompressOutput, error) {
			return activities.CompressOutput{History: in.History, FailureMessage: "model unavailable"}, nil
		})
	s.env.OnActivity("ExecuteListDeclarations", mock.Anything, mock.Anything).Return(
		activities.DeclarationsOutput{}, nil)

	var resp AppendTurnResponse
	s.env.RegisterDelayedCallback(func() {
		s.env.UpdateWorkflow(UpdateUserInput, "turn-1", &testsuite.TestUpdateCallback{
			OnAccept: func() {},
			OnReject: func(err error) { s.T().Errorf("update rejected: %v", err) },
			OnComplete: func(result interface{}, err error) {
				require.NoError(s.T(), err)
				resp = result.(AppendTurnResponse)
			},
		}, AppendTurnRequest{Turn: userTurn("hello")})
	}, time.Second)

	// The queried history is identical to the pre-compression history.
	s.env.RegisterDelayedCallback(func() {
		result, err := s.env.QueryWorkflow(QueryGetHistory)
		require.NoError(s.T(), err)

		var history []models.Turn
		require.NoError(s.T(), result.Get(&history))
		require.Len(s.T(), history, 1)
		assert.Equal(s.T(), "hello", history[0].Parts[0].Text)
	}, time.Second*2)

	s.sendShutdown(time.Second * 3)

	s.env.ExecuteWorkflow(SessionWorkflow, testInput())

	require.True(s.T(), s.env.IsWorkflowCompleted())
	assert.False(s.T(), resp.Compressed)
	assert.Equal(s.T(), 1, resp.TurnCount)
}

// TestSession_CompactForcesCompression verifies the compact Update bypasses
// the trigger and folds the result into the stats.
func (s *SessionWorkflowTestSuite) TestSession_CompactForcesCompression() {
	s.mockInitAndCleanup()
	s.env.OnActivity("ExecuteMask", mock.Anything, mock.Anything).Return(
		func(_ context.Context, in activities.MaskInput) (activities.MaskOutput, error) {
			return activities.MaskOutput{History: in.History, EstimatedTokens: 500}, nil
		})
	s.env.OnActivity("ExecuteCompress", mock.Anything, mock.Anything).Return(
		func(_ context.Context, in activities.CompressInput) (activities.CompressOutput, error) {
			require.True(s.T(), in.Force)
			snapshot := models.Turn{Role: models.RoleModel, Parts: []models.Part{models.NewTextPart("snapshot")}}
			return activities.CompressOutput{
				History:      []models.Turn{snapshot},
				Compressed:   true,
				TokensBefore: 500,
				TokensAfter:  40,
			}, nil
		})
	s.env.OnActivity("ExecuteListDeclarations", mock.Anything, mock.Anything).Return(
		activities.DeclarationsOutput{}, nil)

	var resp CompactResponse
	s.env.RegisterDelayedCallback(func() {
		s.env.UpdateWorkflow(UpdateCompact, "compact-1", &testsuite.TestUpdateCallback{
			OnAccept: func() {},
			OnReject: func(err error) { s.T().Errorf("compact rejected: %v", err) },
			OnComplete: func(result interface{}, err error) {
				require.NoError(s.T(), err)
				resp = result.(CompactResponse)
			},
		}, CompactRequest{})
	}, time.Second)

	s.env.RegisterDelayedCallback(func() {
		result, err := s.env.QueryWorkflow(QueryGetBudgetStats)
		require.NoError(s.T(), err)

		var stats BudgetStats
		require.NoError(s.T(), result.Get(&stats))
		assert.Equal(s.T(), 1, stats.CompressionCount)
		assert.Equal(s.T(), 40, stats.EstimatedTokens)
	}, time.Second*2)

	s.sendShutdown(time.Second * 3)

	s.env.ExecuteWorkflow(SessionWorkflow, testInput())

	require.True(s.T(), s.env.IsWorkflowCompleted())
	assert.True(s.T(), resp.Compressed)
	assert.Equal(s.T(), 500, resp.TokensBefore)
	assert.Equal(s.T(), 40, resp.TokensAfter)
}

// TestSession_ValidatorRejectsEmptyTurn verifies the user_input validator
// rejects a turn with no parts before any pipeline activity runs.
func (s *SessionWorkflowTestSuite) TestSession_ValidatorRejectsEmptyTurn() {
	s.mockInitAndCleanup()

	var rejectErr error
	s.env.RegisterDelayedCallback(func() {
		s.env.UpdateWorkflow(UpdateUserInput, "turn-1", &testsuite.TestUpdateCallback{
			OnAccept:   func() { s.T().Error("empty turn should be rejected") },
			OnReject:   func(err error) { rejectErr = err },
			OnComplete: func(interface{}, error) {},
		}, AppendTurnRequest{Turn: models.Turn{Role: models.RoleUser}})
	}, time.Second)
	s.sendShutdown(time.Second * 2)

	s.env.ExecuteWorkflow(SessionWorkflow, testInput())

	require.True(s.T(), s.env.IsWorkflowCompleted())
	require.Error(s.T(), rejectErr)
	assert.Contains(s.T(), rejectErr.Error(), "at least one part")
}

// TestSession_ContinuedEntryPointPreservesState verifies the ContinueAsNew
// entry point resumes with carried-over history and stats.
func (s *SessionWorkflowTestSuite) TestSession_ContinuedEntryPointPreservesState() {
	s.mockInitAndCleanup()
	s.mockDefaultPipeline()

	state := SessionState{
		SessionID: "test-session-1",
		Config:    models.DefaultSessionConfiguration(),
		History:   []models.Turn{userTurn("carried over")},
		Stats:     BudgetStats{TurnCount: 1, CompressionCount: 2},
	}

	s.env.RegisterDelayedCallback(func() {
		s.env.UpdateWorkflow(UpdateUserInput, "turn-2", noopCallback(), AppendTurnRequest{Turn: userTurn("next")})
	}, time.Second)
	s.sendShutdown(time.Second * 2)

	s.env.ExecuteWorkflow(SessionWorkflowContinued, state)

	require.True(s.T(), s.env.IsWorkflowCompleted())
	var result SessionResult
	require.NoError(s.T(), s.env.GetWorkflowResult(&result))
	assert.Equal(s.T(), 2, result.TurnCount)
	assert.Equal(s.T(), 2, result.CompressionCount)
}
