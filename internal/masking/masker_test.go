package masking

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentfold/contextbudget/internal/models"
	"github.com/agentfold/contextbudget/internal/offload"
	"github.com/agentfold/contextbudget/internal/tokens"
)

// obsTurn builds a user turn carrying a single tool observation.
func obsTurn(tool, callID, content string) models.Turn {
	payload, _ := json.Marshal(content)
	return models.Turn{
		Role:  models.RoleUser,
		Parts: []models.Part{models.NewFunctionResponsePart(tool, callID, payload)},
	}
}

func observation(t *testing.T, turn models.Turn) string {
	t.Helper()
	require.NotEmpty(t, turn.Parts)
	require.NotNil(t, turn.Parts[0].FunctionResponse)
	return turn.Parts[0].FunctionResponse.Observation()
}

type failingWriter struct{}

func (failingWriter) WriteObservation(string, string, string) (offload.FileInfo, error) {
	return offload.FileInfo{}, errors.New("disk full")
}

type captureRecorder struct {
	events []Event
}

func (r *captureRecorder) Record(ev Event) { r.events = append(r.events, ev) }

func newTestMasker(t *testing.T, cfg Config, opts ...Option) *Masker {
	t.Helper()
	store := offload.NewStore(t.TempDir(), &offload.Sequence{})
	return NewMasker(store, tokens.Heuristic{}, cfg, opts...)
}

// Three 40-char observations are 10 tokens each. With 15 protected tokens
// the newest stays and the two older ones get masked.
func TestMask_ProtectsRecentObservations(t *testing.T) {
	m := newTestMasker(t, Config{ProtectTokens: 15})
	history := []models.Turn{
		obsTurn("read_file", "c1", strings.Repeat("a", 40)),
		obsTurn("read_file", "c2", strings.Repeat("b", 40)),
		obsTurn("read_file", "c3", strings.Repeat("c", 40)),
	}

	res, err := m.Mask(context.Background(), history)
	require.NoError(t, err)

	assert.Equal(t, 2, res.MaskedCount)
	assert.Positive(t, res.TokensSaved)
	assert.True(t, IsMasked(observation(t, res.History[0])))
	assert.True(t, IsMasked(observation(t, res.History[1])))
	assert.Equal(t, strings.Repeat("c", 40), observation(t, res.History[2]))
}

func TestMask_BelowHysteresisIsNoop(t *testing.T) {
	m := newTestMasker(t, Config{ProtectTokens: 15, HysteresisTokens: 1000})
	history := []models.Turn{
		obsTurn("read_file", "c1", strings.Repeat("a", 40)),
		obsTurn("read_file", "c2", strings.Repeat("b", 40)),
		obsTurn("read_file", "c3", strings.Repeat("c", 40)),
	}

	res, err := m.Mask(context.Background(), history)
	require.NoError(t, err)

	assert.Zero(t, res.MaskedCount)
	assert.Zero(t, res.TokensSaved)
	assert.Nil(t, res.Telemetry)
	assert.Equal(t, history, res.History)
}

func TestMask_Idempotent(t *testing.T) {
	m := newTestMasker(t, Config{ProtectTokens: 15})
	history := []models.Turn{
		obsTurn("shell", "c1", strings.Repeat("a", 40)),
		obsTurn("shell", "c2", strings.Repeat("b", 40)),
		obsTurn("shell", "c3", strings.Repeat("c", 40)),
	}

	first, err := m.Mask(context.Background(), history)
	require.NoError(t, err)
	require.Equal(t, 2, first.MaskedCount)

	second, err := m.Mask(context.Background(), first.History)
	require.NoError(t, err)
	assert.Zero(t, second.MaskedCount)
	assert.Equal(t, first.History, second.History)
}

func TestMask_ProtectLatestTurn(t *testing.T) {
	m := newTestMasker(t, Config{ProtectTokens: 0, ProtectLatestTurn: true})
	history := []models.Turn{
		obsTurn("read_file", "c1", strings.Repeat("a", 400)),
		obsTurn("read_file", "c2", strings.Repeat("b", 400)),
	}

	res, err := m.Mask(context.Background(), history)
	require.NoError(t, err)

	assert.Equal(t, 1, res.MaskedCount)
	assert.True(t, IsMasked(observation(t, res.History[0])))
	assert.Equal(t, strings.Repeat("b", 400), observation(t, res.History[1]))
}

// An offload write failure degrades the part to preview-only guidance
// instead of failing the pass.
func TestMask_WriteFailureKeepsPreviewOnly(t *testing.T) {
	m := NewMasker(failingWriter{}, tokens.Heuristic{}, Config{ProtectTokens: 0})
	history := []models.Turn{
		obsTurn("read_file", "c1", strings.Repeat("a", 2000)),
	}

	res, err := m.Mask(context.Background(), history)
	require.NoError(t, err)
	require.Equal(t, 1, res.MaskedCount)

	obs := observation(t, res.History[0])
	assert.True(t, IsMasked(obs))
	assert.Contains(t, obs, "offload unavailable")
	assert.NotContains(t, obs, "grep_files")
}

func TestMask_GuidanceReferencesOffloadFile(t *testing.T) {
	m := newTestMasker(t, Config{ProtectTokens: 0})
	history := []models.Turn{
		obsTurn("read_file", "c1", strings.Repeat("a", 2000)+"\n"+strings.Repeat("b", 2000)),
	}

	res, err := m.Mask(context.Background(), history)
	require.NoError(t, err)
	require.Equal(t, 1, res.MaskedCount)

	obs := observation(t, res.History[0])
	assert.Contains(t, obs, "file_path: ")
	assert.Contains(t, obs, "line_count: 2")
	assert.Contains(t, obs, "grep_files")
	assert.Contains(t, obs, "chars omitted")
}

func TestMask_InputHistoryUnmodified(t *testing.T) {
	m := newTestMasker(t, Config{ProtectTokens: 0})
	history := []models.Turn{
		obsTurn("read_file", "c1", strings.Repeat("a", 2000)),
	}

	res, err := m.Mask(context.Background(), history)
	require.NoError(t, err)
	require.Equal(t, 1, res.MaskedCount)

	assert.Equal(t, strings.Repeat("a", 2000), observation(t, history[0]))
	assert.NotEqual(t, observation(t, history[0]), observation(t, res.History[0]))
}

func TestMask_TextPartsPassThrough(t *testing.T) {
	m := newTestMasker(t, Config{ProtectTokens: 0})
	history := []models.Turn{
		{Role: models.RoleModel, Parts: []models.Part{models.NewTextPart(strings.Repeat("x", 9000))}},
		obsTurn("read_file", "c1", strings.Repeat("a", 2000)),
	}

	res, err := m.Mask(context.Background(), history)
	require.NoError(t, err)

	assert.Equal(t, 1, res.MaskedCount)
	assert.Equal(t, strings.Repeat("x", 9000), res.History[0].Parts[0].Text)
}

func TestMask_TelemetryRecordedOnlyOnSavings(t *testing.T) {
	rec := &captureRecorder{}
	store := offload.NewStore(t.TempDir(), &offload.Sequence{})

	m := NewMasker(store, tokens.Heuristic{}, Config{ProtectTokens: 0}, WithRecorder(rec))
	history := []models.Turn{
		obsTurn("read_file", "c1", strings.Repeat("a", 4000)),
	}

	res, err := m.Mask(context.Background(), history)
	require.NoError(t, err)
	require.NotNil(t, res.Telemetry)
	require.Len(t, rec.events, 1)
	assert.Equal(t, res.Telemetry.TokensBefore-res.TokensSaved, rec.events[0].TokensAfter)
	assert.Equal(t, 1, rec.events[0].MaskedCount)

	// A pass with nothing to do records nothing.
	quiet := NewMasker(store, tokens.Heuristic{}, Config{ProtectTokens: 1 << 20}, WithRecorder(rec))
	_, err = quiet.Mask(context.Background(), history)
	require.NoError(t, err)
	assert.Len(t, rec.events, 1)
}

func TestMask_CancelledContext(t *testing.T) {
	m := newTestMasker(t, Config{ProtectTokens: 0})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	history := []models.Turn{obsTurn("shell", "c1", "out")}
	_, err := m.Mask(ctx, history)
	assert.ErrorIs(t, err, context.Canceled)
}
