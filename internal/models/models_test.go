package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
)

func TestObservation_UnquotesBareJSONString(t *testing.T) {
	fr := FunctionResponse{Name: "shell", Response: json.RawMessage(`"line one\nline two"`)}
	assert.Equal(t, "line one\nline two", fr.Observation())
}

func TestObservation_KeepsStructuredPayloadRaw(t *testing.T) {
	fr := FunctionResponse{Name: "api", Response: json.RawMessage(`{"status":"ok"}`)}
	assert.Equal(t, `{"status":"ok"}`, fr.Observation())
}

func TestObservation_EmptyResponse(t *testing.T) {
	fr := FunctionResponse{Name: "shell"}
	assert.Equal(t, "", fr.Observation())
}

func TestCloneHistory_DeepCopiesResponses(t *testing.T) {
	history := []Turn{
		{Role: RoleUser, Parts: []Part{
			NewFunctionResponsePart("shell", "c1", json.RawMessage(`"original"`)),
		}},
	}

	clone := CloneHistory(history)
	clone[0].Parts[0].FunctionResponse.Response = json.RawMessage(`"rewritten"`)

	assert.Equal(t, "original", history[0].Parts[0].FunctionResponse.Observation())
	assert.Equal(t, "rewritten", clone[0].Parts[0].FunctionResponse.Observation())
}

func TestBudgetConfig_ApplyDefaults(t *testing.T) {
	var cfg BudgetConfig
	cfg.ApplyDefaults()

	assert.Equal(t, DefaultProtectTokens, cfg.ProtectTokens)
	assert.Equal(t, DefaultHysteresisTokens, cfg.HysteresisTokens)
	assert.Equal(t, DefaultTriggerRatio, cfg.TriggerRatio)
	assert.Equal(t, DefaultTailFraction, cfg.TailFraction)
	assert.Equal(t, DefaultResponseTokenBudget, cfg.ResponseTokenBudget)
	assert.Equal(t, DefaultExposureCharBudget, cfg.ExposureCharBudget)
}

func TestBudgetConfig_ApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := BudgetConfig{ProtectTokens: 100, TriggerRatio: 0.9}
	cfg.ApplyDefaults()

	assert.Equal(t, 100, cfg.ProtectTokens)
	assert.Equal(t, 0.9, cfg.TriggerRatio)
	assert.Equal(t, DefaultHysteresisTokens, cfg.HysteresisTokens)
}

func TestWrapActivityError_RetryableTypes(t *testing.T) {
	err := WrapActivityError(NewTransientError("connection reset"))

	var appErr *temporal.ApplicationError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "Transient", appErr.Type())
	assert.False(t, appErr.NonRetryable())
}

func TestWrapActivityError_NonRetryableTypes(t *testing.T) {
	err := WrapActivityError(NewConfigError("no token limit"))

	var appErr *temporal.ApplicationError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "Config", appErr.Type())
	assert.True(t, appErr.NonRetryable())
}

func TestErrorType_String(t *testing.T) {
	assert.Equal(t, "Transient", ErrorTypeTransient.String())
	assert.Equal(t, "Config", ErrorTypeConfig.String())
	assert.Equal(t, "APILimit", ErrorTypeAPILimit.String())
	assert.Equal(t, "Summarize", ErrorTypeSummarize.String())
	assert.Equal(t, "Fatal", ErrorTypeFatal.String())
}
