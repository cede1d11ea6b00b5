package tokens

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agentfold/contextbudget/internal/models"
)

func TestHeuristic_Count(t *testing.T) {
	est := Heuristic{}

	assert.Equal(t, 0, est.Count(""))
	assert.Equal(t, 1, est.Count("a"))
	assert.Equal(t, 1, est.Count("abcd"))
	assert.Equal(t, 2, est.Count("abcde"))
	assert.Equal(t, 1000, est.Count(strings.Repeat("x", 4000)))
}

func TestCountPart_FunctionResponseIncludesOverhead(t *testing.T) {
	est := Heuristic{}
	payload, _ := json.Marshal(strings.Repeat("y", 400))
	part := models.NewFunctionResponsePart("shell", "call-1", payload)

	// Observation 400 chars → 100 tokens, name "shell" → 2, plus 10 overhead.
	assert.Equal(t, 112, CountPart(est, part))
}

func TestCountPart_InlineDataFlatCharge(t *testing.T) {
	part := models.Part{Type: models.PartTypeInlineData, MIMEType: "image/png", Data: []byte{1, 2, 3}}
	assert.Equal(t, 200, CountPart(Heuristic{}, part))
}

func TestCountHistory_SumsTurnsWithOverhead(t *testing.T) {
	est := Heuristic{}
	history := []models.Turn{
		{Role: models.RoleUser, Parts: []models.Part{models.NewTextPart("abcd")}},
		{Role: models.RoleModel, Parts: []models.Part{models.NewTextPart("abcdefgh")}},
	}

	// (4 + 1) + (4 + 2)
	assert.Equal(t, 11, CountHistory(est, history))
}
