package compression

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agentfold/contextbudget/internal/models"
)

func TestFormatTurns_LabelsRoles(t *testing.T) {
	region := []models.Turn{
		{Role: models.RoleUser, Parts: []models.Part{models.NewTextPart("fix the build")}},
		{Role: models.RoleModel, Parts: []models.Part{models.NewTextPart("on it")}},
	}

	got := formatTurns(region)
	assert.Contains(t, got, "User:\nfix the build")
	assert.Contains(t, got, "Model:\non it")
}

func TestFormatTurns_BoundsToolResults(t *testing.T) {
	payload, _ := json.Marshal(strings.Repeat("z", 2000))
	region := []models.Turn{
		{Role: models.RoleUser, Parts: []models.Part{models.NewFunctionResponsePart("shell", "c1", payload)}},
	}

	got := formatTurns(region)
	assert.Contains(t, got, "[Tool result for shell: ")
	assert.Contains(t, got, "...")
	assert.Less(t, len(got), 600)
}

func TestBuildSnapshotPrompt_WrapsConversation(t *testing.T) {
	got := BuildSnapshotPrompt("User:\nhello\n")
	assert.Contains(t, got, "<conversation>")
	assert.Contains(t, got, "User:\nhello")
	assert.Contains(t, got, "</conversation>")
}
