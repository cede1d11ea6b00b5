package compression

import (
	"fmt"
	"strings"

	"github.com/agentfold/contextbudget/internal/models"
)

// SnapshotSystemPrompt instructs the model to replace a region of history
// with a state snapshot: a compact description of everything needed to keep
// working on the task.
const SnapshotSystemPrompt = `You are a context compressor for an AI coding agent. Your task is to produce a state snapshot: a compact, structured description of the conversation so far that will replace the original messages while preserving everything the agent needs to continue its work.

Produce the snapshot with the following sections. Write "None" for a section with no relevant content.

1. **Goal**
   - The user's overall objective and any stated constraints.

2. **Current State**
   - What has been accomplished so far.
   - The state of any files, builds, or running processes.

3. **Files and Artifacts**
   - Files created, modified, or inspected, with their paths.
   - Key snippets or values the agent will need again.

4. **Decisions**
   - Choices made and the reasoning behind them.
   - Approaches that were tried and rejected.

5. **Errors and Workarounds**
   - Errors encountered and how they were resolved or worked around.

6. **Pending Work**
   - Remaining tasks in order, with enough detail to act on each.

7. **Next Step**
   - The immediate next action when the agent resumes.

Guidelines:
- Be concise but complete. Include specific names, paths, and error text.
- Preserve exact user wording where it conveys intent.
- Do not invent information that was not in the conversation.`

// BuildSnapshotPrompt renders the user message carrying the region to
// compress.
func BuildSnapshotPrompt(conversationText string) string {
	return `Produce a state snapshot of the following conversation per your instructions.

<conversation>
` + conversationText + `
</conversation>

The snapshot replaces these messages entirely. Include everything needed to continue the task with no other context.`
}

// formatTurns renders a history region as readable text for the snapshot
// request. Tool results are bounded to 500 chars each.
func formatTurns(region []models.Turn) string {
	var b strings.Builder
	for _, turn := range region {
		label := "User"
		if turn.Role == models.RoleModel {
			label = "Model"
		}
		for _, part := range turn.Parts {
			switch part.Type {
			case models.PartTypeText:
				if part.Text != "" {
					fmt.Fprintf(&b, "%s:\n%s\n\n", label, part.Text)
				}
			case models.PartTypeFunctionResponse:
				if part.FunctionResponse == nil {
					continue
				}
				obs := part.FunctionResponse.Observation()
				if len(obs) > 500 {
					obs = obs[:497] + "..."
				}
				fmt.Fprintf(&b, "%s:\n[Tool result for %s: %s]\n\n",
					label, part.FunctionResponse.Name, obs)
			case models.PartTypeInlineData:
				fmt.Fprintf(&b, "%s:\n[Inline data, %s, %d bytes]\n\n",
					label, part.MIMEType, len(part.Data))
			}
		}
	}
	return b.String()
}
