package masking

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	// previewHeadChars and previewTailChars bound the splice preview.
	previewHeadChars = 250
	previewTailChars = 250

	// shellPreviewLines is how many leading output lines a shell observation keeps.
	shellPreviewLines = 3
)

// shellToolNames are the shell-execution capabilities whose observations get
// the line-oriented preview instead of the generic splice.
var shellToolNames = map[string]bool{
	"shell":             true,
	"bash":              true,
	"shell_command":     true,
	"run_shell_command": true,
}

// buildPreview computes the bounded preview embedded in a guidance block.
// Shell observations keep their first lines plus an exit/error marker;
// everything else gets a head+tail splice of the serialized content.
func buildPreview(toolName, serialized string, raw json.RawMessage) string {
	if shellToolNames[toolName] {
		if p, ok := shellPreview(raw); ok {
			return p
		}
	}
	return splicePreview(serialized)
}

// shellPreview extracts the primary output field from a shell observation
// payload. Returns false when the payload has no recognizable shape.
func shellPreview(raw json.RawMessage) (string, bool) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", false
	}

	var output string
	found := false
	for _, field := range []string{"output", "stdout", "content"} {
		var s string
		if v, ok := payload[field]; ok && json.Unmarshal(v, &s) == nil {
			output = s
			found = true
			break
		}
	}
	if !found {
		return "", false
	}

	lines := strings.Split(output, "\n")
	if len(lines) > shellPreviewLines {
		lines = lines[:shellPreviewLines]
	}
	preview := strings.Join(lines, "\n")

	var exitCode float64
	if v, ok := payload["exit_code"]; ok && json.Unmarshal(v, &exitCode) == nil && exitCode != 0 {
		preview += fmt.Sprintf("\n[exit code %d]", int(exitCode))
	}
	var errMsg string
	if v, ok := payload["error"]; ok && json.Unmarshal(v, &errMsg) == nil && errMsg != "" {
		if len(errMsg) > previewHeadChars {
			errMsg = errMsg[:previewHeadChars]
		}
		preview += fmt.Sprintf("\n[error: %s]", errMsg)
	}
	return preview, true
}

// splicePreview returns the content verbatim when it fits, otherwise a
// head+tail splice with an omission marker in between.
func splicePreview(serialized string) string {
	if len(serialized) <= previewHeadChars+previewTailChars {
		return serialized
	}
	omitted := len(serialized) - previewHeadChars - previewTailChars
	return serialized[:previewHeadChars] +
		fmt.Sprintf("\n[... %d chars omitted ...]\n", omitted) +
		serialized[len(serialized)-previewTailChars:]
}
