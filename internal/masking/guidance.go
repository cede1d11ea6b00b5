package masking

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/agentfold/contextbudget/internal/offload"
)

// GuidanceMarker is the stable, greppable marker that distinguishes a masked
// observation from live tool output. Its presence makes a later pass skip
// the part, so masking is idempotent.
const GuidanceMarker = "[MASKED_OBSERVATION]"

// IsMasked reports whether an observation already carries the guidance marker.
func IsMasked(observation string) bool {
	return strings.Contains(observation, GuidanceMarker)
}

// buildGuidance renders the fixed-shape block that replaces a pruned
// observation. file is nil when the offload write failed; the block then
// carries the preview alone so the part still shrinks instead of blocking
// the pass.
func buildGuidance(toolName, preview string, estimatedTokens int, file *offload.FileInfo) string {
	var b strings.Builder
	b.WriteString(GuidanceMarker)
	b.WriteString("\n")
	fmt.Fprintf(&b, "tool_name: %s\n", toolName)
	fmt.Fprintf(&b, "estimated_total_tokens: %s\n", humanize.Comma(int64(estimatedTokens)))

	if file != nil {
		fmt.Fprintf(&b, "file_path: %s\n", file.Path)
		fmt.Fprintf(&b, "file_size: %.2f MB\n", float64(file.SizeBytes)/(1024*1024))
		fmt.Fprintf(&b, "line_count: %s\n", humanize.Comma(int64(file.LineCount)))
	} else {
		b.WriteString("file_path: (offload unavailable; preview only)\n")
	}

	b.WriteString("preview:\n")
	b.WriteString(preview)
	if !strings.HasSuffix(preview, "\n") {
		b.WriteString("\n")
	}

	if file != nil {
		b.WriteString("The full output was saved to the file above. " +
			"Search it with grep_files or open specific ranges with read_file.")
	} else {
		b.WriteString("The full output could not be saved; only the preview above remains.")
	}
	return b.String()
}
