package compression

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"github.com/agentfold/contextbudget/internal/masking"
	"github.com/agentfold/contextbudget/internal/models"
	"github.com/agentfold/contextbudget/internal/offload"
	"github.com/agentfold/contextbudget/internal/tokens"
)

const (
	// headLines and tailLines bound the line-shaped truncation.
	headLines = 20
	tailLines = 20

	// minLinesForLineShape is the line count above which content is treated
	// as line-structured rather than wide or raw.
	minLinesForLineShape = 10

	// maxLineWidth caps each line of pretty-printed structured content.
	maxLineWidth = 200
)

// TruncationWriter persists the full original of a truncated response.
// Satisfied by *offload.Store.
type TruncationWriter interface {
	WriteTruncation(toolName string, truncationID int64, content string) (offload.FileInfo, error)
}

// Truncator shrinks individual oversized function responses. The counter is
// per session and monotonic, so repeated compressions never collide on file
// names.
type Truncator struct {
	store   TruncationWriter
	est     tokens.Estimator
	budget  int
	counter atomic.Int64
	log     Logger
}

// NewTruncator constructs a Truncator with the given per-response token
// budget. A nil estimator falls back to the character heuristic.
func NewTruncator(store TruncationWriter, est tokens.Estimator, budget int, log Logger) *Truncator {
	if est == nil {
		est = tokens.Heuristic{}
	}
	if log == nil {
		log = NopLogger()
	}
	return &Truncator{store: store, est: est, budget: budget, log: log}
}

// TruncateHistory walks a region of history and truncates every function
// response over the token budget in place. The caller owns the slice (it is
// expected to be a clone). Returns how many responses were truncated.
func (t *Truncator) TruncateHistory(region []models.Turn) int {
	truncated := 0
	for ti := range region {
		for pi := range region[ti].Parts {
			part := &region[ti].Parts[pi]
			if part.Type != models.PartTypeFunctionResponse || part.FunctionResponse == nil {
				continue
			}
			fr := part.FunctionResponse
			obs := fr.Observation()
			if masking.IsMasked(obs) {
				continue
			}
			if t.est.Count(obs) <= t.budget {
				continue
			}
			if t.truncate(fr, obs) {
				truncated++
			}
		}
	}
	return truncated
}

// truncate persists the full content, then replaces the response with a
// shape-appropriate reduction. Returns false when the offload write fails,
// in which case the original content is kept so nothing becomes
// unrecoverable.
func (t *Truncator) truncate(fr *models.FunctionResponse, obs string) bool {
	id := t.counter.Add(1)
	info, err := t.store.WriteTruncation(fr.Name, id, obs)
	if err != nil {
		t.log.Warn("truncation offload failed, keeping original",
			"tool", fr.Name, "call_id", fr.CallID, "error", err)
		return false
	}

	var reduced string
	switch {
	case strings.Count(obs, "\n") >= minLinesForLineShape:
		reduced = truncateLines(obs, info.Path)
	case gjson.Valid(obs):
		reduced = truncateWide(obs, info.Path)
	default:
		reduced = truncateRaw(obs, info.Path)
	}

	payload, err := json.Marshal(reduced)
	if err != nil {
		return false
	}
	fr.Response = payload
	return true
}

// truncateLines keeps leading and trailing lines of line-structured content.
func truncateLines(obs, path string) string {
	lines := strings.Split(obs, "\n")
	if len(lines) <= headLines+tailLines {
		return obs
	}
	omitted := len(lines) - headLines - tailLines
	var b strings.Builder
	b.WriteString(strings.Join(lines[:headLines], "\n"))
	fmt.Fprintf(&b, "\n[... %d lines omitted ...]\n", omitted)
	b.WriteString(strings.Join(lines[len(lines)-tailLines:], "\n"))
	fmt.Fprintf(&b, "\nFull output saved to %s", path)
	return b.String()
}

// truncateWide pretty-prints structured content so wide lines break apart,
// then bounds each resulting line's width and the overall line count.
func truncateWide(obs, path string) string {
	formatted := string(pretty.Pretty([]byte(obs)))
	lines := strings.Split(strings.TrimRight(formatted, "\n"), "\n")
	for i, line := range lines {
		if len(line) > maxLineWidth {
			lines[i] = line[:maxLineWidth] + "..."
		}
	}
	if len(lines) > headLines+tailLines {
		omitted := len(lines) - headLines - tailLines
		head := lines[:headLines]
		tail := lines[len(lines)-tailLines:]
		lines = append(append(append([]string{}, head...),
			fmt.Sprintf("[... %d lines omitted ...]", omitted)), tail...)
	}
	return strings.Join(lines, "\n") +
		fmt.Sprintf("\nFull output saved to %s", path)
}

// truncateRaw describes content with no exploitable line or width structure
// instead of sampling it.
func truncateRaw(obs, path string) string {
	return fmt.Sprintf("[truncated output: %d characters with no line structure. Full content saved to %s]",
		len(obs), path)
}
