package masking

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplicePreview_ShortContentVerbatim(t *testing.T) {
	assert.Equal(t, "small output", splicePreview("small output"))
}

func TestSplicePreview_LongContentSpliced(t *testing.T) {
	content := strings.Repeat("a", 300) + strings.Repeat("b", 300)
	got := splicePreview(content)

	assert.True(t, strings.HasPrefix(got, strings.Repeat("a", 250)))
	assert.True(t, strings.HasSuffix(got, strings.Repeat("b", 250)))
	assert.Contains(t, got, "[... 100 chars omitted ...]")
}

func TestBuildPreview_ShellKeepsLeadingLines(t *testing.T) {
	raw := json.RawMessage(`{"output":"one\ntwo\nthree\nfour\nfive","exit_code":0}`)
	got := buildPreview("shell", "serialized", raw)

	assert.Equal(t, "one\ntwo\nthree", got)
}

func TestBuildPreview_ShellReportsFailure(t *testing.T) {
	raw := json.RawMessage(`{"stdout":"partial","exit_code":2,"error":"command timed out"}`)
	got := buildPreview("bash", "serialized", raw)

	assert.Contains(t, got, "partial")
	assert.Contains(t, got, "[exit code 2]")
	assert.Contains(t, got, "[error: command timed out]")
}

// A shell payload without a recognizable output field falls back to the
// generic splice of the serialized content.
func TestBuildPreview_ShellUnrecognizedShapeFallsBack(t *testing.T) {
	raw := json.RawMessage(`{"result": 42}`)
	got := buildPreview("shell", "serialized form", raw)

	assert.Equal(t, "serialized form", got)
}

func TestBuildPreview_NonShellUsesSplice(t *testing.T) {
	raw := json.RawMessage(`{"output":"one\ntwo\nthree\nfour"}`)
	got := buildPreview("read_file", strings.Repeat("z", 600), raw)

	assert.Contains(t, got, "chars omitted")
}
