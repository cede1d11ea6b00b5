// Package offload writes observation payloads to a session-scoped directory
// and reports stable paths back to the engines that replaced them. Files are
// write-once: content is immutable after creation so a retrieval pointer in
// history can never dangle or change underneath the model.
package offload

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ObservationsSubdir is the directory under the store root holding files
// produced by masking passes.
const ObservationsSubdir = "observations"

// FileInfo describes a written offload file.
type FileInfo struct {
	Path      string `json:"path"`
	SizeBytes int64  `json:"size_bytes"`
	LineCount int    `json:"line_count"`
}

// Store writes payloads under a session root directory. The zero value is
// not usable; construct with NewStore.
type Store struct {
	root string
	ids  IDGenerator
}

// NewStore creates a store rooted at dir. If ids is nil, file-name suffixes
// come from a UUID generator; tests inject a Sequence for deterministic names.
func NewStore(dir string, ids IDGenerator) *Store {
	if ids == nil {
		ids = UUIDGenerator{}
	}
	return &Store{root: dir, ids: ids}
}

// Root returns the store's root directory.
func (s *Store) Root() string {
	return s.root
}

// WriteObservation persists a masked observation under
// <root>/observations/<toolName>_<callID>_<suffix>.txt and returns its info.
func (s *Store) WriteObservation(toolName, callID, content string) (FileInfo, error) {
	dir := filepath.Join(s.root, ObservationsSubdir)
	name := fmt.Sprintf("%s_%s_%s.txt", sanitize(toolName), sanitize(callID), s.ids.Next())
	return s.write(dir, name, content)
}

// WriteTruncation persists the full original content of a truncated function
// response under <root>/<toolName>_<truncationID>.txt.
func (s *Store) WriteTruncation(toolName string, truncationID int64, content string) (FileInfo, error) {
	name := fmt.Sprintf("%s_%d.txt", sanitize(toolName), truncationID)
	return s.write(s.root, name, content)
}

// write creates the directory if absent (best-effort scoped acquisition) and
// writes the file with O_EXCL so existing content is never overwritten.
func (s *Store) write(dir, name, content string) (FileInfo, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return FileInfo{}, fmt.Errorf("offload: create dir %s: %w", dir, err)
	}

	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return FileInfo{}, fmt.Errorf("offload: create %s: %w", path, err)
	}
	defer f.Close()

	n, err := f.WriteString(content)
	if err != nil {
		return FileInfo{}, fmt.Errorf("offload: write %s: %w", path, err)
	}

	return FileInfo{
		Path:      path,
		SizeBytes: int64(n),
		LineCount: countLines(content),
	}, nil
}

// countLines counts newline-terminated lines plus a trailing partial line.
func countLines(content string) int {
	if content == "" {
		return 0
	}
	n := strings.Count(content, "\n")
	if !strings.HasSuffix(content, "\n") {
		n++
	}
	return n
}

// sanitize makes a tool or call identifier safe for use in a file name.
func sanitize(name string) string {
	if name == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '-'
		}
	}, name)
}
