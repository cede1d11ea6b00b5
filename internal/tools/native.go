// Package tools defines the native tool entries registered with every
// session. Native entries are retrieval and execution capabilities the
// guidance blocks and truncation pointers direct the model to; they are
// never gated by the exposure budget.
package tools

import "github.com/agentfold/contextbudget/internal/exposure"

// NewShellEntry returns the shell execution tool entry.
func NewShellEntry() exposure.Entry {
	return exposure.Entry{
		Name:        "shell",
		Description: "Execute a shell command and return the output. Use this to run bash commands, list files, read command output, etc.",
		Parameters: []exposure.ToolParameter{
			{
				Name:        "command",
				Type:        "string",
				Description: "The shell command to execute (will be run with bash -c)",
				Required:    true,
			},
			{
				Name:        "timeout_ms",
				Type:        "number",
				Description: "The timeout for the command in milliseconds. Defaults to 10000 (10s).",
				Required:    false,
			},
		},
		Origin: exposure.OriginNative,
	}
}

// NewReadFileEntry returns the read_file tool entry. Masked observations and
// truncated responses point here for full-content recovery.
func NewReadFileEntry() exposure.Entry {
	return exposure.Entry{
		Name:        "read_file",
		Description: "Read the contents of a file. Returns the file content with line numbers.",
		Parameters: []exposure.ToolParameter{
			{
				Name:        "path",
				Type:        "string",
				Description: "The path to the file to read",
				Required:    true,
			},
			{
				Name:        "offset",
				Type:        "integer",
				Description: "Starting line number (0-indexed, optional)",
				Required:    false,
			},
			{
				Name:        "limit",
				Type:        "integer",
				Description: "Maximum number of lines to read (optional)",
				Required:    false,
			},
		},
		Origin: exposure.OriginNative,
	}
}

// NewGrepFilesEntry returns the grep_files tool entry, the search path for
// offloaded observation files.
func NewGrepFilesEntry() exposure.Entry {
	return exposure.Entry{
		Name:        "grep_files",
		Description: "Search file contents for a pattern. Returns matching lines with file paths and line numbers.",
		Parameters: []exposure.ToolParameter{
			{
				Name:        "pattern",
				Type:        "string",
				Description: "The pattern to search for",
				Required:    true,
			},
			{
				Name:        "path",
				Type:        "string",
				Description: "File or directory to search in",
				Required:    false,
			},
		},
		Origin: exposure.OriginNative,
	}
}

// DefaultNativeEntries returns the native tools registered for a new
// session.
func DefaultNativeEntries() []exposure.Entry {
	return []exposure.Entry{
		NewShellEntry(),
		NewReadFileEntry(),
		NewGrepFilesEntry(),
	}
}
