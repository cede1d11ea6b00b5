package mcp

import (
	"crypto/sha1"
	"fmt"
)

const (
	// toolNameDelimiter separates the prefix, server name, and tool name.
	toolNameDelimiter = "__"

	// toolNamePrefix marks all MCP-discovered tool names.
	toolNamePrefix = "mcp"

	// MaxToolNameLength is the maximum length for a qualified tool name.
	// Provider APIs require tool names matching ^[a-zA-Z0-9_-]+$ and <= 64
	// chars.
	MaxToolNameLength = 64
)

// SanitizeName replaces characters outside [a-zA-Z0-9_-] with underscore.
// Returns "_" if the input is empty.
func SanitizeName(name string) string {
	sanitized := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' || c == '-' {
			sanitized = append(sanitized, c)
		} else {
			sanitized = append(sanitized, '_')
		}
	}
	if len(sanitized) == 0 {
		return "_"
	}
	return string(sanitized)
}

func sha1Hex(s string) string {
	h := sha1.New()
	h.Write([]byte(s))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// QualifyToolName creates a qualified tool name in the form
// mcp__<sanitized_server>__<sanitized_tool>. Names over the length limit are
// truncated with a SHA1 suffix so distinct long names never collide.
func QualifyToolName(serverName, toolName string) string {
	raw := toolNamePrefix + toolNameDelimiter + serverName + toolNameDelimiter + toolName
	qualified := SanitizeName(raw)

	if len(qualified) > MaxToolNameLength {
		hash := sha1Hex(raw)
		prefixLen := MaxToolNameLength - len(hash)
		qualified = qualified[:prefixLen] + hash
	}

	return qualified
}
