// Package mcp discovers tools from MCP (Model Context Protocol) servers and
// feeds them to the exposure layer as discovered-origin entries.
package mcp

import "time"

// Default timeout for initializing an MCP server and listing its tools.
const DefaultStartupTimeout = 10 * time.Second

// ServerConfig configures an MCP server connection.
type ServerConfig struct {
	// Transport configuration (stdio or streamable HTTP).
	Transport TransportConfig `json:"transport"`

	// Whether this server is enabled. Default: true.
	Enabled *bool `json:"enabled,omitempty"`

	// Whether this server is required. If true, discovery failure is fatal.
	Required bool `json:"required,omitempty"`

	// Timeout for server startup and initial tool listing.
	StartupTimeoutSec *int `json:"startup_timeout_sec,omitempty"`

	// Explicit allow-list of tool names. If set, only these tools are exposed.
	EnabledTools []string `json:"enabled_tools,omitempty"`

	// Explicit deny-list of tool names. These tools are never exposed.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// IsEnabled returns whether this server config is enabled (default: true).
func (c *ServerConfig) IsEnabled() bool {
	if c.Enabled == nil {
		return true
	}
	return *c.Enabled
}

// GetStartupTimeout returns the startup timeout, defaulted if unset.
func (c *ServerConfig) GetStartupTimeout() time.Duration {
	if c.StartupTimeoutSec != nil {
		return time.Duration(*c.StartupTimeoutSec) * time.Second
	}
	return DefaultStartupTimeout
}

// TransportConfig specifies how to connect to the MCP server.
type TransportConfig struct {
	// Stdio transport: spawn a subprocess. Mutually exclusive with URL.
	Command string            `json:"command,omitempty"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
	Cwd     string            `json:"cwd,omitempty"`

	// Streamable HTTP transport: connect to a URL.
	URL string `json:"url,omitempty"`
}

// IsStdio returns true if this config uses stdio transport.
func (t *TransportConfig) IsStdio() bool {
	return t.Command != ""
}

// IsHTTP returns true if this config uses streamable HTTP transport.
func (t *TransportConfig) IsHTTP() bool {
	return t.URL != ""
}

// ToolFilter controls which tools are exposed from a server. A tool is
// allowed if the allow-list is nil or contains it, and the deny-list does
// not.
type ToolFilter struct {
	Enabled  map[string]bool
	Disabled map[string]bool
}

// NewToolFilter creates a ToolFilter from the config's tool lists.
func NewToolFilter(enabledTools, disabledTools []string) ToolFilter {
	var enabled map[string]bool
	if len(enabledTools) > 0 {
		enabled = make(map[string]bool, len(enabledTools))
		for _, t := range enabledTools {
			enabled[t] = true
		}
	}

	disabled := make(map[string]bool, len(disabledTools))
	for _, t := range disabledTools {
		disabled[t] = true
	}

	return ToolFilter{Enabled: enabled, Disabled: disabled}
}

// Allows returns whether the given tool name passes the filter.
func (f *ToolFilter) Allows(toolName string) bool {
	if f.Enabled != nil && !f.Enabled[toolName] {
		return false
	}
	return !f.Disabled[toolName]
}
