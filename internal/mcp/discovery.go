package mcp

import (
	"context"
	"fmt"
	"os/exec"
	"sort"
	"sync"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/agentfold/contextbudget/internal/exposure"
)

// DiscoveryResult is the outcome of discovering tools across all configured
// servers.
type DiscoveryResult struct {
	// Entries are exposure-ready tool entries with qualified names, sorted
	// by name for a stable registration order.
	Entries []exposure.Entry
	// Failures records servers that failed (server name → error message).
	Failures map[string]string
}

// Discoverer connects to MCP servers and converts their tools into
// discovered-origin exposure entries. One Discoverer serves one session.
type Discoverer struct {
	mu       sync.Mutex
	sessions map[string]*gomcp.ClientSession
}

// NewDiscoverer creates an empty Discoverer.
func NewDiscoverer() *Discoverer {
	return &Discoverer{sessions: make(map[string]*gomcp.ClientSession)}
}

// Discover connects to every enabled server in parallel, lists its tools,
// and returns the merged exposure entries. A required server's failure is an
// error; optional failures are reported in the result and skipped.
func (d *Discoverer) Discover(ctx context.Context, servers map[string]ServerConfig) (*DiscoveryResult, error) {
	type serverResult struct {
		name    string
		entries []exposure.Entry
		session *gomcp.ClientSession
		err     error
	}

	type enabledServer struct {
		name   string
		config ServerConfig
	}
	var enabled []enabledServer
	for name, cfg := range servers {
		if cfg.IsEnabled() {
			enabled = append(enabled, enabledServer{name, cfg})
		}
	}
	if len(enabled) == 0 {
		return &DiscoveryResult{Failures: map[string]string{}}, nil
	}

	results := make([]serverResult, len(enabled))
	var wg sync.WaitGroup
	for i, srv := range enabled {
		wg.Add(1)
		go func(idx int, serverName string, cfg ServerConfig) {
			defer wg.Done()
			result := serverResult{name: serverName}

			session, err := d.connect(ctx, serverName, cfg)
			if err != nil {
				result.err = err
				results[idx] = result
				return
			}
			result.session = session

			listCtx, cancel := context.WithTimeout(ctx, cfg.GetStartupTimeout())
			defer cancel()

			toolsResult, err := session.ListTools(listCtx, nil)
			if err != nil {
				result.err = fmt.Errorf("list tools for %s: %w", serverName, err)
				_ = session.Close()
				results[idx] = result
				return
			}

			filter := NewToolFilter(cfg.EnabledTools, cfg.DisabledTools)
			for _, t := range toolsResult.Tools {
				if !filter.Allows(t.Name) {
					continue
				}
				result.entries = append(result.entries, toolEntry(serverName, t))
			}
			results[idx] = result
		}(i, srv.name, srv.config)
	}
	wg.Wait()

	failures := make(map[string]string)
	var all []exposure.Entry
	d.mu.Lock()
	for _, r := range results {
		if r.err != nil {
			failures[r.name] = r.err.Error()
			continue
		}
		d.sessions[r.name] = r.session
		all = append(all, r.entries...)
	}
	d.mu.Unlock()

	for name, cfg := range servers {
		if cfg.Required {
			if errMsg, failed := failures[name]; failed {
				return nil, fmt.Errorf("required MCP server %s failed: %s", name, errMsg)
			}
		}
	}

	all = dedupe(all)
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })

	return &DiscoveryResult{Entries: all, Failures: failures}, nil
}

// connect establishes a client session over the configured transport.
func (d *Discoverer) connect(ctx context.Context, serverName string, cfg ServerConfig) (*gomcp.ClientSession, error) {
	transport := cfg.Transport

	client := gomcp.NewClient(&gomcp.Implementation{
		Name:    "contextbudget",
		Version: "1.0.0",
	}, nil)

	connectCtx, cancel := context.WithTimeout(ctx, cfg.GetStartupTimeout())
	defer cancel()

	if transport.IsStdio() {
		cmd := exec.CommandContext(connectCtx, transport.Command, transport.Args...)
		if transport.Cwd != "" {
			cmd.Dir = transport.Cwd
		}
		for k, v := range transport.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}

		session, err := client.Connect(connectCtx, &gomcp.CommandTransport{Command: cmd}, nil)
		if err != nil {
			return nil, fmt.Errorf("connect to MCP server %s (stdio): %w", serverName, err)
		}
		return session, nil
	}

	if transport.IsHTTP() {
		session, err := client.Connect(connectCtx, &gomcp.StreamableClientTransport{Endpoint: transport.URL}, nil)
		if err != nil {
			return nil, fmt.Errorf("connect to MCP server %s (HTTP): %w", serverName, err)
		}
		return session, nil
	}

	return nil, fmt.Errorf("MCP server %s has neither command nor URL configured", serverName)
}

// Close shuts down all connected sessions.
func (d *Discoverer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, session := range d.sessions {
		_ = session.Close()
	}
	d.sessions = make(map[string]*gomcp.ClientSession)
}

// toolEntry converts an MCP tool definition into a discovered exposure
// entry with a qualified name.
func toolEntry(serverName string, t *gomcp.Tool) exposure.Entry {
	return exposure.Entry{
		Name:        QualifyToolName(serverName, t.Name),
		Description: t.Description,
		Parameters:  schemaParameters(t.InputSchema),
		Origin:      exposure.OriginDiscovered,
	}
}

// schemaParameters flattens a JSON Schema object's top-level properties into
// declaration parameters. The exposure layer only needs names, types,
// descriptions, and requiredness.
func schemaParameters(schema any) []exposure.ToolParameter {
	obj, ok := schema.(map[string]any)
	if !ok {
		return nil
	}
	props, ok := obj["properties"].(map[string]any)
	if !ok {
		return nil
	}

	required := make(map[string]bool)
	if reqList, ok := obj["required"].([]any); ok {
		for _, r := range reqList {
			if name, ok := r.(string); ok {
				required[name] = true
			}
		}
	}

	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	params := make([]exposure.ToolParameter, 0, len(names))
	for _, name := range names {
		p := exposure.ToolParameter{Name: name, Type: "string", Required: required[name]}
		if prop, ok := props[name].(map[string]any); ok {
			if t, ok := prop["type"].(string); ok {
				p.Type = t
			}
			if desc, ok := prop["description"].(string); ok {
				p.Description = desc
			}
		}
		params = append(params, p)
	}
	return params
}

// dedupe drops entries whose qualified names collide, keeping the first.
func dedupe(entries []exposure.Entry) []exposure.Entry {
	seen := make(map[string]bool, len(entries))
	out := entries[:0]
	for _, e := range entries {
		if seen[e.Name] {
			continue
		}
		seen[e.Name] = true
		out = append(out, e)
	}
	return out
}
