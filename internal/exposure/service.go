// Package exposure decides which tool declarations the model sees. When the
// combined description size of discovered tools would itself eat the budget,
// discovered entries are hidden behind a search capability and surface only
// on demand. Native entries are never gated.
package exposure

import (
	"fmt"
	"sync"

	"github.com/agentfold/contextbudget/internal/models"
)

// Origin identifies where a tool entry came from.
type Origin string

const (
	// OriginNative marks built-in capabilities. They are always exposed.
	OriginNative Origin = "native"
	// OriginDiscovered marks entries found at runtime, typically via MCP
	// servers. They are subject to the exposure budget.
	OriginDiscovered Origin = "discovered"
)

// Visibility is the exposure state of an entry.
type Visibility string

const (
	// VisibilityVisible: exposed because the whole set fits the budget or
	// the entry is native.
	VisibilityVisible Visibility = "visible"
	// VisibilityHidden: gated behind search.
	VisibilityHidden Visibility = "hidden"
	// VisibilityActive: a discovered entry surfaced by search or direct
	// lookup. Active entries stay exposed for the rest of the session.
	VisibilityActive Visibility = "active"
)

// ToolParameter defines one parameter of a tool declaration.
type ToolParameter struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// Declaration is the model-facing shape of a tool.
type Declaration struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ToolParameter `json:"parameters"`
}

// Entry is a registered tool.
type Entry struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ToolParameter `json:"parameters"`
	Origin      Origin          `json:"origin"`
}

// Declaration returns the model-facing shape of the entry.
func (e Entry) Declaration() Declaration {
	return Declaration{Name: e.Name, Description: e.Description, Parameters: e.Parameters}
}

// EntryState is a point-in-time view of one entry, for queries and tests.
type EntryState struct {
	Name       string     `json:"name"`
	Origin     Origin     `json:"origin"`
	Visibility Visibility `json:"visibility"`
}

type record struct {
	entry  Entry
	active bool
}

// Service holds the tool registry and its exposure policy. Safe for
// concurrent use; activation is monotonic and idempotent, so concurrent
// activations of the same entry commute.
type Service struct {
	mu         sync.RWMutex
	entries    map[string]*record
	order      []string
	charBudget int
}

// NewService creates a Service. charBudget <= 0 selects the default
// discovered-description budget.
func NewService(charBudget int) *Service {
	if charBudget <= 0 {
		charBudget = models.DefaultExposureCharBudget
	}
	return &Service{
		entries:    make(map[string]*record),
		charBudget: charBudget,
	}
}

// RegisterTool adds an entry. Registering a name twice replaces the entry
// but keeps its position and activation state.
func (s *Service) RegisterTool(e Entry) error {
	if e.Name == "" {
		return fmt.Errorf("exposure: register tool with empty name")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.entries[e.Name]; ok {
		existing.entry = e
		return nil
	}
	s.entries[e.Name] = &record{entry: e}
	s.order = append(s.order, e.Name)
	return nil
}

// FunctionDeclarations returns the declarations to attach to the next model
// request, in registration order. When the discovered descriptions fit the
// budget every entry is exposed. Otherwise only native and active entries
// are exposed, with the search declaration appended so hidden entries stay
// reachable.
func (s *Service) FunctionDeclarations() []Declaration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.discoveredChars() <= s.charBudget {
		out := make([]Declaration, 0, len(s.order))
		for _, name := range s.order {
			out = append(out, s.entries[name].entry.Declaration())
		}
		return out
	}

	var out []Declaration
	for _, name := range s.order {
		rec := s.entries[name]
		if rec.entry.Origin == OriginNative || rec.active {
			out = append(out, rec.entry.Declaration())
		}
	}
	return append(out, SearchToolDeclaration())
}

// GetTool looks up an entry by name for execution. The lookup is an implicit
// activation path: a hidden entry fetched here becomes active.
func (s *Service) GetTool(name string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.entries[name]
	if !ok {
		return Entry{}, false
	}
	rec.active = true
	return rec.entry, true
}

// Snapshot returns the state of every entry in registration order.
func (s *Service) Snapshot() []EntryState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	gated := s.discoveredChars() > s.charBudget
	out := make([]EntryState, 0, len(s.order))
	for _, name := range s.order {
		rec := s.entries[name]
		out = append(out, EntryState{
			Name:       name,
			Origin:     rec.entry.Origin,
			Visibility: visibilityOf(rec, gated),
		})
	}
	return out
}

func visibilityOf(rec *record, gated bool) Visibility {
	switch {
	case rec.entry.Origin == OriginNative:
		return VisibilityVisible
	case rec.active:
		return VisibilityActive
	case gated:
		return VisibilityHidden
	default:
		return VisibilityVisible
	}
}

// discoveredChars sums the description lengths of discovered entries.
// Caller holds at least a read lock.
func (s *Service) discoveredChars() int {
	total := 0
	for _, name := range s.order {
		rec := s.entries[name]
		if rec.entry.Origin == OriginDiscovered {
			total += len(rec.entry.Description)
		}
	}
	return total
}
