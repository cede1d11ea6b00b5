package exposure

import (
	"fmt"
	"strings"
)

// SearchToolName is the name of the synthetic search capability exposed when
// discovered entries are gated.
const SearchToolName = "search_tools"

// SearchToolDeclaration returns the declaration of the search capability.
func SearchToolDeclaration() Declaration {
	return Declaration{
		Name:        SearchToolName,
		Description: "Search the catalog of available tools by keyword. Matching tools become available for use in subsequent turns. Use this when a capability you need is not in your current tool list.",
		Parameters: []ToolParameter{
			{
				Name:        "query",
				Type:        "string",
				Description: "Keywords to match against tool names and descriptions",
				Required:    true,
			},
		},
	}
}

// Search matches the query against discovered entries' names and
// descriptions, case-insensitive, any keyword. Every hidden match becomes
// active. Returns a structured result message, never an error; an unmatched
// query yields a zero-result message.
func (s *Service) Search(query string) string {
	keywords := strings.Fields(strings.ToLower(query))
	if len(keywords) == 0 {
		return "Found 0 tools: provide a non-empty query."
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []string
	for _, name := range s.order {
		rec := s.entries[name]
		if rec.entry.Origin != OriginDiscovered {
			continue
		}
		haystack := strings.ToLower(rec.entry.Name + " " + rec.entry.Description)
		for _, kw := range keywords {
			if strings.Contains(haystack, kw) {
				rec.active = true
				matched = append(matched, rec.entry.Name)
				break
			}
		}
	}

	if len(matched) == 0 {
		return fmt.Sprintf("Found 0 tools matching %q. Try different keywords.", query)
	}
	return fmt.Sprintf("Found %d tools: %s. They are now available for use.",
		len(matched), strings.Join(matched, ", "))
}
