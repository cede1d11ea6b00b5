// Package models contains shared types for the contextbudget project:
// the conversation data model, session configuration, and the activity
// error taxonomy.
package models

import "encoding/json"

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// PartType discriminates the Part variant.
type PartType string

const (
	PartTypeText             PartType = "text"
	PartTypeFunctionResponse PartType = "function_response"
	PartTypeInlineData       PartType = "inline_data"
)

// FunctionResponse is the payload of a tool invocation result embedded in
// history. Response is the tool's structured output, kept opaque: every
// size and shape decision downstream operates on its serialized form, never
// on a specific tool's schema.
type FunctionResponse struct {
	Name     string          `json:"name"`
	CallID   string          `json:"call_id"`
	Response json.RawMessage `json:"response"`
}

// Part is a tagged variant. Exactly one of the variant fields is populated
// depending on Type. Parts other than function responses pass through every
// history transform unchanged.
type Part struct {
	Type PartType `json:"type"`

	// PartTypeText
	Text string `json:"text,omitempty"`

	// PartTypeFunctionResponse
	FunctionResponse *FunctionResponse `json:"function_response,omitempty"`

	// PartTypeInlineData
	MIMEType string `json:"mime_type,omitempty"`
	Data     []byte `json:"data,omitempty"`
}

// Turn is a single conversation turn: a role plus an ordered part sequence.
type Turn struct {
	Role  Role   `json:"role"`
	Parts []Part `json:"parts"`
}

// TokenUsage tracks token consumption reported by a model call.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
	CachedTokens     int `json:"cached_tokens"`
}

// NewTextPart returns a text part.
func NewTextPart(text string) Part {
	return Part{Type: PartTypeText, Text: text}
}

// NewFunctionResponsePart returns a function-response part wrapping the
// given raw payload.
func NewFunctionResponsePart(name, callID string, response json.RawMessage) Part {
	return Part{
		Type: PartTypeFunctionResponse,
		FunctionResponse: &FunctionResponse{
			Name:     name,
			CallID:   callID,
			Response: response,
		},
	}
}

// Observation returns the serialized form of the response payload, the unit
// of measurement for masking and truncation. A payload that is a bare JSON
// string is unquoted so line structure survives; anything else is returned
// as its raw JSON text.
func (fr *FunctionResponse) Observation() string {
	if len(fr.Response) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(fr.Response, &s); err == nil {
		return s
	}
	return string(fr.Response)
}

// CloneHistory deep-copies a conversation so transforms can rewrite parts
// without mutating the caller's value. Response payloads are copied because
// json.RawMessage aliases the underlying bytes.
func CloneHistory(history []Turn) []Turn {
	out := make([]Turn, len(history))
	for i, turn := range history {
		parts := make([]Part, len(turn.Parts))
		for j, p := range turn.Parts {
			cp := p
			if p.FunctionResponse != nil {
				fr := *p.FunctionResponse
				fr.Response = append(json.RawMessage(nil), p.FunctionResponse.Response...)
				cp.FunctionResponse = &fr
			}
			if p.Data != nil {
				cp.Data = append([]byte(nil), p.Data...)
			}
			parts[j] = cp
		}
		out[i] = Turn{Role: turn.Role, Parts: parts}
	}
	return out
}
