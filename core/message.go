package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role identifies the author kind of a conversation message.
type Role string

const (
	// RoleSystem marks instructions injected by the engine.
	RoleSystem Role = "system"
	// RoleUser marks end-user input.
	RoleUser Role = "user"
	// RoleAssistant marks model output, possibly carrying tool calls.
	RoleAssistant Role = "assistant"
	// RoleTool marks tool execution results.
	RoleTool Role = "tool"
)

// Part represents a polymorphic segment of message content. Concrete part
// types implement the unexported isPart marker enabling a closed set.
type Part interface{ isPart() }

// TextPart is a plain text content segment.
type TextPart struct {
	Text string
}

// isPart implements the Part interface for TextPart.
func (TextPart) isPart() {}

// ToolCall describes a tool invocation requested by the model.
type ToolCall struct {
	ID        string `json:"id,omitempty"`        // Stable id minted when the provider omits one
	Name      string `json:"name"`                // Tool name
	Arguments string `json:"arguments,omitempty"` // Serialized JSON argument payload
}

// ToolCallPart wraps a ToolCall as a content part.
type ToolCallPart struct {
	ToolCall ToolCall
}

// isPart implements the Part interface for ToolCallPart.
func (ToolCallPart) isPart() {}

// ToolResult describes the outcome of a tool call as seen by the model.
// Errors are carried in Content with an "ERROR:" prefix so the model can
// recover; the engine never surfaces raw handler errors past this point.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id,omitempty"` // Matches originating ToolCall ID
	Name       string `json:"name"`                   // Tool name
	Content    string `json:"content"`                // Result text
}

// ToolResultPart wraps a ToolResult as a content part.
type ToolResultPart struct {
	ToolResult ToolResult
}

// isPart implements the Part interface for ToolResultPart.
func (ToolResultPart) isPart() {}

// Message holds a role plus ordered parts. Messages are value types and are
// treated as immutable once appended to a conversation.
type Message struct {
	Role  Role
	Parts []Part
}

// NewSystemMessage builds a system message from text.
func NewSystemMessage(text string) Message {
	return Message{Role: RoleSystem, Parts: []Part{TextPart{Text: text}}}
}

// NewUserMessage builds a user message from text.
func NewUserMessage(text string) Message {
	return Message{Role: RoleUser, Parts: []Part{TextPart{Text: text}}}
}

// NewAssistantMessage builds an assistant message from explicit parts.
func NewAssistantMessage(parts ...Part) Message {
	return Message{Role: RoleAssistant, Parts: parts}
}

// NewAssistantTextMessage builds a text-only assistant message.
func NewAssistantTextMessage(text string) Message {
	return NewAssistantMessage(TextPart{Text: text})
}

// NewToolMessage builds a tool message carrying one tool result.
func NewToolMessage(result ToolResult) Message {
	return Message{Role: RoleTool, Parts: []Part{ToolResultPart{ToolResult: result}}}
}

// Text concatenates the text parts of the message.
func (m Message) Text() string {
	var sb strings.Builder
	for _, p := range m.Parts {
		if tp, ok := p.(TextPart); ok {
			sb.WriteString(tp.Text)
		}
	}
	return sb.String()
}

// ToolCalls extracts the tool calls carried by the message in part order.
func (m Message) ToolCalls() []ToolCall {
	var calls []ToolCall
	for _, p := range m.Parts {
		if tc, ok := p.(ToolCallPart); ok {
			calls = append(calls, tc.ToolCall)
		}
	}
	return calls
}

// HasToolCalls reports whether the message requests any tool invocation.
func (m Message) HasToolCalls() bool {
	for _, p := range m.Parts {
		if _, ok := p.(ToolCallPart); ok {
			return true
		}
	}
	return false
}

// ToolResults extracts the tool results carried by the message in part order.
func (m Message) ToolResults() []ToolResult {
	var results []ToolResult
	for _, p := range m.Parts {
		if tr, ok := p.(ToolResultPart); ok {
			results = append(results, tr.ToolResult)
		}
	}
	return results
}

// partEnvelope is the serialized form of a Part. The type tag keeps the
// closed set round-trippable through JSON.
type partEnvelope struct {
	Type       string      `json:"type"`
	Text       string      `json:"text,omitempty"`
	ToolCall   *ToolCall   `json:"tool_call,omitempty"`
	ToolResult *ToolResult `json:"tool_result,omitempty"`
}

type messageEnvelope struct {
	Role  Role           `json:"role"`
	Parts []partEnvelope `json:"parts"`
}

// MarshalJSON implements json.Marshaler preserving part structure.
func (m Message) MarshalJSON() ([]byte, error) {
	env := messageEnvelope{Role: m.Role, Parts: make([]partEnvelope, 0, len(m.Parts))}
	for _, p := range m.Parts {
		switch part := p.(type) {
		case TextPart:
			env.Parts = append(env.Parts, partEnvelope{Type: "text", Text: part.Text})
		case ToolCallPart:
			tc := part.ToolCall
			env.Parts = append(env.Parts, partEnvelope{Type: "tool_call", ToolCall: &tc})
		case ToolResultPart:
			tr := part.ToolResult
			env.Parts = append(env.Parts, partEnvelope{Type: "tool_result", ToolResult: &tr})
		default:
			return nil, fmt.Errorf("unknown part type %T", p)
		}
	}
	return json.Marshal(env)
}

// UnmarshalJSON implements json.Unmarshaler restoring the typed parts.
func (m *Message) UnmarshalJSON(data []byte) error {
	var env messageEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	m.Role = env.Role
	m.Parts = make([]Part, 0, len(env.Parts))
	for _, pe := range env.Parts {
		switch pe.Type {
		case "text":
			m.Parts = append(m.Parts, TextPart{Text: pe.Text})
		case "tool_call":
			if pe.ToolCall == nil {
				return fmt.Errorf("tool_call part without payload")
			}
			m.Parts = append(m.Parts, ToolCallPart{ToolCall: *pe.ToolCall})
		case "tool_result":
			if pe.ToolResult == nil {
				return fmt.Errorf("tool_result part without payload")
			}
			m.Parts = append(m.Parts, ToolResultPart{ToolResult: *pe.ToolResult})
		default:
			return fmt.Errorf("unknown part type %q", pe.Type)
		}
	}
	return nil
}
