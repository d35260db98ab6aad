// Conversation transcript types.
//
// The transcript is an ordered, append-only sequence of heterogeneous turns.
// Modeling the turn kinds as a tagged union keeps replay and serialization
// exhaustively handled instead of spread over free-form maps.
package model

import (
	"encoding/json"
)

// TurnKind discriminates the variants of a ConversationTurn.
type TurnKind string

const (
	TurnUser       TurnKind = "user"
	TurnAssistant  TurnKind = "assistant"
	TurnToolCall   TurnKind = "tool_call"
	TurnToolResult TurnKind = "tool_result"
)

// ToolCallTurn is a model-requested tool invocation.
type ToolCallTurn struct {
	CallID    string          `json:"call_id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolResultTurn is the outcome of executing one tool call. A failed tool
// produces a result turn carrying the error text, never a fatal error.
type ToolResultTurn struct {
	CallID  string `json:"call_id"`
	Name    string `json:"name"`
	Content string `json:"content"`
	IsError bool   `json:"is_error,omitempty"`
}

// ConversationTurn is one element of a reasoning transcript. Exactly one of
// the variant fields is set, selected by Kind. Turns are never mutated or
// reordered once appended.
type ConversationTurn struct {
	Kind       TurnKind        `json:"kind"`
	Text       string          `json:"text,omitempty"`
	ToolCall   *ToolCallTurn   `json:"tool_call,omitempty"`
	ToolResult *ToolResultTurn `json:"tool_result,omitempty"`
}

// UserTurn creates a user utterance turn.
func UserTurn(text string) ConversationTurn {
	return ConversationTurn{Kind: TurnUser, Text: text}
}

// AssistantTurn creates an assistant utterance turn.
func AssistantTurn(text string) ConversationTurn {
	return ConversationTurn{Kind: TurnAssistant, Text: text}
}

// ToolCallOf creates a tool invocation request turn.
func ToolCallOf(callID, name string, args json.RawMessage) ConversationTurn {
	return ConversationTurn{
		Kind:     TurnToolCall,
		ToolCall: &ToolCallTurn{CallID: callID, Name: name, Arguments: args},
	}
}

// ToolResultOf creates a successful tool result turn.
func ToolResultOf(callID, name, content string) ConversationTurn {
	return ConversationTurn{
		Kind:       TurnToolResult,
		ToolResult: &ToolResultTurn{CallID: callID, Name: name, Content: content},
	}
}

// ToolErrorOf creates a failed tool result turn carrying the error text.
func ToolErrorOf(callID, name, errText string) ConversationTurn {
	return ConversationTurn{
		Kind:       TurnToolResult,
		ToolResult: &ToolResultTurn{CallID: callID, Name: name, Content: errText, IsError: true},
	}
}

// Valid reports whether the turn's variant fields are consistent with Kind.
func (t ConversationTurn) Valid() bool {
	switch t.Kind {
	case TurnUser, TurnAssistant:
		return t.ToolCall == nil && t.ToolResult == nil
	case TurnToolCall:
		return t.ToolCall != nil && t.ToolResult == nil
	case TurnToolResult:
		return t.ToolResult != nil && t.ToolCall == nil
	default:
		return false
	}
}
