// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation provides the message model and append-only
// conversation log for wikichat.
package conversation

import (
	"fmt"
	"hash/fnv"
	"time"
)

// =============================================================================
// ROLES
// =============================================================================

// Message roles as they appear on the wire.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// ToolCall is a tool invocation requested by the model. Arguments stay
// opaque JSON text until the executor decodes them.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall names the tool and carries its raw argument text.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Message is one entry in a conversation. ID and ParentID are assigned
// when the message is appended to a Conversation, not at construction.
type Message struct {
	ID       string `json:"id,omitempty"`
	ParentID string `json:"parent_id,omitempty"`
	Role     string `json:"role"`
	Content  string `json:"content"`

	// Recipient is set on assistant messages addressed to a tool.
	Recipient string `json:"recipient,omitempty"`

	// Tool plumbing
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// =============================================================================
// CONSTRUCTORS
// =============================================================================

// NewSystemMessage creates a system-role message.
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a user-role message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates an assistant-role message.
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// NewToolMessage creates a tool-role message carrying an executor
// result for the given tool call.
func NewToolMessage(content, toolCallID string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: toolCallID}
}

// FromRole builds a message for an arbitrary role string. Known roles
// get their dedicated constructor; anything else becomes a generic
// message with the role passed through verbatim.
func FromRole(role, content string) Message {
	switch role {
	case RoleSystem:
		return NewSystemMessage(content)
	case RoleUser:
		return NewUserMessage(content)
	case RoleAssistant:
		return NewAssistantMessage(content)
	case RoleTool:
		return Message{Role: RoleTool, Content: content}
	default:
		return Message{Role: role, Content: content}
	}
}

// =============================================================================
// IDENTITY
// =============================================================================

// messageID derives a message ID from the insertion time and a hash of
// the role and content. The timestamp prefix keeps IDs sortable.
func messageID(when time.Time, m Message) string {
	h := fnv.New64a()
	h.Write([]byte(m.Role))
	h.Write([]byte{0})
	h.Write([]byte(m.Content))
	return fmt.Sprintf("%s-%016x", when.Format("20060102150405"), h.Sum64())
}
