// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the HTTP client for an OpenAI-compatible
// chat-completions endpoint, including SSE streaming with tool-call
// fragment reassembly and an embeddings reachability probe.
package chat

import (
	"github.com/jeranaias/wikichat/internal/conversation"
	"github.com/jeranaias/wikichat/internal/tools"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// CompletionRequest is the body of a chat-completions request.
type CompletionRequest struct {
	Model    string             `json:"model"`
	Messages []wireMessage      `json:"messages"`
	Tools    []tools.Definition `json:"tools,omitempty"`
	Stream   bool               `json:"stream,omitempty"`
}

// wireMessage is the subset of a conversation message that goes on the
// wire. Local bookkeeping fields (id, parent_id) never leave the
// process.
type wireMessage struct {
	Role       string                  `json:"role"`
	Content    string                  `json:"content"`
	ToolCalls  []conversation.ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string                  `json:"tool_call_id,omitempty"`
}

func toWire(msgs []conversation.Message) []wireMessage {
	out := make([]wireMessage, len(msgs))
	for i, m := range msgs {
		out[i] = wireMessage{
			Role:       m.Role,
			Content:    m.Content,
			ToolCalls:  m.ToolCalls,
			ToolCallID: m.ToolCallID,
		}
	}
	return out
}

// =============================================================================
// NON-STREAMING RESPONSE TYPES
// =============================================================================

// CompletionResponse is a non-streaming chat-completions response.
type CompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
}

// Choice is one completion alternative; in practice there is one.
type Choice struct {
	Index        int              `json:"index"`
	Message      AssistantMessage `json:"message"`
	FinishReason string           `json:"finish_reason"`
}

// AssistantMessage is the model's turn in a non-streaming response.
type AssistantMessage struct {
	Role      string                  `json:"role"`
	Content   string                  `json:"content"`
	ToolCalls []conversation.ToolCall `json:"tool_calls,omitempty"`
}

// HasToolCalls reports whether the response requests tool execution.
func (r *CompletionResponse) HasToolCalls() bool {
	return len(r.Choices) > 0 && len(r.Choices[0].Message.ToolCalls) > 0
}

// =============================================================================
// STREAMING RESPONSE TYPES
// =============================================================================

// StreamChunk is one SSE event of a streaming response.
type StreamChunk struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Model   string         `json:"model"`
	Choices []StreamChoice `json:"choices"`
}

// StreamChoice carries the delta for one alternative.
type StreamChoice struct {
	Index        int    `json:"index"`
	Delta        Delta  `json:"delta"`
	FinishReason string `json:"finish_reason"`
}

// Delta is an incremental piece of the assistant turn: a content
// fragment, tool-call fragments, or both.
type Delta struct {
	Role      string          `json:"role,omitempty"`
	Content   string          `json:"content,omitempty"`
	ToolCalls []ToolCallDelta `json:"tool_calls,omitempty"`
}

// ToolCallDelta is a fragment of one tool call. The first fragment for
// a call carries its id, type and function name; later fragments carry
// only argument text. Index ties fragments of the same call together.
type ToolCallDelta struct {
	Index    int               `json:"index"`
	ID       string            `json:"id,omitempty"`
	Type     string            `json:"type,omitempty"`
	Function FunctionCallDelta `json:"function"`
}

// FunctionCallDelta is the function part of a tool-call fragment.
type FunctionCallDelta struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// =============================================================================
// ERROR BODY
// =============================================================================

// apiError is the error body some backends return on non-200 status.
type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}
