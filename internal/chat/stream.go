// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"sort"
	"strings"

	"github.com/jeranaias/wikichat/internal/conversation"
)

// =============================================================================
// SSE READER
// =============================================================================

// readSSE consumes a text/event-stream body, invoking onChunk for each
// decodable chunk. Lines that are not data lines, or whose payload is
// not valid JSON, are skipped; the `[DONE]` sentinel ends the stream.
func readSSE(ctx context.Context, body io.Reader, onChunk func(*StreamChunk)) error {
	scanner := bufio.NewScanner(body)
	// Article-sized content fragments fit easily, but leave headroom.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ErrTimeout
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			return nil
		}

		var chunk StreamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		onChunk(&chunk)
	}

	if err := scanner.Err(); err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "stream interrupted", Cause: err}
	}
	return nil
}

// =============================================================================
// STREAM DECODER
// =============================================================================

// StreamedResponse is a fully reassembled streamed assistant turn.
type StreamedResponse struct {
	Content   string
	ToolCalls []conversation.ToolCall
}

// HasToolCalls reports whether the streamed turn requested tools.
func (r *StreamedResponse) HasToolCalls() bool {
	return len(r.ToolCalls) > 0
}

// Message converts the streamed turn into an assistant message.
func (r *StreamedResponse) Message() conversation.Message {
	m := conversation.NewAssistantMessage(r.Content)
	m.ToolCalls = r.ToolCalls
	return m
}

// inProgressCall accumulates the fragments of one tool call.
type inProgressCall struct {
	index int
	id    string
	typ   string
	name  string
	args  strings.Builder
}

// streamDecoder folds a chunk sequence into content plus tool calls.
// Fragments of the same call share a positional index: the first
// fragment for an index opens the call and captures its identity,
// later fragments contribute argument text only.
//
// With synthetic indexing enabled, the backend's index field is
// ignored and any fragment carrying an id opens a new call. That is
// the only way to split calls apart on backends that send index 0 for
// everything.
type streamDecoder struct {
	synthetic bool

	content strings.Builder
	calls   map[int]*inProgressCall
	current *inProgressCall
	nextIdx int
}

func newStreamDecoder(synthetic bool) *streamDecoder {
	return &streamDecoder{
		synthetic: synthetic,
		calls:     make(map[int]*inProgressCall),
	}
}

// push folds one chunk and returns any content fragment it carried.
func (d *streamDecoder) push(chunk *StreamChunk) string {
	delta := chunk.Choices[0].Delta

	for _, tc := range delta.ToolCalls {
		d.pushToolCall(tc)
	}

	if delta.Content != "" {
		d.content.WriteString(delta.Content)
	}
	return delta.Content
}

func (d *streamDecoder) pushToolCall(tc ToolCallDelta) {
	index := tc.Index
	if d.synthetic {
		if tc.ID != "" || d.current == nil {
			index = d.nextIdx
			d.nextIdx++
		} else {
			index = d.current.index
		}
	}

	call, open := d.calls[index]
	if !open {
		call = &inProgressCall{
			index: index,
			id:    tc.ID,
			typ:   tc.Type,
			name:  tc.Function.Name,
		}
		d.calls[index] = call
	}
	call.args.WriteString(tc.Function.Arguments)
	d.current = call
}

// finalize closes the fold and returns the assembled turn, tool calls
// ordered by index.
func (d *streamDecoder) finalize() *StreamedResponse {
	indexes := make([]int, 0, len(d.calls))
	for idx := range d.calls {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	calls := make([]conversation.ToolCall, 0, len(indexes))
	for _, idx := range indexes {
		c := d.calls[idx]
		typ := c.typ
		if typ == "" {
			typ = "function"
		}
		calls = append(calls, conversation.ToolCall{
			ID:   c.id,
			Type: typ,
			Function: conversation.FunctionCall{
				Name:      c.name,
				Arguments: c.args.String(),
			},
		})
	}

	return &StreamedResponse{
		Content:   d.content.String(),
		ToolCalls: calls,
	}
}
