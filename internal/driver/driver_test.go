// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package driver

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/wikichat/internal/chat"
	"github.com/jeranaias/wikichat/internal/conversation"
	"github.com/jeranaias/wikichat/internal/tools"
)

// fakeClient replays scripted responses.
type fakeClient struct {
	completions     []*chat.CompletionResponse
	streamed        *chat.StreamedResponse
	completionCalls int
	streamCalls     int
	lastDefs        []tools.Definition
}

func (f *fakeClient) Completion(ctx context.Context, messages []conversation.Message, defs []tools.Definition) (*chat.CompletionResponse, error) {
	f.lastDefs = defs
	resp := f.completions[f.completionCalls%len(f.completions)]
	f.completionCalls++
	return resp, nil
}

func (f *fakeClient) CompletionStream(ctx context.Context, messages []conversation.Message, onContent chat.ContentCallback) (*chat.StreamedResponse, error) {
	f.streamCalls++
	if onContent != nil {
		onContent(f.streamed.Content)
	}
	return f.streamed, nil
}

func plainResponse(content string) *chat.CompletionResponse {
	return &chat.CompletionResponse{
		Choices: []chat.Choice{{Message: chat.AssistantMessage{Role: "assistant", Content: content}}},
	}
}

func toolResponse(callID, name, args string) *chat.CompletionResponse {
	return &chat.CompletionResponse{
		Choices: []chat.Choice{{Message: chat.AssistantMessage{
			Role: "assistant",
			ToolCalls: []conversation.ToolCall{{
				ID:   callID,
				Type: "function",
				Function: conversation.FunctionCall{
					Name:      name,
					Arguments: args,
				},
			}},
		}}},
	}
}

func stubRegistry(t *testing.T, name string) *tools.Registry {
	t.Helper()
	reg := tools.NewRegistry()
	reg.Register(&tools.Tool{
		Definition: tools.Definition{
			Type: "function",
			Function: tools.FunctionDefinition{
				Name:       name,
				Parameters: map[string]any{"type": "object"},
			},
		},
		Exec: func(ctx context.Context, args map[string]any) tools.Result {
			return tools.Success("stub result", "")
		},
	})
	return reg
}

func TestAskPlainAnswer(t *testing.T) {
	client := &fakeClient{completions: []*chat.CompletionResponse{plainResponse("Hi there")}}
	d := New(client, stubRegistry(t, "echo"))

	in := []conversation.Message{
		conversation.NewSystemMessage("be brief"),
		conversation.NewUserMessage("Hello"),
	}
	out, err := d.Ask(context.Background(), in, 4)
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if len(out) != len(in)+1 {
		t.Fatalf("history length = %d, want %d", len(out), len(in)+1)
	}
	last := out[len(out)-1]
	if last.Role != conversation.RoleAssistant || last.Content != "Hi there" {
		t.Errorf("last message = %+v", last)
	}
	if client.completionCalls != 1 || client.streamCalls != 0 {
		t.Errorf("calls = %d completion / %d stream, want 1/0", client.completionCalls, client.streamCalls)
	}
	if len(client.lastDefs) != 1 {
		t.Errorf("tools offered = %d, want 1", len(client.lastDefs))
	}
}

func TestAskOneToolRound(t *testing.T) {
	client := &fakeClient{completions: []*chat.CompletionResponse{
		toolResponse("call_1", "echo", `{"x":1}`),
		plainResponse("done"),
	}}
	d := New(client, stubRegistry(t, "echo"))

	var calls []string
	var results []tools.Result
	d.SetEvents(Events{
		OnToolCall:   func(c conversation.ToolCall) { calls = append(calls, c.Function.Name) },
		OnToolResult: func(c conversation.ToolCall, r tools.Result) { results = append(results, r) },
	})

	in := []conversation.Message{conversation.NewUserMessage("use the tool")}
	out, err := d.Ask(context.Background(), in, 4)
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	// user + assistant(tool call) + tool result + assistant answer
	if len(out) != 4 {
		t.Fatalf("history length = %d, want 4: %+v", len(out), out)
	}
	if len(out[1].ToolCalls) != 1 || out[1].ToolCalls[0].ID != "call_1" {
		t.Errorf("assistant tool-call message = %+v", out[1])
	}
	if out[2].Role != conversation.RoleTool || out[2].ToolCallID != "call_1" {
		t.Errorf("tool message = %+v", out[2])
	}
	if out[3].Content != "done" {
		t.Errorf("final answer = %q", out[3].Content)
	}
	if len(calls) != 1 || calls[0] != "echo" {
		t.Errorf("OnToolCall saw %v", calls)
	}
	if len(results) != 1 || !results[0].OK() {
		t.Errorf("OnToolResult saw %v", results)
	}
}

func TestAskBudgetExhaustion(t *testing.T) {
	// The model asks for a tool every round. Once the budget runs out
	// the driver must fall back to a streaming request without tools
	// and never dispatch the hallucinated call.
	dispatched := 0
	reg := tools.NewRegistry()
	reg.Register(&tools.Tool{
		Definition: tools.Definition{
			Type: "function",
			Function: tools.FunctionDefinition{
				Name:       "echo",
				Parameters: map[string]any{"type": "object"},
			},
		},
		Exec: func(ctx context.Context, args map[string]any) tools.Result {
			dispatched++
			return tools.Success("again", "")
		},
	})

	client := &fakeClient{
		completions: []*chat.CompletionResponse{toolResponse("call_n", "echo", `{}`)},
		streamed: &chat.StreamedResponse{
			Content: "giving up on tools",
			ToolCalls: []conversation.ToolCall{{
				ID:       "call_x",
				Type:     "function",
				Function: conversation.FunctionCall{Name: "echo", Arguments: `{}`},
			}},
		},
	}
	d := New(client, reg)

	var fragments []string
	d.SetEvents(Events{OnContent: func(s string) { fragments = append(fragments, s) }})

	in := []conversation.Message{conversation.NewUserMessage("loop forever")}
	out, err := d.Ask(context.Background(), in, 2)
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if client.completionCalls != 2 {
		t.Errorf("completion calls = %d, want 2", client.completionCalls)
	}
	if client.streamCalls != 1 {
		t.Errorf("stream calls = %d, want 1", client.streamCalls)
	}
	if dispatched != 2 {
		t.Errorf("tool dispatched %d times, want 2 (hallucinated call must not run)", dispatched)
	}
	// user + 2×(assistant + tool) + final assistant
	if len(out) != 6 {
		t.Fatalf("history length = %d, want 6", len(out))
	}
	last := out[len(out)-1]
	if last.Content != "giving up on tools" {
		t.Errorf("final content = %q", last.Content)
	}
	// The undispatched call stays visible in the transcript.
	if len(last.ToolCalls) != 1 || last.ToolCalls[0].ID != "call_x" {
		t.Errorf("final tool calls = %+v, want the single undispatched call_x", last.ToolCalls)
	}
	if strings.Join(fragments, "") != "giving up on tools" {
		t.Errorf("streamed fragments = %v", fragments)
	}
}

func TestAskEmptyRegistryStreams(t *testing.T) {
	client := &fakeClient{streamed: &chat.StreamedResponse{Content: "no tools here"}}
	d := New(client, tools.NewRegistry())

	out, err := d.Ask(context.Background(), []conversation.Message{conversation.NewUserMessage("hi")}, 4)
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if client.completionCalls != 0 || client.streamCalls != 1 {
		t.Errorf("calls = %d completion / %d stream, want 0/1", client.completionCalls, client.streamCalls)
	}
	if out[len(out)-1].Content != "no tools here" {
		t.Errorf("final message = %+v", out[len(out)-1])
	}
}

func TestAskDoesNotMutateInput(t *testing.T) {
	client := &fakeClient{completions: []*chat.CompletionResponse{plainResponse("ok")}}
	d := New(client, stubRegistry(t, "echo"))

	in := make([]conversation.Message, 1, 4)
	in[0] = conversation.NewUserMessage("hello")

	if _, err := d.Ask(context.Background(), in, 1); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if len(in) != 1 || in[0].Content != "hello" {
		t.Errorf("input slice mutated: %+v", in)
	}
}

func TestSpinnerWritesAndClears(t *testing.T) {
	var buf bytes.Buffer
	s := NewSpinner("Thinking...")
	s.out = &buf
	s.interval = 5 * time.Millisecond

	s.Start()
	time.Sleep(30 * time.Millisecond)
	s.Stop()

	got := buf.String()
	if !strings.Contains(got, "Thinking...") {
		t.Errorf("spinner never drew its message: %q", got)
	}
	if !strings.HasSuffix(got, "\r\033[K") {
		t.Errorf("spinner did not clear the line: %q", got)
	}

	// Stop is idempotent and nothing writes afterwards.
	s.Stop()
	n := buf.Len()
	time.Sleep(20 * time.Millisecond)
	if buf.Len() != n {
		t.Error("spinner wrote after Stop")
	}
}
