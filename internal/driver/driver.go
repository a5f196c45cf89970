// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package driver runs the tool-calling conversation loop: it sends the
// history to the model, executes any requested tools, feeds the
// results back, and repeats until the model answers in plain text or
// the tool-iteration budget runs out.
package driver

import (
	"context"
	"fmt"
	"os"

	"github.com/jeranaias/wikichat/internal/chat"
	"github.com/jeranaias/wikichat/internal/conversation"
	"github.com/jeranaias/wikichat/internal/tools"
)

// =============================================================================
// SYSTEM PROMPT
// =============================================================================

// DefaultSystemPrompt instructs the model to prefer tool lookups over
// its own recall.
const DefaultSystemPrompt = "You are an assistant that can retrieve Wikipedia articles. " +
	"Your role is identified as 'assistant', and you are helpfully " +
	"answering questions to the individual with the role 'user', " +
	"and you can also invoke tools to help you answer questions; " +
	"those machine-generated responses will be provided to you " +
	"with the role 'tool'. " +
	"When asked about a topic, you can retrieve Wikipedia articles " +
	"and cite information from them." +
	" You also have a helper utility to help you compute difference" +
	" between two dates in years; you prefer to use that to do" +
	" date subtraction." +
	" If you are asked about a fact, you do prefer to look it up in" +
	" wikipedia rather than assuming you know the value already. For" +
	" events you believe did not happen, you simply check wikipedia." +
	" You avoid overthinking and repetitiveness in thinking." +
	" You have little faith in your own knowledge. You do not overthink:" +
	" you just look up facts using fetch_wikipedia_content and a" +
	" TOOL_REQUEST whenever possible. You keep your thinking stage short" +
	" and sweet, and just plan on how to get the data most efficiently." +
	" Your memory is faulty so you avoid refering to it."

// =============================================================================
// DRIVER
// =============================================================================

// CompletionClient is the subset of the chat client the driver needs.
// *chat.Client satisfies it.
type CompletionClient interface {
	Completion(ctx context.Context, messages []conversation.Message, defs []tools.Definition) (*chat.CompletionResponse, error)
	CompletionStream(ctx context.Context, messages []conversation.Message, onContent chat.ContentCallback) (*chat.StreamedResponse, error)
}

// Events are optional hooks for surfacing progress to the user
// interface. Any field may be nil.
type Events struct {
	// OnContent receives streamed content fragments as they arrive.
	OnContent chat.ContentCallback

	// OnToolCall fires before a requested tool is dispatched.
	OnToolCall func(call conversation.ToolCall)

	// OnToolResult fires after a tool returns, with its decoded result.
	OnToolResult func(call conversation.ToolCall, result tools.Result)

	// OnRound fires before each request, with the number of messages
	// in the context and the number of tools offered.
	OnRound func(messages, tools int)
}

// Driver owns one conversation turn at a time. It never mutates the
// message slice it is given; callers receive an extended copy.
type Driver struct {
	client   CompletionClient
	registry *tools.Registry
	events   Events
}

// New creates a driver over a chat client and a tool registry.
func New(client CompletionClient, registry *tools.Registry) *Driver {
	return &Driver{client: client, registry: registry}
}

// SetEvents installs the progress hooks. Call before Ask.
func (d *Driver) SetEvents(events Events) {
	d.events = events
}

// Ask sends the messages to the model and processes tool calls until
// the model produces a plain answer or the tool-iteration budget is
// exhausted. It returns the full extended history: the input messages
// followed by every assistant and tool message the turn produced.
//
// While budget remains and tools are registered, requests are
// non-streaming and offer the tool schemas. The final request (budget
// spent, or no tools) streams without tools; if the model hallucinates
// a tool call anyway it is logged and kept (undispatched) in the final
// assistant message.
func (d *Driver) Ask(ctx context.Context, messages []conversation.Message, budget int) ([]conversation.Message, error) {
	history := make([]conversation.Message, len(messages))
	copy(history, messages)

	for budget > 0 && d.registry.Len() > 0 {
		defs := d.registry.Definitions()
		d.round(len(history), len(defs))

		resp, err := d.client.Completion(ctx, history, defs)
		if err != nil {
			return history, err
		}

		msg := resp.Choices[0].Message
		if !resp.HasToolCalls() {
			history = append(history, conversation.NewAssistantMessage(msg.Content))
			return history, nil
		}

		assistant := conversation.NewAssistantMessage(msg.Content)
		assistant.ToolCalls = msg.ToolCalls
		history = append(history, assistant)

		// Execute calls synchronously in request order; each produces
		// exactly one tool-role message.
		for _, call := range msg.ToolCalls {
			history = append(history, d.dispatch(ctx, call))
		}
		budget--
	}

	// Budget spent (or no tools registered): stream the final answer
	// without offering tools.
	d.round(len(history), 0)
	streamed, err := d.client.CompletionStream(ctx, history, d.events.OnContent)
	if err != nil {
		return history, err
	}
	if streamed.HasToolCalls() {
		// The calls stay in the history so the transcript records what
		// the model asked for, but nothing dispatches them.
		fmt.Fprintf(os.Stderr, "warning: model requested %d tool call(s) with no budget left; not dispatching\n", len(streamed.ToolCalls))
	}
	history = append(history, streamed.Message())
	return history, nil
}

func (d *Driver) dispatch(ctx context.Context, call conversation.ToolCall) conversation.Message {
	if d.events.OnToolCall != nil {
		d.events.OnToolCall(call)
	}
	msg, result := d.registry.Dispatch(ctx, call)
	if d.events.OnToolResult != nil {
		d.events.OnToolResult(call, result)
	}
	return msg
}

func (d *Driver) round(messages, tools int) {
	if d.events.OnRound != nil {
		d.events.OnRound(messages, tools)
	}
}
