// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jeranaias/wikichat/internal/conversation"
)

// =============================================================================
// RESULT TYPE
// =============================================================================

// Result is the outcome of a tool execution as fed back to the model.
// Success carries content and title; errors carry a message. Executors
// never return Go errors: every failure becomes an error-status Result
// so the model can see it and retry with fixed arguments.
type Result struct {
	Status  string `json:"status"`
	Content string `json:"content,omitempty"`
	Title   string `json:"title,omitempty"`
	Message string `json:"message,omitempty"`
}

// Result status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Success builds a success result.
func Success(content, title string) Result {
	return Result{Status: StatusSuccess, Content: content, Title: title}
}

// Errorf builds an error result with a formatted message.
func Errorf(format string, args ...any) Result {
	return Result{Status: StatusError, Message: fmt.Sprintf(format, args...)}
}

// OK reports whether the result is a success.
func (r Result) OK() bool {
	return r.Status == StatusSuccess
}

// =============================================================================
// TOOL AND REGISTRY
// =============================================================================

// ExecFunc runs a tool against decoded arguments.
type ExecFunc func(ctx context.Context, args map[string]any) Result

// Tool pairs a wire definition with its executor.
type Tool struct {
	Definition Definition
	Exec       ExecFunc
}

// Name returns the tool's function name.
func (t *Tool) Name() string {
	return t.Definition.Function.Name
}

// ExecutionRecord describes one dispatch for audit purposes.
type ExecutionRecord struct {
	Tool      string
	Arguments string
	Status    string
	Message   string
	Timestamp time.Time
	Duration  time.Duration
}

// Recorder receives a record after every dispatch. Used by the audit
// log; must not block for long.
type Recorder func(rec ExecutionRecord)

// Registry maps tool names to executors and dispatches model-requested
// calls. Safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	tools    map[string]*Tool
	order    []string
	recorder Recorder
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

// Register adds a tool. Registering the same name twice replaces the
// executor but keeps the original position in Definitions.
func (r *Registry) Register(t *Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := t.Name()
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = t
}

// Get returns the tool by name, or nil.
func (r *Registry) Get(name string) *Tool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tools[name]
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tools)
}

// Definitions returns the wire definitions in registration order.
func (r *Registry) Definitions() []Definition {
	r.mu.Lock()
	defer r.mu.Unlock()

	defs := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition)
	}
	return defs
}

// SetRecorder installs an audit recorder.
func (r *Registry) SetRecorder(rec Recorder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recorder = rec
}

// =============================================================================
// DISPATCH
// =============================================================================

// Dispatch executes one model-requested tool call and returns the
// tool-role message to append plus the raw result. Failures never
// escape as errors: an unknown tool, undecodable arguments, or an
// executor failure all become error-status results the model can read.
func (r *Registry) Dispatch(ctx context.Context, call conversation.ToolCall) (conversation.Message, Result) {
	start := time.Now()

	var result Result
	tool := r.Get(call.Function.Name)
	switch {
	case tool == nil:
		result = Errorf("Sorry, assistant, but the tool you requested %s does not exist.", call.Function.Name)
	default:
		var args map[string]any
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			result = Errorf("%v", err)
		} else {
			result = tool.Exec(ctx, args)
		}
	}

	r.record(ExecutionRecord{
		Tool:      call.Function.Name,
		Arguments: call.Function.Arguments,
		Status:    result.Status,
		Message:   result.Message,
		Timestamp: start,
		Duration:  time.Since(start),
	})

	payload, err := json.Marshal(result)
	if err != nil {
		// Result is plain strings, so this cannot realistically fail.
		payload = []byte(`{"status":"error","message":"internal: failed to encode tool result"}`)
	}
	return conversation.NewToolMessage(string(payload), call.ID), result
}

func (r *Registry) record(rec ExecutionRecord) {
	r.mu.Lock()
	recorder := r.recorder
	r.mu.Unlock()

	if recorder != nil {
		recorder(rec)
	}
}
