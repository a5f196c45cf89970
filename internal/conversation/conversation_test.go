// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFromRole(t *testing.T) {
	tests := []struct {
		role string
		want string
	}{
		{"system", RoleSystem},
		{"user", RoleUser},
		{"assistant", RoleAssistant},
		{"tool", RoleTool},
		{"narrator", "narrator"}, // unknown roles pass through
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			m := FromRole(tt.role, "hi")
			if m.Role != tt.want {
				t.Errorf("FromRole(%q).Role = %q, want %q", tt.role, m.Role, tt.want)
			}
			if m.Content != "hi" {
				t.Errorf("content = %q", m.Content)
			}
		})
	}
}

func TestAppendAssignsIdentity(t *testing.T) {
	c := New()
	c.now = func() time.Time { return time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC) }

	first := c.Append(NewUserMessage("hello"))
	second := c.Append(NewAssistantMessage("hi there"))

	if first.ID == "" || second.ID == "" {
		t.Fatal("appended messages must have IDs")
	}
	if !strings.HasPrefix(first.ID, "20250314092653-") {
		t.Errorf("ID should be timestamp-prefixed, got %q", first.ID)
	}
	if first.ParentID != "" {
		t.Errorf("first message should have no parent, got %q", first.ParentID)
	}
	if second.ParentID != first.ID {
		t.Errorf("second.ParentID = %q, want %q", second.ParentID, first.ID)
	}
	if first.ID == second.ID {
		t.Error("distinct content should not collide")
	}
}

func TestAppendKeepsExistingID(t *testing.T) {
	c := New()
	m := NewUserMessage("carried over")
	m.ID = "20240101000000-cafef00d"

	stored := c.Append(m)
	if stored.ID != "20240101000000-cafef00d" {
		t.Errorf("ID regenerated on append: %q", stored.ID)
	}

	// A fresh message still gets one assigned.
	next := c.Append(NewAssistantMessage("reply"))
	if next.ID == "" {
		t.Error("new message must receive an ID")
	}
	if next.ParentID != stored.ID {
		t.Errorf("ParentID = %q, want %q", next.ParentID, stored.ID)
	}
}

func TestMessagesReturnsCopy(t *testing.T) {
	c := New()
	c.Append(NewUserMessage("original"))

	snapshot := c.Messages()
	snapshot[0].Content = "mutated"

	if got, _ := c.Last(); got.Content != "original" {
		t.Errorf("internal log mutated through snapshot: %q", got.Content)
	}
}

func TestClearPreservesSystemMessages(t *testing.T) {
	c := NewWithSystem("You are an assistant.")
	c.Append(NewUserMessage("q1"))
	c.Append(NewAssistantMessage("a1"))
	c.Append(NewSystemMessage("addendum"))
	c.Append(NewUserMessage("q2"))

	c.Clear()

	msgs := c.Messages()
	if len(msgs) != 2 {
		t.Fatalf("len = %d, want 2 system messages", len(msgs))
	}
	for _, m := range msgs {
		if m.Role != RoleSystem {
			t.Errorf("non-system message survived Clear: %q", m.Role)
		}
	}
	if msgs[0].ParentID != "" {
		t.Errorf("first surviving message should be re-rooted, got parent %q", msgs[0].ParentID)
	}
	if msgs[1].ParentID != msgs[0].ID {
		t.Errorf("surviving chain broken: %q -> %q", msgs[1].ParentID, msgs[0].ID)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.json")

	c := NewWithSystem("system prompt")
	c.Append(NewUserMessage("what is the capital of france"))
	asst := NewAssistantMessage("")
	asst.ToolCalls = []ToolCall{{
		ID:   "call_1",
		Type: "function",
		Function: FunctionCall{
			Name:      "fetch_wikipedia_content",
			Arguments: `{"search_query":"Paris"}`,
		},
	}}
	c.Append(asst)
	c.Append(NewToolMessage(`{"status":"success"}`, "call_1"))

	if err := c.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Len() != c.Len() {
		t.Fatalf("len = %d, want %d", loaded.Len(), c.Len())
	}

	orig := c.Messages()
	got := loaded.Messages()
	for i := range orig {
		if got[i].ID != orig[i].ID {
			t.Errorf("msg %d ID = %q, want %q", i, got[i].ID, orig[i].ID)
		}
		if got[i].Role != orig[i].Role {
			t.Errorf("msg %d role = %q, want %q", i, got[i].Role, orig[i].Role)
		}
		if got[i].Content != orig[i].Content {
			t.Errorf("msg %d content mismatch", i)
		}
	}
	if len(got[1].ToolCalls) != 1 || got[1].ToolCalls[0].Function.Name != "fetch_wikipedia_content" {
		t.Errorf("tool calls lost in round trip: %+v", got[1].ToolCalls)
	}
	if got[2].ToolCallID != "call_1" {
		t.Errorf("tool_call_id = %q", got[2].ToolCallID)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
