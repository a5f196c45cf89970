// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"encoding/json"
	"os"
	"time"

	"github.com/jeranaias/wikichat/internal/util"
)

// =============================================================================
// CONVERSATION LOG
// =============================================================================

// Conversation is an append-only message log. Messages receive their ID
// and parent link at insertion; callers always work on copies, so the
// log cannot be mutated from outside.
type Conversation struct {
	messages []Message

	// now is swappable for tests.
	now func() time.Time
}

// New creates an empty conversation.
func New() *Conversation {
	return &Conversation{now: time.Now}
}

// NewWithSystem creates a conversation seeded with a system prompt.
func NewWithSystem(prompt string) *Conversation {
	c := New()
	c.Append(NewSystemMessage(prompt))
	return c
}

// Append inserts a message, assigning its ID and chaining it to the
// previous message. A message that already carries an ID keeps it, so
// reloaded or re-appended messages retain their identity. Returns the
// stored message with identity filled in.
func (c *Conversation) Append(m Message) Message {
	if m.ID == "" {
		m.ID = messageID(c.now(), m)
	}
	if n := len(c.messages); n > 0 {
		m.ParentID = c.messages[n-1].ID
	}
	c.messages = append(c.messages, m)
	return m
}

// Extend appends every message in order and returns the stored copies.
func (c *Conversation) Extend(msgs []Message) []Message {
	stored := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		stored = append(stored, c.Append(m))
	}
	return stored
}

// Messages returns a copy of the log.
func (c *Conversation) Messages() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	return len(c.messages)
}

// Last returns the most recent message, or false if the log is empty.
func (c *Conversation) Last() (Message, bool) {
	if len(c.messages) == 0 {
		return Message{}, false
	}
	return c.messages[len(c.messages)-1], true
}

// Clear drops everything except system messages, so a fresh session
// keeps its prompt. The surviving messages are re-chained in place.
func (c *Conversation) Clear() {
	kept := c.messages[:0]
	for _, m := range c.messages {
		if m.Role == RoleSystem {
			kept = append(kept, m)
		}
	}
	for i := range kept {
		if i == 0 {
			kept[i].ParentID = ""
		} else {
			kept[i].ParentID = kept[i-1].ID
		}
	}
	c.messages = kept
}

// Replace swaps the log for the given messages, preserving their IDs.
// Used when loading a saved conversation.
func (c *Conversation) Replace(msgs []Message) {
	c.messages = make([]Message, len(msgs))
	copy(c.messages, msgs)
}

// =============================================================================
// PERSISTENCE
// =============================================================================

// conversationFile is the on-disk shape: {"messages":[...]}.
type conversationFile struct {
	Messages []Message `json:"messages"`
}

// Save writes the conversation to path as pretty-printed JSON.
// The write is atomic so a crash never leaves a truncated file.
func (c *Conversation) Save(path string) error {
	data, err := json.MarshalIndent(conversationFile{Messages: c.messages}, "", "  ")
	if err != nil {
		return err
	}
	return util.AtomicWriteFile(path, data, 0644)
}

// Load reads a conversation previously written by Save.
func Load(path string) (*Conversation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f conversationFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	c := New()
	c.Replace(f.Messages)
	return c, nil
}
