// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - one-shot question answering for wikichat.
package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/jeranaias/wikichat/internal/conversation"
	"github.com/jeranaias/wikichat/internal/driver"
)

// HandleAsk answers a single question and exits. Tool calls run the
// same way they do in the interactive chat; the final answer renders
// as markdown on a TTY.
func HandleAsk(args Args) error {
	query := strings.TrimSpace(args.Query)
	if query == "" {
		return fmt.Errorf("usage: wikichat ask \"question\"")
	}

	session, err := NewSession(args)
	if err != nil {
		return err
	}
	defer session.Close()

	budget := session.Config.Chat.ToolIterations
	if args.MaxIter >= 0 {
		budget = args.MaxIter
	}

	messages := []conversation.Message{
		conversation.NewSystemMessage(driver.DefaultSystemPrompt),
		conversation.NewUserMessage(query),
	}

	// Collect streamed content instead of echoing fragments, so the
	// answer can be rendered as a whole.
	var answer strings.Builder
	events := session.events()
	events.OnContent = func(fragment string) {
		answer.WriteString(fragment)
	}
	session.Driver.SetEvents(events)

	spinner := driver.NewSpinner("Thinking...")
	if !session.Quiet && IsStdoutTTY() {
		spinner.Start()
	}
	extended, err := session.Driver.Ask(context.Background(), messages, budget)
	spinner.Stop()
	if err != nil {
		printServerError(session, err)
		return err
	}

	// Non-streamed final answers land in the history instead of the
	// content callback.
	final := answer.String()
	if final == "" && len(extended) > len(messages) {
		final = extended[len(extended)-1].Content
	}

	displayAnswer(final)
	return nil
}
