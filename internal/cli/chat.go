// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - interactive chat REPL for wikichat.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/jeranaias/wikichat/internal/config"
	"github.com/jeranaias/wikichat/internal/conversation"
	"github.com/jeranaias/wikichat/internal/driver"
)

// greeting matches the opening line users have come to expect.
const greeting = "Hi! I can access Wikipedia to help answer your questions about history, " +
	"science, people, places, or concepts - or we can just chat about " +
	"anything else!"

// =============================================================================
// INPUT HISTORY
// =============================================================================

// inputReader wraps liner with persistent input history, so arrow-key
// recall survives across sessions.
type inputReader struct {
	line        *liner.State
	historyFile string
}

func newInputReader() *inputReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	r := &inputReader{
		line:        line,
		historyFile: filepath.Join(dir, "chat_history"),
	}
	if f, err := os.Open(r.historyFile); err == nil {
		r.line.ReadHistory(f)
		f.Close()
	}
	return r
}

func (r *inputReader) readLine(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

func (r *inputReader) close() {
	if err := os.MkdirAll(filepath.Dir(r.historyFile), 0755); err == nil {
		if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			r.line.WriteHistory(f)
			f.Close()
		}
	}
	r.line.Close()
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// HandleChat runs the interactive chat loop.
func HandleChat(args Args) error {
	session, err := NewSession(args)
	if err != nil {
		return err
	}
	defer session.Close()

	conv := conversation.NewWithSystem(driver.DefaultSystemPrompt)

	// Reload config edits mid-session; only the endpoint settings can
	// change safely while a conversation is in flight.
	watcher := watchConfig(session)
	if watcher != nil {
		defer watcher.Close()
	}

	if !session.Quiet {
		fmt.Printf("%s %s\n", assistantStyle.Render("Assistant:"), greeting)
		fmt.Println(infoStyle.Render("(Type 'quit' to exit)"))
	}

	reader := newInputReader()
	defer reader.close()

	for {
		input, err := reader.readLine(promptStyle.Render("\nYou: "))
		if err != nil {
			// Ctrl+C or Ctrl+D ends the session.
			fmt.Println()
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if strings.EqualFold(input, "quit") || strings.EqualFold(input, "exit") {
			return nil
		}

		if strings.HasPrefix(input, "/") {
			if err := handleSlashCommand(session, conv, input); err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[Error]"), err)
			}
			continue
		}

		if err := runTurn(session, conv, input); err != nil {
			printServerError(session, err)
			return err
		}
	}
}

// runTurn sends one user message through the driver and folds every
// new message back into the conversation.
func runTurn(session *Session, conv *conversation.Conversation, input string) error {
	conv.Append(conversation.NewUserMessage(input))
	before := conv.Messages()

	spinner := driver.NewSpinner("Thinking...")
	stopSpinner := func() {}
	if !session.Quiet && IsStdoutTTY() {
		spinner.Start()
		stopped := false
		stopSpinner = func() {
			if !stopped {
				stopped = true
				spinner.Stop()
			}
		}
	}

	// The streamed final answer must not interleave with the spinner.
	events := session.events()
	innerContent := events.OnContent
	first := true
	events.OnContent = func(fragment string) {
		if first {
			first = false
			stopSpinner()
			fmt.Printf("\n%s ", assistantStyle.Render("Assistant:"))
		}
		if innerContent != nil {
			innerContent(fragment)
		}
	}
	innerCall := events.OnToolCall
	events.OnToolCall = func(call conversation.ToolCall) {
		stopSpinner()
		if innerCall != nil {
			innerCall(call)
		}
	}
	session.Driver.SetEvents(events)

	extended, err := session.Driver.Ask(context.Background(), before, session.Config.Chat.ToolIterations)
	stopSpinner()
	if err != nil {
		return err
	}
	fmt.Println()

	conv.Extend(extended[len(before):])
	return nil
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

func handleSlashCommand(session *Session, conv *conversation.Conversation, input string) error {
	parts := strings.Fields(input)
	command := strings.ToLower(parts[0])
	args := parts[1:]

	switch command {
	case "/help", "/h", "/?":
		printChatHelp()
		return nil

	case "/clear", "/c":
		conv.Clear()
		fmt.Println(toolStyle.Render("[Conversation cleared]"))
		return nil

	case "/save":
		if len(args) == 0 {
			return fmt.Errorf("usage: /save FILE")
		}
		path := historyPath(session, args[0])
		if err := conv.Save(path); err != nil {
			return err
		}
		fmt.Printf("%s %s\n", toolStyle.Render("[Saved]"), path)
		return nil

	case "/load":
		if len(args) == 0 {
			return fmt.Errorf("usage: /load FILE")
		}
		path := historyPath(session, args[0])
		loaded, err := conversation.Load(path)
		if err != nil {
			return err
		}
		conv.Replace(loaded.Messages())
		fmt.Printf("%s %s (%d messages)\n", toolStyle.Render("[Loaded]"), path, conv.Len())
		return nil

	case "/audit":
		return printAuditRecent(session, 10)

	default:
		return fmt.Errorf("unknown command: %s (type /help for commands)", command)
	}
}

// historyPath resolves a bare filename against the history directory;
// absolute and relative paths pass through unchanged.
func historyPath(session *Session, name string) string {
	if strings.ContainsRune(name, os.PathSeparator) || filepath.IsAbs(name) {
		return name
	}
	dir := session.Config.Chat.HistoryDir
	if dir == "" {
		return name
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "%s history dir unavailable: %v\n", warningStyle.Render("[Warning]"), err)
		return name
	}
	return filepath.Join(dir, name)
}

func printChatHelp() {
	fmt.Println()
	commands := []struct {
		cmd  string
		desc string
	}{
		{"/save FILE", "Save the conversation"},
		{"/load FILE", "Load a saved conversation"},
		{"/clear", "Clear history (keeps the system prompt)"},
		{"/audit", "Show recent tool executions"},
		{"/help", "Show this help"},
		{"quit, exit", "Leave the chat"},
	}
	for _, c := range commands {
		fmt.Printf("  %s  %s\n",
			toolStyle.Render(fmt.Sprintf("%-12s", c.cmd)),
			infoStyle.Render(c.desc))
	}
	fmt.Println()
}

// =============================================================================
// LIVE CONFIG RELOAD
// =============================================================================

// watchConfig reloads endpoint settings when the config file changes.
// Returns nil when watching is unavailable; the chat works without it.
func watchConfig(session *Session) *config.Watcher {
	path, err := config.ConfigPath()
	if err != nil {
		return nil
	}
	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		return nil
	}

	watcher, err := config.Watch(path,
		func(cfg *config.Config) {
			session.Config.Server = cfg.Server
			session.Config.Chat.ToolIterations = cfg.Chat.ToolIterations
			session.Client.Config().BaseURL = strings.TrimRight(cfg.Server.BaseURL, "/")
			session.Client.Config().Model = cfg.Server.Model
			session.Client.Config().APIKey = cfg.Server.APIKey
			if !session.Quiet {
				fmt.Fprintln(os.Stderr, infoStyle.Render("[Config reloaded]"))
			}
		},
		func(err error) {
			fmt.Fprintf(os.Stderr, "%s config reload failed: %v\n", warningStyle.Render("[Warning]"), err)
		})
	if err != nil {
		return nil
	}
	return watcher
}
