// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"

	"github.com/jeranaias/wikichat/internal/audit"
	"github.com/jeranaias/wikichat/internal/chat"
	"github.com/jeranaias/wikichat/internal/config"
	"github.com/jeranaias/wikichat/internal/conversation"
	"github.com/jeranaias/wikichat/internal/driver"
	"github.com/jeranaias/wikichat/internal/tools"
)

// =============================================================================
// SESSION SETUP
// =============================================================================

// Session bundles everything one chat or ask invocation needs: the
// configuration, the chat client, the tool registry, the audit log
// and the driver running the loop.
type Session struct {
	Config   *config.Config
	Client   *chat.Client
	Registry *tools.Registry
	Audit    *audit.Log
	Driver   *driver.Driver

	Quiet   bool
	Verbose bool
}

// NewSession loads configuration, applies CLI overrides and wires the
// client, the tools and the audit log together.
func NewSession(args Args) (*Session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	// CLI flags win over config and environment.
	if args.Model != "" {
		cfg.Server.Model = args.Model
	}
	if args.BaseURL != "" {
		cfg.Server.BaseURL = args.BaseURL
	}

	client := chat.NewClientWithConfig(cfg.ClientConfig())

	registry := tools.NewRegistry()
	cacheDir := cfg.Cache.Dir
	if !cfg.Cache.Enabled {
		cacheDir = ""
	}
	wiki := tools.NewWikipediaClient(cacheDir)
	registry.Register(tools.WikipediaTool(wiki))
	registry.Register(tools.AuthoritativeTextTool(wiki))
	registry.Register(tools.DateSubtractTool())

	s := &Session{
		Config:   cfg,
		Client:   client,
		Registry: registry,
		Quiet:    args.Quiet,
		Verbose:  args.Verbose,
	}

	// A broken audit log should not keep the chat from starting.
	if cfg.Audit.Enabled {
		log, err := audit.Open(cfg.Audit.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: audit log unavailable: %v\n", err)
		} else {
			s.Audit = log
			registry.SetRecorder(log.Recorder())
		}
	}

	s.Driver = driver.New(client, registry)
	s.Driver.SetEvents(s.events())
	return s, nil
}

// Close releases session resources.
func (s *Session) Close() {
	if s.Audit != nil {
		s.Audit.Close()
	}
}

// events builds the progress hooks that print tool activity the way
// the interactive chat displays it.
func (s *Session) events() driver.Events {
	ev := driver.Events{
		OnContent: func(fragment string) {
			fmt.Print(fragment)
		},
	}
	if s.Quiet {
		return ev
	}

	ev.OnToolCall = func(call conversation.ToolCall) {
		fmt.Println(toolStyle.Render(fmt.Sprintf("[Tool] %s(%s)", call.Function.Name, call.Function.Arguments)))
	}
	ev.OnToolResult = func(call conversation.ToolCall, result tools.Result) {
		printToolResult(result)
	}
	if s.Verbose {
		ev.OnRound = func(messages, tools int) {
			fmt.Fprintf(os.Stderr, "%s %d messages in context, offering %d tools\n",
				infoStyle.Render("[Request]"), messages, tools)
		}
	}
	return ev
}

// printToolResult shows a tool result between full-width banners, the
// way an encyclopedia excerpt reads best.
func printToolResult(result tools.Result) {
	if result.OK() {
		fmt.Println()
		fmt.Println(renderSeparator("="))
		if result.Title != "" {
			fmt.Printf("\n%s\n", assistantStyle.Render(result.Title))
		}
		fmt.Println(renderSeparator("-"))
		fmt.Println(result.Content)
		fmt.Println(renderSeparator("=") + "\n")
		return
	}
	fmt.Printf("\n%s %s\n", errorStyle.Render("[Tool error]"), result.Message)
}

// printServerError explains a failed request with remediation hints
// for the usual local-server mistakes.
func printServerError(s *Session, err error) {
	cfg := s.Config
	fmt.Fprintf(os.Stderr,
		"\nError chatting with the LM Studio server!\n\n"+
			"Please ensure:\n"+
			"1. LM Studio server is running at %s (hostname:port)\n"+
			"2. Model '%s' is downloaded\n"+
			"3. Model '%s' is loaded, or that just-in-time model loading is enabled\n\n"+
			"Error details: %v\n"+
			"See https://lmstudio.ai/docs/basics/server for more information\n",
		cfg.Server.BaseURL, cfg.Server.Model, cfg.Server.Model, err)
}
