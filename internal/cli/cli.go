// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - argument parsing and command dispatch for wikichat.
package cli

import (
	"fmt"
	"os"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdChat Command = iota
	CmdAsk
	CmdEmbedCheck
	CmdAudit
	CmdConfig
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet   bool
	Verbose bool
	Model   string
	BaseURL string
	JSON    bool

	// Command-specific
	Query   string
	MaxIter int // tool-iteration budget override (-1 means unset)

	// Raw args remaining after command extraction
	Raw []string
}

const usageText = `wikichat - Wikipedia-backed chat for a local LLM server

Wikichat drives an OpenAI-compatible chat-completions server (LM
Studio or similar) and lets the model look facts up instead of
guessing: it can fetch Wikipedia article introductions and compute
date differences through tool calls.

Usage:
  wikichat                   Interactive chat (default)
  wikichat chat              Interactive chat
  wikichat ask "question"    Ask a single question and exit
  wikichat embedcheck        Probe the server's embeddings endpoint
  wikichat audit [show|stats] Inspect the tool execution log
  wikichat config [show|init] Configuration
  wikichat version           Show version
  wikichat help              Show this help

Global flags:
  -q, --quiet                Suppress progress output
  -v, --verbose              Show request/tool detail
  --model NAME               Override the configured model
  --base-url URL             Override the server base URL
  --json                     Machine-readable output where supported

Chat commands (inside the REPL):
  quit, exit                 Leave the chat
  /save FILE                 Save the conversation to FILE
  /load FILE                 Load a conversation from FILE
  /clear                     Clear history (keeps the system prompt)
  /audit                     Show recent tool executions
  /help                      Show REPL commands

Ask flags:
  --max-iter N               Tool-iteration budget (default from config)

Environment:
  OPENAI_API                 Server base URL
  OPENAI_MODEL               Model identifier
  OPENAI_KEY                 API key (local servers accept anything)

Configuration: ~/.wikichat/config.toml
Version: %s
`

// PrintUsage prints the usage text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("wikichat version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
}

// Parse parses command-line arguments and returns the command and args.
func Parse() (Command, Args) {
	remaining, parsed := parseGlobalFlags(os.Args[1:])

	// No command defaults to interactive chat.
	if len(remaining) == 0 {
		return CmdChat, parsed
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsed.Raw = remaining

	switch cmd {
	case "chat":
		return CmdChat, parsed

	case "ask":
		parseAskArgs(&parsed, remaining)
		return CmdAsk, parsed

	case "embedcheck", "embeddings":
		return CmdEmbedCheck, parsed

	case "audit":
		return CmdAudit, parsed

	case "config":
		return CmdConfig, parsed

	case "version", "--version", "-V":
		return CmdVersion, parsed

	case "help", "--help", "-h":
		return CmdHelp, parsed

	default:
		// Unrecognized word: treat the whole line as an ask query,
		// so `wikichat "who was Tesla"` just works.
		parsed.Query = strings.Join(append([]string{cmd}, remaining...), " ")
		parsed.MaxIter = -1
		return CmdAsk, parsed
	}
}

// parseGlobalFlags extracts flags that apply to every command.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	parsed := Args{MaxIter: -1}

	i := 0
	for i < len(args) {
		arg := args[i]

		switch arg {
		case "-q", "--quiet":
			parsed.Quiet = true
		case "-v", "--verbose":
			parsed.Verbose = true
		case "--json":
			parsed.JSON = true
		case "--model":
			if i+1 < len(args) {
				i++
				parsed.Model = args[i]
			}
		case "--base-url":
			if i+1 < len(args) {
				i++
				parsed.BaseURL = args[i]
			}
		default:
			switch {
			case strings.HasPrefix(arg, "--model="):
				parsed.Model = strings.TrimPrefix(arg, "--model=")
			case strings.HasPrefix(arg, "--base-url="):
				parsed.BaseURL = strings.TrimPrefix(arg, "--base-url=")
			default:
				remaining = append(remaining, arg)
			}
		}
		i++
	}

	return remaining, parsed
}

// parseAskArgs parses ask-specific arguments; everything that is not
// a flag joins into the query.
func parseAskArgs(args *Args, remaining []string) {
	parser := NewArgParser(remaining)
	args.MaxIter = parser.FlagIntOrDefault("max-iter", -1)
	args.Query = strings.Join(parser.PositionalFrom(0), " ")
}
