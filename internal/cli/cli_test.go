// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jeranaias/wikichat/internal/config"
)

func TestArgParserFlags(t *testing.T) {
	p := NewArgParser([]string{"show", "--limit", "10", "--since=2024-01-01", "--json", "-t", "x"})

	if p.Subcommand() != "show" {
		t.Errorf("subcommand = %q, want show", p.Subcommand())
	}
	if p.Flag("limit") != "10" {
		t.Errorf("limit = %q", p.Flag("limit"))
	}
	if p.Flag("since") != "2024-01-01" {
		t.Errorf("since = %q", p.Flag("since"))
	}
	if !p.BoolFlag("json") {
		t.Error("json flag not detected")
	}
	if p.Flag("t") != "x" {
		t.Errorf("short flag t = %q", p.Flag("t"))
	}
}

func TestArgParserExplicitBool(t *testing.T) {
	p := NewArgParser([]string{"--json=false", "--color=true"})
	if p.BoolFlag("json") {
		t.Error("--json=false should be false")
	}
	if !p.BoolFlag("color") {
		t.Error("--color=true should be true")
	}
}

func TestArgParserPositionals(t *testing.T) {
	p := NewArgParser([]string{"search", "nikola", "tesla"})

	if p.PositionalCount() != 3 {
		t.Fatalf("positional count = %d", p.PositionalCount())
	}
	if got := p.PositionalFrom(1); len(got) != 2 || got[0] != "nikola" {
		t.Errorf("PositionalFrom(1) = %v", got)
	}
	if p.Positional(5) != "" {
		t.Error("out-of-range positional should be empty")
	}
}

func TestArgParserIntDefaults(t *testing.T) {
	p := NewArgParser([]string{"--limit", "abc"})
	if got := p.FlagIntOrDefault("limit", 20); got != 20 {
		t.Errorf("malformed int = %d, want default 20", got)
	}
	if got := p.FlagIntOrDefault("missing", 7); got != 7 {
		t.Errorf("missing int = %d, want default 7", got)
	}
}

func TestParseGlobalFlags(t *testing.T) {
	remaining, args := parseGlobalFlags([]string{
		"--model", "qwen", "--base-url=http://x:1/v1", "-q", "ask", "hello",
	})

	if args.Model != "qwen" {
		t.Errorf("model = %q", args.Model)
	}
	if args.BaseURL != "http://x:1/v1" {
		t.Errorf("base url = %q", args.BaseURL)
	}
	if !args.Quiet {
		t.Error("quiet not set")
	}
	if len(remaining) != 2 || remaining[0] != "ask" || remaining[1] != "hello" {
		t.Errorf("remaining = %v", remaining)
	}
}

func TestParseAskArgs(t *testing.T) {
	args := Args{}
	parseAskArgs(&args, []string{"who", "was", "Nikola", "Tesla", "--max-iter", "2"})

	if args.Query != "who was Nikola Tesla" {
		t.Errorf("query = %q", args.Query)
	}
	if args.MaxIter != 2 {
		t.Errorf("max iter = %d", args.MaxIter)
	}
}

func TestParseAskArgsNoBudgetFlag(t *testing.T) {
	args := Args{}
	parseAskArgs(&args, []string{"hello"})
	if args.MaxIter != -1 {
		t.Errorf("max iter = %d, want -1 (unset)", args.MaxIter)
	}
}

func TestHistoryPath(t *testing.T) {
	sessionWithDir := func(dir string) *Session {
		cfg := config.Default()
		cfg.Chat.HistoryDir = dir
		return &Session{Config: cfg}
	}

	t.Run("bare name joins history dir", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "history")
		got := historyPath(sessionWithDir(dir), "session.json")
		if got != filepath.Join(dir, "session.json") {
			t.Errorf("path = %q", got)
		}
		if _, err := os.Stat(dir); err != nil {
			t.Errorf("history dir not created: %v", err)
		}
	})

	t.Run("explicit paths pass through", func(t *testing.T) {
		s := sessionWithDir(t.TempDir())
		explicit := filepath.Join("some", "where", "session.json")
		if got := historyPath(s, explicit); got != explicit {
			t.Errorf("path = %q, want %q", got, explicit)
		}
	})

	t.Run("unusable history dir falls back to bare name", func(t *testing.T) {
		// A file where the directory should go makes MkdirAll fail.
		blocker := filepath.Join(t.TempDir(), "blocker")
		if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		got := historyPath(sessionWithDir(filepath.Join(blocker, "history")), "session.json")
		if got != "session.json" {
			t.Errorf("path = %q, want bare name", got)
		}
	})
}
