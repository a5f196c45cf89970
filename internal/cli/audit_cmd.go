// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// audit_cmd.go - tool execution log inspection for wikichat.
package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jeranaias/wikichat/internal/audit"
	"github.com/jeranaias/wikichat/internal/config"
	"github.com/jeranaias/wikichat/internal/util"
)

// HandleAudit dispatches the audit subcommands.
//
//	wikichat audit show [--limit N] [--tool NAME] [--json]
//	wikichat audit stats
func HandleAudit(args Args) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := audit.Open(cfg.Audit.Path)
	if err != nil {
		return fmt.Errorf("audit log unavailable: %w", err)
	}
	defer log.Close()

	parser := NewArgParser(args.Raw)
	switch parser.Subcommand() {
	case "", "show":
		limit := parser.FlagIntOrDefault("limit", 20)
		var entries []audit.Entry
		if tool := parser.Flag("tool"); tool != "" {
			entries, err = log.ByTool(tool, limit)
		} else {
			entries, err = log.Recent(limit)
		}
		if err != nil {
			return err
		}
		return printAuditEntries(entries, args.JSON || parser.BoolFlag("json"))

	case "stats":
		stats, err := log.Summary()
		if err != nil {
			return err
		}
		return printAuditStats(stats, args.JSON || parser.BoolFlag("json"))

	default:
		return fmt.Errorf("unknown audit subcommand: %s (expected show or stats)", parser.Subcommand())
	}
}

func printAuditEntries(entries []audit.Entry, asJSON bool) error {
	if asJSON {
		out, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	if len(entries) == 0 {
		fmt.Println(infoStyle.Render("[No tool executions recorded]"))
		return nil
	}

	for _, e := range entries {
		status := toolStyle.Render("[ok]")
		if e.Status != "success" {
			status = errorStyle.Render("[error]")
		}
		fmt.Printf("%s %s %s %s %s\n",
			infoStyle.Render(e.Timestamp.Format(time.DateTime)),
			status,
			e.Tool,
			infoStyle.Render(util.TruncateRunes(e.Arguments, 60)),
			infoStyle.Render(e.Duration.Round(time.Millisecond).String()))
	}
	return nil
}

func printAuditStats(stats []audit.Stats, asJSON bool) error {
	if asJSON {
		out, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	if len(stats) == 0 {
		fmt.Println(infoStyle.Render("[No tool executions recorded]"))
		return nil
	}

	fmt.Printf("%s %s %s %s\n",
		util.PadWidth("TOOL", 32), util.PadWidth("TOTAL", 8), util.PadWidth("OK", 8), "FAILED")
	for _, s := range stats {
		fmt.Printf("%s %s %s %d\n",
			util.PadWidth(s.Tool, 32),
			util.PadWidth(fmt.Sprintf("%d", s.Total), 8),
			util.PadWidth(fmt.Sprintf("%d", s.Succeeded), 8),
			s.Failed)
	}
	return nil
}

// printAuditRecent backs the /audit slash command in the chat REPL.
func printAuditRecent(session *Session, limit int) error {
	if session.Audit == nil {
		fmt.Println(infoStyle.Render("[Audit log disabled]"))
		return nil
	}
	entries, err := session.Audit.Recent(limit)
	if err != nil {
		return err
	}
	return printAuditEntries(entries, false)
}
