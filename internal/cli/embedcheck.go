// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// embedcheck.go - embeddings endpoint probe for wikichat.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jeranaias/wikichat/internal/chat"
	"github.com/jeranaias/wikichat/internal/config"
)

// HandleEmbedCheck probes the server's embeddings endpoint and
// validates the response shape. Useful for checking a local server is
// fully up before pointing heavier tooling at it.
func HandleEmbedCheck(args Args) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if args.Model != "" {
		cfg.Server.Model = args.Model
	}
	if args.BaseURL != "" {
		cfg.Server.BaseURL = args.BaseURL
	}

	client := chat.NewClientWithConfig(cfg.ClientConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	report, err := client.ProbeEmbeddings(ctx, cfg.Server.Model, "hello world")
	if err != nil {
		fmt.Printf("%s embeddings probe failed\n", errorStyle.Render("[FAIL]"))
		return err
	}

	if args.JSON {
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	fmt.Printf("%s embeddings endpoint is healthy\n", toolStyle.Render("[OK]"))
	fmt.Printf("  %s %s\n", infoStyle.Render("Model:"), report.Model)
	fmt.Printf("  %s %d\n", infoStyle.Render("Dimensions:"), report.Dimensions)
	for _, w := range report.Warnings {
		fmt.Printf("  %s %s\n", warningStyle.Render("[Warning]"), w)
	}
	return nil
}
