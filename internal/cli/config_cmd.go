// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - configuration inspection for wikichat.
package cli

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/wikichat/internal/config"
)

// HandleConfig dispatches the config subcommands.
//
//	wikichat config show   Print the effective configuration
//	wikichat config init   Write a config file with current defaults
//	wikichat config path   Print the config file location
func HandleConfig(args Args) error {
	parser := NewArgParser(args.Raw)

	switch parser.Subcommand() {
	case "", "show":
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		return toml.NewEncoder(os.Stdout).Encode(cfg)

	case "init":
		path, err := config.ConfigPath()
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil && !parser.BoolFlag("force") {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		cfg := config.Default()
		cfg.SetDefaults()
		if err := config.Save(cfg, path); err != nil {
			return err
		}
		fmt.Printf("%s wrote %s\n", toolStyle.Render("[OK]"), path)
		return nil

	case "path":
		path, err := config.ConfigPath()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil

	default:
		return fmt.Errorf("unknown config subcommand: %s (expected show, init or path)", parser.Subcommand())
	}
}
