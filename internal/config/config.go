// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for
// wikichat.
//
// Configuration is TOML with sensible defaults and environment
// variable overrides. Default location: ~/.wikichat/config.toml.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/wikichat/internal/chat"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete wikichat configuration.
type Config struct {
	Version string `toml:"version"`

	// Server is the chat-completions endpoint configuration.
	Server ServerConfig `toml:"server"`

	// Chat controls the conversation loop.
	Chat ChatConfig `toml:"chat"`

	// Quirks adapts requests and stream decoding to backend bugs.
	Quirks QuirksConfig `toml:"quirks"`

	// Cache configures the Wikipedia response cache.
	Cache CacheConfig `toml:"cache"`

	// Audit configures the tool execution log.
	Audit AuditConfig `toml:"audit"`
}

// ServerConfig contains the endpoint settings.
type ServerConfig struct {
	// BaseURL is the OpenAI-compatible API base, including /v1
	BaseURL string `toml:"base_url"`
	// APIKey is sent as a bearer token; local servers accept anything
	APIKey string `toml:"api_key"`
	// Model is the model identifier to request
	Model string `toml:"model"`
	// TimeoutSecs bounds non-streaming requests
	TimeoutSecs int `toml:"timeout_secs"`
}

// ChatConfig contains conversation loop settings.
type ChatConfig struct {
	// ToolIterations is the tool-round budget per user turn
	ToolIterations int `toml:"tool_iterations"`
	// HistoryDir is where /save and /load keep conversations
	HistoryDir string `toml:"history_dir"`
}

// QuirksConfig contains backend workaround flags.
type QuirksConfig struct {
	// StripStrict removes the `strict` marker from tool definitions
	StripStrict bool `toml:"strip_strict"`
	// SyntheticToolIndexes assigns stream positions locally for
	// backends that report index 0 for every tool call
	SyntheticToolIndexes bool `toml:"synthetic_tool_indexes"`
}

// CacheConfig contains Wikipedia cache settings.
type CacheConfig struct {
	// Enabled controls whether article responses are cached
	Enabled bool `toml:"enabled"`
	// Dir is the cache directory
	Dir string `toml:"dir"`
}

// AuditConfig contains tool execution log settings.
type AuditConfig struct {
	// Enabled controls whether tool dispatches are recorded
	Enabled bool `toml:"enabled"`
	// Path is the SQLite database location
	Path string `toml:"path"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a Config with default values. Directory fields stay
// empty here and are resolved against the home directory by
// SetDefaults, so tests can point them elsewhere first.
func Default() *Config {
	return &Config{
		Version: "1.0.0",
		Server: ServerConfig{
			BaseURL:     "http://0.0.0.0:5001/v1",
			APIKey:      "lm-studio",
			Model:       "mlx-community/llama-3.2-3b-instruct",
			TimeoutSecs: 120,
		},
		Chat: ChatConfig{
			ToolIterations: 4,
		},
		Cache: CacheConfig{
			Enabled: true,
		},
		Audit: AuditConfig{
			Enabled: true,
		},
	}
}

// ConfigDir returns the wikichat configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".wikichat"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// =============================================================================
// LOAD
// =============================================================================

// Load loads configuration from the default path, falling back to
// defaults when no file exists. Environment overrides apply last.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		cfg := Default()
		cfg.ApplyEnvOverrides()
		cfg.SetDefaults()
		return cfg, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific file. A missing
// file is not an error; the defaults simply stand.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SetDefaults fills any missing or zero values, resolving directory
// defaults under the home directory.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = defaults.Server.BaseURL
	}
	if c.Server.APIKey == "" {
		c.Server.APIKey = defaults.Server.APIKey
	}
	if c.Server.Model == "" {
		c.Server.Model = defaults.Server.Model
	}
	if c.Server.TimeoutSecs == 0 {
		c.Server.TimeoutSecs = defaults.Server.TimeoutSecs
	}
	if c.Chat.ToolIterations == 0 {
		c.Chat.ToolIterations = defaults.Chat.ToolIterations
	}

	dir, err := ConfigDir()
	if err != nil {
		// No home directory; leave path fields for the caller.
		return
	}
	if c.Cache.Dir == "" {
		c.Cache.Dir = filepath.Join(dir, "cache")
	}
	if c.Chat.HistoryDir == "" {
		c.Chat.HistoryDir = filepath.Join(dir, "history")
	}
	if c.Audit.Path == "" {
		c.Audit.Path = filepath.Join(dir, "audit.db")
	}
}

// ApplyEnvOverrides applies environment variable overrides.
//
// Supported environment variables:
//   - OPENAI_API: overrides server.base_url
//   - OPENAI_MODEL: overrides server.model
//   - OPENAI_KEY: overrides server.api_key
func (c *Config) ApplyEnvOverrides() {
	if api := os.Getenv("OPENAI_API"); api != "" {
		c.Server.BaseURL = api
	}
	if model := os.Getenv("OPENAI_MODEL"); model != "" {
		c.Server.Model = model
	}
	if key := os.Getenv("OPENAI_KEY"); key != "" {
		c.Server.APIKey = key
	}
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.Server.BaseURL != "" {
		u, err := url.Parse(c.Server.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("server.base_url: invalid URL %q", c.Server.BaseURL)
		}
	}
	if c.Chat.ToolIterations < 0 {
		return fmt.Errorf("chat.tool_iterations: must be non-negative, got %d", c.Chat.ToolIterations)
	}
	if c.Server.TimeoutSecs < 0 {
		return fmt.Errorf("server.timeout_secs: must be non-negative, got %d", c.Server.TimeoutSecs)
	}
	return nil
}

// =============================================================================
// SAVE
// =============================================================================

// Save writes the configuration to path as TOML with restrictive
// permissions, creating the directory if needed.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	fmt.Fprintln(file, "# wikichat configuration file")
	fmt.Fprintln(file, "# Generated by wikichat - edit with care")
	fmt.Fprintln(file, "")

	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// =============================================================================
// DERIVED CONFIGURATION
// =============================================================================

// ClientConfig maps the configuration onto the chat client's settings.
func (c *Config) ClientConfig() *chat.ClientConfig {
	return &chat.ClientConfig{
		BaseURL: strings.TrimRight(c.Server.BaseURL, "/"),
		APIKey:  c.Server.APIKey,
		Model:   c.Server.Model,
		Timeout: time.Duration(c.Server.TimeoutSecs) * time.Second,
		Quirks: chat.Quirks{
			StripStrict:          c.Quirks.StripStrict,
			SyntheticToolIndexes: c.Quirks.SyntheticToolIndexes,
		},
	}
}
