// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	if cfg.Server.BaseURL != "http://0.0.0.0:5001/v1" {
		t.Errorf("unexpected default base URL: %q", cfg.Server.BaseURL)
	}
	if cfg.Server.APIKey != "lm-studio" {
		t.Errorf("unexpected default API key: %q", cfg.Server.APIKey)
	}
	if cfg.Server.Model != "mlx-community/llama-3.2-3b-instruct" {
		t.Errorf("unexpected default model: %q", cfg.Server.Model)
	}
	if cfg.Chat.ToolIterations != 4 {
		t.Errorf("tool iterations = %d, want 4", cfg.Chat.ToolIterations)
	}
	if !cfg.Cache.Enabled {
		t.Error("cache should be enabled by default")
	}
	if !cfg.Audit.Enabled {
		t.Error("audit should be enabled by default")
	}
}

func TestLoadFromPathMissingFile(t *testing.T) {
	t.Setenv("OPENAI_API", "")
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadFromPath with missing file: %v", err)
	}
	if cfg.Server.BaseURL != "http://0.0.0.0:5001/v1" {
		t.Errorf("expected defaults, got base URL %q", cfg.Server.BaseURL)
	}
}

func TestLoadFromPathPartialFile(t *testing.T) {
	t.Setenv("OPENAI_API", "")
	t.Setenv("OPENAI_MODEL", "")
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[server]
base_url = "http://localhost:8080/v1"

[chat]
tool_iterations = 2
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Server.BaseURL != "http://localhost:8080/v1" {
		t.Errorf("base URL = %q, want http://localhost:8080/v1", cfg.Server.BaseURL)
	}
	if cfg.Chat.ToolIterations != 2 {
		t.Errorf("tool iterations = %d, want 2", cfg.Chat.ToolIterations)
	}
	// Unset fields fall back to defaults.
	if cfg.Server.Model != "mlx-community/llama-3.2-3b-instruct" {
		t.Errorf("model = %q, want default", cfg.Server.Model)
	}
	if cfg.Server.APIKey != "lm-studio" {
		t.Errorf("api key = %q, want default", cfg.Server.APIKey)
	}
}

func TestLoadFromPathMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[server\nbase_url ="), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromPath(path); err == nil {
		t.Error("expected error for malformed TOML")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("OPENAI_API", "http://10.0.0.5:1234/v1")
	t.Setenv("OPENAI_MODEL", "qwen2.5-7b-instruct")
	t.Setenv("OPENAI_KEY", "sk-local")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Server.BaseURL != "http://10.0.0.5:1234/v1" {
		t.Errorf("base URL = %q", cfg.Server.BaseURL)
	}
	if cfg.Server.Model != "qwen2.5-7b-instruct" {
		t.Errorf("model = %q", cfg.Server.Model)
	}
	if cfg.Server.APIKey != "sk-local" {
		t.Errorf("api key = %q", cfg.Server.APIKey)
	}
}

func TestEnvOverridesEmptyIgnored(t *testing.T) {
	t.Setenv("OPENAI_API", "")
	t.Setenv("OPENAI_MODEL", "")
	t.Setenv("OPENAI_KEY", "")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Server.BaseURL != "http://0.0.0.0:5001/v1" {
		t.Errorf("empty env var should not override, got %q", cfg.Server.BaseURL)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults pass", func(c *Config) {}, false},
		{"bad url", func(c *Config) { c.Server.BaseURL = "not a url" }, true},
		{"negative iterations", func(c *Config) { c.Chat.ToolIterations = -1 }, true},
		{"negative timeout", func(c *Config) { c.Server.TimeoutSecs = -5 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestSaveAndReload(t *testing.T) {
	t.Setenv("OPENAI_API", "")
	path := filepath.Join(t.TempDir(), "sub", "config.toml")

	cfg := Default()
	cfg.Server.BaseURL = "http://localhost:9999/v1"
	cfg.Quirks.StripStrict = true

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file mode = %o, want 0600", perm)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "# wikichat configuration file") {
		t.Error("saved file missing header comment")
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if loaded.Server.BaseURL != "http://localhost:9999/v1" {
		t.Errorf("base URL = %q", loaded.Server.BaseURL)
	}
	if !loaded.Quirks.StripStrict {
		t.Error("strip_strict quirk lost in round trip")
	}
}

func TestClientConfig(t *testing.T) {
	cfg := Default()
	cfg.Server.BaseURL = "http://localhost:5001/v1/"
	cfg.Server.TimeoutSecs = 30
	cfg.Quirks.SyntheticToolIndexes = true

	cc := cfg.ClientConfig()
	if cc.BaseURL != "http://localhost:5001/v1" {
		t.Errorf("trailing slash not trimmed: %q", cc.BaseURL)
	}
	if cc.Timeout != 30*time.Second {
		t.Errorf("timeout = %v, want 30s", cc.Timeout)
	}
	if !cc.Quirks.SyntheticToolIndexes {
		t.Error("quirk flag not carried over")
	}
}

func TestWatchReload(t *testing.T) {
	t.Setenv("OPENAI_MODEL", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[server]\nmodel = \"first\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var models []string
	loaded := make(chan struct{}, 4)

	w, err := Watch(path, func(cfg *Config) {
		mu.Lock()
		models = append(models, cfg.Server.Model)
		mu.Unlock()
		loaded <- struct{}{}
	}, nil)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(path, []byte("[server]\nmodel = \"second\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	select {
	case <-loaded:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(models) == 0 || models[len(models)-1] != "second" {
		t.Errorf("reloaded models = %v, want last entry \"second\"", models)
	}
}

func TestWatchCloseTwice(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	w, err := Watch(path, func(*Config) {}, nil)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("first Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
