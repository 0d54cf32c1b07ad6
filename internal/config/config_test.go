package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.jsonc"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Sessions.GUIRoot == "" || cfg.Sessions.CLIRoot == "" {
		t.Fatalf("session roots not defaulted: %+v", cfg.Sessions)
	}
	if cfg.Safety.ShellTimeoutSec != 60 {
		t.Fatalf("shell timeout=%d, want 60", cfg.Safety.ShellTimeoutSec)
	}
}

func TestLoadParsesJSONCWithComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.jsonc")
	raw := `{
	// agent binary override
	"agent": {"command": "/opt/agent/bin/agent", "thinking": true},
	"safety": {"shell_timeout_sec": 5},
	"services": {
		"search": {
			"base_url": "https://search.example/api",
			"api_key": "sekrit",
			"custom_headers": {"X-Region": "eu"},
		},
	},
}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Agent.Command != "/opt/agent/bin/agent" || !cfg.Agent.Thinking {
		t.Fatalf("agent section: %+v", cfg.Agent)
	}
	if cfg.Safety.ShellTimeoutSec != 5 {
		t.Fatalf("shell timeout=%d, want 5", cfg.Safety.ShellTimeoutSec)
	}
	if cfg.Services.Search == nil || cfg.Services.Search.APIKey != "sekrit" {
		t.Fatalf("search service: %+v", cfg.Services.Search)
	}
	if cfg.Services.Search.CustomHeaders["X-Region"] != "eu" {
		t.Fatalf("custom headers: %+v", cfg.Services.Search.CustomHeaders)
	}
	if cfg.Services.Fetch != nil {
		t.Fatalf("fetch service should be absent, got %+v", cfg.Services.Fetch)
	}
}

func TestLoadRejectsInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.jsonc")
	if err := os.WriteFile(path, []byte(`{"agent": [}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestAuthConfigIsConfigured(t *testing.T) {
	if (AuthConfig{Mode: AuthModeAPI}).IsConfigured() {
		t.Fatal("api mode without key should not be configured")
	}
	if !(AuthConfig{Mode: AuthModeAPI, APIKey: "k"}).IsConfigured() {
		t.Fatal("api mode with key should be configured")
	}
	if !(AuthConfig{Mode: AuthModeCLI}).IsConfigured() {
		t.Fatal("cli mode is always configured")
	}
}
