package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Auth modes. CLI mode drives a local agent process; API mode streams
// directly from an OpenAI-compatible endpoint.
const (
	AuthModeCLI = "cli"
	AuthModeAPI = "api"
)

// AuthConfig selects how a turn is executed and carries the credentials for
// API mode. Persisted separately from the main config so the GUI can rewrite
// it without touching user-edited settings.
type AuthConfig struct {
	Mode    string `json:"mode"`
	APIKey  string `json:"api_key,omitempty"`
	APIBase string `json:"api_base,omitempty"`
	CLIPath string `json:"cli_path,omitempty"`
}

func (a AuthConfig) IsConfigured() bool {
	switch a.Mode {
	case AuthModeAPI:
		return strings.TrimSpace(a.APIKey) != ""
	default:
		// CLI availability is checked at spawn time.
		return true
	}
}

func authPath() string {
	return filepath.Join(ShareDir(), "auth.json")
}

// LoadAuth reads the persisted auth config; a missing or unreadable file
// yields the CLI-mode default.
func LoadAuth() AuthConfig {
	data, err := os.ReadFile(authPath())
	if err != nil {
		return AuthConfig{Mode: AuthModeCLI}
	}
	var cfg AuthConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return AuthConfig{Mode: AuthModeCLI}
	}
	if cfg.Mode == "" {
		cfg.Mode = AuthModeCLI
	}
	return cfg
}

// SaveAuth persists the auth config, creating the share directory if needed.
func SaveAuth(cfg AuthConfig) error {
	if err := os.MkdirAll(ShareDir(), 0o755); err != nil {
		return fmt.Errorf("create share dir: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal auth config: %w", err)
	}
	if err := os.WriteFile(authPath(), data, 0o600); err != nil {
		return fmt.Errorf("write auth config: %w", err)
	}
	return nil
}
